package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealix-io/sealix/internal/ir"
)

const validConfig = `
stores:
  main:
    type: memory
resources:
  - type: lease
    name: app-creds
    store: main
    path: app-role
  - type: kv
    name: db
    store: main
    path: app/db
    fields:
      hostname:
        value: db.internal
      password:
        kind: write-only
        value: ephemeral://lease.app-creds/password
        version: 1
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Resources, 2)
	require.Contains(t, cfg.Stores, "main")
	assert.Equal(t, "memory", cfg.Stores["main"].Type)

	db := cfg.Resources[1]
	assert.Equal(t, "kv.db", db.Addr())
	assert.Equal(t, "kv:app/db", db.Key())

	// Kind defaults to plain when omitted.
	assert.Equal(t, ir.KindPlain, db.Fields["hostname"].Kind)
	assert.Equal(t, ir.KindWriteOnly, db.Fields["password"].Kind)
	assert.Equal(t, 1, db.Fields["password"].Version)

	lease := cfg.Resources[0]
	assert.True(t, lease.IsEphemeral())
}

func TestParse_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown resource type": `
stores: {main: {type: memory}}
resources:
  - {type: widget, name: x, store: main, path: p}
`,
		"unknown store type": `
stores: {main: {type: etcd}}
resources:
  - {type: kv, name: x, store: main, path: p}
`,
		"missing path": `
stores: {main: {type: memory}}
resources:
  - {type: kv, name: x, store: main}
`,
		"unknown field property": `
stores: {main: {type: memory}}
resources:
  - type: kv
    name: x
    store: main
    path: p
    fields:
      password: {kind: write-only, version: 1, writeOnly: true}
`,
		"non-integer version": `
stores: {main: {type: memory}}
resources:
  - type: kv
    name: x
    store: main
    path: p
    fields:
      password: {kind: write-only, version: "1"}
`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestParse_SemanticChecks(t *testing.T) {
	t.Run("duplicate address", func(t *testing.T) {
		_, err := Parse([]byte(`
stores: {main: {type: memory}}
resources:
  - {type: kv, name: x, store: main, path: a}
  - {type: kv, name: x, store: main, path: b}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate resource address")
	})

	t.Run("two persisted resources at one path", func(t *testing.T) {
		_, err := Parse([]byte(`
stores: {main: {type: memory}}
resources:
  - {type: kv, name: x, store: main, path: a}
  - {type: kv, name: y, store: main, path: a}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `share path "a"`)
	})

	t.Run("undeclared store", func(t *testing.T) {
		_, err := Parse([]byte(`
stores: {main: {type: memory}}
resources:
  - {type: kv, name: x, store: other, path: a}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undeclared store")
	})

	t.Run("lease with fields", func(t *testing.T) {
		_, err := Parse([]byte(`
stores: {main: {type: memory}}
resources:
  - type: lease
    name: creds
    store: main
    path: role
    fields:
      password: {kind: write-only, version: 1}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lease resources carry no fields")
	})

	t.Run("plain field with version", func(t *testing.T) {
		_, err := Parse([]byte(`
stores: {main: {type: memory}}
resources:
  - type: kv
    name: x
    store: main
    path: a
    fields:
      hostname: {value: db.internal, version: 2}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not declare a version")
	})

	t.Run("plain field with ephemeral ref", func(t *testing.T) {
		_, err := Parse([]byte(`
stores: {main: {type: memory}}
resources:
  - type: lease
    name: creds
    store: main
    path: role
  - type: kv
    name: x
    store: main
    path: a
    fields:
      hostname: {value: ephemeral://lease.creds/username}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only allowed in write-only fields")
	})

	t.Run("undeclared dependency", func(t *testing.T) {
		_, err := Parse([]byte(`
stores: {main: {type: memory}}
resources:
  - {type: kv, name: x, store: main, path: a, dependsOn: [kv.ghost]}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "depends on undeclared resource")
	})
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("resources: ["))
	assert.Error(t, err)
}

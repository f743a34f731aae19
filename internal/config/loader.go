// Package config loads and validates the declared configuration document.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/sealix-io/sealix/internal/ir"
)

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// Load reads, validates, and decodes a configuration file.
func Load(path string) (*ir.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse validates and decodes a configuration document.
func Parse(raw []byte) (*ir.Config, error) {
	// Validate structure against the schema first. The document is
	// round-tripped through JSON so the validator sees canonical types.
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	jsonRaw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonRaw, &jsonDoc); err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}
	if err := schema.Validate(jsonDoc); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var cfg ir.Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDefaults(&cfg)
	if err := check(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *ir.Config) {
	for _, res := range cfg.Resources {
		for _, f := range res.Fields {
			if f.Kind == "" {
				f.Kind = ir.KindPlain
			}
		}
	}
}

// check enforces the semantic rules the schema cannot express.
func check(cfg *ir.Config) error {
	seen := make(map[string]bool)
	keyOwner := make(map[string]string)
	for _, res := range cfg.Resources {
		addr := res.Addr()
		if seen[addr] {
			return fmt.Errorf("duplicate resource address %s", addr)
		}
		seen[addr] = true

		// Persisted resources are keyed by type:path; two of them at the
		// same path would overwrite each other's record entry.
		if !res.IsEphemeral() {
			if other, ok := keyOwner[res.Key()]; ok {
				return fmt.Errorf("resources %s and %s share path %q", other, addr, res.Path)
			}
			keyOwner[res.Key()] = addr
		}

		if _, ok := cfg.Stores[res.Store]; !ok {
			return fmt.Errorf("resource %s references undeclared store %q", addr, res.Store)
		}

		if res.Type == ir.TypeLease && len(res.Fields) > 0 {
			return fmt.Errorf("resource %s: lease resources carry no fields", addr)
		}

		for name, f := range res.Fields {
			switch f.Kind {
			case ir.KindWriteOnly:
				// Positivity of the version is the ledger's concern at
				// apply time; here only the field shape is enforced.
			case ir.KindPlain:
				if f.Version != 0 {
					return fmt.Errorf("resource %s: plain field %q must not declare a version", addr, name)
				}
				if ref, ok := f.Value.(string); ok && strings.HasPrefix(ref, "ephemeral://") {
					return fmt.Errorf("resource %s: field %q: ephemeral references are only allowed in write-only fields", addr, name)
				}
			}
		}
	}

	for _, res := range cfg.Resources {
		for _, dep := range res.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("resource %s depends on undeclared resource %s", res.Addr(), dep)
			}
		}
	}
	return nil
}

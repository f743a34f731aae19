package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/sealix-io/sealix/internal/ledger"
	"github.com/sealix-io/sealix/internal/logging"
	"github.com/sealix-io/sealix/internal/metrics"
	"github.com/sealix-io/sealix/pkg/store"
)

// resolver pushes write-only field values to the secret store, gated by the
// version ledger. The raw values only ever exist inside the supplied map for
// the duration of applyFields; nothing of them outlives the call.
type resolver struct {
	ledger *ledger.Ledger
}

// applyFields transmits a resource's write-only fields. Each field is gated
// individually by the version ledger, but stores replace the entire payload
// at a path on Write, so when any field needs transmitting the write carries
// every supplied field; retransmitting the unchanged ones keeps them from
// being erased. When no field needs transmitting there is no store call at
// all. On transmission failure the ledger stays untouched, so a re-run of
// apply retries the same versions.
func (r *resolver) applyFields(ctx context.Context, s store.Store, storeName, key, path, addr string, supplied map[string]any, versions map[string]int) (written, skipped []string, err error) {
	pending := make(map[string]int)
	for _, name := range sortedKeys(supplied) {
		should, err := r.ledger.ShouldUpdate(key, name, versions[name])
		if err != nil {
			return nil, nil, err
		}
		if should {
			pending[name] = versions[name]
			continue
		}
		metrics.WritesSkipped.Inc()
		skipped = append(skipped, name)
		logging.Debug("write-only field unchanged, skipping transmission",
			"address", addr, "field", name, "version", versions[name])
	}
	if len(pending) == 0 {
		return nil, skipped, nil
	}

	if err := s.Write(ctx, path, supplied); err != nil {
		metrics.StoreWrites.WithLabelValues(storeName, metrics.OutcomeError).Inc()
		return nil, skipped, &SecretWriteError{Address: addr, Field: fieldList(pending), Err: err}
	}
	metrics.StoreWrites.WithLabelValues(storeName, metrics.OutcomeOK).Inc()

	for name, version := range pending {
		r.ledger.RecordApplied(key, name, version)
		written = append(written, name)
	}
	sort.Strings(written)
	logging.Debug("write-only fields transmitted",
		"address", addr, "fields", strings.Join(written, ","))
	return written, skipped, nil
}

func sortedKeys(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fieldList(pending map[string]int) string {
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

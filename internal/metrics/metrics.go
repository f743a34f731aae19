// Package metrics counts secret store traffic. Counters only record call
// volume and outcomes; no label ever carries a path, payload, or lease id.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreWrites counts write-only field transmissions per store.
	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealix_store_writes_total",
		Help: "Write-only field transmissions to secret stores.",
	}, []string{"store", "outcome"})

	// StoreReads counts ephemeral reads per store.
	StoreReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealix_store_reads_total",
		Help: "Ephemeral secret reads from secret stores.",
	}, []string{"store", "outcome"})

	// LeasesIssued counts dynamic credential issuances per store.
	LeasesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sealix_leases_issued_total",
		Help: "Dynamic credential leases issued by secret stores.",
	}, []string{"store", "outcome"})

	// WritesSkipped counts write-only transmissions skipped because the
	// declared version matched the ledger.
	WritesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sealix_writes_skipped_total",
		Help: "Write-only transmissions skipped by the version ledger.",
	})
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

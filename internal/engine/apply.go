package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/internal/ledger"
	"github.com/sealix-io/sealix/internal/logging"
	"github.com/sealix-io/sealix/internal/record"
)

// Apply event statuses delivered to the callback.
const (
	EventStarted   = "started"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventSkipped   = "skipped"
)

// ApplyEvent notifies a listener about per-resource progress.
type ApplyEvent struct {
	Address  string
	Status   string
	Duration time.Duration
	Err      error
}

// ApplyCallback receives apply events. It may be nil.
type ApplyCallback func(ApplyEvent)

// FieldResult is the per-field outcome of one apply pass.
type FieldResult struct {
	Name    string
	Written bool // value transmitted this pass
	Skipped bool // version matched last applied, transmission skipped
	Err     error
}

// ResourceResult is the per-resource outcome of one apply pass.
type ResourceResult struct {
	Address   string
	Ephemeral bool
	LeaseID   string // set for lease resources
	TTL       time.Duration
	Duration  time.Duration
	Skipped   bool // a dependency failed, resource never attempted
	Err       error
	Fields    []FieldResult
}

// Report collects the outcome of a full apply pass. Field results carry
// versions and statuses only; no secret material ever lands in a report.
type Report struct {
	Results   []*ResourceResult
	Destroyed []string
}

// Err aggregates every resource failure, or nil when the pass was clean.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Address, res.Err))
		}
	}
	return errors.Join(errs...)
}

// resource completion states tracked during a pass
const (
	stateRunning = iota
	stateDone
	stateFailed
	stateSkipped
)

// Apply executes one apply pass: it walks the dependency graph in parallel,
// transmits changed write-only fields, opens and closes ephemeral handles,
// and updates the record in memory. Independent resources proceed even when
// others fail; dependents of a failed resource are skipped. The caller
// persists the record afterwards, on failure too, so succeeded versions are
// not retransmitted by the next pass.
func (e *Engine) Apply(ctx context.Context, cfg *ir.Config, rec *ir.Record, callback ApplyCallback) (*Report, error) {
	dag, err := BuildDAG(cfg.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	if callback == nil {
		callback = func(ApplyEvent) {}
	}

	led := ledger.FromRecord(rec)
	rsv := &resolver{ledger: led}

	parallelism := e.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	var (
		mu     sync.Mutex
		cond   = sync.NewCond(&mu)
		states = make(map[string]int)
		recMu  sync.Mutex
	)

	broker := NewBroker(func(addr string) bool {
		mu.Lock()
		defer mu.Unlock()
		return states[addr] == stateDone
	})
	// Handles die with the pass, whatever its outcome.
	defer broker.CloseAll()

	byAddr := make(map[string]*ir.Resource)
	for _, res := range cfg.Resources {
		byAddr[res.Addr()] = res
	}

	report := &Report{}
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for _, addr := range dag.ApplyOrder() {
		res := byAddr[addr]
		deps := dag.Dependencies(addr)

		wg.Add(1)
		go func() {
			defer wg.Done()

			finish := func(result *ResourceResult, state int) {
				mu.Lock()
				states[result.Address] = state
				report.Results = append(report.Results, result)
				mu.Unlock()
				cond.Broadcast()
			}

			mu.Lock()
			for !depsSettled(states, deps) {
				cond.Wait()
			}
			failedDep := failedDependency(states, deps)
			mu.Unlock()

			if failedDep != "" {
				result := &ResourceResult{
					Address: res.Addr(),
					Skipped: true,
					Err:     fmt.Errorf("dependency %s failed", failedDep),
				}
				logging.Warn("skipping resource, dependency failed",
					"address", res.Addr(), "dependency", failedDep)
				callback(ApplyEvent{Address: res.Addr(), Status: EventSkipped, Err: result.Err})
				finish(result, stateSkipped)
				return
			}

			sem <- struct{}{}
			defer func() { <-sem }()

			callback(ApplyEvent{Address: res.Addr(), Status: EventStarted})
			start := time.Now()

			result := e.applyResource(ctx, res, deps, broker, rsv, led, rec, &recMu)
			result.Duration = time.Since(start)

			if result.Err != nil {
				logging.Error("resource apply failed",
					"address", res.Addr(), "error", result.Err)
				callback(ApplyEvent{Address: res.Addr(), Status: EventFailed, Duration: result.Duration, Err: result.Err})
				finish(result, stateFailed)
				return
			}
			callback(ApplyEvent{Address: res.Addr(), Status: EventCompleted, Duration: result.Duration})
			finish(result, stateDone)
		}()
	}

	wg.Wait()

	// Entries with no declared counterpart leave the record; their version
	// baselines go with them, so a re-declared resource starts fresh.
	declared := make(map[string]bool)
	for _, res := range cfg.Resources {
		if !res.IsEphemeral() {
			declared[res.Key()] = true
		}
	}
	for _, entry := range append([]*ir.ResourceRecord(nil), rec.Resources...) {
		if declared[entry.Key] {
			continue
		}
		rec.Remove(entry.Key)
		led.Forget(entry.Key)
		report.Destroyed = append(report.Destroyed, entry.Key)
		callback(ApplyEvent{
			Address: fmt.Sprintf("%s.%s", entry.Type, entry.Name),
			Status:  EventCompleted,
		})
		logging.Info("removed record entry", "key", entry.Key)
	}

	rec.Serial++

	return report, report.Err()
}

// applyResource applies one resource: ephemeral resources get their payload
// opened through the broker, kv resources get their supplied write-only
// fields transmitted as one payload through the version-gated resolver. Raw
// field values exist only inside this call chain.
func (e *Engine) applyResource(ctx context.Context, res *ir.Resource, deps []string, broker *Broker, rsv *resolver, led *ledger.Ledger, rec *ir.Record, recMu *sync.Mutex) *ResourceResult {
	result := &ResourceResult{
		Address:   res.Addr(),
		Ephemeral: res.IsEphemeral(),
	}

	s, err := e.registry.Get(res.Store)
	if err != nil {
		result.Err = err
		return result
	}

	if res.IsEphemeral() {
		tctx, cancel := context.WithTimeout(ctx, e.callTimeout(res))
		defer cancel()

		handle, err := broker.Open(tctx, res, deps, s, res.Store)
		if err != nil {
			result.Err = err
			return result
		}
		result.LeaseID = handle.LeaseID
		result.TTL = handle.TTL
		logging.Debug("ephemeral payload opened", "address", res.Addr(), "lease_id", handle.LeaseID)
		return result
	}

	// Gather every supplied write-only field up front. Store writes replace
	// the whole payload at a path, so transmission is all-or-nothing per
	// resource: a missing ephemeral payload fails the resource without a
	// write rather than erasing its sibling fields.
	supplied := make(map[string]any)
	versions := make(map[string]int)
	var fieldErrs []error
	for _, name := range sortedFieldNames(res) {
		f := res.Fields[name]
		if f.Kind != ir.KindWriteOnly {
			continue
		}
		if f.Value == nil {
			// No value supplied this pass; whatever the store holds for
			// the field stays as is.
			continue
		}

		raw := f.Value
		if ref, ok := raw.(string); ok && strings.HasPrefix(ref, ephemeralScheme) {
			v, err := broker.Value(ref)
			if err != nil {
				result.Fields = append(result.Fields, FieldResult{Name: name, Err: err})
				fieldErrs = append(fieldErrs, err)
				continue
			}
			raw = v
		}
		supplied[name] = raw
		versions[name] = f.Version
	}

	var anyWritten bool
	if len(fieldErrs) == 0 && len(supplied) > 0 {
		written, skipped, err := func() ([]string, []string, error) {
			tctx, cancel := context.WithTimeout(ctx, e.callTimeout(res))
			defer cancel()
			return rsv.applyFields(tctx, s, res.Store, res.Key(), res.Path, res.Addr(), supplied, versions)
		}()
		if err != nil {
			fieldErrs = append(fieldErrs, err)
		}
		anyWritten = len(written) > 0
		for _, name := range written {
			result.Fields = append(result.Fields, FieldResult{Name: name, Written: true})
		}
		for _, name := range skipped {
			result.Fields = append(result.Fields, FieldResult{Name: name, Skipped: true})
		}
	}
	result.Err = errors.Join(fieldErrs...)

	// The record keeps whatever actually applied. A brand-new resource that
	// applied nothing leaves no entry, so the next pass treats it as a
	// create again.
	recMu.Lock()
	defer recMu.Unlock()
	prior := rec.Find(res.Key())
	if prior == nil && result.Err != nil && !anyWritten {
		return result
	}
	rec.Remove(res.Key())
	rec.Resources = append(rec.Resources, record.EntryFor(res, led, deps))

	return result
}

// depsSettled reports whether every dependency reached a terminal state.
func depsSettled(states map[string]int, deps []string) bool {
	for _, dep := range deps {
		if s, ok := states[dep]; !ok || s == stateRunning {
			return false
		}
	}
	return true
}

// failedDependency returns the first dependency that failed or was skipped.
func failedDependency(states map[string]int, deps []string) string {
	for _, dep := range deps {
		if s := states[dep]; s == stateFailed || s == stateSkipped {
			return dep
		}
	}
	return ""
}

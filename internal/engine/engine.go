package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/internal/logging"
	storereg "github.com/sealix-io/sealix/internal/store"
)

const (
	defaultParallelism = 10

	// DefaultTimeout bounds every secret store call unless the resource
	// overrides it. A timed-out call reports the same way as a failed one.
	DefaultTimeout = 60 * time.Second
)

// Engine reconciles declared resources against secret stores and maintains
// the persisted record.
type Engine struct {
	registry *storereg.Registry

	// Parallelism bounds concurrent store operations across independent
	// resources. Operations on one resource are always serialized.
	Parallelism int

	// Timeout is the default per-store-call timeout.
	Timeout time.Duration
}

func New(registry *storereg.Registry) *Engine {
	return &Engine{
		registry:    registry,
		Parallelism: defaultParallelism,
		Timeout:     DefaultTimeout,
	}
}

// CreatePlan computes pending changes by comparing declared versions
// against the persisted record. Planning is a dry run: no value is
// transmitted and no secret is read.
func (e *Engine) CreatePlan(ctx context.Context, cfg *ir.Config, rec *ir.Record) (*ir.Plan, error) {
	logging.Debug("creating plan", "resources", len(cfg.Resources), "record_resources", len(rec.Resources))

	dag, err := BuildDAG(cfg.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}

	plan := &ir.Plan{
		Metadata: &ir.PlanMetadata{Timestamp: time.Now().UTC().Format(time.RFC3339)},
		Changes:  []*ir.ResourceChange{},
		Summary:  &ir.PlanSummary{},
	}

	byAddr := make(map[string]*ir.Resource)
	for _, res := range cfg.Resources {
		byAddr[res.Addr()] = res
	}

	for _, addr := range dag.ApplyOrder() {
		res := byAddr[addr]

		if res.IsEphemeral() {
			// Ephemeral resources are evaluated every pass and never
			// compared against the record, since they are absent from it.
			plan.Changes = append(plan.Changes, &ir.ResourceChange{
				Address: addr,
				Action:  ir.ActionRead,
				Desired: res,
			})
			plan.Summary.Read++
			continue
		}

		prior := rec.Find(res.Key())
		change := diffResource(res, prior)
		switch change.Action {
		case ir.ActionCreate:
			plan.Summary.Create++
		case ir.ActionUpdate:
			plan.Summary.Update++
		default:
			plan.Summary.NoOp++
			continue
		}
		plan.Changes = append(plan.Changes, change)
	}

	// Record entries with no declared counterpart get removed.
	declared := make(map[string]bool)
	for _, res := range cfg.Resources {
		if !res.IsEphemeral() {
			declared[res.Key()] = true
		}
	}
	for _, entry := range rec.Resources {
		if !declared[entry.Key] {
			plan.Changes = append(plan.Changes, &ir.ResourceChange{
				Address: fmt.Sprintf("%s.%s", entry.Type, entry.Name),
				Action:  ir.ActionDelete,
				Prior:   entry,
			})
			plan.Summary.Delete++
		}
	}

	return plan, nil
}

// diffResource compares one declared resource against its record entry.
// Write-only fields compare by version number only; their values are never
// inspected, because nothing exists to compare them against.
func diffResource(res *ir.Resource, prior *ir.ResourceRecord) *ir.ResourceChange {
	change := &ir.ResourceChange{
		Address: res.Addr(),
		Desired: res,
		Prior:   prior,
		Diff:    make(map[string]*ir.FieldDiff),
	}

	if prior == nil {
		change.Action = ir.ActionCreate
		for _, name := range sortedFieldNames(res) {
			f := res.Fields[name]
			if f.Kind == ir.KindWriteOnly {
				change.Diff[name] = &ir.FieldDiff{
					WriteOnly:    true,
					AfterVersion: f.Version,
					Action:       "create",
				}
			} else {
				change.Diff[name] = &ir.FieldDiff{After: f.Value, Action: "create"}
			}
		}
		return change
	}

	dirty := false
	for _, name := range sortedFieldNames(res) {
		f := res.Fields[name]
		if f.Kind == ir.KindWriteOnly {
			applied, ok := prior.FieldVersions[name]
			switch {
			case !ok && f.Value == nil:
				// No baseline and nothing supplied: adopted field still
				// waiting for a value, nothing to do this pass.
				change.Diff[name] = &ir.FieldDiff{WriteOnly: true, Action: "noop"}
			case !ok:
				change.Diff[name] = &ir.FieldDiff{
					WriteOnly:    true,
					AfterVersion: f.Version,
					Action:       "create",
				}
				dirty = true
			case applied != f.Version:
				change.Diff[name] = &ir.FieldDiff{
					WriteOnly:     true,
					BeforeVersion: applied,
					AfterVersion:  f.Version,
					Action:        "update",
				}
				dirty = true
			default:
				change.Diff[name] = &ir.FieldDiff{
					WriteOnly:     true,
					BeforeVersion: applied,
					AfterVersion:  f.Version,
					Action:        "noop",
				}
			}
			continue
		}

		before, had := prior.Fields[name]
		if !had {
			change.Diff[name] = &ir.FieldDiff{After: f.Value, Action: "create"}
			dirty = true
		} else if fmt.Sprintf("%v", before) != fmt.Sprintf("%v", f.Value) {
			change.Diff[name] = &ir.FieldDiff{Before: before, After: f.Value, Action: "update"}
			dirty = true
		} else {
			change.Diff[name] = &ir.FieldDiff{Before: before, After: f.Value, Action: "noop"}
		}
	}

	for name, before := range prior.Fields {
		if _, ok := res.Fields[name]; !ok {
			change.Diff[name] = &ir.FieldDiff{Before: before, Action: "delete"}
			dirty = true
		}
	}

	if dirty {
		change.Action = ir.ActionUpdate
	} else {
		change.Action = ir.ActionNoOp
	}
	return change
}

func sortedFieldNames(res *ir.Resource) []string {
	names := make([]string, 0, len(res.Fields))
	for name := range res.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// callTimeout returns the per-store-call timeout for a resource.
func (e *Engine) callTimeout(res *ir.Resource) time.Duration {
	if res != nil && res.Timeout != "" {
		if d, err := time.ParseDuration(res.Timeout); err == nil && d > 0 {
			return d
		}
	}
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

package ir

// Plan represents a calculated execution plan. Plans are a dry run: no
// secret material is transmitted or read while building one.
type Plan struct {
	Metadata *PlanMetadata     `json:"metadata"`
	Changes  []*ResourceChange `json:"changes"`
	Summary  *PlanSummary      `json:"summary"`
}

type PlanMetadata struct {
	Timestamp string `json:"timestamp"`
}

// Change actions.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionRead   = "READ" // ephemeral resource, evaluated every pass
	ActionNoOp   = "NOOP"
)

type ResourceChange struct {
	Address string                `json:"address"`
	Action  string                `json:"action"`
	Desired *Resource             `json:"resource,omitempty"`
	Prior   *ResourceRecord       `json:"prior,omitempty"`
	Diff    map[string]*FieldDiff `json:"diff,omitempty"`
}

// FieldDiff describes a pending change to one field. For write-only fields
// only the version transition is recorded; Before and After stay nil.
type FieldDiff struct {
	Before        any    `json:"before,omitempty"`
	After         any    `json:"after,omitempty"`
	WriteOnly     bool   `json:"writeOnly"`
	BeforeVersion int    `json:"beforeVersion,omitempty"`
	AfterVersion  int    `json:"afterVersion,omitempty"`
	Action        string `json:"action"` // "create", "update", "delete", "noop"
}

type PlanSummary struct {
	Create int `json:"create"`
	Update int `json:"update"`
	Delete int `json:"delete"`
	Read   int `json:"read"`
	NoOp   int `json:"noop"`
}

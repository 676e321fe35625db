package domain

// DependencyKind classifies a dependency edge. Only finish-to-start is
// meaningful today; the field exists so the wire format doesn't change
// when other kinds arrive.
type DependencyKind string

const (
	// FinishToStart means the prerequisite must complete before the
	// dependent may begin.
	FinishToStart DependencyKind = "finish-to-start"
)

// Dependency records that TaskID may not start before DependsOnID has
// completed.
type Dependency struct {
	TaskID      int64          `json:"task_id"`
	DependsOnID int64          `json:"depends_on_id"`
	Kind        DependencyKind `json:"kind"`
}

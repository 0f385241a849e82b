package build

import "fmt"

// Failure records one per-location problem that did not abort the
// scope. Err preserves the original error chain for errors.Is checks.
type Failure struct {
	VerseID string
	PackID  string
	Err     error
}

func (f Failure) String() string {
	if f.PackID != "" {
		return fmt.Sprintf("%s [%s]: %v", f.VerseID, f.PackID, f.Err)
	}
	return fmt.Sprintf("%s: %v", f.VerseID, f.Err)
}

// Result summarizes one aggregation pass. Rebuilding an unchanged
// scope with an unchanged pack set yields all-zero deltas: every
// would-be insert is detected as already present.
type Result struct {
	RunID           string
	Scope           string
	UnitsCreated    int
	UnitsUpdated    int
	SupportsAdded   int
	ReadingsAdded   int
	Agreements      int
	VersesProcessed int
	Failures        []Failure
}

// merge folds one location's delta into the pass total.
func (r *Result) merge(other locationDelta) {
	if other.unitCreated {
		r.UnitsCreated++
	}
	if other.unitUpdated {
		r.UnitsUpdated++
	}
	r.SupportsAdded += other.supportsAdded
	r.ReadingsAdded += other.readingsAdded
	r.Agreements += other.agreements
	r.Failures = append(r.Failures, other.failures...)
}

// locationDelta is the outcome of processing a single location.
type locationDelta struct {
	unitCreated   bool
	unitUpdated   bool
	supportsAdded int
	readingsAdded int
	agreements    int
	failures      []Failure
}

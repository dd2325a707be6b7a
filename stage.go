package secs

// Stage groups the top-level schedules of a Runner within a tick.
// Every due schedule of a stage is executed and flushed before the next stage starts.
type Stage int

const (
	// Before is for work later stages read: input, lazy value loaders, window events.
	Before Stage = iota
	// Default holds simulation and rendering.
	Default
	// After is for presentation, statistics and cleanup.
	After

	stageCount
)

var stageNames = [stageCount]string{"Before", "Default", "After"}

// String returns the stage name.
func (s Stage) String() string {
	if s < 0 || s >= stageCount {
		return "Unknown"
	}
	return stageNames[s]
}

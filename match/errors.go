package match

import "fmt"

// UnmatchableShapeError reports a shape whose match gaps exceed the tolerated
// share of its length.
type UnmatchableShapeError struct {
	ShapeID     string
	GapFraction float64
	MaxFraction float64
}

func (e *UnmatchableShapeError) Error() string {
	return fmt.Sprintf("shape %s: unmatchable, %.1f%% of length in gaps (limit %.1f%%)",
		e.ShapeID, e.GapFraction*100, e.MaxFraction*100)
}

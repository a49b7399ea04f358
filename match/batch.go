package match

import (
	"context"
	"sync"

	"github.com/transitstat/transitgo/gtfs"
)

// Job pairs a shape with the stops of its pattern.
type Job struct {
	Shape *gtfs.Shape
	Stops []*gtfs.Stop
}

// BatchResult is one job's outcome; exactly one of Matched and Err is set.
type BatchResult struct {
	ShapeID string
	Matched *MatchedShape
	Err     error
}

// Stats receives batch progress. The metrics package implements it; a nil
// Stats is silently ignored.
type Stats interface {
	ShapeMatched(gaps int)
	ShapeFailed()
}

// MatchAll runs the jobs through a worker pool of cfg.Workers goroutines.
// Results line up with the input order. A failed shape occupies its slot with
// Err set; other shapes are unaffected. Cancelling the context leaves the
// untouched slots with ctx.Err().
func (m *Matcher) MatchAll(ctx context.Context, jobs []Job, stats Stats) []BatchResult {
	results := make([]BatchResult, len(jobs))
	workers := m.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				job := jobs[i]
				matched, err := m.MatchShape(job.Shape, job.Stops)
				results[i] = BatchResult{ShapeID: job.Shape.ID, Matched: matched, Err: err}
				if stats != nil {
					if err != nil {
						stats.ShapeFailed()
					} else {
						stats.ShapeMatched(len(matched.Gaps))
					}
				}
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case idx <- i:
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				if results[j].ShapeID == "" {
					results[j] = BatchResult{ShapeID: jobs[j].Shape.ID, Err: ctx.Err()}
				}
			}
			break feed
		}
	}
	close(idx)
	wg.Wait()
	return results
}

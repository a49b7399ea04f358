package match

import (
	"math"

	"github.com/transitstat/transitgo/geo"
)

// cell is one Viterbi table entry: the best cumulative log score of reaching
// this candidate, and which candidate of the previous column it came from.
type cell struct {
	score   float64
	backPtr int
}

// logEmission scores a candidate by its perpendicular distance, as the log of
// a zero-mean Gaussian. The normalization constant is identical across
// candidates of a column and omitted.
func (m *Matcher) logEmission(distM float64) float64 {
	z := distM / m.cfg.EmissionSigmaM
	return -0.5 * z * z
}

// logTransition scores moving between two candidates of consecutive shape
// points. The penalty grows with the detour ratio of the network path over
// the great-circle leg; unreachable pairs and pairs beyond the path cutoff
// are forbidden.
func (m *Matcher) logTransition(from, to Candidate, legM float64, cache *spCache) float64 {
	route, ok := cache.path(from.position(), to.position())
	if !ok {
		return math.Inf(-1)
	}
	// floor the leg at one meter so near-duplicate shape points cannot blow
	// the ratio up
	if legM < 1 {
		legM = 1
	}
	excess := route.DistanceM/legM - 1
	if excess < 0 {
		excess = 0
	}
	return m.decay(excess)
}

// step extends the table by one column. Returns false when every candidate of
// the new column is unreachable, which closes the current sub-path.
//
// Ties keep the first candidate encountered: columns arrive ordered by
// perpendicular distance then edge id, so "first" is exactly the required
// smaller-distance-then-input-order preference.
func (m *Matcher) step(prev []cell, prevCands, curCands []Candidate, legM float64, cache *spCache) ([]cell, bool) {
	col := make([]cell, len(curCands))
	any := false
	for j, cj := range curCands {
		best := math.Inf(-1)
		bestPtr := -1
		for i := range prevCands {
			if math.IsInf(prev[i].score, -1) {
				continue
			}
			s := prev[i].score + m.logTransition(prevCands[i], cj, legM, cache)
			if s > best {
				best = s
				bestPtr = i
			}
		}
		if bestPtr >= 0 {
			best += m.logEmission(cj.DistanceM)
			any = true
		}
		col[j] = cell{score: best, backPtr: bestPtr}
	}
	return col, any
}

// decode runs Viterbi over the candidate columns, splitting into sub-paths
// wherever a point has no candidates or no reachable ones. Each returned
// sub-path holds one winning candidate per covered shape point.
func (m *Matcher) decode(pts []geo.Point, cands [][]Candidate, cache *spCache) (subPaths [][]Candidate, gaps []MatchGap, score float64) {
	cum := geo.CumulativeM(pts)
	lastMatched := -1

	i := 0
	for i < len(pts) {
		if len(cands[i]) == 0 {
			i++
			continue
		}
		start := i

		// forward pass
		cols := make([][]cell, 1)
		obs := []int{start}
		first := make([]cell, len(cands[start]))
		for j, c := range cands[start] {
			first[j] = cell{score: m.logEmission(c.DistanceM), backPtr: -1}
		}
		cols[0] = first

		next := start + 1
		for next < len(pts) && len(cands[next]) > 0 {
			prevObs := obs[len(obs)-1]
			legM := geo.HaversineM(pts[prevObs], pts[next])
			col, ok := m.step(cols[len(cols)-1], cands[prevObs], cands[next], legM, cache)
			if !ok {
				break
			}
			cols = append(cols, col)
			obs = append(obs, next)
			next++
		}

		sub, subScore := backtrack(cols, obs, cands)
		if start > 0 || lastMatched >= 0 {
			gaps = appendGap(gaps, cum, lastMatched, start)
		}
		subPaths = append(subPaths, sub)
		score += subScore
		lastMatched = obs[len(obs)-1]
		i = next
	}

	if lastMatched < len(pts)-1 {
		gaps = appendGap(gaps, cum, lastMatched, len(pts))
	}
	return subPaths, gaps, score
}

// appendGap records the uncovered stretch between two matched points; from is
// -1 for a gap opening the shape, to is len(pts) for one closing it. A
// restart at the very next point is still a gap: the network path is broken
// across that leg even though no point was skipped.
func appendGap(gaps []MatchGap, cum []float64, from, to int) []MatchGap {
	lo := from
	if lo < 0 {
		lo = 0
	}
	hi := to
	if hi > len(cum)-1 {
		hi = len(cum) - 1
	}
	return append(gaps, MatchGap{FromIndex: from, ToIndex: to, LengthM: cum[hi] - cum[lo]})
}

// backtrack follows the back pointers from the best final cell.
func backtrack(cols [][]cell, obs []int, cands [][]Candidate) ([]Candidate, float64) {
	last := cols[len(cols)-1]
	best := 0
	for j := 1; j < len(last); j++ {
		if last[j].score > last[best].score {
			best = j
		}
	}
	out := make([]Candidate, len(cols))
	ptr := best
	for k := len(cols) - 1; k >= 0; k-- {
		out[k] = cands[obs[k]][ptr]
		ptr = cols[k][ptr].backPtr
	}
	return out, last[best].score
}

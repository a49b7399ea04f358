/*
Package match snaps GTFS shape polylines onto a network graph.

The decoder is a hidden Markov model: each shape point emits over its nearby
network positions (candidates), transitions between consecutive candidates are
scored by how much the network path detours versus the great-circle leg, and
Viterbi picks the jointly best candidate sequence. Regions of the shape with
no usable candidates become recorded gaps; a shape whose gaps cover too much
of its length fails with UnmatchableShapeError.

The matched candidate sequence is then assembled into a drivable polyline from
the shortest-path edge geometry, and the pattern's stops are re-projected onto
it. MatchAll runs shapes through a worker pool; each shape's failure stays in
its own result slot.
*/
package match

/*
Package graph holds the street/rail network the matcher decodes onto.

The graph is an arena: nodes and edges live in flat slices addressed by dense
int32 ids, and the structure is read-only once built. Edges are directed;
two-way streets are two edges. A cell-grid spatial index answers
"edges within radius of a point" and a cutoff-bounded Dijkstra answers
"network distance between two points on edges". Both queries are safe for
concurrent use.
*/
package graph

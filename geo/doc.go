// Package geo provides the small amount of spherical and planar geometry the
// pipeline needs: haversine distances, polyline lengths, and projection of
// points onto polylines in a local equirectangular plane.
package geo

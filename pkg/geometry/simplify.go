package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify applies Douglas-Peucker with tolerance (degrees) to every ring.
// Rings that would collapse below four points are kept unchanged, so the
// result never has more vertices than the input and never loses a ring.
func Simplify(g orb.Geometry, tolerance float64) orb.Geometry {
	if tolerance <= 0 {
		return g
	}
	dp := simplify.DouglasPeucker(tolerance)
	switch g := g.(type) {
	case orb.Polygon:
		return simplifyPolygon(dp, g)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = simplifyPolygon(dp, p)
		}
		return out
	}
	return g
}

func simplifyPolygon(dp *simplify.DouglasPeuckerSimplifier, p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		// The simplifier works in place.
		ls, ok := dp.Simplify(orb.LineString(ring.Clone())).(orb.LineString)
		if !ok || len(ls) < 4 || len(ls) > len(ring) {
			out[i] = ring
			continue
		}
		out[i] = orb.Ring(ls)
	}
	return out
}

// VertexCount returns the number of points in g.
func VertexCount(g orb.Geometry) int {
	switch g := g.(type) {
	case orb.Point:
		return 1
	case orb.LineString:
		return len(g)
	case orb.Ring:
		return len(g)
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += VertexCount(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, c := range g {
			n += VertexCount(c)
		}
		return n
	}
	return 0
}

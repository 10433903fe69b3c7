package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// PixelArea is the area of one 3 arc-second grid cell in square degrees.
const PixelArea = 0.000000695

// FillArea converts a threshold in pixels to square degrees.
func FillArea(pixels float64) float64 {
	return pixels * PixelArea
}

// Fill removes interior rings with an area below maxArea square degrees.
// A maxArea of zero removes every interior ring. Rings at or above the
// threshold are kept. The input is not modified.
func Fill(g orb.Geometry, maxArea float64) orb.Geometry {
	switch g := g.(type) {
	case orb.Polygon:
		return fillPolygon(g, maxArea)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = fillPolygon(p, maxArea)
		}
		return out
	}
	return g
}

func fillPolygon(p orb.Polygon, maxArea float64) orb.Polygon {
	if len(p) == 0 {
		return p
	}
	out := orb.Polygon{p[0]}
	if maxArea <= 0 {
		return out
	}
	for _, hole := range p[1:] {
		if planar.Area(hole) >= maxArea {
			out = append(out, hole)
		}
	}
	return out
}

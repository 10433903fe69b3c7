// Package raster is the client side of the external raster delineation tool.
//
// The tool splits the terminal unit catchment of a basin at the exact outlet
// location using flow-direction grids. The engine never runs flow algorithms
// itself; it hands the tool a catchment polygon and an outlet and gets back
// the upstream part of that polygon plus the snapped outlet.
//
// # Splitters
//
//   - [CommandSplitter] runs an executable per request, JSON on stdin and
//     stdout
//   - [Pool] wraps any Splitter with a concurrency limit, a per-call
//     timeout, retries and result caching
//
// A [Response] without a polygon means the tool ran and could not delineate
// the outlet. Errors are reserved for failures to talk to the tool at all.
package raster

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/hydro"
)

// Request asks for the upstream part of one terminal catchment.
type Request struct {
	OutletID    string
	Region      hydro.Region
	Lat         float64
	Lng         float64
	CatchmentID int64
	Catchment   orb.MultiPolygon

	// SingleCatchment is set when the basin has no upstream catchments, so
	// the tool must not assume inflow through the polygon boundary.
	SingleCatchment bool
}

// Response is the tool's answer.
type Response struct {
	Polygon orb.Geometry // nil when the tool could not delineate
	SnapLat float64
	SnapLng float64
}

// OK reports whether the tool produced an areal geometry: a polygon, or a
// collection holding one, whose outer ring closes with at least four points.
func (r Response) OK() bool {
	return hasArea(r.Polygon)
}

func hasArea(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return len(g) > 0 && len(g[0]) >= 4
	case orb.MultiPolygon:
		for _, p := range g {
			if hasArea(p) {
				return true
			}
		}
	case orb.Collection:
		for _, c := range g {
			if hasArea(c) {
				return true
			}
		}
	}
	return false
}

// Splitter performs raster delineation of a terminal catchment.
type Splitter interface {
	Split(ctx context.Context, req Request) (Response, error)
}

// SplitterFunc adapts a function to Splitter.
type SplitterFunc func(ctx context.Context, req Request) (Response, error)

// Split implements Splitter.
func (f SplitterFunc) Split(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

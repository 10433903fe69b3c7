package geometry

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// Default finishing parameters.
const (
	DefaultFillThreshold     = 100    // pixels
	DefaultSimplifyTolerance = 0.0008 // degrees
)

// Options selects the optional finishing stages.
type Options struct {
	Fill              bool
	FillThreshold     float64 // pixels; 0 fills every hole
	Simplify          bool
	SimplifyTolerance float64 // degrees
}

// Input is everything needed to finish one basin.
type Input struct {
	Parts        []orb.Geometry // unit catchment polygons, terminal first
	Outlet       orb.Point      // as supplied
	Snap         orb.Point      // as used by the delineation
	ReportedArea hydro.Optional[float64]
}

// Output is a finished basin outline with its summary values.
type Output struct {
	Geometry     orb.Geometry // Polygon or MultiPolygon
	Area         float64      // km²
	SnapDistance float64      // metres
	PercentDiff  hydro.Optional[float64]
}

// Finish dissolves the input parts and runs the stages enabled in opts.
func Finish(in Input, opts Options) (Output, error) {
	g, err := Dissolve(in.Parts)
	if err != nil {
		return Output{}, err
	}
	if opts.Fill {
		g = Fill(g, FillArea(opts.FillThreshold))
	}
	if opts.Simplify {
		g = Simplify(g, opts.SimplifyTolerance)
	}

	area := Area(g)
	if area <= 0 {
		return Output{}, errors.New(errors.ErrCodeInternal, "finished basin has no area")
	}

	out := Output{
		Geometry:     g,
		Area:         area,
		SnapDistance: SnapDistance(in.Outlet, in.Snap),
	}
	if reported, ok := in.ReportedArea.Get(); ok && reported > 0 {
		out.PercentDiff = hydro.Some((area - reported) / reported * 100)
	}
	return out, nil
}

// Package resolution decides how the terminal catchment of a basin is
// delineated.
//
// Small basins are refined with the raster tool: the terminal unit
// catchment is split at the exact outlet and every other catchment comes
// from the high-precision polygons. Large basins, or runs with high
// resolution turned off, use the low-precision polygons as they are and
// snap the outlet to the start of its river reach.
//
// The decision is a small state machine:
//
//	candidate-high-res ──(up area > threshold)──▶ low-res
//	        │
//	        ▼
//	escalating-raster ──(polygon)──▶ high
//	        │
//	        └──(no polygon or error)──▶ failed
package resolution

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/dataset"
	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/raster"
)

// State is a step of the decision.
type State string

const (
	StateCandidateHighRes State = "candidate-high-res"
	StateEscalatingRaster State = "escalating-raster"
	StateLowRes           State = "low-res"
	StateFailed           State = "failed"
	StateHighRes          State = "high-res"
)

// DefaultLowResThreshold is the upstream area in km² above which raster
// refinement is skipped.
const DefaultLowResThreshold = 50000

// Catchments loads unit catchment polygons. *dataset.Store implements it.
type Catchments interface {
	Catchments(ctx context.Context, region hydro.Region, precision hydro.Precision) (*dataset.Catchments, error)
}

// Arbitrator picks the delineation path for each outlet.
type Arbitrator struct {
	HighRes         bool
	LowResThreshold float64 // km²
	Catchments      Catchments
	Splitter        raster.Splitter // required when HighRes is set
	Logger          *log.Logger
}

// Input is a matched outlet with its assembled basin.
type Input struct {
	Matched hydro.MatchedOutlet
	Nodes   []int64     // terminal first
	Reach   hydro.Reach // terminal reach
}

// Outcome is the result of a decision. Parts is nil when the outlet failed.
type Outcome struct {
	Resolution hydro.Resolution
	Trace      []State
	Parts      []orb.Geometry // terminal first
	SnapLat    float64
	SnapLng    float64
	Reason     string // set when failed
}

// Failed reports whether the outlet ended in the failed state.
func (o Outcome) Failed() bool {
	return len(o.Trace) > 0 && o.Trace[len(o.Trace)-1] == StateFailed
}

// State returns the final state.
func (o Outcome) State() State {
	if len(o.Trace) == 0 {
		return ""
	}
	return o.Trace[len(o.Trace)-1]
}

// Decide runs the state machine for one outlet. An error means the inputs
// could not be loaded or ctx ended; the raster tool failing to delineate is
// a failed Outcome, not an error.
func (a *Arbitrator) Decide(ctx context.Context, in Input) (Outcome, error) {
	if len(in.Nodes) == 0 {
		return Outcome{}, errors.New(errors.ErrCodeInvalidInput, "outlet %s has an empty basin", in.Matched.ID)
	}
	if a.HighRes && a.Splitter == nil {
		return Outcome{}, errors.New(errors.ErrCodeInvalidConfig, "high resolution requires a raster splitter")
	}

	if !a.HighRes {
		return a.lowRes(ctx, in, nil)
	}
	trace := []State{StateCandidateHighRes}
	if in.Matched.UpArea > a.threshold() {
		return a.lowRes(ctx, in, trace)
	}
	return a.escalate(ctx, in, append(trace, StateEscalatingRaster))
}

func (a *Arbitrator) threshold() float64 {
	if a.LowResThreshold <= 0 {
		return DefaultLowResThreshold
	}
	return a.LowResThreshold
}

func (a *Arbitrator) lowRes(ctx context.Context, in Input, trace []State) (Outcome, error) {
	parts, err := a.parts(ctx, in, hydro.PrecisionLow)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		Resolution: hydro.ResolutionLow,
		Trace:      append(trace, StateLowRes),
		Parts:      parts,
		SnapLat:    in.Matched.Lat,
		SnapLng:    in.Matched.Lng,
	}
	if len(in.Reach.Geometry) > 0 {
		first := in.Reach.Geometry[0]
		out.SnapLat, out.SnapLng = first.Lat(), first.Lon()
	}
	return out, nil
}

func (a *Arbitrator) escalate(ctx context.Context, in Input, trace []State) (Outcome, error) {
	cats, err := a.Catchments.Catchments(ctx, in.Matched.Region, hydro.PrecisionHigh)
	if err != nil {
		return Outcome{}, err
	}
	terminal, ok := cats.Get(in.Nodes[0])
	if !ok {
		return Outcome{}, errors.New(errors.ErrCodeUnknownNode, "no high resolution polygon for catchment %d", in.Nodes[0])
	}

	start := time.Now()
	resp, err := a.Splitter.Split(ctx, raster.Request{
		OutletID:        in.Matched.ID,
		Region:          in.Matched.Region,
		Lat:             in.Matched.Lat,
		Lng:             in.Matched.Lng,
		CatchmentID:     terminal.ID,
		Catchment:       terminal.Geometry,
		SingleCatchment: len(in.Nodes) == 1,
	})
	if ctx.Err() != nil {
		return Outcome{}, ctx.Err()
	}
	if err != nil || !resp.OK() {
		a.logger().Warn("raster delineation failed",
			"outlet", in.Matched.ID,
			"catchment", terminal.ID,
			"duration", time.Since(start),
			"error", err)
		return Outcome{Trace: append(trace, StateFailed), Reason: hydro.ReasonRasterFailed}, nil
	}

	parts := make([]orb.Geometry, 0, len(in.Nodes))
	parts = append(parts, resp.Polygon)
	rest, err := collect(cats, in.Nodes[1:])
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Resolution: hydro.ResolutionHigh,
		Trace:      append(trace, StateHighRes),
		Parts:      append(parts, rest...),
		SnapLat:    resp.SnapLat,
		SnapLng:    resp.SnapLng,
	}, nil
}

func (a *Arbitrator) parts(ctx context.Context, in Input, precision hydro.Precision) ([]orb.Geometry, error) {
	cats, err := a.Catchments.Catchments(ctx, in.Matched.Region, precision)
	if err != nil {
		return nil, err
	}
	return collect(cats, in.Nodes)
}

func collect(cats *dataset.Catchments, ids []int64) ([]orb.Geometry, error) {
	out := make([]orb.Geometry, 0, len(ids))
	for _, id := range ids {
		c, ok := cats.Get(id)
		if !ok {
			return nil, errors.New(errors.ErrCodeUnknownNode, "no %s resolution polygon for catchment %d", cats.Precision, id)
		}
		out = append(out, c.Geometry)
	}
	return out, nil
}

func (a *Arbitrator) logger() *log.Logger {
	if a.Logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return a.Logger
}

package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/watershed/pkg/basin"
	"github.com/matzehuels/watershed/pkg/dataset"
	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/geometry"
	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/ledger"
	"github.com/matzehuels/watershed/pkg/observability"
	"github.com/matzehuels/watershed/pkg/pourpoint"
	"github.com/matzehuels/watershed/pkg/raster"
	"github.com/matzehuels/watershed/pkg/region"
	"github.com/matzehuels/watershed/pkg/resolution"
)

// Datasets is the regional data a run reads. *dataset.Store implements it.
type Datasets interface {
	Boundaries(ctx context.Context) (*dataset.Boundaries, error)
	Catchments(ctx context.Context, region hydro.Region, precision hydro.Precision) (*dataset.Catchments, error)
	Rivers(ctx context.Context, region hydro.Region) (*dataset.Rivers, error)
}

// Progress is reported after each outlet is recorded.
type Progress struct {
	OutletID string
	Result   string // "high", "low" or "failed"
	Reason   string
	Done     int
	Total    int
}

// Runner executes batches against one dataset store.
//
// The Runner keeps no state between runs. Multiple goroutines can use the
// same Runner with different options.
type Runner struct {
	Data     Datasets
	Splitter raster.Splitter
	Logger   *log.Logger

	// OnProgress, when set, is called from worker goroutines after every
	// recorded outlet.
	OnProgress func(Progress)
}

// NewRunner creates a runner. A nil splitter limits runs to low resolution.
// If logger is nil, output is discarded.
func NewRunner(data Datasets, splitter raster.Splitter, logger *log.Logger) *Runner {
	if logger == nil {
		logger = discardLogger()
	}
	return &Runner{
		Data:     data,
		Splitter: splitter,
		Logger:   logger,
	}
}

// run is the state shared by the region workers of one batch.
type run struct {
	*Runner
	opts       Options
	ledger     *ledger.Ledger
	arbitrator *resolution.Arbitrator
	total      int
	done       atomic.Int64
	relocated  atomic.Int64
}

// Run delineates outlets. A malformed batch fails before any work with a
// *errors.ValidationError. When ctx is cancelled the outlet in flight in
// each region completes, later outlets are left out of the ledger, and Run
// returns the partial result together with the context error.
func (r *Runner) Run(ctx context.Context, outlets []hydro.Outlet, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := hydro.ValidateBatch(outlets); err != nil {
		return nil, err
	}
	if opts.HighRes && r.Splitter == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "high resolution needs a raster tool")
	}

	start := time.Now()
	st := &run{
		Runner: r,
		opts:   opts,
		ledger: ledger.New(outlets),
		arbitrator: &resolution.Arbitrator{
			HighRes:         opts.HighRes,
			LowResThreshold: opts.LowResThreshold,
			Catchments:      r.Data,
			Splitter:        r.Splitter,
			Logger:          r.Logger,
		},
		total: len(outlets),
	}
	result := &Result{Ledger: st.ledger}
	result.Stats.Outlets = len(outlets)
	result.Stats.StartedAt = start

	// Stage 1: Resolve regions
	boundaries, err := r.Data.Boundaries(ctx)
	if err != nil {
		return nil, err
	}
	assignment := region.Resolver{SearchDistance: opts.SearchDistance}.Resolve(outlets, boundaries)
	for _, f := range assignment.Failures {
		st.fail(ctx, 0, f.OutletID, f.Reason, 0)
	}
	groups := assignment.Groups()
	result.Stats.Regions = len(groups)

	r.Logger.Info("resolved regions",
		"outlets", len(outlets),
		"regions", len(groups),
		"unassigned", len(assignment.Failures),
		"duration", time.Since(start))

	// Stage 2: Delineate, one worker per region
	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for _, grp := range groups {
		g.Go(func() error {
			return st.region(ctx, grp)
		})
	}
	err = g.Wait()

	st.fillStats(&result.Stats)
	result.Stats.Duration = time.Since(start)
	r.Logger.Info("delineated outlets",
		"basins", result.Stats.Basins,
		"failures", result.Stats.Failures,
		"high_res", result.Stats.HighRes,
		"low_res", result.Stats.LowRes,
		"duration", result.Stats.Duration)

	if err != nil {
		return result, err
	}
	return result, ctx.Err()
}

func (st *run) region(ctx context.Context, grp region.Group) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	reg := grp.Region
	start := time.Now()
	hooks := observability.Run()
	hooks.OnRegionStart(ctx, int(reg), len(grp.Outlets))

	var regionErr error
	defer func() {
		hooks.OnRegionComplete(ctx, int(reg), time.Since(start), regionErr)
	}()

	logger := st.Logger.With("region", reg)
	logger.Debug("loading region", "outlets", len(grp.Outlets))

	rivers, cats, err := st.load(ctx, reg)
	if err != nil {
		regionErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("region datasets unavailable", "error", err)
		for _, o := range grp.Outlets {
			st.fail(ctx, reg, o.ID, hydro.ReasonDatasetMissing, 0)
		}
		return nil
	}

	matched, unmatched := st.matcher().Match(reg, grp.Outlets, cats, rivers)
	byID := make(map[string]hydro.MatchedOutlet, len(matched))
	for _, mo := range matched {
		byID[mo.ID] = mo
	}
	reasons := make(map[string]string, len(unmatched))
	for _, f := range unmatched {
		reasons[f.OutletID] = f.Reason
	}

	for i, o := range grp.Outlets {
		if ctx.Err() != nil {
			regionErr = ctx.Err()
			logger.Warn("run cancelled", "pending", len(grp.Outlets)-i)
			return ctx.Err()
		}
		mo, ok := byID[o.ID]
		if !ok {
			st.fail(ctx, reg, o.ID, reasons[o.ID], 0)
			continue
		}
		st.outlet(ctx, reg, mo, rivers, logger)
	}
	logger.Info("region complete", "outlets", len(grp.Outlets), "duration", time.Since(start))
	return nil
}

func (st *run) load(ctx context.Context, reg hydro.Region) (*dataset.Rivers, *dataset.Catchments, error) {
	rivers, err := st.Data.Rivers(ctx, reg)
	if err != nil {
		return nil, nil, err
	}
	precision := hydro.PrecisionLow
	if st.opts.HighRes {
		precision = hydro.PrecisionHigh
	}
	cats, err := st.Data.Catchments(ctx, reg, precision)
	if err != nil {
		return nil, nil, err
	}
	return rivers, cats, nil
}

// outlet processes one outlet to completion. The outlet is detached from
// cancellation so a started outlet is always recorded.
func (st *run) outlet(ctx context.Context, reg hydro.Region, mo hydro.MatchedOutlet, rivers *dataset.Rivers, logger *log.Logger) {
	start := time.Now()
	octx := context.WithoutCancel(ctx)
	o := mo.Outlet

	b, reason, err := st.delineate(octx, reg, mo, rivers)
	if err != nil {
		logger.Warn("outlet failed", "outlet", o.ID, "reason", reason, "error", err)
	}
	if reason != "" {
		st.fail(ctx, reg, o.ID, reason, time.Since(start))
		return
	}
	st.record(ctx, reg, b, time.Since(start))
	logger.Debug("delineated outlet",
		"outlet", o.ID,
		"resolution", b.Resolution,
		"nodes", len(b.Nodes),
		"area", b.Area,
		"duration", time.Since(start))
}

// delineate returns a basin or the failure reason for one outlet. The error,
// when set, explains the reason for the log.
func (st *run) delineate(ctx context.Context, reg hydro.Region, mo hydro.MatchedOutlet, rivers *dataset.Rivers) (hydro.Basin, string, error) {
	o := mo.Outlet
	mo, nodes, reason, err := st.upstream(mo, rivers)
	if reason != "" {
		return hydro.Basin{}, reason, err
	}
	terminal, _ := rivers.Reach(mo.NodeID)

	outcome, err := st.arbitrator.Decide(ctx, resolution.Input{Matched: mo, Nodes: nodes, Reach: terminal})
	if err != nil {
		if errors.Is(err, errors.ErrCodeDatasetNotFound) {
			return hydro.Basin{}, hydro.ReasonDatasetMissing, err
		}
		return hydro.Basin{}, hydro.ReasonAssemblyFailed, err
	}
	if outcome.Failed() {
		return hydro.Basin{}, outcome.Reason, nil
	}

	fin, err := geometry.Finish(geometry.Input{
		Parts:        outcome.Parts,
		Outlet:       o.Point(),
		Snap:         hydro.Outlet{Lat: outcome.SnapLat, Lng: outcome.SnapLng}.Point(),
		ReportedArea: o.Area,
	}, st.opts.GeometryOptions())
	if err != nil {
		return hydro.Basin{}, hydro.ReasonGeometryFailed, err
	}

	return hydro.Basin{
		OutletID:     o.ID,
		Region:       reg,
		Nodes:        nodes,
		Geometry:     fin.Geometry,
		Area:         fin.Area,
		Resolution:   outcome.Resolution,
		SnapLat:      outcome.SnapLat,
		SnapLng:      outcome.SnapLng,
		SnapDistance: fin.SnapDistance,
		PercentDiff:  fin.PercentDiff,
	}, "", nil
}

func (st *run) matcher() pourpoint.Matcher {
	return pourpoint.Matcher{SearchDistance: st.opts.SearchDistance}
}

// upstream relocates a matched outlet by reported area when enabled and
// assembles the basin's node list.
func (st *run) upstream(mo hydro.MatchedOutlet, rivers *dataset.Rivers) (hydro.MatchedOutlet, []int64, string, error) {
	o := mo.Outlet
	if st.opts.MatchAreas {
		relocator := st.opts.Relocator()
		if relocator.NeedsRelocation(mo) {
			id, upArea, found := relocator.Relocate(o, rivers)
			switch {
			case found:
				st.Logger.Debug("relocated outlet", "outlet", o.ID, "from", mo.NodeID, "to", id, "up_area", upArea)
				mo.NodeID, mo.UpArea, mo.Relocated = id, upArea, true
				st.relocated.Add(1)
			case st.opts.KeepNaiveMatch:
				st.Logger.Warn("no better reach found, keeping naive match", "outlet", o.ID, "node", mo.NodeID)
			default:
				return mo, nil, hydro.ReasonNoNearbyReach, nil
			}
		}
	}

	nodes, err := basin.Assembler{MaxNodes: st.opts.MaxBasinNodes}.Assemble(mo.NodeID, rivers)
	if err != nil {
		return mo, nil, hydro.ReasonAssemblyFailed, err
	}
	return mo, nodes, "", nil
}

func (st *run) fail(ctx context.Context, reg hydro.Region, id, reason string, d time.Duration) {
	if err := st.ledger.AddFailure(hydro.FailureRecord{OutletID: id, Reason: reason}); err != nil {
		st.Logger.Error("ledger rejected failure", "outlet", id, "error", err)
		return
	}
	st.progress(ctx, reg, id, "failed", reason, d)
}

func (st *run) record(ctx context.Context, reg hydro.Region, b hydro.Basin, d time.Duration) {
	if err := st.ledger.AddBasin(b); err != nil {
		st.Logger.Error("ledger rejected basin", "outlet", b.OutletID, "error", err)
		return
	}
	st.progress(ctx, reg, b.OutletID, string(b.Resolution), "", d)
}

func (st *run) progress(ctx context.Context, reg hydro.Region, id, result, reason string, d time.Duration) {
	observability.Run().OnOutletComplete(ctx, int(reg), result, reason, d)
	done := int(st.done.Add(1))
	if st.OnProgress != nil {
		st.OnProgress(Progress{OutletID: id, Result: result, Reason: reason, Done: done, Total: st.total})
	}
}

func (st *run) fillStats(s *Stats) {
	s.Basins, s.Failures = st.ledger.Counts()
	for _, b := range st.ledger.Basins() {
		switch b.Resolution {
		case hydro.ResolutionHigh:
			s.HighRes++
		case hydro.ResolutionLow:
			s.LowRes++
		}
	}
	s.Relocated = int(st.relocated.Load())
}

// Package pipeline runs a batch of outlets through the delineation engine.
//
// This package wires the stages together so the CLI and any other front end
// share one implementation. A run is:
//
//  1. Validate: the whole batch is checked before any work starts
//  2. Resolve: outlets are placed in level-2 regions
//  3. Delineate: each region's datasets are loaded once and its outlets are
//     matched, optionally relocated by reported area, assembled, arbitrated
//     between high and low resolution and finished
//
// Regions run concurrently up to [Options.Workers]; outlets inside a region
// run in input order. Every valid outlet ends with exactly one entry in the
// run's [ledger.Ledger].
//
// # Usage
//
//	store := dataset.NewStore(source, dataset.StoreOptions{Cache: c, Logger: logger})
//	runner := pipeline.NewRunner(store, splitter, logger)
//	opts := pipeline.DefaultOptions()
//	result, err := runner.Run(ctx, outlets, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, b := range result.Ledger.Basins() {
//	    fmt.Println(b.OutletID, b.Area)
//	}
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/geometry"
	"github.com/matzehuels/watershed/pkg/ledger"
	"github.com/matzehuels/watershed/pkg/pourpoint"
	"github.com/matzehuels/watershed/pkg/region"
	"github.com/matzehuels/watershed/pkg/resolution"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and config files
// =============================================================================

const (
	// DefaultLowResThreshold is the upstream area in km² above which the
	// raster tool is skipped and low resolution polygons are used.
	DefaultLowResThreshold = resolution.DefaultLowResThreshold

	// DefaultAreaThreshold is the accepted relative difference between the
	// reported area and a reach's upstream area.
	DefaultAreaThreshold = 0.25

	// DefaultMaxDistance is how far, in degrees, the area relocation search
	// looks before giving up.
	DefaultMaxDistance = 0.075

	// DefaultFillThreshold is the largest hole, in pixels, removed by fill.
	DefaultFillThreshold = geometry.DefaultFillThreshold

	// DefaultSimplifyTolerance is the Douglas-Peucker tolerance in degrees.
	DefaultSimplifyTolerance = geometry.DefaultSimplifyTolerance

	// DefaultWorkers is the number of regions processed concurrently.
	DefaultWorkers = 4

	// DefaultMaxBasinNodes bounds the unit catchments in one basin. The
	// largest MERIT-Basins basin (Amazon) has under 100k.
	DefaultMaxBasinNodes = 500_000
)

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options contains all tunables of a run.
//
// Start from [DefaultOptions]: the boolean switches default to on/off values
// that the zero value cannot express.
type Options struct {
	// Resolution
	HighRes         bool    `json:"high_res" toml:"high_res"`
	LowResThreshold float64 `json:"low_res_threshold" toml:"low_res_threshold"` // km²

	// Matching
	SearchDistance float64 `json:"search_distance" toml:"search_distance"` // degrees, 0 = containment only
	MatchAreas     bool    `json:"match_areas" toml:"match_areas"`
	AreaThreshold  float64 `json:"area_threshold" toml:"area_threshold"`
	MaxDistance    float64 `json:"max_distance" toml:"max_distance"` // degrees
	KeepNaiveMatch bool    `json:"keep_naive_match" toml:"keep_naive_match"`

	// Geometry
	Fill              bool    `json:"fill" toml:"fill"`
	FillThreshold     float64 `json:"fill_threshold" toml:"fill_threshold"` // pixels, 0 = fill every hole
	Simplify          bool    `json:"simplify" toml:"simplify"`
	SimplifyTolerance float64 `json:"simplify_tolerance" toml:"simplify_tolerance"` // degrees

	// Limits
	Workers       int `json:"workers" toml:"workers"`
	MaxBasinNodes int `json:"max_basin_nodes" toml:"max_basin_nodes"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		HighRes:           true,
		LowResThreshold:   DefaultLowResThreshold,
		MatchAreas:        true,
		AreaThreshold:     DefaultAreaThreshold,
		MaxDistance:       DefaultMaxDistance,
		Fill:              true,
		FillThreshold:     DefaultFillThreshold,
		SimplifyTolerance: DefaultSimplifyTolerance,
		Workers:           DefaultWorkers,
		MaxBasinNodes:     DefaultMaxBasinNodes,
	}
}

// Result contains the outcome of a run.
type Result struct {
	// Ledger holds one entry per processed outlet.
	Ledger *ledger.Ledger

	// Stats contains timing and counts.
	Stats Stats
}

// Stats contains run statistics.
type Stats struct {
	Outlets   int
	Regions   int
	Basins    int
	Failures  int
	HighRes   int
	LowRes    int
	Relocated int
	StartedAt time.Time
	Duration  time.Duration
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every field and fills zero numeric values
// that have no meaning of their own. SearchDistance and FillThreshold keep
// their zero values. Calling it again has no effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.LowResThreshold == 0 {
		o.LowResThreshold = DefaultLowResThreshold
	}
	if o.AreaThreshold == 0 {
		o.AreaThreshold = DefaultAreaThreshold
	}
	if o.MaxDistance == 0 {
		o.MaxDistance = DefaultMaxDistance
	}
	if o.SimplifyTolerance == 0 {
		o.SimplifyTolerance = DefaultSimplifyTolerance
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxBasinNodes == 0 {
		o.MaxBasinNodes = DefaultMaxBasinNodes
	}

	if err := region.ValidateSearchDistance(o.SearchDistance); err != nil {
		return err
	}
	checks := []struct {
		name string
		ok   bool
	}{
		{"low_res_threshold", o.LowResThreshold > 0},
		{"area_threshold", o.AreaThreshold > 0},
		{"max_distance", o.MaxDistance >= pourpoint.DefaultSearchStart},
		{"fill_threshold", o.FillThreshold >= 0},
		{"simplify_tolerance", o.SimplifyTolerance > 0},
		{"workers", o.Workers > 0},
		{"max_basin_nodes", o.MaxBasinNodes > 0},
	}
	for _, c := range checks {
		if !c.ok {
			return errors.New(errors.ErrCodeInvalidConfig, "invalid %s", c.name)
		}
	}
	o.validated = true
	return nil
}

// GeometryOptions returns the finishing stages selected by o.
func (o *Options) GeometryOptions() geometry.Options {
	return geometry.Options{
		Fill:              o.Fill,
		FillThreshold:     o.FillThreshold,
		Simplify:          o.Simplify,
		SimplifyTolerance: o.SimplifyTolerance,
	}
}

// Relocator returns the area relocation search configured by o.
func (o *Options) Relocator() pourpoint.Relocator {
	return pourpoint.Relocator{
		AreaThreshold: o.AreaThreshold,
		MaxDistance:   o.MaxDistance,
	}
}

// String summarizes the options for logs.
func (o Options) String() string {
	return fmt.Sprintf("high_res=%t low_res_threshold=%g match_areas=%t search_distance=%g fill=%t simplify=%t workers=%d",
		o.HighRes, o.LowResThreshold, o.MatchAreas, o.SearchDistance, o.Fill, o.Simplify, o.Workers)
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

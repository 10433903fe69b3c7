package pourpoint

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/spatial"
)

// Relocation defaults, in degrees.
const (
	DefaultSearchStart = 0.01
	DefaultSearchStep  = 0.01
)

// Reaches is the river lookup the Relocator needs. *dataset.Rivers
// implements it.
type Reaches interface {
	hydro.Network
	Overlapping(b orb.Bound) []int64
}

// Relocator searches nearby reaches for a better upstream-area match.
type Relocator struct {
	// AreaThreshold is the largest accepted relative difference between a
	// reach's upstream area and the reported area (0.25 means 25%).
	AreaThreshold float64

	// MaxDistance is the largest window half-width in degrees.
	MaxDistance float64

	// Start and Step default to 0.01 degrees.
	Start float64
	Step  float64
}

// RelativeDifference returns |upArea-reported|/reported.
func RelativeDifference(upArea, reported float64) float64 {
	return math.Abs(upArea-reported) / reported
}

// NeedsRelocation reports whether the naive match disagrees with the
// reported area by more than the threshold. Outlets without a reported area
// never need relocation.
func (r Relocator) NeedsRelocation(mo hydro.MatchedOutlet) bool {
	reported, ok := mo.Area.Get()
	if !ok {
		return false
	}
	return RelativeDifference(mo.UpArea, reported) > r.AreaThreshold
}

// Relocate returns the reach whose upstream area best matches the outlet's
// reported area, or ok=false if no reach within MaxDistance is below the
// threshold. Ties on the relative difference go to the smallest reach id.
func (r Relocator) Relocate(o hydro.Outlet, reaches Reaches) (id int64, upArea float64, ok bool) {
	reported, has := o.Area.Get()
	if !has || !(reported > 0) {
		return 0, 0, false
	}
	start, step := r.window()
	p := o.Point()
	found := 0
	for k := range r.MaxIterations() {
		radius := start + float64(k)*step
		ids := reaches.Overlapping(spatial.Box(p, radius))
		if len(ids) <= found {
			continue
		}
		found = len(ids)

		bestPD := math.Inf(1)
		for _, cand := range ids {
			reach, ok := reaches.Reach(cand)
			if !ok {
				continue
			}
			pd := RelativeDifference(reach.UpArea, reported)
			// ids ascend, so strict less keeps the smallest id on ties.
			if pd < bestPD {
				bestPD, id, upArea = pd, reach.ID, reach.UpArea
			}
		}
		if bestPD < r.AreaThreshold {
			return id, upArea, true
		}
	}
	return 0, 0, false
}

// MaxIterations bounds the number of windows Relocate evaluates.
func (r Relocator) MaxIterations() int {
	start, step := r.window()
	if r.MaxDistance < start {
		return 0
	}
	return int(math.Floor((r.MaxDistance-start)/step+1e-9)) + 1
}

func (r Relocator) window() (start, step float64) {
	start, step = r.Start, r.Step
	if start <= 0 {
		start = DefaultSearchStart
	}
	if step <= 0 {
		step = DefaultSearchStep
	}
	return start, step
}

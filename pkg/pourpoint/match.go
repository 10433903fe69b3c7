package pourpoint

import (
	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/spatial"
)

// Catchments is the lookup the Matcher needs. *dataset.Catchments
// implements it.
type Catchments interface {
	Containing(p orb.Point) []int64
	Nearest(p orb.Point, maxDist float64) (spatial.Hit, bool)
}

// Matcher binds outlets to unit catchments.
type Matcher struct {
	// SearchDistance in degrees. Zero requires the outlet to lie inside a
	// catchment.
	SearchDistance float64
}

// Match returns the matched outlets in input order plus a failure record for
// every outlet that matched nothing. Matched outlets carry the upstream area
// of their catchment's reach when the network knows it.
func (m Matcher) Match(region hydro.Region, outlets []hydro.Outlet, catchments Catchments, network hydro.Network) ([]hydro.MatchedOutlet, []hydro.FailureRecord) {
	var (
		matched  []hydro.MatchedOutlet
		failures []hydro.FailureRecord
	)
	for _, o := range outlets {
		mo, ok := m.matchOne(region, o, catchments)
		if !ok {
			failures = append(failures, hydro.FailureRecord{OutletID: o.ID, Reason: hydro.ReasonNoCatchment(region)})
			continue
		}
		if network != nil {
			if r, ok := network.Reach(mo.NodeID); ok {
				mo.UpArea = r.UpArea
			}
		}
		matched = append(matched, mo)
	}
	return matched, failures
}

// matchOne matches a single outlet. Among containing catchments the smallest
// id wins; otherwise the nearest within SearchDistance, ties broken by id.
func (m Matcher) matchOne(region hydro.Region, o hydro.Outlet, catchments Catchments) (hydro.MatchedOutlet, bool) {
	p := o.Point()
	mo := hydro.MatchedOutlet{Outlet: o, Region: region}
	if ids := catchments.Containing(p); len(ids) > 0 {
		mo.NodeID = ids[0]
		return mo, true
	}
	if m.SearchDistance <= 0 {
		return mo, false
	}
	hit, ok := catchments.Nearest(p, m.SearchDistance)
	if !ok {
		return mo, false
	}
	mo.NodeID = hit.ID
	mo.SnapDistance = hit.Distance
	return mo, true
}

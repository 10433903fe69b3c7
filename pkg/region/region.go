// Package region assigns outlets to level-2 regions.
//
// Every later stage works on one region at a time, so the assignment is
// grouped: regions in ascending code order, outlets within a region in input
// order.
package region

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// MaxSearchDistance bounds the nearest-region search radius in degrees.
const MaxSearchDistance = 0.25

// Boundaries is the region lookup consumed by the Resolver.
// *dataset.Boundaries implements it.
type Boundaries interface {
	Containing(p orb.Point) []hydro.Region
	Nearest(p orb.Point, maxDist float64) (hydro.Region, float64, bool)
}

// ValidateSearchDistance checks a search radius in degrees.
func ValidateSearchDistance(d float64) error {
	if !(d >= 0) || d > MaxSearchDistance {
		return errors.New(errors.ErrCodeInvalidConfig, "search distance %v must be between 0 and %v degrees", d, MaxSearchDistance)
	}
	return nil
}

// Resolver places outlets in regions.
type Resolver struct {
	// SearchDistance is the radius, in degrees, for snapping outlets that lie
	// just outside every region (coastal gauges). Zero means strict
	// containment.
	SearchDistance float64
}

// Group is the set of outlets of one region.
type Group struct {
	Region  hydro.Region
	Outlets []hydro.Outlet
}

// Assignment is the result of Resolve.
type Assignment struct {
	groups   map[hydro.Region][]hydro.Outlet
	byOutlet map[string]hydro.Region
	Failures []hydro.FailureRecord
}

// Resolve assigns each outlet to exactly one region or records a failure
// with reason hydro.ReasonNoRegion. When several regions qualify the
// smallest code wins.
func (r Resolver) Resolve(outlets []hydro.Outlet, b Boundaries) Assignment {
	a := Assignment{
		groups:   make(map[hydro.Region][]hydro.Outlet),
		byOutlet: make(map[string]hydro.Region, len(outlets)),
	}
	for _, o := range outlets {
		reg, ok := r.locate(o.Point(), b)
		if !ok {
			a.Failures = append(a.Failures, hydro.FailureRecord{OutletID: o.ID, Reason: hydro.ReasonNoRegion})
			continue
		}
		a.groups[reg] = append(a.groups[reg], o)
		a.byOutlet[o.ID] = reg
	}
	return a
}

func (r Resolver) locate(p orb.Point, b Boundaries) (hydro.Region, bool) {
	if regions := b.Containing(p); len(regions) > 0 {
		return regions[0], true
	}
	if r.SearchDistance <= 0 {
		return 0, false
	}
	reg, _, ok := b.Nearest(p, r.SearchDistance)
	return reg, ok
}

// Groups returns the non-empty regions in ascending code order.
func (a Assignment) Groups() []Group {
	out := make([]Group, 0, len(a.groups))
	for reg, outlets := range a.groups {
		out = append(out, Group{Region: reg, Outlets: outlets})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// Region returns the region assigned to an outlet.
func (a Assignment) Region(outletID string) (hydro.Region, bool) {
	reg, ok := a.byOutlet[outletID]
	return reg, ok
}

// Assigned returns the number of outlets placed in a region.
func (a Assignment) Assigned() int {
	return len(a.byOutlet)
}

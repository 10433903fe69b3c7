package hydro

import (
	"fmt"

	"github.com/paulmach/orb"
)

// MatchedOutlet is an outlet bound to a terminal unit catchment.
type MatchedOutlet struct {
	Outlet
	Region       Region
	NodeID       int64
	UpArea       float64
	Relocated    bool
	SnapDistance float64 // degrees, from the outlet to the matched catchment
}

// Resolution reports which delineation path produced a basin.
type Resolution string

const (
	ResolutionHigh Resolution = "high"
	ResolutionLow  Resolution = "low"
)

// Label is the text used in summary tables.
func (r Resolution) Label() string {
	switch r {
	case ResolutionHigh:
		return "high res"
	case ResolutionLow:
		return "low res"
	}
	return "failed"
}

// Basin is a delineated watershed.
type Basin struct {
	OutletID     string
	Region       Region
	Nodes        []int64 // terminal first
	Geometry     orb.Geometry
	Area         float64 // km²
	Resolution   Resolution
	SnapLat      float64
	SnapLng      float64
	SnapDistance float64 // metres
	PercentDiff  Optional[float64]
}

// Failure reasons recorded for outlets that could not be delineated.
const (
	ReasonNoRegion       = "not in any region"
	ReasonNoNearbyReach  = "no nearby reach within area-matching threshold"
	ReasonRasterFailed   = "raster delineation failed"
	ReasonAssemblyFailed = "basin assembly failed"
	ReasonDatasetMissing = "dataset unavailable for region"
	ReasonGeometryFailed = "geometry finishing failed"
)

// ReasonNoCatchment returns the reason for an outlet outside every unit
// catchment of its region.
func ReasonNoCatchment(r Region) string {
	return fmt.Sprintf("could not assign to a unit catchment in region #%d", r)
}

// FailureRecord explains why an outlet produced no basin.
type FailureRecord struct {
	OutletID string
	Reason   string
}

func (f FailureRecord) String() string {
	return f.OutletID + ": " + f.Reason
}

package hydro

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
)

// Region is a Pfafstetter level-2 basin code.
type Region int

// Regions lists every level-2 code present in MERIT-Basins.
var Regions = []Region{
	11, 12, 13, 14, 15, 16, 17, 18,
	21, 22, 23, 24, 25, 26, 27, 28, 29,
	31, 32, 33, 34, 35, 36,
	41, 42, 43, 44, 45, 46, 47, 48, 49,
	51, 52, 53, 54, 55, 56, 57,
	61, 62, 63, 64, 65, 66, 67,
	71, 72, 73, 74, 75, 76, 77, 78,
	81, 82, 83, 84, 85, 86,
	91,
}

// Valid reports whether r is a known level-2 code.
func (r Region) Valid() bool {
	for _, c := range Regions {
		if c == r {
			return true
		}
	}
	return false
}

func (r Region) String() string {
	return strconv.Itoa(int(r))
}

// Precision selects the catchment polygon tier.
type Precision string

const (
	PrecisionHigh Precision = "high"
	PrecisionLow  Precision = "low"
)

// Short returns the file-name token used by dataset artifacts.
func (p Precision) Short() string {
	if p == PrecisionLow {
		return "lores"
	}
	return "hires"
}

// ParsePrecision parses "high"/"hires" or "low"/"lores".
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "high", "hires":
		return PrecisionHigh, nil
	case "low", "lores":
		return PrecisionLow, nil
	}
	return "", fmt.Errorf("unknown precision %q", s)
}

// Kind is the dataset type.
type Kind string

const (
	KindCatchments Kind = "catchments"
	KindRivers     Kind = "rivers"
	KindRegions    Kind = "regions"
)

// UnitCatchment is the smallest land polygon draining to one river reach.
type UnitCatchment struct {
	ID       int64
	Region   Region
	Geometry orb.MultiPolygon
	UnitArea float64 // km²
}

// Reach is a river segment with up to four upstream neighbours.
type Reach struct {
	ID       int64
	Up       [4]int64 // 0 means no neighbour
	UpArea   float64  // km², total drainage area at the downstream end
	LengthKm float64
	Order    int
	Geometry orb.LineString
}

// Upstream returns the non-zero upstream ids in slot order.
func (r Reach) Upstream() []int64 {
	ids := make([]int64, 0, 4)
	for _, id := range r.Up {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Network is a read-only lookup of reaches by id.
type Network interface {
	Reach(id int64) (Reach, bool)
}

// ReachMap is a map-backed Network.
type ReachMap map[int64]Reach

// Reach implements Network.
func (m ReachMap) Reach(id int64) (Reach, bool) {
	r, ok := m[id]
	return r, ok
}

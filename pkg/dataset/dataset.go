package dataset

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/spatial"
)

// Catchments is the unit catchment set of one region at one precision.
type Catchments struct {
	Region    hydro.Region
	Precision hydro.Precision

	items []hydro.UnitCatchment // sorted by id
	byID  map[int64]int
	index *spatial.Index
}

// NewCatchments indexes items. Later duplicates of an id replace earlier ones.
func NewCatchments(region hydro.Region, precision hydro.Precision, items []hydro.UnitCatchment) *Catchments {
	byID := make(map[int64]hydro.UnitCatchment, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	sorted := make([]hydro.UnitCatchment, 0, len(byID))
	for _, it := range byID {
		sorted = append(sorted, it)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	c := &Catchments{
		Region:    region,
		Precision: precision,
		items:     sorted,
		byID:      make(map[int64]int, len(sorted)),
	}
	entries := make([]spatial.Item, len(sorted))
	for i, it := range sorted {
		c.byID[it.ID] = i
		entries[i] = spatial.Item{ID: it.ID, Geometry: it.Geometry}
	}
	c.index = spatial.New(entries)
	return c
}

// Len returns the number of unit catchments.
func (c *Catchments) Len() int { return len(c.items) }

// Items returns the catchments sorted by id. The slice must not be modified.
func (c *Catchments) Items() []hydro.UnitCatchment { return c.items }

// Get returns the catchment with the given id.
func (c *Catchments) Get(id int64) (hydro.UnitCatchment, bool) {
	i, ok := c.byID[id]
	if !ok {
		return hydro.UnitCatchment{}, false
	}
	return c.items[i], true
}

// Containing returns the ids of catchments containing p, ascending.
func (c *Catchments) Containing(p orb.Point) []int64 {
	return c.index.Containing(p)
}

// Nearest returns the closest catchment within maxDist degrees.
func (c *Catchments) Nearest(p orb.Point, maxDist float64) (spatial.Hit, bool) {
	return c.index.Nearest(p, maxDist)
}

// Rivers is the reach network of one region.
type Rivers struct {
	Region hydro.Region

	reaches hydro.ReachMap
	ids     []int64
	index   *spatial.Index
}

// NewRivers indexes reaches.
func NewRivers(region hydro.Region, reaches []hydro.Reach) *Rivers {
	r := &Rivers{
		Region:  region,
		reaches: make(hydro.ReachMap, len(reaches)),
	}
	for _, rc := range reaches {
		r.reaches[rc.ID] = rc
	}
	r.ids = make([]int64, 0, len(r.reaches))
	entries := make([]spatial.Item, 0, len(r.reaches))
	for id, rc := range r.reaches {
		r.ids = append(r.ids, id)
		entries = append(entries, spatial.Item{ID: id, Geometry: rc.Geometry})
	}
	sort.Slice(r.ids, func(i, j int) bool { return r.ids[i] < r.ids[j] })
	r.index = spatial.New(entries)
	return r
}

// Len returns the number of reaches.
func (r *Rivers) Len() int { return len(r.reaches) }

// IDs returns reach ids ascending. The slice must not be modified.
func (r *Rivers) IDs() []int64 { return r.ids }

// Reach implements hydro.Network.
func (r *Rivers) Reach(id int64) (hydro.Reach, bool) {
	return r.reaches.Reach(id)
}

// Overlapping returns the ids of reaches whose line intersects b, ascending.
func (r *Rivers) Overlapping(b orb.Bound) []int64 {
	return r.index.Overlapping(b)
}

var _ hydro.Network = (*Rivers)(nil)

// Boundary is the outline of one level-2 region.
type Boundary struct {
	Region   hydro.Region
	Geometry orb.MultiPolygon
}

// Boundaries is the set of level-2 region outlines.
type Boundaries struct {
	items []Boundary
	index *spatial.Index
}

// NewBoundaries indexes region outlines.
func NewBoundaries(items []Boundary) *Boundaries {
	sorted := append([]Boundary(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Region < sorted[j].Region })
	entries := make([]spatial.Item, len(sorted))
	for i, b := range sorted {
		entries[i] = spatial.Item{ID: int64(b.Region), Geometry: b.Geometry}
	}
	return &Boundaries{items: sorted, index: spatial.New(entries)}
}

// Len returns the number of regions.
func (b *Boundaries) Len() int { return len(b.items) }

// Items returns the outlines sorted by region code.
func (b *Boundaries) Items() []Boundary { return b.items }

// Containing returns the regions containing p, ascending.
func (b *Boundaries) Containing(p orb.Point) []hydro.Region {
	ids := b.index.Containing(p)
	out := make([]hydro.Region, len(ids))
	for i, id := range ids {
		out[i] = hydro.Region(id)
	}
	return out
}

// Nearest returns the closest region within maxDist degrees.
func (b *Boundaries) Nearest(p orb.Point, maxDist float64) (hydro.Region, float64, bool) {
	h, ok := b.index.Nearest(p, maxDist)
	if !ok {
		return 0, 0, false
	}
	return hydro.Region(h.ID), h.Distance, true
}

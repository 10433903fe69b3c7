// Package spatial provides an R-tree backed index over catchment polygons
// and river lines.
//
// Distances are planar, in degrees, matching how search radii are expressed
// throughout the engine. Every query returns results in a deterministic order
// so that delineation runs are reproducible.
package spatial

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/rtree"
)

// Item is an indexed geometry.
type Item struct {
	ID       int64
	Geometry orb.Geometry
}

// Hit is a query result.
type Hit struct {
	ID       int64
	Distance float64 // degrees; 0 when the geometry contains the point
}

// Index is an immutable spatial index. Build it with New.
type Index struct {
	tree  rtree.RTreeG[int]
	items []Item
}

// New indexes items. Items with an empty geometry are skipped.
func New(items []Item) *Index {
	idx := &Index{items: make([]Item, 0, len(items))}
	for _, it := range items {
		if it.Geometry == nil {
			continue
		}
		b := it.Geometry.Bound()
		if b.IsEmpty() {
			continue
		}
		idx.tree.Insert([2]float64(b.Min), [2]float64(b.Max), len(idx.items))
		idx.items = append(idx.items, it)
	}
	return idx
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	return len(idx.items)
}

// Containing returns the ids of every polygonal item that contains p,
// sorted ascending. Points on a boundary count as contained.
func (idx *Index) Containing(p orb.Point) []int64 {
	var ids []int64
	idx.tree.Search([2]float64(p), [2]float64(p), func(_, _ [2]float64, i int) bool {
		if contains(idx.items[i].Geometry, p) {
			ids = append(ids, idx.items[i].ID)
		}
		return true
	})
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Within returns every item whose distance to p is at most dist, ordered by
// distance then id.
func (idx *Index) Within(p orb.Point, dist float64) []Hit {
	if dist < 0 {
		return nil
	}
	min := [2]float64{p[0] - dist, p[1] - dist}
	max := [2]float64{p[0] + dist, p[1] + dist}

	var hits []Hit
	idx.tree.Search(min, max, func(_, _ [2]float64, i int) bool {
		d := Distance(idx.items[i].Geometry, p)
		if d <= dist {
			hits = append(hits, Hit{ID: idx.items[i].ID, Distance: d})
		}
		return true
	})
	sortHits(hits)
	return hits
}

// Nearest returns the closest item within maxDist. Ties go to the smallest id.
func (idx *Index) Nearest(p orb.Point, maxDist float64) (Hit, bool) {
	hits := idx.Within(p, maxDist)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[0], true
}

// Overlapping returns the ids of items whose geometry intersects b,
// sorted ascending.
func (idx *Index) Overlapping(b orb.Bound) []int64 {
	var ids []int64
	idx.tree.Search([2]float64(b.Min), [2]float64(b.Max), func(_, _ [2]float64, i int) bool {
		if overlaps(idx.items[i].Geometry, b) {
			ids = append(ids, idx.items[i].ID)
		}
		return true
	})
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// Box returns the square of half-width r around p.
func Box(p orb.Point, r float64) orb.Bound {
	return orb.Bound{Min: orb.Point{p[0] - r, p[1] - r}, Max: orb.Point{p[0] + r, p[1] + r}}
}

func overlaps(g orb.Geometry, b orb.Bound) bool {
	gb := g.Bound()
	if !gb.Intersects(b) {
		return false
	}
	// Fully inside the box.
	if b.Contains(gb.Min) && b.Contains(gb.Max) {
		return true
	}
	switch g := g.(type) {
	case orb.Point:
		return b.Contains(g)
	case orb.Polygon, orb.MultiPolygon:
		if contains(g, b.Center()) {
			return true
		}
	}
	return nonEmpty(clip.Geometry(b, g))
}

func nonEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return false
	case orb.Point:
		return true
	case orb.MultiPoint:
		return len(g) > 0
	case orb.LineString:
		return len(g) > 0
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) > 0 {
				return true
			}
		}
	case orb.Ring:
		return len(g) > 0
	case orb.Polygon:
		return len(g) > 0 && len(g[0]) > 0
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 && len(p[0]) > 0 {
				return true
			}
		}
	case orb.Collection:
		for _, c := range g {
			if nonEmpty(c) {
				return true
			}
		}
	}
	return false
}

// Distance is the planar distance from p to g in degrees. Polygons that
// contain p are at distance 0.
func Distance(g orb.Geometry, p orb.Point) float64 {
	switch g := g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring, orb.Bound:
		if contains(g, p) {
			return 0
		}
	case orb.Point:
		return planar.Distance(g, p)
	}
	d := planar.DistanceFrom(g, p)
	if math.IsNaN(d) {
		return math.Inf(1)
	}
	return d
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p) || onBoundary(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p) || onBoundary(g, p)
	case orb.Ring:
		return planar.RingContains(g, p) || onBoundary(g, p)
	case orb.Bound:
		return g.Contains(p)
	}
	return false
}

const boundaryEpsilon = 1e-12

func onBoundary(g orb.Geometry, p orb.Point) bool {
	return planar.DistanceFrom(g, p) <= boundaryEpsilon
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].ID < hits[b].ID
	})
}

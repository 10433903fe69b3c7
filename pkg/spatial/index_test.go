package spatial

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func testIndex() *Index {
	return New([]Item{
		{ID: 3, Geometry: orb.MultiPolygon{square(0, 0, 1)}},
		{ID: 1, Geometry: orb.MultiPolygon{square(1, 0, 1)}},
		{ID: 9, Geometry: orb.LineString{{5, 5}, {6, 5}}},
		{ID: 7, Geometry: nil},
	})
}

func TestIndexLen(t *testing.T) {
	if got := testIndex().Len(); got != 3 {
		t.Errorf("Len() = %d, want 3 (nil geometry skipped)", got)
	}
}

func TestContaining(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		name string
		p    orb.Point
		want []int64
	}{
		{"interior of first", orb.Point{0.5, 0.5}, []int64{3}},
		{"interior of second", orb.Point{1.5, 0.5}, []int64{1}},
		{"shared edge", orb.Point{1, 0.5}, []int64{1, 3}},
		{"outside", orb.Point{3, 3}, nil},
		{"on line is not containment", orb.Point{5.5, 5}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Containing(tt.p)
			if len(got) != len(tt.want) {
				t.Fatalf("Containing(%v) = %v, want %v", tt.p, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Containing(%v) = %v, want %v", tt.p, got, tt.want)
				}
			}
		})
	}
}

func TestWithinAndNearest(t *testing.T) {
	idx := testIndex()

	hits := idx.Within(orb.Point{5.5, 5.2}, 0.5)
	if len(hits) != 1 || hits[0].ID != 9 {
		t.Fatalf("Within() = %v, want line 9", hits)
	}
	if math.Abs(hits[0].Distance-0.2) > 1e-9 {
		t.Errorf("distance = %v, want 0.2", hits[0].Distance)
	}

	if _, ok := idx.Nearest(orb.Point{5.5, 5.2}, 0.1); ok {
		t.Error("Nearest() should miss beyond max distance")
	}

	// Equidistant from both squares: smallest id wins.
	h, ok := idx.Nearest(orb.Point{1, -0.1}, 0.5)
	if !ok || h.ID != 1 {
		t.Errorf("Nearest() = %v,%v, want id 1", h, ok)
	}

	// Containment is distance zero.
	h, ok = idx.Nearest(orb.Point{0.25, 0.25}, 0.01)
	if !ok || h.ID != 3 || h.Distance != 0 {
		t.Errorf("Nearest() inside = %v,%v, want id 3 at 0", h, ok)
	}
}

func TestWithinNegativeDistance(t *testing.T) {
	if hits := testIndex().Within(orb.Point{0.5, 0.5}, -1); hits != nil {
		t.Errorf("Within(-1) = %v, want nil", hits)
	}
}

func TestOverlapping(t *testing.T) {
	idx := New([]Item{
		{ID: 1, Geometry: orb.LineString{{0, 0}, {10, 0}}},          // crosses the box
		{ID: 2, Geometry: orb.LineString{{4.2, 2}, {7.2, -1}}},      // bound overlaps, line passes the corner
		{ID: 3, Geometry: orb.LineString{{4.9, 0.01}, {5.1, 0.02}}}, // inside the box
		{ID: 4, Geometry: orb.MultiPolygon{square(-50, -50, 100)}},  // box inside polygon
		{ID: 5, Geometry: orb.LineString{{20, 20}, {21, 21}}},       // far away
	})
	got := idx.Overlapping(Box(orb.Point{5, 0}, 0.5))
	want := []int64{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Overlapping() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Overlapping() = %v, want %v", got, want)
		}
	}
}

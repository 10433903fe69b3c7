package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/watershed/pkg/hydro"
)

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func TestDissolveAdjacentSquares(t *testing.T) {
	g, err := Dissolve([]orb.Geometry{square(0, 0, 1), square(1, 0, 1)})
	if err != nil {
		t.Fatalf("Dissolve: %v", err)
	}
	poly, ok := g.(orb.Polygon)
	if !ok {
		t.Fatalf("Dissolve returned %T, want single Polygon", g)
	}
	if len(poly) != 1 {
		t.Errorf("rings = %d, want 1", len(poly))
	}
	if got := planar.Area(poly); math.Abs(got-2) > 1e-9 {
		t.Errorf("area = %v, want 2", got)
	}
}

func TestDissolveDisjoint(t *testing.T) {
	g, err := Dissolve([]orb.Geometry{square(0, 0, 1), orb.MultiPolygon{square(5, 5, 1)}})
	if err != nil {
		t.Fatalf("Dissolve: %v", err)
	}
	mp, ok := g.(orb.MultiPolygon)
	if !ok {
		t.Fatalf("Dissolve returned %T, want MultiPolygon", g)
	}
	if len(mp) != 2 {
		t.Errorf("parts = %d, want 2", len(mp))
	}
}

func TestDissolveRepairsBowtie(t *testing.T) {
	bowtie := orb.Polygon{{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}
	g, err := Dissolve([]orb.Geometry{bowtie, square(10, 10, 1)})
	if err != nil {
		t.Fatalf("Dissolve: %v", err)
	}
	if got := planar.Area(g); math.Abs(got-3) > 1e-9 {
		t.Errorf("area = %v, want 3", got)
	}
}

func TestDissolveEmpty(t *testing.T) {
	if _, err := Dissolve(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestFill(t *testing.T) {
	small := orb.Ring{{1, 1}, {1, 1.001}, {1.001, 1.001}, {1.001, 1}, {1, 1}}
	large := orb.Ring{{5, 5}, {5, 6}, {6, 6}, {6, 5}, {5, 5}}
	poly := orb.Polygon{square(0, 0, 10)[0], small, large}

	threshold := planar.Area(small) * 10

	got := Fill(poly, threshold).(orb.Polygon)
	if len(got) != 2 {
		t.Fatalf("rings = %d, want 2", len(got))
	}
	if planar.Area(got[1]) != planar.Area(large) {
		t.Errorf("kept the wrong hole")
	}
	if len(poly) != 3 {
		t.Errorf("input modified")
	}

	if all := Fill(poly, 0).(orb.Polygon); len(all) != 1 {
		t.Errorf("zero threshold kept %d rings, want 1", len(all))
	}

	mp := Fill(orb.MultiPolygon{poly, square(20, 20, 1)}, threshold).(orb.MultiPolygon)
	if len(mp[0]) != 2 || len(mp[1]) != 1 {
		t.Errorf("multipolygon rings = %d,%d", len(mp[0]), len(mp[1]))
	}
}

func TestFillArea(t *testing.T) {
	if got := FillArea(100); math.Abs(got-0.0000695) > 1e-15 {
		t.Errorf("FillArea(100) = %v", got)
	}
}

func TestSimplifyNeverIncreasesVertices(t *testing.T) {
	var ring orb.Ring
	for i := 0; i <= 100; i++ {
		a := float64(i) / 100 * 2 * math.Pi
		r := 1 + 0.001*math.Sin(a*17)
		ring = append(ring, orb.Point{r * math.Cos(a), r * math.Sin(a)})
	}
	ring[len(ring)-1] = ring[0]
	tiny := orb.Ring{{0.1, 0.1}, {0.1, 0.1001}, {0.1001, 0.1001}, {0.1, 0.1}}
	poly := orb.Polygon{ring, tiny}

	tests := []float64{0, 0.0001, 0.01, 0.5, 10}
	for _, tol := range tests {
		got := Simplify(poly, tol)
		if VertexCount(got) > VertexCount(poly) {
			t.Errorf("tol %v: %d vertices, input had %d", tol, VertexCount(got), VertexCount(poly))
		}
		p := got.(orb.Polygon)
		if len(p) != 2 {
			t.Errorf("tol %v: rings = %d, want 2", tol, len(p))
		}
		for i, r := range p {
			if len(r) < 4 || !r.Closed() {
				t.Errorf("tol %v: ring %d degenerate: %v", tol, i, r)
			}
		}
	}
	if VertexCount(Simplify(poly, 0.01)) >= VertexCount(poly) {
		t.Error("expected simplification to drop vertices")
	}
	if len(poly[0]) != 101 {
		t.Error("input modified")
	}
}

func TestArea(t *testing.T) {
	tests := []struct {
		name string
		poly orb.Polygon
		want float64 // km²
		tol  float64
	}{
		{"equator", square(0, 0, 1), 12308, 30},
		{"mid latitude", square(10, 45, 1), 8686, 30},
		{"southern", square(20, -31, 1), 10642, 30},
		{"straddles equator", square(0, -0.5, 1), 12308, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Area(tt.poly)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Area = %.1f, want %.0f ± %.0f", got, tt.want, tt.tol)
			}
		})
	}
	if Area(nil) != 0 {
		t.Error("Area(nil) != 0")
	}
}

func TestAreaSubtractsHoles(t *testing.T) {
	outer := square(0, 40, 2)
	holed := orb.Polygon{outer[0], square(0.5, 40.5, 1)[0]}
	if a, b := Area(holed), Area(outer); a >= b {
		t.Errorf("holed area %v >= outer %v", a, b)
	}
}

func TestSnapDistance(t *testing.T) {
	tests := []struct {
		name     string
		from, to orb.Point
		want     float64
	}{
		// WGS84 meridian arc for the first degree of latitude
		{"meridian", orb.Point{0, 0}, orb.Point{0, 1}, 110574.389},
		{"equator", orb.Point{0, 0}, orb.Point{1, 0}, 111319.491},
		{"same point", orb.Point{3, 4}, orb.Point{3, 4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SnapDistance(tt.from, tt.to); math.Abs(got-tt.want) > 0.5 {
				t.Errorf("SnapDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFinish(t *testing.T) {
	in := Input{
		Parts:        []orb.Geometry{square(10, 45, 0.1), square(10.1, 45, 0.1)},
		Outlet:       orb.Point{10.05, 45.05},
		Snap:         orb.Point{10.05, 45.06},
		ReportedArea: hydro.Some(100.0),
	}
	out, err := Finish(in, Options{Fill: true, FillThreshold: DefaultFillThreshold, Simplify: true, SimplifyTolerance: DefaultSimplifyTolerance})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, ok := out.Geometry.(orb.Polygon); !ok {
		t.Errorf("geometry %T, want Polygon", out.Geometry)
	}
	if out.Area < 170 || out.Area > 180 {
		t.Errorf("area = %v", out.Area)
	}
	if out.SnapDistance < 1000 || out.SnapDistance > 1200 {
		t.Errorf("snap distance = %v", out.SnapDistance)
	}
	pd, ok := out.PercentDiff.Get()
	if !ok {
		t.Fatal("missing percent difference")
	}
	if want := (out.Area - 100) / 100 * 100; pd != want {
		t.Errorf("percent diff = %v, want %v", pd, want)
	}

	in.ReportedArea = hydro.None[float64]()
	out, err = Finish(in, Options{})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if out.PercentDiff.Valid {
		t.Error("percent diff without reported area")
	}
}

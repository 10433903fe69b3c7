package pourpoint

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/dataset"
	"github.com/matzehuels/watershed/pkg/hydro"
)

func square(x, y, size float64) orb.MultiPolygon {
	return orb.MultiPolygon{{orb.Ring{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}}
}

func vertical(x, halfLen float64) orb.LineString {
	return orb.LineString{{x, halfLen}, {x, -halfLen}}
}

func testRivers() *dataset.Rivers {
	return dataset.NewRivers(42, []hydro.Reach{
		{ID: 10, UpArea: 10, Geometry: vertical(0.005, 0.005)},
		{ID: 20, UpArea: 105, Geometry: vertical(0.025, 0.001)},
		{ID: 30, UpArea: 500, Geometry: vertical(0.045, 0.001)},
	})
}

func TestMatch(t *testing.T) {
	cats := dataset.NewCatchments(42, hydro.PrecisionHigh, []hydro.UnitCatchment{
		{ID: 10, Geometry: square(0, 0, 1)},
		{ID: 20, Geometry: square(1, 0, 1)},
	})
	network := hydro.ReachMap{10: {ID: 10, UpArea: 55}}
	outlets := []hydro.Outlet{
		{ID: "in", Lat: 0.5, Lng: 0.5},
		{ID: "edge", Lat: 0.5, Lng: 1},
		{ID: "near", Lat: -0.01, Lng: 1.5},
		{ID: "far", Lat: 5, Lng: 5},
	}

	strict, failures := Matcher{}.Match(42, outlets, cats, network)
	if len(strict) != 2 || len(failures) != 2 {
		t.Fatalf("strict match: %d matched, %d failed, want 2/2", len(strict), len(failures))
	}
	if strict[0].NodeID != 10 || strict[0].UpArea != 55 {
		t.Errorf("in = %+v, want node 10 with up area 55", strict[0])
	}
	if strict[1].NodeID != 10 {
		t.Errorf("edge = %d, want smallest containing id 10", strict[1].NodeID)
	}
	if failures[0].Reason != "could not assign to a unit catchment in region #42" {
		t.Errorf("reason = %q", failures[0].Reason)
	}

	loose, failures := Matcher{SearchDistance: 0.05}.Match(42, outlets, cats, network)
	if len(loose) != 3 || len(failures) != 1 || failures[0].OutletID != "far" {
		t.Fatalf("loose match: %v / %v", loose, failures)
	}
	if loose[2].NodeID != 20 || loose[2].SnapDistance <= 0 {
		t.Errorf("near = %+v, want node 20 with a snap distance", loose[2])
	}
}

func TestRelocateFindsReachInThirdWindow(t *testing.T) {
	o := hydro.Outlet{ID: "g", Lat: 0, Lng: 0, Area: hydro.Some(100.0)}
	r := Relocator{AreaThreshold: 0.1, MaxDistance: 0.05}

	id, up, ok := r.Relocate(o, testRivers())
	if !ok {
		t.Fatal("Relocate() found nothing")
	}
	if id != 20 || up != 105 {
		t.Errorf("Relocate() = %d, %v, want 20, 105", id, up)
	}
}

func TestRelocateExhausted(t *testing.T) {
	o := hydro.Outlet{ID: "g", Lat: 0, Lng: 0, Area: hydro.Some(100.0)}
	r := Relocator{AreaThreshold: 0.1, MaxDistance: 0.02}

	if id, _, ok := r.Relocate(o, testRivers()); ok {
		t.Errorf("Relocate() = %d, want exhaustion", id)
	}
}

func TestRelocateNoReportedArea(t *testing.T) {
	o := hydro.Outlet{ID: "g", Lat: 0, Lng: 0}
	if _, _, ok := (Relocator{AreaThreshold: 1, MaxDistance: 1}).Relocate(o, testRivers()); ok {
		t.Error("outlets without a reported area cannot be relocated")
	}
}

func TestRelocateTieGoesToSmallestID(t *testing.T) {
	rivers := dataset.NewRivers(1, []hydro.Reach{
		{ID: 8, UpArea: 90, Geometry: vertical(0.004, 0.001)},
		{ID: 3, UpArea: 110, Geometry: vertical(-0.004, 0.001)},
	})
	o := hydro.Outlet{ID: "g", Lat: 0, Lng: 0, Area: hydro.Some(100.0)}
	id, _, ok := Relocator{AreaThreshold: 0.2, MaxDistance: 0.05}.Relocate(o, rivers)
	if !ok || id != 3 {
		t.Errorf("Relocate() = %d,%v, want 3", id, ok)
	}
}

func TestNeedsRelocation(t *testing.T) {
	r := Relocator{AreaThreshold: 0.25}
	tests := []struct {
		name string
		mo   hydro.MatchedOutlet
		want bool
	}{
		{"no area", hydro.MatchedOutlet{UpArea: 10}, false},
		{"close", hydro.MatchedOutlet{Outlet: hydro.Outlet{Area: hydro.Some(100.0)}, UpArea: 80}, false},
		{"on threshold", hydro.MatchedOutlet{Outlet: hydro.Outlet{Area: hydro.Some(100.0)}, UpArea: 125}, false},
		{"far", hydro.MatchedOutlet{Outlet: hydro.Outlet{Area: hydro.Some(100.0)}, UpArea: 10}, true},
	}
	for _, tt := range tests {
		if got := r.NeedsRelocation(tt.mo); got != tt.want {
			t.Errorf("%s: NeedsRelocation() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMaxIterations(t *testing.T) {
	tests := []struct {
		max  float64
		want int
	}{
		{0.005, 0},
		{0.01, 1},
		{0.05, 5},
		{0.075, 7},
	}
	for _, tt := range tests {
		if got := (Relocator{MaxDistance: tt.max}).MaxIterations(); got != tt.want {
			t.Errorf("MaxIterations(%v) = %d, want %d", tt.max, got, tt.want)
		}
	}
}

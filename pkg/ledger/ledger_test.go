package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

func batch() []hydro.Outlet {
	return []hydro.Outlet{
		{ID: "a", Lat: 10, Lng: 20, Area: hydro.Some(100.0), Name: hydro.Some("Alpha")},
		{ID: "b", Lat: 11, Lng: 21},
		{ID: "c", Lat: 12, Lng: 22, Area: hydro.Some(50.0)},
	}
}

func basin(id string) hydro.Basin {
	return hydro.Basin{
		OutletID:     id,
		Region:       11,
		Nodes:        []int64{1, 2},
		Geometry:     orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		Area:         123.456,
		Resolution:   hydro.ResolutionHigh,
		SnapLat:      10.00049,
		SnapLng:      19.99951,
		SnapDistance: 87.654,
		PercentDiff:  hydro.Some(23.456),
	}
}

func TestLedgerOrderAndDuplicates(t *testing.T) {
	l := New(batch())

	if err := l.AddFailure(hydro.FailureRecord{OutletID: "c", Reason: hydro.ReasonNoRegion}); err != nil {
		t.Fatalf("AddFailure: %v", err)
	}
	if err := l.AddBasin(basin("a")); err != nil {
		t.Fatalf("AddBasin: %v", err)
	}

	if err := l.AddBasin(basin("a")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("duplicate basin: got %v", err)
	}
	if err := l.AddFailure(hydro.FailureRecord{OutletID: "a", Reason: "x"}); err == nil {
		t.Error("expected failure after basin to be rejected")
	}
	if err := l.AddBasin(basin("c")); err == nil {
		t.Error("expected basin after failure to be rejected")
	}
	if err := l.AddBasin(basin("zzz")); err == nil {
		t.Error("expected unknown outlet to be rejected")
	}

	if got := l.Pending(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Pending = %v", got)
	}
	if l.Complete() {
		t.Error("Complete with a pending outlet")
	}
	if err := l.AddBasin(basin("b")); err != nil {
		t.Fatalf("AddBasin: %v", err)
	}
	if !l.Complete() {
		t.Error("not Complete after every outlet recorded")
	}

	var ids []string
	for _, b := range l.Basins() {
		ids = append(ids, b.OutletID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Errorf("Basins order = %v", ids)
	}
	if n, f := l.Counts(); n != 2 || f != 1 {
		t.Errorf("Counts = %d, %d", n, f)
	}
}

func TestLedgerConcurrent(t *testing.T) {
	var outlets []hydro.Outlet
	for i := 0; i < 200; i++ {
		outlets = append(outlets, hydro.Outlet{ID: fmt.Sprintf("o%03d", i), Lat: 1, Lng: 1})
	}
	l := New(outlets)

	var wg sync.WaitGroup
	for i, o := range outlets {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			if i%2 == 0 {
				_ = l.AddBasin(basin(id))
			} else {
				_ = l.AddFailure(hydro.FailureRecord{OutletID: id, Reason: "x"})
			}
			// second entry for the same outlet must lose
			_ = l.AddFailure(hydro.FailureRecord{OutletID: id, Reason: "dup"})
		}(i, o.ID)
	}
	wg.Wait()

	if !l.Complete() {
		t.Fatal("ledger incomplete")
	}
	b, f := l.Counts()
	if b != 100 || f != 100 {
		t.Errorf("Counts = %d, %d, want 100, 100", b, f)
	}
	for _, fr := range l.Failures() {
		if fr.Reason != "x" {
			t.Fatalf("outlet %s has reason %q", fr.OutletID, fr.Reason)
		}
	}
}

func TestSummary(t *testing.T) {
	l := New(batch())
	_ = l.AddBasin(basin("a"))
	low := basin("c")
	low.Resolution = hydro.ResolutionLow
	low.PercentDiff = hydro.None[float64]()
	_ = l.AddBasin(low)

	rows := l.Summary()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (pending outlets are skipped)", len(rows))
	}
	a := rows[0]
	if a.ID != "a" || a.Name.Or("") != "Alpha" || a.Result != "high res" {
		t.Errorf("row a = %+v", a)
	}
	if a.LatSnap.Value != 10 || a.LngSnap.Value != 20 {
		t.Errorf("snap = %v,%v", a.LatSnap.Value, a.LngSnap.Value)
	}
	if a.SnapDist.Value != 88 {
		t.Errorf("snap dist = %v, want 88", a.SnapDist.Value)
	}
	if a.AreaCalc.Value != 123 {
		t.Errorf("area calc = %v, want 123", a.AreaCalc.Value)
	}
	if a.PercDiff.Value != 23 {
		t.Errorf("perc diff = %v, want 23", a.PercDiff.Value)
	}
	if rows[1].Result != "low res" || rows[1].PercDiff.Valid {
		t.Errorf("row c = %+v", rows[1])
	}

	_ = l.AddFailure(hydro.FailureRecord{OutletID: "b", Reason: hydro.ReasonRasterFailed})
	rows = l.Summary()
	if rows[1].ID != "b" || rows[1].Result != "failed" || rows[1].AreaCalc.Valid {
		t.Errorf("failed row = %+v", rows[1])
	}
	if len(Columns) != 11 {
		t.Errorf("Columns = %v", Columns)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs", "ledger.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	l := New(batch())
	_ = l.AddBasin(basin("a"))
	_ = l.AddFailure(hydro.FailureRecord{OutletID: "b", Reason: hydro.ReasonNoRegion})
	_ = l.AddFailure(hydro.FailureRecord{OutletID: "c", Reason: hydro.ReasonRasterFailed})

	start := time.UnixMilli(1_700_000_000_000)
	id, err := s.SaveRun(ctx, Run{StartedAt: start, FinishedAt: start.Add(time.Minute), Version: "dev", Options: "{}"}, l)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if id == "" {
		t.Fatal("empty run id")
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != id || runs[0].Basins != 1 || runs[0].Failures != 2 || runs[0].Outlets != 3 {
		t.Fatalf("Runs = %+v", runs)
	}
	if !runs[0].StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v", runs[0].StartedAt)
	}

	failures, err := s.Failures(ctx, id)
	if err != nil {
		t.Fatalf("Failures: %v", err)
	}
	want := []hydro.FailureRecord{
		{OutletID: "b", Reason: hydro.ReasonNoRegion},
		{OutletID: "c", Reason: hydro.ReasonRasterFailed},
	}
	if !reflect.DeepEqual(failures, want) {
		t.Errorf("Failures = %v", failures)
	}

	b, err := s.BasinGeometry(ctx, id, "a")
	if err != nil {
		t.Fatalf("BasinGeometry: %v", err)
	}
	if b.Region != 11 || b.Resolution != hydro.ResolutionHigh || b.Area != 123.456 {
		t.Errorf("basin = %+v", b)
	}
	if _, ok := b.Geometry.(orb.Polygon); !ok {
		t.Errorf("geometry %T", b.Geometry)
	}

	if _, err := s.BasinGeometry(ctx, id, "b"); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing basin: got %v", err)
	}

	if _, err := s.SaveRun(ctx, Run{ID: id}, l); err == nil {
		t.Error("expected duplicate run id to fail")
	}
}

package io

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/ledger"
)

func TestReadOutletsCSV(t *testing.T) {
	input := "\ufeffID,Lat,Lon,Area,Name\n" +
		"a,45.5,-73.25,1200,Upper\n" +
		"\n" +
		"b,-10,20,,\n"

	outlets, err := ReadOutlets(strings.NewReader(input), FormatCSV)
	if err != nil {
		t.Fatalf("ReadOutlets: %v", err)
	}
	if len(outlets) != 2 {
		t.Fatalf("got %d outlets, want 2", len(outlets))
	}
	a := outlets[0]
	if a.ID != "a" || a.Lat != 45.5 || a.Lng != -73.25 {
		t.Errorf("outlet a = %+v", a)
	}
	if v, ok := a.Area.Get(); !ok || v != 1200 {
		t.Errorf("area = %v, %v; want 1200", v, ok)
	}
	if v, ok := a.Name.Get(); !ok || v != "Upper" {
		t.Errorf("name = %q, %v; want Upper", v, ok)
	}
	b := outlets[1]
	if b.Area.Valid || b.Name.Valid {
		t.Errorf("outlet b should have no area or name: %+v", b)
	}
}

func TestReadOutletsCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing lng", "id,lat\na,1\n"},
		{"bad lat", "id,lat,lng\na,north,2\n"},
		{"bad area", "id,lat,lng,area\na,1,2,big\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadOutlets(strings.NewReader(tt.input), FormatCSV)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestReadOutletsJSON(t *testing.T) {
	input := `[
		{"id": 17, "lat": 1.5, "lng": 2.5},
		{"id": "x", "lat": 3, "lng": 4, "area": 50, "name": "Mouth"}
	]`
	outlets, err := ReadOutlets(strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatalf("ReadOutlets: %v", err)
	}
	if len(outlets) != 2 {
		t.Fatalf("got %d outlets, want 2", len(outlets))
	}
	if outlets[0].ID != "17" {
		t.Errorf("numeric id = %q, want 17", outlets[0].ID)
	}
	if v, _ := outlets[1].Area.Get(); v != 50 {
		t.Errorf("area = %v, want 50", v)
	}
}

func TestReadOutletsJSONMissingCoordinate(t *testing.T) {
	_, err := ReadOutlets(strings.NewReader(`[{"id": "a", "lat": 1}]`), FormatJSON)
	if err == nil {
		t.Fatal("expected error for missing lng")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"outlets.csv", FormatCSV, false},
		{"OUTLETS.CSV", FormatCSV, false},
		{"outlets.json", FormatJSON, false},
		{"outlets.xlsx", "", true},
	}
	for _, tt := range tests {
		got, err := FormatFromPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFromPath(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func testBasin() (hydro.Basin, hydro.Outlet) {
	o := hydro.Outlet{ID: "b1", Lat: 0.5, Lng: 0.5, Area: hydro.Some(100.0), Name: hydro.Some("Creek")}
	b := hydro.Basin{
		OutletID:     "b1",
		Region:       11,
		Nodes:        []int64{7, 8},
		Geometry:     square(0.123456789, 0, 1),
		Area:         123.456,
		Resolution:   hydro.ResolutionHigh,
		SnapLat:      0.512345678,
		SnapLng:      0.498765432,
		SnapDistance: 1234.5,
		PercentDiff:  hydro.Some(23.456),
	}
	return b, o
}

func TestWriteBasin(t *testing.T) {
	b, o := testBasin()
	var buf bytes.Buffer
	if err := WriteBasin(&buf, b, o); err != nil {
		t.Fatalf("WriteBasin: %v", err)
	}

	var f struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(buf.Bytes(), &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Type != "Feature" || f.Geometry.Type != "Polygon" {
		t.Errorf("got %s/%s, want Feature/Polygon", f.Type, f.Geometry.Type)
	}
	if x := f.Geometry.Coordinates[0][0][0]; x != 0.12346 {
		t.Errorf("x = %v, want 0.12346", x)
	}
	if f.Properties["id"] != "b1" || f.Properties["name"] != "Creek" {
		t.Errorf("properties = %v", f.Properties)
	}
	if f.Properties["area_calc"] != 123.0 {
		t.Errorf("area_calc = %v, want 123", f.Properties["area_calc"])
	}
	if f.Properties["result"] != hydro.ResolutionHigh.Label() {
		t.Errorf("result = %v", f.Properties["result"])
	}

	// Input geometry is left untouched.
	if got := b.Geometry.(orb.Polygon)[0][0][0]; got != 0.123456789 {
		t.Errorf("basin geometry mutated: %v", got)
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	rows := []ledger.Row{
		{ID: "a", Lat: 1, Lng: 2, AreaCalc: hydro.Some(12.5), Result: "high res"},
		{ID: "b", Name: hydro.Some("Mouth"), Lat: 3, Lng: 4, Result: "failed"},
	}
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, rows); err != nil {
		t.Fatalf("WriteSummaryCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != strings.Join(ledger.Columns, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "a,,1,2,,,,,12.5,,high res" {
		t.Errorf("row a = %q", lines[1])
	}
	if lines[2] != "b,Mouth,3,4,,,,,,,failed" {
		t.Errorf("row b = %q", lines[2])
	}
}

func TestWriteFailuresCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFailuresCSV(&buf, []hydro.FailureRecord{
		{OutletID: "x", Reason: hydro.ReasonNoRegion},
	})
	if err != nil {
		t.Fatalf("WriteFailuresCSV: %v", err)
	}
	want := "ID,EXPLANATION\nx," + hydro.ReasonNoRegion + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestExportRun(t *testing.T) {
	b, o := testBasin()
	failed := hydro.Outlet{ID: "f1", Lat: 80, Lng: 0}
	l := ledger.New([]hydro.Outlet{o, failed})
	if err := l.AddBasin(b); err != nil {
		t.Fatal(err)
	}
	if err := l.AddFailure(hydro.FailureRecord{OutletID: "f1", Reason: hydro.ReasonNoRegion}); err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	written, err := ExportRun(dir, l, ExportOptions{GeoJSON: true, CSV: true})
	if err != nil {
		t.Fatalf("ExportRun: %v", err)
	}
	if len(written) != 3 {
		t.Fatalf("wrote %v, want 3 files", written)
	}
	for _, name := range []string{"b1.geojson", SummaryFile, FailuresFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestBasinFileName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"b1", "b1.geojson"},
		{"usgs/0123", "usgs_0123.geojson"},
		{`a\b`, "a_b.geojson"},
		{"..", "_...geojson"},
		{"Rio Negro", "Rio Negro.geojson"},
	}
	for _, tt := range tests {
		if got := BasinFileName(tt.id); got != tt.want {
			t.Errorf("BasinFileName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestExportRunSeparatorID(t *testing.T) {
	b, o := testBasin()
	o.ID, b.OutletID = "usgs/0123", "usgs/0123"
	if err := hydro.ValidateBatch([]hydro.Outlet{o}); err != nil {
		t.Fatalf("ValidateBatch: %v", err)
	}
	l := ledger.New([]hydro.Outlet{o})
	if err := l.AddBasin(b); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	written, err := ExportRun(dir, l, ExportOptions{GeoJSON: true})
	if err != nil {
		t.Fatalf("ExportRun: %v", err)
	}
	want := filepath.Join(dir, "usgs_0123.geojson")
	if len(written) != 1 || written[0] != want {
		t.Errorf("wrote %v, want [%s]", written, want)
	}
}

func TestExportRunNoFailures(t *testing.T) {
	b, o := testBasin()
	l := ledger.New([]hydro.Outlet{o})
	if err := l.AddBasin(b); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if _, err := ExportRun(dir, l, ExportOptions{CSV: true}); err != nil {
		t.Fatalf("ExportRun: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FailuresFile)); !os.IsNotExist(err) {
		t.Errorf("FAILED.csv should not exist, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b1.geojson")); !os.IsNotExist(err) {
		t.Errorf("geojson written without GeoJSON option")
	}
}

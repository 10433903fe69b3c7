package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/ledger"
)

// File names written by ExportRun.
const (
	SummaryFile  = "OUTPUT.csv"
	FailuresFile = "FAILED.csv"
)

// coordinateFactor rounds exported coordinates to 5 decimals.
const coordinateFactor = 100000

// BasinFeature builds the GeoJSON Feature of a basin. The basin geometry is
// not modified.
func BasinFeature(b hydro.Basin, o hydro.Outlet) *geojson.Feature {
	g := orb.Round(orb.Clone(b.Geometry), coordinateFactor)
	f := geojson.NewFeature(g)
	f.Properties["id"] = o.ID
	if name, ok := o.Name.Get(); ok {
		f.Properties["name"] = name
	}
	f.Properties["region"] = int(b.Region)
	f.Properties["result"] = b.Resolution.Label()
	f.Properties["nodes"] = len(b.Nodes)
	f.Properties["area_calc"] = hydro.RoundSig(b.Area, 3)
	if area, ok := o.Area.Get(); ok {
		f.Properties["area_reported"] = area
	}
	if pd, ok := b.PercentDiff.Get(); ok {
		f.Properties["perc_diff"] = hydro.RoundSig(pd, 2)
	}
	f.Properties["lat_snap"] = hydro.RoundTo(b.SnapLat, 5)
	f.Properties["lng_snap"] = hydro.RoundTo(b.SnapLng, 5)
	f.Properties["snap_dist"] = hydro.RoundSig(b.SnapDistance, 2)
	return f
}

// WriteBasin encodes a basin as a GeoJSON Feature and writes it to w.
func WriteBasin(w io.Writer, b hydro.Basin, o hydro.Outlet) error {
	data, err := BasinFeature(b, o).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode basin %s: %w", b.OutletID, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write basin %s: %w", b.OutletID, err)
	}
	return nil
}

// ExportBasin writes a basin to a GeoJSON file at path.
func ExportBasin(path string, b hydro.Basin, o hydro.Outlet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteBasin(f, b, o); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteSummaryCSV writes the summary table with a header row.
func WriteSummaryCSV(w io.Writer, rows []ledger.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.ID,
			r.Name.String(),
			formatFloat(r.Lat),
			formatFloat(r.Lng),
			formatOptional(r.LatSnap),
			formatOptional(r.LngSnap),
			formatOptional(r.SnapDist),
			formatOptional(r.AreaReported),
			formatOptional(r.AreaCalc),
			formatOptional(r.PercDiff),
			r.Result,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFailuresCSV writes one row per failed outlet under an
// "ID, EXPLANATION" header.
func WriteFailuresCSV(w io.Writer, failures []hydro.FailureRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"ID", "EXPLANATION"}); err != nil {
		return err
	}
	for _, f := range failures {
		if err := cw.Write([]string{f.OutletID, f.Reason}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BasinFileName returns the GeoJSON file name for an outlet id. Path
// separators become underscores and the dot names get a leading underscore,
// so every id maps to a file directly inside the output directory.
func BasinFileName(id string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(id)
	if name == "." || name == ".." {
		name = "_" + name
	}
	return name + ".geojson"
}

// ExportOptions selects what ExportRun writes.
type ExportOptions struct {
	GeoJSON bool
	CSV     bool
}

// ExportRun writes the results of l into dir and returns the paths written.
// FAILED.csv is only written when an outlet failed.
func ExportRun(dir string, l *ledger.Ledger, opts ExportOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory %s", dir)
	}
	outlets := make(map[string]hydro.Outlet)
	for _, o := range l.Outlets() {
		outlets[o.ID] = o
	}

	var written []string
	if opts.GeoJSON {
		for _, b := range l.Basins() {
			path := filepath.Join(dir, BasinFileName(b.OutletID))
			if err := ExportBasin(path, b, outlets[b.OutletID]); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	if !opts.CSV {
		return written, nil
	}

	path := filepath.Join(dir, SummaryFile)
	if err := writeFile(path, func(w io.Writer) error { return WriteSummaryCSV(w, l.Summary()) }); err != nil {
		return written, err
	}
	written = append(written, path)

	if failures := l.Failures(); len(failures) > 0 {
		path := filepath.Join(dir, FailuresFile)
		if err := writeFile(path, func(w io.Writer) error { return WriteFailuresCSV(w, failures) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(o hydro.Optional[float64]) string {
	if v, ok := o.Get(); ok {
		return formatFloat(v)
	}
	return ""
}

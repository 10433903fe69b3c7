package ledger

import "github.com/matzehuels/watershed/pkg/hydro"

// Columns is the header of the summary table.
var Columns = []string{
	"id", "name", "lat", "lng", "lat_snap", "lng_snap", "snap_dist",
	"area_reported", "area_calc", "perc_diff", "result",
}

// Row is one line of the summary table. Values are rounded for display:
// snapped coordinates to 3 decimals, snap distance and percent difference
// to 2 significant figures, computed area to 3.
type Row struct {
	ID           string
	Name         hydro.Optional[string]
	Lat          float64
	Lng          float64
	LatSnap      hydro.Optional[float64]
	LngSnap      hydro.Optional[float64]
	SnapDist     hydro.Optional[float64] // metres
	AreaReported hydro.Optional[float64] // km²
	AreaCalc     hydro.Optional[float64] // km²
	PercDiff     hydro.Optional[float64]
	Result       string
}

// Summary returns one row per recorded outlet in input order. Outlets still
// pending are left out.
func (l *Ledger) Summary() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]Row, 0, len(l.basins)+len(l.failures))
	for _, o := range l.outlets {
		row := Row{
			ID:           o.ID,
			Name:         o.Name,
			Lat:          o.Lat,
			Lng:          o.Lng,
			AreaReported: o.Area,
		}
		if b, ok := l.basins[o.ID]; ok {
			row.LatSnap = hydro.Some(hydro.RoundTo(b.SnapLat, 3))
			row.LngSnap = hydro.Some(hydro.RoundTo(b.SnapLng, 3))
			row.SnapDist = hydro.Some(hydro.RoundSig(b.SnapDistance, 2))
			row.AreaCalc = hydro.Some(hydro.RoundSig(b.Area, 3))
			if pd, ok := b.PercentDiff.Get(); ok {
				row.PercDiff = hydro.Some(hydro.RoundSig(pd, 2))
			}
			row.Result = b.Resolution.Label()
		} else if _, ok := l.failures[o.ID]; ok {
			row.Result = hydro.Resolution("").Label()
		} else {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

//go:embed schema.sql
var schemaSQL string

//go:embed pragmas.sql
var pragmasSQL string

// Run describes a finished batch.
type Run struct {
	ID         string // assigned by SaveRun when empty
	StartedAt  time.Time
	FinishedAt time.Time
	Version    string
	Options    string // JSON encoded run options
}

// RunInfo is a stored run.
type RunInfo struct {
	Run
	Outlets  int
	Basins   int
	Failures int
}

// SQLiteStore persists runs to a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create database directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" || strings.HasPrefix(pragma, "--") {
			continue
		}
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun writes run and every entry of l in one transaction and returns
// the run id.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, l *Ledger) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	basins := l.Basins()
	failures := l.Failures()
	outlets := l.Outlets()

	byID := make(map[string]hydro.Outlet, len(outlets))
	seq := make(map[string]int, len(outlets))
	for i, o := range outlets {
		byID[o.ID] = o
		seq[o.ID] = i
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, version, options, outlets, basins, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Version, run.Options,
		len(outlets), len(basins), len(failures),
	); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, b := range basins {
		o := byID[b.OutletID]
		var geom []byte
		if b.Geometry != nil {
			if geom, err = wkb.Marshal(b.Geometry); err != nil {
				return "", fmt.Errorf("encoding basin %s: %w", b.OutletID, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO basins (run_id, seq, outlet_id, name, lat, lng, region, resolution, nodes,
			 lat_snap, lng_snap, snap_dist, area_reported, area_calc, perc_diff, geometry)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, seq[b.OutletID], b.OutletID, nullString(o.Name), o.Lat, o.Lng, int(b.Region),
			string(b.Resolution), len(b.Nodes), b.SnapLat, b.SnapLng, b.SnapDistance,
			nullFloat(o.Area), b.Area, nullFloat(b.PercentDiff), geom,
		); err != nil {
			return "", fmt.Errorf("inserting basin %s: %w", b.OutletID, err)
		}
	}

	for _, f := range failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, seq, outlet_id, reason) VALUES (?, ?, ?, ?)`,
			run.ID, seq[f.OutletID], f.OutletID, f.Reason,
		); err != nil {
			return "", fmt.Errorf("inserting failure %s: %w", f.OutletID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return run.ID, nil
}

// Runs lists stored runs, newest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, version, options, outlets, basins, failures
		 FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			ri              RunInfo
			started, finish int64
		)
		if err := rows.Scan(&ri.ID, &started, &finish, &ri.Version, &ri.Options, &ri.Outlets, &ri.Basins, &ri.Failures); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		ri.StartedAt = time.UnixMilli(started)
		ri.FinishedAt = time.UnixMilli(finish)
		out = append(out, ri)
	}
	return out, rows.Err()
}

// Failures returns the failures stored for a run in input order.
func (s *SQLiteStore) Failures(ctx context.Context, runID string) ([]hydro.FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outlet_id, reason FROM failures WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var out []hydro.FailureRecord
	for rows.Next() {
		var f hydro.FailureRecord
		if err := rows.Scan(&f.OutletID, &f.Reason); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// BasinGeometry returns the stored outline of one basin.
func (s *SQLiteStore) BasinGeometry(ctx context.Context, runID, outletID string) (hydro.Basin, error) {
	var (
		b    hydro.Basin
		res  string
		geom []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT outlet_id, region, resolution, lat_snap, lng_snap, snap_dist, area_calc, geometry
		 FROM basins WHERE run_id = ? AND outlet_id = ?`, runID, outletID,
	).Scan(&b.OutletID, &b.Region, &res, &b.SnapLat, &b.SnapLng, &b.SnapDistance, &b.Area, &geom)
	if err == sql.ErrNoRows {
		return hydro.Basin{}, errors.New(errors.ErrCodeNotFound, "no basin for outlet %q in run %s", outletID, runID)
	}
	if err != nil {
		return hydro.Basin{}, fmt.Errorf("querying basin: %w", err)
	}
	b.Resolution = hydro.Resolution(res)
	if len(geom) > 0 {
		if b.Geometry, err = wkb.Unmarshal(geom); err != nil {
			return hydro.Basin{}, fmt.Errorf("decoding basin geometry: %w", err)
		}
	}
	return b, nil
}

func nullString(o hydro.Optional[string]) sql.NullString {
	return sql.NullString{String: o.Value, Valid: o.Valid}
}

func nullFloat(o hydro.Optional[float64]) sql.NullFloat64 {
	return sql.NullFloat64{Float64: o.Value, Valid: o.Valid}
}

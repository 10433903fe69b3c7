package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/pipeline"
)

const sample = `
[data]
dir = "/data/merit"

[data.s3]
endpoint = "minio:9000"
bucket = "merit"

[data.layout]
rivers = "riv/{region}.geojson"

[cache]
backend = "none"
ttl = "72h"

[delineation]
high_res = false
low_res_threshold = 2000
fill_threshold = 0
workers = 2

[raster]
command = "split-catchment"
args = ["--dem", "/data/dem"]
timeout = "90s"

[output]
dir = "out"
formats = ["csv"]
database = "out/runs.db"
`

func TestParse(t *testing.T) {
	cfg, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Data.Dir != "/data/merit" || cfg.Data.S3.Bucket != "merit" {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Data.Layout.Rivers != "riv/{region}.geojson" || cfg.Data.Layout.Catchments != "" {
		t.Errorf("layout = %+v", cfg.Data.Layout)
	}
	if cfg.Cache.Backend != BackendNone || cfg.Cache.TTL != 72*time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}

	d := cfg.Delineation
	if d.HighRes || d.LowResThreshold != 2000 || d.Workers != 2 || d.FillThreshold != 0 {
		t.Errorf("delineation = %+v", d)
	}
	// keys absent from the file keep their defaults
	if !d.Fill || !d.MatchAreas || d.AreaThreshold != pipeline.DefaultAreaThreshold {
		t.Errorf("defaults lost: %+v", d)
	}

	if cfg.Raster.Command != "split-catchment" || len(cfg.Raster.Args) != 2 || cfg.Raster.Timeout != 90*time.Second {
		t.Errorf("raster = %+v", cfg.Raster)
	}
	if cfg.Raster.Concurrency == 0 {
		t.Error("raster concurrency default lost")
	}
	if !cfg.WantsFormat(FormatCSV) || cfg.WantsFormat(FormatGeoJSON) {
		t.Errorf("formats = %v", cfg.Output.Formats)
	}
	if !cfg.HasData() {
		t.Error("HasData = false")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"syntax", `[data`},
		{"unknown key", "[cache]\nbackend = \"file\"\nsize = 3\n"},
		{"bad backend", "[cache]\nbackend = \"memcached\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n"},
		{"bad format", "[output]\nformats = [\"kml\"]\n"},
		{"bad search distance", "[delineation]\nsearch_distance = 2.0\n"},
		{"negative workers", "[delineation]\nworkers = -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.toml)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("got %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Data.Dir = "/from/file"
	env := map[string]string{
		"WATERSHED_DATA_DIR":       "/from/env",
		"WATERSHED_S3_ENDPOINT":    "s3.example.com",
		"WATERSHED_S3_ACCESS_KEY":  "AK",
		"WATERSHED_S3_SECRET_KEY":  "SK",
		"WATERSHED_S3_USE_SSL":     "true",
		"WATERSHED_REDIS_ADDR":     "localhost:6379",
		"WATERSHED_RASTER_COMMAND": "/usr/bin/split",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Data.Dir != "/from/env" {
		t.Errorf("Dir = %q", cfg.Data.Dir)
	}
	s3 := cfg.Data.S3
	if s3.Endpoint != "s3.example.com" || s3.AccessKey != "AK" || s3.SecretKey != "SK" || !s3.UseSSL {
		t.Errorf("s3 = %+v", s3)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" || cfg.Cache.Backend != BackendFile {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Raster.Command != "/usr/bin/split" {
		t.Errorf("raster command = %q", cfg.Raster.Command)
	}

	cfg.ApplyEnv(func(string) string { return "" })
	if cfg.Data.Dir != "/from/env" {
		t.Error("empty variables must not clear values")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[delineation]\nworkers = 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WATERSHED_DATA_DIR", "/env/data")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Delineation.Workers != 7 || cfg.Path != path {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Data.Dir != "/env/data" {
		t.Errorf("Dir = %q", cfg.Data.Dir)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing explicit file: got %v", err)
	}
}

func TestLoadDefaultPathOptional(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want defaults", cfg.Path)
	}
	if cfg.Delineation.Workers != pipeline.DefaultWorkers {
		t.Errorf("Workers = %d", cfg.Delineation.Workers)
	}
}

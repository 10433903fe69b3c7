// Package config loads watershed.toml and the environment overlay.
//
// Precedence, lowest first: built-in defaults, the TOML file, a .env file,
// the process environment. Command-line flags are applied by the CLI on top
// of the returned Config.
//
// # File format
//
//	[data]
//	dir = "/data/merit"
//
//	[data.s3]
//	endpoint = "minio:9000"
//	bucket = "merit-basins"
//
//	[cache]
//	backend = "file"      # file, redis or none
//	ttl = "720h"
//
//	[delineation]
//	high_res = true
//	low_res_threshold = 50000
//	fill = true
//	fill_threshold = 100
//
//	[raster]
//	command = "split-catchment"
//	timeout = "5m"
//	concurrency = 4
//
//	[output]
//	dir = "output"
//	formats = ["geojson", "csv"]
//	database = "output/runs.db"
//
// # Environment
//
// WATERSHED_DATA_DIR, WATERSHED_S3_ENDPOINT, WATERSHED_S3_BUCKET,
// WATERSHED_S3_PREFIX, WATERSHED_S3_ACCESS_KEY, WATERSHED_S3_SECRET_KEY,
// WATERSHED_S3_REGION, WATERSHED_S3_USE_SSL, WATERSHED_REDIS_ADDR,
// WATERSHED_REDIS_PASSWORD and WATERSHED_RASTER_COMMAND override the file.
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/watershed/pkg/dataset"
	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/pipeline"
	"github.com/matzehuels/watershed/pkg/raster"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "watershed.toml"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Output formats.
const (
	FormatGeoJSON = "geojson"
	FormatCSV     = "csv"
)

// Config is the complete configuration of the CLI.
type Config struct {
	Data        DataConfig       `toml:"data"`
	Cache       CacheConfig      `toml:"cache"`
	Delineation pipeline.Options `toml:"delineation"`
	Raster      RasterConfig     `toml:"raster"`
	Output      OutputConfig     `toml:"output"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// DataConfig locates the MERIT-Basins datasets. Dir wins over S3 when both
// are set.
type DataConfig struct {
	Dir    string           `toml:"dir"`
	S3     dataset.S3Config `toml:"s3"`
	Layout dataset.Layout   `toml:"layout"`
}

// CacheConfig selects the artifact side cache.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"` // default: user cache dir
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	TTL           time.Duration `toml:"ttl"`
}

// RasterConfig configures the external raster delineation tool.
type RasterConfig struct {
	Command     string        `toml:"command"`
	Args        []string      `toml:"args"`
	Timeout     time.Duration `toml:"timeout"`
	Concurrency int           `toml:"concurrency"`
	MemoSize    int           `toml:"memo_size"`
}

// OutputConfig controls what a run writes.
type OutputConfig struct {
	Dir      string   `toml:"dir"`
	Formats  []string `toml:"formats"`
	Database string   `toml:"database"` // SQLite ledger, empty to skip
	Metrics  string   `toml:"metrics"`  // Prometheus textfile, empty to skip
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Backend: BackendFile,
		},
		Delineation: pipeline.DefaultOptions(),
		Raster: RasterConfig{
			Timeout:     raster.DefaultTimeout,
			Concurrency: raster.DefaultConcurrency,
			MemoSize:    raster.DefaultMemoSize,
		},
		Output: OutputConfig{
			Dir:     "output",
			Formats: []string{FormatGeoJSON, FormatCSV},
		},
	}
}

// Load reads path over the defaults, then applies .env and the process
// environment. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}

	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes TOML text over the defaults without touching the
// environment.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := undecoded(md); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := undecoded(md); err != nil {
		return err
	}
	c.Path = path
	return nil
}

func undecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	sort.Strings(names)
	return errors.New(errors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(names, ", "))
}

// ApplyEnv overlays WATERSHED_* variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Data.Dir, "WATERSHED_DATA_DIR")
	set(&c.Data.S3.Endpoint, "WATERSHED_S3_ENDPOINT")
	set(&c.Data.S3.Bucket, "WATERSHED_S3_BUCKET")
	set(&c.Data.S3.Prefix, "WATERSHED_S3_PREFIX")
	set(&c.Data.S3.AccessKey, "WATERSHED_S3_ACCESS_KEY")
	set(&c.Data.S3.SecretKey, "WATERSHED_S3_SECRET_KEY")
	set(&c.Data.S3.Region, "WATERSHED_S3_REGION")
	set(&c.Cache.RedisAddr, "WATERSHED_REDIS_ADDR")
	set(&c.Cache.RedisPassword, "WATERSHED_REDIS_PASSWORD")
	set(&c.Raster.Command, "WATERSHED_RASTER_COMMAND")

	if v := strings.TrimSpace(getenv("WATERSHED_S3_USE_SSL")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Data.S3.UseSSL = b
		}
	}
}

// Validate checks the configuration. Data and raster settings are checked
// by the commands that need them.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache backend %q must be file, redis or none", c.Cache.Backend)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "redis cache needs redis_addr")
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache ttl must not be negative")
	}
	for _, f := range c.Output.Formats {
		if f != FormatGeoJSON && f != FormatCSV {
			return errors.New(errors.ErrCodeInvalidConfig, "output format %q must be geojson or csv", f)
		}
	}
	if c.Raster.Timeout < 0 || c.Raster.Concurrency < 0 || c.Raster.MemoSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "raster limits must not be negative")
	}
	opts := c.Delineation
	return opts.ValidateAndSetDefaults()
}

// HasData reports whether a dataset location is configured.
func (c *Config) HasData() bool {
	return c.Data.Dir != "" || c.Data.S3.Bucket != ""
}

// WantsFormat reports whether format is among the output formats.
func (c *Config) WantsFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}

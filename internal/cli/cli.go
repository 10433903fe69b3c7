// Package cli implements the watershed command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/watershed/pkg/buildinfo"
	"github.com/matzehuels/watershed/pkg/cache"
	"github.com/matzehuels/watershed/pkg/config"
	"github.com/matzehuels/watershed/pkg/dataset"
	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/pipeline"
	"github.com/matzehuels/watershed/pkg/raster"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "watershed"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is set by the --config flag. Empty reads watershed.toml
	// from the working directory when present.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Watershed delineates drainage basins for outlet points",
		Long:         `Watershed delineates the upstream drainage basin of each outlet point using the MERIT-Basins vector river network, refining the most downstream catchment with an external raster tool.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.ConfigPath, "config", "c", "", "config file (default ./"+config.DefaultPath+" if present)")

	root.AddCommand(c.delineateCommand())
	root.AddCommand(c.networkCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Environment Factory
// =============================================================================

// loadConfig reads the configuration selected by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		c.Logger.Debug("loaded config", "path", cfg.Path)
	}
	return cfg, nil
}

// environment is the set of backends one command runs against.
type environment struct {
	cache    cache.Cache
	store    *dataset.Store
	splitter raster.Splitter // nil when no raster command is configured
}

// newEnvironment wires the dataset store, side cache and raster pool
// described by cfg.
func (c *CLI) newEnvironment(ctx context.Context, cfg *config.Config, noCache bool) (*environment, error) {
	if !cfg.HasData() {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"no dataset location: set data.dir or data.s3.bucket in %s, or WATERSHED_DATA_DIR", config.DefaultPath)
	}

	ch, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}

	src, err := newSource(cfg.Data)
	if err != nil {
		ch.Close()
		return nil, err
	}

	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), dataScope(cfg.Data))
	env := &environment{
		cache: ch,
		store: dataset.NewStore(src, dataset.StoreOptions{
			Cache:  ch,
			Keyer:  keyer,
			Logger: c.Logger,
			TTL:    cfg.Cache.TTL,
		}),
	}

	if cfg.Raster.Command != "" {
		pool, err := raster.NewPool(&raster.CommandSplitter{
			Path: cfg.Raster.Command,
			Args: cfg.Raster.Args,
		}, raster.PoolOptions{
			Concurrency: cfg.Raster.Concurrency,
			Timeout:     cfg.Raster.Timeout,
			MemoSize:    cfg.Raster.MemoSize,
			Cache:       ch,
			Keyer:       keyer,
			CacheTTL:    cfg.Cache.TTL,
			Logger:      c.Logger,
		})
		if err != nil {
			ch.Close()
			return nil, err
		}
		env.splitter = pool
	}
	return env, nil
}

// runner creates a pipeline runner over the environment.
func (e *environment) runner(logger *log.Logger) *pipeline.Runner {
	return pipeline.NewRunner(e.store, e.splitter, logger)
}

// Close releases the side cache.
func (e *environment) Close() error {
	return e.cache.Close()
}

func newSource(cfg config.DataConfig) (dataset.Source, error) {
	if cfg.Dir != "" {
		if _, err := os.Stat(cfg.Dir); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "data directory %s", cfg.Dir)
		}
		return dataset.NewDirSource(cfg.Dir, cfg.Layout), nil
	}
	src, err := dataset.NewS3Source(cfg.S3, cfg.Layout)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// dataScope prefixes cache keys with the data location so artifacts of
// different data releases never mix.
func dataScope(cfg config.DataConfig) string {
	loc := "s3://" + cfg.S3.Endpoint + "/" + cfg.S3.Bucket + "/" + cfg.S3.Prefix
	if cfg.Dir != "" {
		loc = cfg.Dir
		if abs, err := filepath.Abs(cfg.Dir); err == nil {
			loc = abs
		}
	}
	return cache.Hash([]byte(loc))[:12] + ":"
}

func newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	dir, err := fileCacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// fileCacheDir returns the configured cache directory or the XDG default.
func fileCacheDir(cfg config.CacheConfig) (string, error) {
	if cfg.Dir != "" {
		return cfg.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/watershed/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

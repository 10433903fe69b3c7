package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/watershed/pkg/buildinfo"
	"github.com/matzehuels/watershed/pkg/config"
	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
	wio "github.com/matzehuels/watershed/pkg/io"
	"github.com/matzehuels/watershed/pkg/ledger"
	"github.com/matzehuels/watershed/pkg/observability"
	"github.com/matzehuels/watershed/pkg/observability/prom"
	"github.com/matzehuels/watershed/pkg/pipeline"
)

// pointFlags describe a single outlet given on the command line.
type pointFlags struct {
	id   string
	lat  float64
	lng  float64
	area float64
	name string
}

func (p *pointFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.id, "id", "outlet", "outlet id (with --lat/--lng)")
	cmd.Flags().Float64Var(&p.lat, "lat", 0, "outlet latitude")
	cmd.Flags().Float64Var(&p.lng, "lng", 0, "outlet longitude")
	cmd.Flags().Float64Var(&p.area, "area", 0, "reported drainage area in km² (optional)")
	cmd.Flags().StringVar(&p.name, "name", "", "outlet name (optional)")
}

// outlet builds the outlet from flags. Both coordinates must be given.
func (p *pointFlags) outlet(cmd *cobra.Command) (hydro.Outlet, bool) {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return hydro.Outlet{}, false
	}
	o := hydro.Outlet{ID: p.id, Lat: p.lat, Lng: p.lng}
	if cmd.Flags().Changed("area") {
		o.Area = hydro.Some(p.area)
	}
	if p.name != "" {
		o.Name = hydro.Some(p.name)
	}
	return o, true
}

// delineateFlags are the run option overrides of the delineate command.
type delineateFlags struct {
	output         string
	noCache        bool
	progress       bool
	lowRes         bool
	searchDistance float64
	keepNaive      bool
	noMatchAreas   bool
	noFill         bool
	simplify       bool
	workers        int
	database       string
	metrics        string
}

// delineateCommand creates the delineate command.
func (c *CLI) delineateCommand() *cobra.Command {
	var (
		point pointFlags
		flags delineateFlags
	)

	cmd := &cobra.Command{
		Use:   "delineate [outlets.csv|outlets.json]",
		Short: "Delineate the drainage basin of each outlet",
		Long: `Delineate the drainage basin of each outlet.

Outlets are read from a CSV file (columns id, lat, lng and optionally area
and name) or a JSON array of objects with the same fields. A single outlet
can be given with --lat and --lng instead.

For every basin a <id>.geojson file is written to the output directory,
together with OUTPUT.csv summarizing all outlets and FAILED.csv listing the
outlets that could not be delineated.`,
		Example: `  watershed delineate outlets.csv -o results
  watershed delineate --lat 45.52 --lng -73.56 --id montreal --area 1050000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outlets, err := readOutlets(cmd, args, &point)
			if err != nil {
				return err
			}
			return c.runDelineate(cmd, outlets, flags)
		},
	}

	point.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable the dataset and raster cache")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "show an interactive progress view")
	cmd.Flags().BoolVar(&flags.lowRes, "low-res", false, "skip raster refinement of the terminal catchment")
	cmd.Flags().Float64Var(&flags.searchDistance, "search-dist", 0, "snap outlets outside every region to one within this distance (degrees)")
	cmd.Flags().BoolVar(&flags.keepNaive, "keep-naive-match", false, "keep the nearest reach when area matching finds nothing better")
	cmd.Flags().BoolVar(&flags.noMatchAreas, "no-match-areas", false, "do not relocate outlets by reported area")
	cmd.Flags().BoolVar(&flags.noFill, "no-fill", false, "keep all holes in basin polygons")
	cmd.Flags().BoolVar(&flags.simplify, "simplify", false, "simplify basin outlines")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "regions processed in parallel (default from config)")
	cmd.Flags().StringVar(&flags.database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&flags.metrics, "metrics", "", "write Prometheus metrics to this textfile")

	return cmd
}

func readOutlets(cmd *cobra.Command, args []string, point *pointFlags) ([]hydro.Outlet, error) {
	o, single := point.outlet(cmd)
	switch {
	case len(args) == 1 && single:
		return nil, errors.New(errors.ErrCodeInvalidInput, "give either an outlet file or --lat/--lng, not both")
	case len(args) == 1:
		return wio.ImportOutlets(args[0])
	case single:
		return []hydro.Outlet{o}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "no outlets: pass a CSV/JSON file or --lat and --lng")
}

// apply overlays explicitly set flags on the configured options.
func (f delineateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	opts := &cfg.Delineation
	changed := cmd.Flags().Changed
	if changed("low-res") {
		opts.HighRes = !f.lowRes
	}
	if changed("search-dist") {
		opts.SearchDistance = f.searchDistance
	}
	if changed("keep-naive-match") {
		opts.KeepNaiveMatch = f.keepNaive
	}
	if changed("no-match-areas") {
		opts.MatchAreas = !f.noMatchAreas
	}
	if changed("no-fill") {
		opts.Fill = !f.noFill
	}
	if changed("simplify") {
		opts.Simplify = f.simplify
	}
	if changed("workers") {
		opts.Workers = f.workers
	}
	if f.output != "" {
		cfg.Output.Dir = f.output
	}
	if f.database != "" {
		cfg.Output.Database = f.database
	}
	if f.metrics != "" {
		cfg.Output.Metrics = f.metrics
	}
}

func (c *CLI) runDelineate(cmd *cobra.Command, outlets []hydro.Outlet, flags delineateFlags) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	flags.apply(cmd, cfg)
	opts := cfg.Delineation

	env, err := c.newEnvironment(ctx, cfg, flags.noCache)
	if err != nil {
		return err
	}
	defer env.Close()

	if opts.HighRes && env.splitter == nil {
		printWarning("No raster command configured, delineating at low resolution only")
		printDetail("Set raster.command in %s or WATERSHED_RASTER_COMMAND", config.DefaultPath)
		opts.HighRes = false
	}

	var metrics *prom.Metrics
	if cfg.Output.Metrics != "" {
		metrics = prom.New()
		metrics.Register()
		defer observability.Reset()
	}

	runner := env.runner(c.Logger)
	c.Logger.Debug("run options", "options", opts.String())

	var result *pipeline.Result
	if flags.progress {
		result, err = runWithProgress(ctx, runner, outlets, opts)
	} else {
		result, err = c.runWithSpinner(ctx, runner, outlets, opts)
	}
	if result == nil {
		return err
	}
	runErr := err
	if runErr != nil && !stderrors.Is(runErr, context.Canceled) {
		return runErr
	}

	// Write what was delineated even when interrupted.
	wctx := context.WithoutCancel(ctx)
	if err := c.writeResults(wctx, cfg, opts, result); err != nil {
		return err
	}
	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.Output.Metrics); err != nil {
			printWarning("Could not write metrics: %v", err)
		} else {
			printFile(cfg.Output.Metrics)
		}
	}

	if runErr != nil {
		printWarning("Interrupted: %d outlets not processed", len(result.Ledger.Pending()))
	}
	return runErr
}

func (c *CLI) runWithSpinner(ctx context.Context, runner *pipeline.Runner, outlets []hydro.Outlet, opts pipeline.Options) (*pipeline.Result, error) {
	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Delineating %d outlets...", len(outlets)))
	runner.OnProgress = func(p pipeline.Progress) {
		spinner.Update(fmt.Sprintf("Delineating %d/%d outlets...", p.Done, p.Total))
	}
	spinner.Start()
	result, err := runner.Run(ctx, outlets, opts)
	spinner.Stop()
	if result != nil {
		prog.done(fmt.Sprintf("Delineated %d outlets", result.Stats.Basins))
	}
	return result, err
}

func (c *CLI) writeResults(ctx context.Context, cfg *config.Config, opts pipeline.Options, result *pipeline.Result) error {
	st := result.Stats
	if st.Failures == 0 {
		printSuccess("Delineated %d basins", st.Basins)
	} else {
		printSuccess("Delineated %d basins, %d failed", st.Basins, st.Failures)
	}
	printRunStats(st)
	printSummaryTable(result.Ledger.Summary())

	written, err := wio.ExportRun(cfg.Output.Dir, result.Ledger, wio.ExportOptions{
		GeoJSON: cfg.WantsFormat(config.FormatGeoJSON),
		CSV:     cfg.WantsFormat(config.FormatCSV),
	})
	for _, path := range written {
		printFile(path)
	}
	if err != nil {
		return err
	}

	if cfg.Output.Database == "" {
		return nil
	}
	runID, err := saveRun(ctx, cfg.Output.Database, opts, result)
	if err != nil {
		return err
	}
	printKeyValue("Run", runID)
	printFile(cfg.Output.Database)
	return nil
}

func saveRun(ctx context.Context, path string, opts pipeline.Options, result *pipeline.Result) (string, error) {
	store, err := ledger.OpenSQLite(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	encoded, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return store.SaveRun(ctx, ledger.Run{
		StartedAt:  result.Stats.StartedAt,
		FinishedAt: result.Stats.StartedAt.Add(result.Stats.Duration),
		Version:    buildinfo.Version,
		Options:    string(encoded),
	}, result.Ledger)
}

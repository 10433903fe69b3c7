// Package pkg provides the core libraries for watershed basin delineation.
//
// # Overview
//
// Watershed finds the upstream drainage area of outlet points on the
// MERIT-Basins vector river network. Each basin is assembled from unit
// catchments by walking the river topology upstream, and the most
// downstream catchment is optionally refined by an external raster tool.
// The pkg directory is organized into four main areas:
//
//  1. Data model and datasets ([hydro], [dataset], [spatial], [cache])
//  2. Delineation stages ([region], [pourpoint], [basin], [resolution], [raster], [geometry])
//  3. Results ([ledger], [io], [render/network])
//  4. Orchestration ([pipeline], [config], [observability])
//
// # Architecture
//
// The data flow of one batch:
//
//	outlets (CSV/JSON)
//	         ↓
//	    [region] assign each outlet to a Pfafstetter region
//	         ↓
//	    [pourpoint] match to a unit catchment, relocate by reported area
//	         ↓
//	    [basin] collect every upstream catchment
//	         ↓
//	    [resolution] keep the vector outline or split the terminal catchment
//	         ↓
//	    [geometry] dissolve, fill holes, simplify, measure
//	         ↓
//	    [ledger] basins and failures → [io] GeoJSON, OUTPUT.csv, FAILED.csv
//
// Regions are processed in parallel; outlets within a region run
// sequentially so each regional dataset is loaded once.
//
// # Quick Start
//
//	store := dataset.NewStore(dataset.NewDirSource("/data/merit", dataset.Layout{}), dataset.StoreOptions{})
//	runner := pipeline.NewRunner(store, nil, logger)
//
//	opts := pipeline.DefaultOptions()
//	opts.HighRes = false // no raster tool
//
//	result, err := runner.Run(ctx, outlets, opts)
//	if err != nil {
//	    return err
//	}
//	for _, row := range result.Ledger.Summary() {
//	    fmt.Println(row.ID, row.AreaCalc, row.Result)
//	}
//
// # Error Handling
//
// Problems with the whole run (bad options, a malformed outlet batch) are
// returned as [errors.Error] values carrying a [errors.Code]. Problems with a
// single outlet are recorded in the ledger as a failure with a reason and
// never stop the batch.
//
// # Testing
//
//	go test ./pkg/...
//
// The geometry tests call GEOS and need libgeos installed. The Redis cache
// test is skipped unless WATERSHED_TEST_REDIS_ADDR is set.
//
// [hydro]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/hydro
// [dataset]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/dataset
// [spatial]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/spatial
// [cache]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/cache
// [region]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/region
// [pourpoint]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/pourpoint
// [basin]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/basin
// [resolution]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/resolution
// [raster]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/raster
// [geometry]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/geometry
// [ledger]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/ledger
// [io]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/io
// [render/network]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/render/network
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/pipeline
// [config]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/errors
// [errors.Error]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/errors#Error
// [errors.Code]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/errors#Code
package pkg

// Package dataset loads regional MERIT-Basins datasets and keeps them
// available for the rest of a run.
//
// # Overview
//
// Three kinds of dataset exist, see [hydro.Kind]:
//
//   - catchments: unit catchment polygons of one level-2 region, in a high or
//     a low precision tier
//   - rivers: the river reach network of one region (one tier only)
//   - regions: the level-2 region boundaries themselves
//
// A [Store] reads each dataset from a [Source] at most once per run. The
// first load parses the GeoJSON, builds the id lookup and spatial index and
// writes a compact artifact to the side cache. Later runs read the artifact
// instead of the GeoJSON as long as the source has not changed.
//
// # Sources
//
// [DirSource] reads files below a local directory; [S3Source] reads objects
// from an S3-compatible bucket. Both resolve paths through a [Layout]:
//
//	src := dataset.NewDirSource("/data/merit", dataset.DefaultLayout)
//	store := dataset.NewStore(src, dataset.StoreOptions{Cache: fc, Logger: logger})
//	cats, err := store.Catchments(ctx, 42, hydro.PrecisionHigh)
//
// # Artifacts
//
// An artifact is a gob payload compressed with zstd, prefixed by a magic
// string and the BLAKE3 fingerprint of the source version it was built from.
// Artifacts that are stale or cannot be decoded are rebuilt from source and
// never surface as errors.
package dataset

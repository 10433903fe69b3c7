// Package io reads outlet batches and writes delineation results.
//
// # Outlet batches
//
// [ReadOutlets] accepts CSV with a header row or a JSON array of objects.
// The columns are:
//
//	id,lat,lng[,area][,name]
//
// "id", "lat" and "lng" are required; "lon" and "long" are accepted for
// "lng". "area" is the reported upstream area in km² and may be blank per
// row. Unknown columns are ignored. Column names are case-insensitive.
//
//	[
//	  {"id": "gauge-1", "lat": 45.1, "lng": 7.3, "area": 120.5},
//	  {"id": 42, "lat": 44.8, "lng": 7.9, "name": "Po at Turin"}
//	]
//
// Numeric ids in JSON are converted to their decimal string form. Reading
// only checks the structure; [hydro.ValidateBatch] checks ranges and ids.
//
// # Results
//
// [WriteBasin] encodes one basin as a GeoJSON Feature with coordinates
// rounded to 5 decimals (about one metre). [WriteSummaryCSV] and
// [WriteFailuresCSV] write the run tables, and [ExportRun] writes all of them
// into a directory:
//
//	out/
//	  <id>.geojson    one per basin
//	  OUTPUT.csv      summary, one row per outlet
//	  FAILED.csv      ID, EXPLANATION for every failed outlet
//
// [hydro.ValidateBatch]: github.com/matzehuels/watershed/pkg/hydro.ValidateBatch
package io

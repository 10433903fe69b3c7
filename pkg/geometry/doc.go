// Package geometry turns a set of unit catchment polygons into a finished
// watershed outline.
//
// # Stages
//
//   - [Dissolve] merges the polygons with a GEOS unary union, repairing
//     invalid parts first
//   - [Fill] removes small interior rings left by raster artifacts
//   - [Simplify] applies Douglas-Peucker per ring
//   - [Area] measures the result on an Albers equal-area projection fitted
//     to the polygon's own latitude band
//
// [Finish] runs the stages selected in [Options] and computes the summary
// values of a basin. Coordinates are longitude/latitude degrees throughout.
package geometry

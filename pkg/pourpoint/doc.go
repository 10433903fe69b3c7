// Package pourpoint binds outlets to the unit catchment they drain through.
//
// # Matching
//
// [Matcher] performs the naive match: the unit catchment containing the
// outlet, or the nearest one within a search radius. The matched catchment's
// reach supplies the upstream area.
//
// # Relocation
//
// Gauge coordinates are often a few hundred metres off the modelled river.
// When a reported drainage area is known and the naive match disagrees with
// it by more than a threshold, [Relocator] searches growing square windows
// around the outlet for the reach whose upstream area agrees best:
//
//	r := pourpoint.Relocator{AreaThreshold: 0.25, MaxDistance: 0.075}
//	id, upArea, ok := r.Relocate(outlet, rivers)
//
// Windows start at 0.01 degrees and grow by 0.01 degrees; candidates are
// only re-evaluated when a window finds more reaches than the previous one.
package pourpoint

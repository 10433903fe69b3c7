// Package hydro defines the data model shared by every stage of a
// delineation run.
//
// # Overview
//
// A run takes a batch of [Outlet] values (user-supplied pour points), places
// each one in a level-2 [Region], matches it to a unit catchment of the
// MERIT-Basins network, walks the upstream [Reach] graph and finishes the
// polygons into a [Basin]. Outlets that cannot be delineated end up as a
// [FailureRecord] instead.
//
// # Optional Fields
//
// Outlet area and name are optional in input files. They are modelled with
// [Optional] so presence is explicit:
//
//	o := hydro.Outlet{ID: "gauge-1", Lat: 47.1, Lng: 8.4, Area: hydro.Some(523.0)}
//	if o.Area.Valid {
//	    // compare against the computed area
//	}
//
// # Identifiers
//
// Unit catchments and river reaches share their identifier (COMID). The value
// 0 marks an absent upstream neighbour.
package hydro

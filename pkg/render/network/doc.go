// Package network renders the upstream river tree of a basin as a node-link
// diagram.
//
// # Usage
//
// Build DOT source from the assembled node list and the river network it was
// traced on, then render it to SVG:
//
//	dot := network.ToDOT(trace.Nodes, trace.Rivers, network.Options{Detailed: true})
//	svg, err := network.RenderSVG(dot)
//
// Edges point downstream, from each upstream reach to the reach it drains
// into, so the terminal reach sits at the bottom of the diagram.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. No external Graphviz installation is required.
package network

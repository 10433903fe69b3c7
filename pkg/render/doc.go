// Package render groups the visual outputs of watershed.
//
// Basin polygons are exported as GeoJSON by [io]; this tree holds the
// diagram renderers. [network] draws the upstream river tree of one outlet
// as a Graphviz node-link diagram.
//
// [io]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/io
// [network]: https://pkg.go.dev/github.com/matzehuels/watershed/pkg/render/network
package render

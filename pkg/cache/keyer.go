package cache

import "fmt"

// Keyer builds cache keys for every cached artifact type.
type Keyer interface {
	// DatasetKey identifies a serialized regional dataset.
	DatasetKey(kind string, region int, precision string) string

	// SplitKey identifies a raster split of one terminal catchment.
	SplitKey(catchmentID int64, opts SplitKeyOpts) string
}

// SplitKeyOpts are the request fields that change a raster split result.
type SplitKeyOpts struct {
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	SingleCatchment bool    `json:"single"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DatasetKey returns "dataset:<kind>_<region>_<precision>". The suffix
// follows the artifact naming of the source files.
func (DefaultKeyer) DatasetKey(kind string, region int, precision string) string {
	return fmt.Sprintf("dataset:%s_%d_%s", kind, region, precision)
}

// SplitKey hashes the split request fields.
func (DefaultKeyer) SplitKey(catchmentID int64, opts SplitKeyOpts) string {
	return hashKey(fmt.Sprintf("split:%d", catchmentID), opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = DefaultKeyer{}

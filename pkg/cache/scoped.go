package cache

// ScopedKeyer wraps a Keyer with a prefix.
// Artifacts derived from different data releases must not mix, so the CLI
// scopes keys by the data source location.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "merit-v1.0:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// DatasetKey generates a prefixed key for dataset artifacts.
func (k *ScopedKeyer) DatasetKey(kind string, region int, precision string) string {
	return k.prefix + k.inner.DatasetKey(kind, region, precision)
}

// SplitKey generates a prefixed key for raster split results.
func (k *ScopedKeyer) SplitKey(catchmentID int64, opts SplitKeyOpts) string {
	return k.prefix + k.inner.SplitKey(catchmentID, opts)
}

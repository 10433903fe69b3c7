package dataset

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// MemSource is an in-memory Source. It backs tests and small embedded
// datasets.
type MemSource struct {
	mu      sync.Mutex
	data    map[Ref][]byte
	version map[Ref]int
	opens   map[Ref]int
}

// NewMemSource creates an empty MemSource.
func NewMemSource() *MemSource {
	return &MemSource{
		data:    make(map[Ref][]byte),
		version: make(map[Ref]int),
		opens:   make(map[Ref]int),
	}
}

// Put stores raw GeoJSON for ref and bumps its version.
func (m *MemSource) Put(ref Ref, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ref] = data
	m.version[ref]++
}

// PutCatchments encodes and stores unit catchments.
func (m *MemSource) PutCatchments(region hydro.Region, precision hydro.Precision, items []hydro.UnitCatchment) error {
	data, err := EncodeCatchments(items)
	if err != nil {
		return err
	}
	m.Put(Ref{Kind: hydro.KindCatchments, Region: region, Precision: precision}, data)
	return nil
}

// PutRivers encodes and stores river reaches.
func (m *MemSource) PutRivers(region hydro.Region, reaches []hydro.Reach) error {
	data, err := EncodeRivers(reaches)
	if err != nil {
		return err
	}
	m.Put(Ref{Kind: hydro.KindRivers, Region: region, Precision: hydro.PrecisionHigh}, data)
	return nil
}

// PutBoundaries encodes and stores region outlines.
func (m *MemSource) PutBoundaries(items []Boundary) error {
	data, err := EncodeBoundaries(items)
	if err != nil {
		return err
	}
	m.Put(Ref{Kind: hydro.KindRegions, Precision: hydro.PrecisionHigh}, data)
	return nil
}

// Opens reports how many times ref was opened.
func (m *MemSource) Opens(ref Ref) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[ref]
}

// Stat implements Source.
func (m *MemSource) Stat(ctx context.Context, ref Ref) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[ref]
	if !ok {
		return Info{}, errors.New(errors.ErrCodeDatasetNotFound, "%s dataset not found", ref)
	}
	return Info{Version: strconv.Itoa(m.version[ref]), Size: int64(len(data))}, nil
}

// Open implements Source.
func (m *MemSource) Open(ctx context.Context, ref Ref) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[ref]
	if !ok {
		return nil, errors.New(errors.ErrCodeDatasetNotFound, "%s dataset not found", ref)
	}
	m.opens[ref]++
	return io.NopCloser(bytes.NewReader(data)), nil
}

var _ Source = (*MemSource)(nil)

// EncodeCatchments writes unit catchments as a GeoJSON FeatureCollection
// with MERIT-Basins attribute names.
func EncodeCatchments(items []hydro.UnitCatchment) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, it := range items {
		f := geojson.NewFeature(it.Geometry)
		f.Properties[propID] = it.ID
		f.Properties[propUnitArea] = it.UnitArea
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

// EncodeRivers writes reaches as a GeoJSON FeatureCollection.
func EncodeRivers(reaches []hydro.Reach) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, r := range reaches {
		f := geojson.NewFeature(r.Geometry)
		f.Properties[propID] = r.ID
		for slot, key := range propUp {
			f.Properties[key] = r.Up[slot]
		}
		f.Properties[propUpArea] = r.UpArea
		f.Properties[propLength] = r.LengthKm
		f.Properties[propOrder] = r.Order
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

// EncodeBoundaries writes region outlines as a GeoJSON FeatureCollection.
func EncodeBoundaries(items []Boundary) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, b := range items {
		f := geojson.NewFeature(b.Geometry)
		f.Properties[propBasin] = int(b.Region)
		fc.Append(f)
	}
	return fc.MarshalJSON()
}

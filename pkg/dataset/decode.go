package dataset

import (
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// MERIT-Basins attribute names.
const (
	propID       = "COMID"
	propUnitArea = "unitarea"
	propUpArea   = "uparea"
	propLength   = "lengthkm"
	propOrder    = "order"
	propBasin    = "BASIN"
)

var propUp = [4]string{"up1", "up2", "up3", "up4"}

func readCollection(r io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode GeoJSON feature collection")
	}
	return fc, nil
}

// DecodeCatchments reads unit catchments from a GeoJSON FeatureCollection.
func DecodeCatchments(r io.Reader, region hydro.Region) ([]hydro.UnitCatchment, error) {
	fc, err := readCollection(r)
	if err != nil {
		return nil, err
	}
	out := make([]hydro.UnitCatchment, 0, len(fc.Features))
	for i, f := range fc.Features {
		id, err := requireID(f, i)
		if err != nil {
			return nil, err
		}
		mp, ok := toMultiPolygon(f.Geometry)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "catchment %d: expected polygon geometry, got %s", id, geometryType(f.Geometry))
		}
		area, _ := number(f.Properties, propUnitArea)
		out = append(out, hydro.UnitCatchment{
			ID:       id,
			Region:   region,
			Geometry: mp,
			UnitArea: area,
		})
	}
	return out, nil
}

// DecodeRivers reads river reaches from a GeoJSON FeatureCollection.
func DecodeRivers(r io.Reader) ([]hydro.Reach, error) {
	fc, err := readCollection(r)
	if err != nil {
		return nil, err
	}
	out := make([]hydro.Reach, 0, len(fc.Features))
	for i, f := range fc.Features {
		id, err := requireID(f, i)
		if err != nil {
			return nil, err
		}
		ls, ok := toLineString(f.Geometry)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "reach %d: expected line geometry, got %s", id, geometryType(f.Geometry))
		}
		reach := hydro.Reach{ID: id, Geometry: ls}
		for slot, key := range propUp {
			if v, ok := number(f.Properties, key); ok {
				reach.Up[slot] = int64(v)
			}
		}
		reach.UpArea, _ = number(f.Properties, propUpArea)
		reach.LengthKm, _ = number(f.Properties, propLength)
		if v, ok := number(f.Properties, propOrder); ok {
			reach.Order = int(v)
		}
		out = append(out, reach)
	}
	return out, nil
}

// DecodeBoundaries reads level-2 region outlines from a GeoJSON
// FeatureCollection.
func DecodeBoundaries(r io.Reader) ([]Boundary, error) {
	fc, err := readCollection(r)
	if err != nil {
		return nil, err
	}
	out := make([]Boundary, 0, len(fc.Features))
	for i, f := range fc.Features {
		code, ok := number(f.Properties, propBasin)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "region feature %d: missing %s property", i, propBasin)
		}
		mp, ok := toMultiPolygon(f.Geometry)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "region %d: expected polygon geometry, got %s", int(code), geometryType(f.Geometry))
		}
		out = append(out, Boundary{Region: hydro.Region(code), Geometry: mp})
	}
	return out, nil
}

func requireID(f *geojson.Feature, i int) (int64, error) {
	v, ok := number(f.Properties, propID)
	if !ok || v <= 0 || v != math.Trunc(v) {
		return 0, errors.New(errors.ErrCodeInvalidFormat, "feature %d: missing or invalid %s property", i, propID)
	}
	return int64(v), nil
}

// number reads a numeric property. Shapefile conversions sometimes store
// numbers as strings, so those are accepted too.
func number(props geojson.Properties, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, !math.IsNaN(v)
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func toMultiPolygon(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch g := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{g}, true
	case orb.MultiPolygon:
		return g, true
	}
	return nil, false
}

func toLineString(g orb.Geometry) (orb.LineString, bool) {
	switch g := g.(type) {
	case orb.LineString:
		return g, true
	case orb.MultiLineString:
		// Split reaches are stitched in order.
		var ls orb.LineString
		for _, part := range g {
			for _, p := range part {
				if n := len(ls); n > 0 && ls[n-1] == p {
					continue
				}
				ls = append(ls, p)
			}
		}
		return ls, len(ls) > 0
	}
	return nil, false
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}

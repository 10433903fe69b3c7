package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"

	"github.com/matzehuels/watershed/pkg/errors"
)

// Dissolve unions parts into a single Polygon or MultiPolygon.
func Dissolve(parts []orb.Geometry) (orb.Geometry, error) {
	var coll orb.Collection
	for i, p := range parts {
		polys, err := repair(p)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "repair part %d", i)
		}
		for _, poly := range polys {
			coll = append(coll, poly)
		}
	}
	if len(coll) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to dissolve")
	}
	if len(coll) == 1 {
		return coll[0], nil
	}

	g, err := toGEOS(coll)
	if err != nil {
		return nil, err
	}
	defer g.Destroy()

	union := g.UnaryUnion()
	if union == nil {
		return nil, errors.New(errors.ErrCodeInternal, "union of %d polygons failed", len(coll))
	}
	defer union.Destroy()

	out, err := fromGEOS(union)
	if err != nil {
		return nil, err
	}
	return collapse(Polygons(out)), nil
}

// repair returns the polygons of g, running GEOS MakeValid on invalid input.
func repair(g orb.Geometry) ([]orb.Polygon, error) {
	polys := Polygons(g)
	out := make([]orb.Polygon, 0, len(polys))
	for _, p := range polys {
		if len(p) == 0 || len(p[0]) < 4 {
			continue
		}
		gg, err := toGEOS(p)
		if err != nil {
			return nil, err
		}
		if gg.IsValid() {
			gg.Destroy()
			out = append(out, p)
			continue
		}
		fixed := gg.MakeValid()
		gg.Destroy()
		if fixed == nil {
			continue
		}
		fg, err := fromGEOS(fixed)
		fixed.Destroy()
		if err != nil {
			return nil, err
		}
		out = append(out, Polygons(fg)...)
	}
	return out, nil
}

func toGEOS(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode WKB")
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode WKB in GEOS")
	}
	return gg, nil
}

func fromGEOS(g *geos.Geom) (orb.Geometry, error) {
	out, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode GEOS WKB")
	}
	return out, nil
}

// Polygons extracts the polygonal parts of g. Lines and points are dropped.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{g}
	case orb.MultiPolygon:
		return append([]orb.Polygon(nil), g...)
	case orb.Ring:
		return []orb.Polygon{{g}}
	case orb.Bound:
		return []orb.Polygon{g.ToPolygon()}
	case orb.Collection:
		var out []orb.Polygon
		for _, c := range g {
			out = append(out, Polygons(c)...)
		}
		return out
	}
	return nil
}

func collapse(polys []orb.Polygon) orb.Geometry {
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	}
	return orb.MultiPolygon(polys)
}

package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// Format is an outlet batch encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "cannot tell outlet format of %s (want .csv or .json)", path)
}

// ImportOutlets reads an outlet batch from a file.
func ImportOutlets(path string) ([]hydro.Outlet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadOutlets(f, format)
}

// ReadOutlets decodes an outlet batch. Missing required columns and values
// that are not numbers are INVALID_INPUT errors. ReadOutlets does not close r.
func ReadOutlets(r io.Reader, format Format) ([]hydro.Outlet, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSON:
		return readJSON(r)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unknown outlet format %q", format)
}

var columnAliases = map[string]string{
	"id":   "id",
	"lat":  "lat",
	"lng":  "lng",
	"lon":  "lng",
	"long": "lng",
	"area": "area",
	"name": "name",
}

func readCSV(r io.Reader) ([]hydro.Outlet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidInput, "outlet file is empty")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read header")
	}
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name, ok := columnAliases[h]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	var missing []string
	for _, req := range []string{"id", "lat", "lng"} {
		if _, ok := cols[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "missing required column(s): %s", strings.Join(missing, ", "))
	}

	var outlets []hydro.Outlet
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d", line)
		}
		if blank(rec) {
			continue
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		o := hydro.Outlet{ID: field("id")}
		if o.Lat, err = parseFloat(field("lat"), "lat", line); err != nil {
			return nil, err
		}
		if o.Lng, err = parseFloat(field("lng"), "lng", line); err != nil {
			return nil, err
		}
		if s := field("area"); s != "" {
			a, err := parseFloat(s, "area", line)
			if err != nil {
				return nil, err
			}
			o.Area = hydro.Some(a)
		}
		if s := field("name"); s != "" {
			o.Name = hydro.Some(s)
		}
		outlets = append(outlets, o)
	}
	return outlets, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s, column string, line int) (float64, error) {
	if s == "" {
		return 0, errors.New(errors.ErrCodeInvalidInput, "line %d: %s is empty", line, column)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New(errors.ErrCodeInvalidInput, "line %d: %s %q is not a number", line, column, s)
	}
	return v, nil
}

type jsonOutlet struct {
	ID   any      `json:"id"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
	Lon  *float64 `json:"lon"`
	Area *float64 `json:"area"`
	Name *string  `json:"name"`
}

func readJSON(r io.Reader) ([]hydro.Outlet, error) {
	var raw []jsonOutlet
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode outlets")
	}
	outlets := make([]hydro.Outlet, 0, len(raw))
	for i, j := range raw {
		id, err := jsonID(j.ID)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "outlet %d", i+1)
		}
		lng := j.Lng
		if lng == nil {
			lng = j.Lon
		}
		if j.Lat == nil || lng == nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "outlet %d: lat and lng are required", i+1)
		}
		o := hydro.Outlet{ID: id, Lat: *j.Lat, Lng: *lng}
		if j.Area != nil {
			o.Area = hydro.Some(*j.Area)
		}
		if j.Name != nil && *j.Name != "" {
			o.Name = hydro.Some(*j.Name)
		}
		outlets = append(outlets, o)
	}
	return outlets, nil
}

func jsonID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("id is required")
	}
	return "", fmt.Errorf("id must be a string or number, got %T", v)
}

package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// Ref names one dataset.
type Ref struct {
	Kind      hydro.Kind
	Region    hydro.Region
	Precision hydro.Precision
}

// String returns "<kind>_<region>_<hires|lores>".
func (r Ref) String() string {
	return fmt.Sprintf("%s_%d_%s", r.Kind, r.Region, r.Precision.Short())
}

// Info describes the current version of a source dataset.
type Info struct {
	// Version changes whenever the dataset content changes (size and
	// modification time for files, the ETag for objects).
	Version string
	Size    int64
}

// Source provides raw GeoJSON datasets.
type Source interface {
	// Stat returns the dataset version. A missing dataset is reported with
	// errors.ErrCodeDatasetNotFound.
	Stat(ctx context.Context, ref Ref) (Info, error)

	// Open returns a reader over the GeoJSON FeatureCollection.
	Open(ctx context.Context, ref Ref) (io.ReadCloser, error)
}

// Layout maps datasets to relative paths. "{region}" is replaced by the
// level-2 code.
type Layout struct {
	Catchments       string `toml:"catchments"`
	LowResCatchments string `toml:"catchments_lores"`
	Rivers           string `toml:"rivers"`
	Regions          string `toml:"regions"`
}

// DefaultLayout is the directory structure produced by the data preparation
// scripts.
var DefaultLayout = Layout{
	Catchments:       "catchments/hires/cat_pfaf_{region}.geojson",
	LowResCatchments: "catchments/lores/cat_pfaf_{region}.geojson",
	Rivers:           "rivers/riv_pfaf_{region}.geojson",
	Regions:          "regions/basins_level2.geojson",
}

// WithDefaults fills empty entries from DefaultLayout.
func (l Layout) WithDefaults() Layout {
	if l.Catchments == "" {
		l.Catchments = DefaultLayout.Catchments
	}
	if l.LowResCatchments == "" {
		l.LowResCatchments = DefaultLayout.LowResCatchments
	}
	if l.Rivers == "" {
		l.Rivers = DefaultLayout.Rivers
	}
	if l.Regions == "" {
		l.Regions = DefaultLayout.Regions
	}
	return l
}

// Path resolves ref to a relative slash-separated path.
func (l Layout) Path(ref Ref) (string, error) {
	var tmpl string
	switch ref.Kind {
	case hydro.KindCatchments:
		tmpl = l.Catchments
		if ref.Precision == hydro.PrecisionLow {
			tmpl = l.LowResCatchments
		}
	case hydro.KindRivers:
		tmpl = l.Rivers
	case hydro.KindRegions:
		tmpl = l.Regions
	default:
		return "", errors.New(errors.ErrCodeUnsupported, "unknown dataset kind %q", ref.Kind)
	}
	p := strings.ReplaceAll(tmpl, "{region}", strconv.Itoa(int(ref.Region)))
	if err := errors.ValidatePath(p); err != nil {
		return "", err
	}
	return p, nil
}

// DirSource reads datasets from a local directory.
type DirSource struct {
	root   string
	layout Layout
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string, layout Layout) *DirSource {
	return &DirSource{root: dir, layout: layout.WithDefaults()}
}

func (s *DirSource) path(ref Ref) (string, error) {
	rel, err := s.layout.Path(ref)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// Stat implements Source.
func (s *DirSource) Stat(ctx context.Context, ref Ref) (Info, error) {
	path, err := s.path(ref)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Info{}, errors.Wrap(errors.ErrCodeDatasetNotFound, err, "%s dataset not found at %s", ref, path)
	}
	if err != nil {
		return Info{}, err
	}
	return Info{
		Version: fmt.Sprintf("%d-%d", fi.Size(), fi.ModTime().UnixNano()),
		Size:    fi.Size(),
	}, nil
}

// Open implements Source.
func (s *DirSource) Open(ctx context.Context, ref Ref) (io.ReadCloser, error) {
	path, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeDatasetNotFound, err, "%s dataset not found at %s", ref, path)
	}
	return f, err
}

var _ Source = (*DirSource)(nil)

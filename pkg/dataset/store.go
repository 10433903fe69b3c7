package dataset

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/watershed/pkg/cache"
	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/observability"
)

// StoreOptions configures a Store. Zero values are replaced by defaults.
type StoreOptions struct {
	Cache  cache.Cache   // side cache for artifacts; default NullCache
	Keyer  cache.Keyer   // default DefaultKeyer
	Logger *log.Logger   // default discards
	TTL    time.Duration // artifact lifetime; 0 keeps them until cleared
}

// Store loads each dataset at most once and keeps it for the life of the
// Store.
//
// Each dataset is read and decoded by exactly one goroutine even under
// concurrent first access. Later calls, including those of later runs,
// return the same read-only object.
type Store struct {
	source Source
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger
	ttl    time.Duration

	group singleflight.Group
	mu    sync.Mutex
	memo  map[Ref]any
}

// NewStore creates a Store over source.
func NewStore(source Source, opts StoreOptions) *Store {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Store{
		source: source,
		cache:  opts.Cache,
		keyer:  opts.Keyer,
		logger: opts.Logger,
		ttl:    opts.TTL,
		memo:   make(map[Ref]any),
	}
}

// Catchments returns the unit catchments of region at the given precision.
func (s *Store) Catchments(ctx context.Context, region hydro.Region, precision hydro.Precision) (*Catchments, error) {
	ref := Ref{Kind: hydro.KindCatchments, Region: region, Precision: precision}
	v, err := s.load(ctx, ref,
		func(r io.Reader) (artifact, error) {
			items, err := DecodeCatchments(r, region)
			return artifact{Ref: ref, Catchments: items}, err
		},
		func(a artifact) any { return NewCatchments(region, precision, a.Catchments) },
	)
	if err != nil {
		return nil, err
	}
	return v.(*Catchments), nil
}

// Rivers returns the reach network of region. Rivers have a single tier and
// are always keyed as high precision.
func (s *Store) Rivers(ctx context.Context, region hydro.Region) (*Rivers, error) {
	ref := Ref{Kind: hydro.KindRivers, Region: region, Precision: hydro.PrecisionHigh}
	v, err := s.load(ctx, ref,
		func(r io.Reader) (artifact, error) {
			items, err := DecodeRivers(r)
			return artifact{Ref: ref, Reaches: items}, err
		},
		func(a artifact) any { return NewRivers(region, a.Reaches) },
	)
	if err != nil {
		return nil, err
	}
	return v.(*Rivers), nil
}

// Boundaries returns the level-2 region outlines.
func (s *Store) Boundaries(ctx context.Context) (*Boundaries, error) {
	ref := Ref{Kind: hydro.KindRegions, Precision: hydro.PrecisionHigh}
	v, err := s.load(ctx, ref,
		func(r io.Reader) (artifact, error) {
			items, err := DecodeBoundaries(r)
			return artifact{Ref: ref, Boundaries: items}, err
		},
		func(a artifact) any { return NewBoundaries(a.Boundaries) },
	)
	if err != nil {
		return nil, err
	}
	return v.(*Boundaries), nil
}

func (s *Store) memoized(ref Ref) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.memo[ref]
	return v, ok
}

func (s *Store) load(ctx context.Context, ref Ref, derive func(io.Reader) (artifact, error), build func(artifact) any) (any, error) {
	if v, ok := s.memoized(ref); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(ref.String(), func() (any, error) {
		if v, ok := s.memoized(ref); ok {
			return v, nil
		}
		start := time.Now()
		v, err := s.fetch(ctx, ref, derive, build)
		observability.Cache().OnDatasetLoad(ctx, string(ref.Kind), time.Since(start), err)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.memo[ref] = v
		s.mu.Unlock()
		s.logger.Debug("dataset ready", "dataset", ref, "duration", time.Since(start))
		return v, nil
	})
	return v, err
}

func (s *Store) fetch(ctx context.Context, ref Ref, derive func(io.Reader) (artifact, error), build func(artifact) any) (any, error) {
	info, err := s.source.Stat(ctx, ref)
	if err != nil {
		return nil, err
	}
	fp := fingerprint(ref, info)
	key := s.keyer.DatasetKey(string(ref.Kind), int(ref.Region), ref.Precision.Short())
	kind := string(ref.Kind)

	if data, hit, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("dataset cache read failed", "dataset", ref, "error", err)
	} else if hit {
		a, err := decodeArtifact(data, fp)
		if err == nil && a.Ref == ref {
			observability.Cache().OnCacheHit(ctx, kind)
			s.logger.Debug("dataset artifact hit", "dataset", ref)
			return build(a), nil
		}
		s.logger.Debug("dataset artifact unusable, rebuilding", "dataset", ref, "reason", err)
	}
	observability.Cache().OnCacheMiss(ctx, kind)

	rc, err := s.source.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	start := time.Now()
	a, err := derive(rc)
	if err != nil {
		code := errors.GetCode(err)
		if code == "" {
			code = errors.ErrCodeInvalidFormat
		}
		return nil, errors.Wrap(code, err, "load %s", ref)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.Info("decoded dataset", "dataset", ref, "features", a.len(), "duration", time.Since(start))

	data, err := encodeArtifact(fp, a)
	if err != nil {
		s.logger.Warn("dataset artifact encode failed", "dataset", ref, "error", err)
		return build(a), nil
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("dataset cache write failed", "dataset", ref, "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, kind, len(data))
	}
	return build(a), nil
}

func (a artifact) len() int {
	return len(a.Catchments) + len(a.Reaches) + len(a.Boundaries)
}

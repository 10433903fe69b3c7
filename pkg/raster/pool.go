package raster

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb/encoding/wkb"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/watershed/pkg/cache"
	"github.com/matzehuels/watershed/pkg/observability"
)

// Pool defaults.
const (
	DefaultConcurrency = 4
	DefaultTimeout     = 5 * time.Minute
	DefaultMemoSize    = 1024
)

// PoolOptions configures a Pool. Zero values are replaced by defaults.
type PoolOptions struct {
	Concurrency int           // simultaneous tool invocations
	Timeout     time.Duration // per call
	MemoSize    int           // in-memory results kept for the run
	RetryDelay  time.Duration // initial backoff; default 1s

	// Cache keeps results across runs. Only successful splits are stored.
	Cache    cache.Cache
	Keyer    cache.Keyer
	CacheTTL time.Duration

	Logger *log.Logger
}

// Pool bounds and memoizes calls to a Splitter.
type Pool struct {
	splitter   Splitter
	sem        *semaphore.Weighted
	timeout    time.Duration
	retryDelay time.Duration
	memo       *lru.Cache[string, Response]
	cache      cache.Cache
	keyer      cache.Keyer
	cacheTTL   time.Duration
	logger     *log.Logger
}

// NewPool wraps splitter.
func NewPool(splitter Splitter, opts PoolOptions) (*Pool, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MemoSize <= 0 {
		opts.MemoSize = DefaultMemoSize
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	memo, err := lru.New[string, Response](opts.MemoSize)
	if err != nil {
		return nil, err
	}
	return &Pool{
		splitter:   splitter,
		sem:        semaphore.NewWeighted(int64(opts.Concurrency)),
		timeout:    opts.Timeout,
		retryDelay: opts.RetryDelay,
		memo:       memo,
		cache:      opts.Cache,
		keyer:      opts.Keyer,
		cacheTTL:   opts.CacheTTL,
		logger:     opts.Logger,
	}, nil
}

// Split implements Splitter.
func (p *Pool) Split(ctx context.Context, req Request) (Response, error) {
	key := p.keyer.SplitKey(req.CatchmentID, cache.SplitKeyOpts{
		Lat:             req.Lat,
		Lng:             req.Lng,
		SingleCatchment: req.SingleCatchment,
	})
	if resp, ok := p.memo.Get(key); ok {
		return resp, nil
	}
	if resp, ok := p.cached(ctx, key); ok {
		p.memo.Add(key, resp)
		return resp, nil
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Response{}, err
	}
	defer p.sem.Release(1)

	observability.Raster().OnSplitStart(ctx, req.OutletID)
	start := time.Now()
	var resp Response
	err := cache.RetryWithBackoffDelay(ctx, p.retryDelay, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		var err error
		resp, err = p.splitter.Split(callCtx, req)
		if err != nil {
			p.logger.Debug("raster split attempt failed", "outlet", req.OutletID, "error", err)
		}
		return err
	})
	duration := time.Since(start)
	observability.Raster().OnSplitComplete(ctx, req.OutletID, resp.OK(), duration, err)
	if err != nil {
		return Response{}, err
	}

	p.logger.Debug("raster split", "outlet", req.OutletID, "catchment", req.CatchmentID, "ok", resp.OK(), "duration", duration)
	p.memo.Add(key, resp)
	if resp.OK() {
		p.store(ctx, key, resp)
	}
	return resp, nil
}

type cachedResponse struct {
	WKB     []byte  `json:"wkb"`
	SnapLat float64 `json:"lat_snap"`
	SnapLng float64 `json:"lng_snap"`
}

func (p *Pool) cached(ctx context.Context, key string) (Response, bool) {
	data, hit, err := p.cache.Get(ctx, key)
	if err != nil || !hit {
		return Response{}, false
	}
	var c cachedResponse
	if err := json.Unmarshal(data, &c); err != nil {
		return Response{}, false
	}
	g, err := wkb.Unmarshal(c.WKB)
	if err != nil {
		return Response{}, false
	}
	return Response{Polygon: g, SnapLat: c.SnapLat, SnapLng: c.SnapLng}, true
}

func (p *Pool) store(ctx context.Context, key string, resp Response) {
	b, err := wkb.Marshal(resp.Polygon)
	if err != nil {
		p.logger.Warn("raster result not cacheable", "error", err)
		return
	}
	data, err := json.Marshal(cachedResponse{WKB: b, SnapLat: resp.SnapLat, SnapLng: resp.SnapLng})
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
		p.logger.Warn("raster result cache write failed", "error", err)
	}
}

var _ Splitter = (*Pool)(nil)

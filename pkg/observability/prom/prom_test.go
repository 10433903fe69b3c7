package prom

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/watershed/pkg/observability"
)

func TestMetricsCount(t *testing.T) {
	ctx := context.Background()
	m := New()

	m.OnOutletComplete(ctx, 42, "high", "", time.Second)
	m.OnOutletComplete(ctx, 42, "high", "", time.Second)
	m.OnOutletComplete(ctx, 42, "failed", "not in any region", time.Millisecond)
	m.OnCacheHit(ctx, "catchments")
	m.OnCacheSet(ctx, "rivers", 2048)
	m.OnSplitComplete(ctx, "a", false, time.Second, nil)
	m.OnSplitComplete(ctx, "b", true, time.Second, errors.New("boom"))
	m.OnRegionComplete(ctx, 42, time.Minute, nil)

	if got := testutil.ToFloat64(m.outlets.WithLabelValues("high", "")); got != 2 {
		t.Errorf("high outlets = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.outlets.WithLabelValues("failed", "not in any region")); got != 1 {
		t.Errorf("failed outlets = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheBytes.WithLabelValues("rivers")); got != 2048 {
		t.Errorf("cache bytes = %v, want 2048", got)
	}
	if got := testutil.ToFloat64(m.splits.WithLabelValues("empty")); got != 1 {
		t.Errorf("empty splits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.splits.WithLabelValues("error")); got != 1 {
		t.Errorf("error splits = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.OnRegionComplete(context.Background(), 11, time.Second, nil)

	path := filepath.Join(t.TempDir(), "watershed.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "watershed_regions_total") {
		t.Errorf("textfile missing regions counter:\n%s", data)
	}
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	m := New()
	m.Register()
	if observability.Run() != observability.RunHooks(m) {
		t.Error("Register should install run hooks")
	}
	if observability.Raster() != observability.RasterHooks(m) {
		t.Error("Register should install raster hooks")
	}
}

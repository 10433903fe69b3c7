package raster

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/watershed/pkg/cache"
	"github.com/matzehuels/watershed/pkg/errors"
)

// CommandSplitter runs an external executable per request.
//
// The request is written to stdin as
//
//	{"outlet_id": "...", "region": 42, "lat": 1.0, "lng": 2.0,
//	 "catchment_id": 7, "catchment": <GeoJSON geometry>, "single_catchment": false}
//
// and the tool answers on stdout with
//
//	{"geometry": <GeoJSON geometry or null>, "lat_snap": 1.0, "lng_snap": 2.0, "error": ""}
type CommandSplitter struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration // per call; zero means no limit beyond ctx
}

type commandRequest struct {
	OutletID        string            `json:"outlet_id"`
	Region          int               `json:"region"`
	Lat             float64           `json:"lat"`
	Lng             float64           `json:"lng"`
	CatchmentID     int64             `json:"catchment_id"`
	Catchment       *geojson.Geometry `json:"catchment"`
	SingleCatchment bool              `json:"single_catchment"`
}

type commandResponse struct {
	Geometry *geojson.Geometry `json:"geometry"`
	LatSnap  float64           `json:"lat_snap"`
	LngSnap  float64           `json:"lng_snap"`
	Error    string            `json:"error"`
}

// Split implements Splitter.
func (c *CommandSplitter) Split(ctx context.Context, req Request) (Response, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	input, err := json.Marshal(commandRequest{
		OutletID:        req.OutletID,
		Region:          int(req.Region),
		Lat:             req.Lat,
		Lng:             req.Lng,
		CatchmentID:     req.CatchmentID,
		Catchment:       geojson.NewGeometry(req.Catchment),
		SingleCatchment: req.SingleCatchment,
	})
	if err != nil {
		return Response{}, errors.Wrap(errors.ErrCodeInternal, err, "encode raster request")
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); stderrors.Is(ctxErr, context.DeadlineExceeded) {
			return Response{}, cache.Retryable(errors.Wrap(errors.ErrCodeTimeout, ctxErr, "raster tool timed out for outlet %s", req.OutletID))
		}
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return Response{}, errors.Wrap(errors.ErrCodeRasterFailed, err, "raster tool failed for outlet %s: %s", req.OutletID, tail(stderr.String()))
		}
		return Response{}, errors.Wrap(errors.ErrCodeRasterFailed, err, "run raster tool %s", c.Path)
	}

	var resp commandResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Response{}, errors.Wrap(errors.ErrCodeRasterFailed, err, "decode raster tool output for outlet %s", req.OutletID)
	}
	if resp.Error != "" || resp.Geometry == nil || resp.Geometry.Coordinates == nil {
		// The tool ran but could not delineate; not a transport error.
		return Response{SnapLat: resp.LatSnap, SnapLng: resp.LngSnap}, nil
	}
	return Response{
		Polygon: resp.Geometry.Geometry(),
		SnapLat: resp.LatSnap,
		SnapLng: resp.LngSnap,
	}, nil
}

// tail returns the last line of tool diagnostics.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	const max = 200
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

var _ Splitter = (*CommandSplitter)(nil)

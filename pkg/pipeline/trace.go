package pipeline

import (
	"context"

	"github.com/matzehuels/watershed/pkg/dataset"
	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
	"github.com/matzehuels/watershed/pkg/ledger"
	"github.com/matzehuels/watershed/pkg/region"
)

// Trace is the upstream network of one outlet without geometry finishing.
type Trace struct {
	Matched hydro.MatchedOutlet
	Nodes   []int64 // terminal first
	Rivers  *dataset.Rivers
}

// Trace resolves, matches and assembles a single outlet. Conditions that
// would be a FailureRecord in a batch are returned as errors carrying the
// failure reason.
func (r *Runner) Trace(ctx context.Context, o hydro.Outlet, opts Options) (*Trace, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := hydro.ValidateBatch([]hydro.Outlet{o}); err != nil {
		return nil, err
	}

	boundaries, err := r.Data.Boundaries(ctx)
	if err != nil {
		return nil, err
	}
	assignment := region.Resolver{SearchDistance: opts.SearchDistance}.Resolve([]hydro.Outlet{o}, boundaries)
	reg, ok := assignment.Region(o.ID)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "%s: %s", o.ID, hydro.ReasonNoRegion)
	}

	st := &run{Runner: r, opts: opts, ledger: ledger.New([]hydro.Outlet{o}), total: 1}
	rivers, cats, err := st.load(ctx, reg)
	if err != nil {
		return nil, err
	}
	matched, unmatched := st.matcher().Match(reg, []hydro.Outlet{o}, cats, rivers)
	if len(matched) == 0 {
		return nil, errors.New(errors.ErrCodeNotFound, "%s: %s", o.ID, unmatched[0].Reason)
	}
	mo, nodes, reason, err := st.upstream(matched[0], rivers)
	if reason != "" {
		code := errors.ErrCodeNotFound
		if err != nil {
			code = errors.GetCode(err)
		}
		return nil, errors.Wrap(code, err, "%s: %s", o.ID, reason)
	}
	return &Trace{Matched: mo, Nodes: nodes, Rivers: rivers}, nil
}

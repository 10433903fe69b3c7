// Package basin collects the unit catchments upstream of an outlet.
package basin

import (
	stderrors "errors"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/hydro"
)

// Sentinel errors for malformed river networks.
var (
	// ErrCycle is returned when a node is reached twice. River networks are
	// trees, so this means a loop or a braided confluence in the input.
	ErrCycle = stderrors.New("river network contains a cycle")

	// ErrUnknownNode is returned when an upstream id is not in the network.
	ErrUnknownNode = stderrors.New("unknown node in river network")

	// ErrTooManyNodes is returned when the basin exceeds Assembler.MaxNodes.
	ErrTooManyNodes = stderrors.New("basin exceeds node limit")
)

// Assembler walks a river network upstream.
type Assembler struct {
	// MaxNodes bounds the basin size. Zero means unlimited.
	MaxNodes int
}

// Assemble returns the ids of every unit catchment draining to terminal,
// terminal first, then a depth-first pre-order over upstream slots 1 to 4.
func Assemble(terminal int64, network hydro.Network) ([]int64, error) {
	return Assembler{}.Assemble(terminal, network)
}

// Assemble is the configurable form of the package-level Assemble.
func (a Assembler) Assemble(terminal int64, network hydro.Network) ([]int64, error) {
	if _, ok := network.Reach(terminal); !ok {
		return nil, errors.Wrap(errors.ErrCodeUnknownNode, ErrUnknownNode, "terminal node %d", terminal)
	}

	type frame struct{ id, from int64 }
	var (
		nodes   []int64
		visited = make(map[int64]struct{})
		stack   = []frame{{id: terminal}}
	)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[f.id]; seen {
			return nil, errors.Wrap(errors.ErrCodeCycleDetected, ErrCycle, "node %d reached again from %d", f.id, f.from)
		}
		reach, ok := network.Reach(f.id)
		if !ok {
			return nil, errors.Wrap(errors.ErrCodeUnknownNode, ErrUnknownNode, "node %d upstream of %d", f.id, f.from)
		}
		visited[f.id] = struct{}{}
		nodes = append(nodes, f.id)
		if a.MaxNodes > 0 && len(nodes) > a.MaxNodes {
			return nil, errors.Wrap(errors.ErrCodeTooManyNodes, ErrTooManyNodes, "more than %d unit catchments upstream of %d", a.MaxNodes, terminal)
		}

		// Push in reverse so slot 1 is visited first.
		for i := len(reach.Up) - 1; i >= 0; i-- {
			if up := reach.Up[i]; up != 0 {
				stack = append(stack, frame{id: up, from: f.id})
			}
		}
	}
	return nodes, nil
}

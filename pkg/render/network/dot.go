package network

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/watershed/pkg/hydro"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds upstream area, stream order and length to node labels.
	// When false, only the reach ID is shown.
	Detailed bool
}

// ToDOT converts an upstream node list (terminal first) to Graphviz DOT.
// Only edges between listed reaches are drawn. Reaches missing from net are
// drawn with a dashed outline.
func ToDOT(nodes []int64, net hydro.Network, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	in := make(map[int64]bool, len(nodes))
	for _, id := range nodes {
		in[id] = true
	}

	for i, id := range nodes {
		r, ok := net.Reach(id)
		attrs := fmtAttrs(r, ok, i == 0, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeName(id), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range nodes {
		r, ok := net.Reach(id)
		if !ok {
			continue
		}
		for _, up := range r.Upstream() {
			if in[up] {
				fmt.Fprintf(&buf, "  %q -> %q;\n", nodeName(up), nodeName(id))
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(id int64) string {
	return strconv.FormatInt(id, 10)
}

func fmtLabel(r hydro.Reach, detailed bool) string {
	if !detailed {
		return nodeName(r.ID)
	}
	return fmt.Sprintf("%d\nuparea: %.1f km²\norder: %d\nlength: %.1f km",
		r.ID, r.UpArea, r.Order, r.LengthKm)
}

func fmtAttrs(r hydro.Reach, known, terminal, detailed bool) []string {
	if !known {
		return []string{fmt.Sprintf("label=%q", "?"), "style=\"rounded,dashed\""}
	}
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(r, detailed))}
	if terminal {
		attrs = append(attrs, "fillcolor=lightblue", "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the diagram scales to its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

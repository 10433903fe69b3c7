package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/watershed/pkg/errors"
	"github.com/matzehuels/watershed/pkg/render/network"
)

// Network output formats.
const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// networkCommand creates the network command.
func (c *CLI) networkCommand() *cobra.Command {
	var (
		point    pointFlags
		output   string
		format   string
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "network",
		Short: "Render the upstream river network of one outlet",
		Long: `Render the upstream river network of one outlet.

The outlet is matched to its reach exactly as in 'delineate', then every
reach draining into it is drawn as a node-link diagram with edges pointing
downstream. No geometry is computed and the raster tool is not called.`,
		Example: `  watershed network --lat 45.52 --lng -73.56 -o montreal.svg
  watershed network --lat 45.52 --lng -73.56 --area 1050000 --detailed > tree.dot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, ok := point.outlet(cmd)
			if !ok {
				return errors.New(errors.ErrCodeInvalidInput, "--lat and --lng are required")
			}
			f, err := networkFormat(format, output)
			if err != nil {
				return err
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			env, err := c.newEnvironment(cmd.Context(), cfg, noCache)
			if err != nil {
				return err
			}
			defer env.Close()

			spinner := newSpinnerWithContext(cmd.Context(), "Tracing upstream network...")
			spinner.Start()
			trace, err := env.runner(c.Logger).Trace(cmd.Context(), o, cfg.Delineation)
			spinner.Stop()
			if err != nil {
				return err
			}

			m := trace.Matched
			printSuccess("Traced %d reaches upstream of %s", len(trace.Nodes), o.ID)
			printKeyValue("Region", m.Region.String())
			printKeyValue("Reach", strconv.FormatInt(m.NodeID, 10))
			printKeyValue("Upstream", fmt.Sprintf("%.1f km²", m.UpArea))
			if m.Relocated {
				printDetail("Outlet relocated to match the reported area")
			}

			dot := network.ToDOT(trace.Nodes, trace.Rivers, network.Options{Detailed: detailed})
			data := []byte(dot)
			if f == formatSVG {
				if data, err = network.RenderSVG(cmd.Context(), dot); err != nil {
					return err
				}
			}

			if output == "" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printFile(output)
			return nil
		},
	}

	point.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot or svg (default from file extension, else dot)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label reaches with upstream area, order and length")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the dataset cache")

	return cmd
}

// networkFormat picks the output format from the flag or the file extension.
func networkFormat(format, output string) (string, error) {
	if format == "" {
		if strings.EqualFold(filepath.Ext(output), ".svg") {
			return formatSVG, nil
		}
		return formatDOT, nil
	}
	switch f := strings.ToLower(format); f {
	case formatDOT, formatSVG:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want dot or svg)", format)
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"onionscope/pkg/export"
	"onionscope/pkg/graph"
)

const (
	formatDOT  = "dot"
	formatSVG  = "svg"
	formatPNG  = "png"
	formatJSON = "json"
)

// validExportFormats is the set of supported export formats.
var validExportFormats = map[string]bool{formatDOT: true, formatSVG: true, formatPNG: true, formatJSON: true}

// newExportCmd creates the export command for generating domain graph
// diagrams. It scans the project (or loads a snapshot) and renders the
// business domain graph via Graphviz.
func newExportCmd() *cobra.Command {
	var (
		opts     providerOpts
		output   string
		format   string
		detailed bool
		clusters bool
	)

	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Export the domain graph as DOT, SVG, or PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.project = args[0]
			}
			if !validExportFormats[format] {
				return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', 'png', or 'json')", format)
			}
			return runExport(cmd, opts, output, format, export.Options{
				Detailed:      detailed,
				ClusterByTier: clusters,
			})
		},
	}

	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "export from a snapshot file instead of scanning")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default onion.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", formatSVG, "output format: svg (default), dot, png, json")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include module paths and file counts in labels")
	cmd.Flags().BoolVar(&clusters, "clusters", false, "group modules into tier clusters")

	return cmd
}

func runExport(cmd *cobra.Command, opts providerOpts, output, format string, dotOpts export.Options) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	domain, err := loadDomain(cmd, opts)
	if err != nil {
		return err
	}
	logger.Infof("Exporting %d modules, %d relationships", len(domain.Nodes), len(domain.Relationships))

	var data []byte
	switch format {
	case formatJSON:
		data, err = graph.MarshalDomain(*domain)
	case formatDOT:
		data = []byte(export.ToDOT(domain, dotOpts))
	case formatSVG:
		data, err = export.RenderSVG(ctx, export.ToDOT(domain, dotOpts))
	case formatPNG:
		data, err = export.RenderPNG(ctx, export.ToDOT(domain, dotOpts))
	}
	if err != nil {
		return err
	}

	if output == "" {
		output = "onion." + format
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	printSuccess("Exported %s", strings.ToUpper(format))
	printFile(output)
	return nil
}

// loadDomain produces the full domain graph for export, bypassing the
// layer payload wrapping used by the interactive surfaces.
func loadDomain(cmd *cobra.Command, opts providerOpts) (*graph.Domain, error) {
	logger := loggerFromContext(cmd.Context())
	snap, err := loadSnapshot(cmd, opts, logger)
	if err != nil {
		return nil, err
	}
	return &snap.Domain, nil
}

package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"onionscope/pkg/analysis"
	"onionscope/pkg/analysis/goscan"
)

// newScanCmd creates the scan command. It analyzes a Go project directory
// and writes the resulting snapshot to a JSON file that serve, explore,
// and export can load without re-scanning.
func newScanCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Analyze a Go project and write a snapshot file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runScan(cmd, root, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <dir>.onion.json)")
	return cmd
}

func runScan(cmd *cobra.Command, root, output string) error {
	logger := loggerFromContext(cmd.Context())
	p := newProgress(logger)

	logger.Infof("Scanning %s", root)
	snap, err := goscan.NewScanner(root, logger).Scan()
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Analyzed %d modules, %d relationships",
		len(snap.Domain.Nodes), len(snap.Domain.Relationships)))

	if output == "" {
		output = snapshotPath(root)
	}
	if err := analysis.WriteSnapshotFile(output, snap); err != nil {
		return err
	}

	printSuccess("Snapshot written")
	printFile(output)
	printDetail("%d files, %d processes", countFiles(snap), len(snap.Processes))
	return nil
}

// snapshotPath derives the default snapshot file name from the scanned
// directory.
func snapshotPath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	base := filepath.Base(abs)
	if base == "." || base == string(filepath.Separator) {
		base = "project"
	}
	return strings.ToLower(base) + ".onion.json"
}

func countFiles(snap *analysis.Snapshot) int {
	n := 0
	for _, files := range snap.Files {
		n += len(files)
	}
	return n
}

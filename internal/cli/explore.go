package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// newExploreCmd creates the explore command: the interactive terminal
// surface for navigating a project layer by layer.
func newExploreCmd() *cobra.Command {
	var (
		opts       providerOpts
		configPath string
		cacheName  string
	)

	cmd := &cobra.Command{
		Use:   "explore [dir]",
		Short: "Navigate the project layers interactively",
		Long: `Explore presents the project as an onion of layers: project intent,
business domain, key processes, and implementation. Drill into a module
with enter or a double click, peel back with backspace, and jump straight
to a layer with the number keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.project = args[0]
			}
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cacheName != "" {
				cfg.Cache = cacheName
			}
			return runExplore(cmd, opts, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "explore a snapshot file instead of scanning")
	cmd.Flags().StringVar(&opts.server, "server", "", "explore a running onionscope server")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.config/onionscope/config.toml)")
	cmd.Flags().StringVar(&cacheName, "cache", "", "cache backend: file (default), memory, redis, none")

	return cmd
}

func runExplore(cmd *cobra.Command, opts providerOpts, cfg Config) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	provider, err := newProvider(opts, logger)
	if err != nil {
		return err
	}
	provider = withCache(ctx, provider, cfg, opts.project, logger)

	model := newExploreModel(provider)
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = program.Run()
	return err
}

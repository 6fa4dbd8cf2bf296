package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"onionscope/internal/server"
	"onionscope/pkg/store"
)

// newServeCmd creates the serve command. It exposes the analysis over the
// HTTP API, optionally watching the project directory for changes and
// persisting saved views to MongoDB.
func newServeCmd() *cobra.Command {
	var (
		opts       providerOpts
		addr       string
		configPath string
		cacheName  string
		redisURL   string
		mongoURI   string
		noWatch    bool
	)

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the analysis over an HTTP API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.project = args[0]
			}
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if cacheName != "" {
				cfg.Cache = cacheName
			}
			if redisURL != "" {
				cfg.RedisURL = redisURL
			}
			if mongoURI != "" {
				cfg.MongoURI = mongoURI
			}
			return runServe(cmd, opts, cfg, noWatch)
		},
	}

	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "serve a snapshot file instead of scanning")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default "+server.DefaultAddr+")")
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.config/onionscope/config.toml)")
	cmd.Flags().StringVar(&cacheName, "cache", "", "cache backend: file (default), memory, redis, none")
	cmd.Flags().StringVar(&redisURL, "redis-url", "", "redis connection URL for --cache redis")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI for persistent saved views")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "disable filesystem watching")

	return cmd
}

func runServe(cmd *cobra.Command, opts providerOpts, cfg Config, noWatch bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	provider, err := newProvider(opts, logger)
	if err != nil {
		return err
	}

	project := opts.project
	if project == "" && opts.snapshot == "" {
		project = "."
	}
	if project != "" {
		if abs, err := filepath.Abs(project); err == nil {
			project = abs
		}
	}

	cached := withCache(ctx, provider, cfg, project, logger)

	var viewStore store.Store
	if cfg.MongoURI != "" {
		viewStore, err = store.NewMongoStore(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		logger.Info("using MongoDB view store")
	} else {
		viewStore = store.NewMemoryStore()
	}
	// Close with a fresh context: ctx is already cancelled by the time
	// the server has shut down.
	defer viewStore.Close(context.Background())

	watch := ""
	if !noWatch && opts.snapshot == "" {
		watch = project
	}

	srv := server.New(server.Config{
		Addr:     cfg.Addr,
		Provider: cached,
		Store:    viewStore,
		Project:  project,
		Logger:   logger,
		Watch:    watch,
	})
	return srv.Run(ctx)
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"onionscope/pkg/analysis"
	"onionscope/pkg/analysis/cached"
	"onionscope/pkg/analysis/goscan"
	"onionscope/pkg/analysis/remote"
	"onionscope/pkg/analysis/static"
	"onionscope/pkg/cache"
)

// =============================================================================
// Provider Assembly
// =============================================================================

// providerOpts selects the analysis source shared by serve, explore, and
// export: a project directory to scan, a pre-built snapshot file, or a
// remote onionscope server.
type providerOpts struct {
	project  string // project directory to scan
	snapshot string // snapshot file written by scan
	server   string // base URL of a running serve instance
}

// newProvider builds the analysis provider for the selected source.
// Exactly one source must be set; project is the default when all are
// empty, resolving to the current directory.
func newProvider(o providerOpts, logger *log.Logger) (analysis.Provider, error) {
	set := 0
	for _, s := range []string{o.project, o.snapshot, o.server} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("at most one of --project, --snapshot, --server may be set")
	}

	switch {
	case o.snapshot != "":
		return static.NewProvider(o.snapshot)
	case o.server != "":
		return remote.NewProvider(o.server, nil), nil
	default:
		root := o.project
		if root == "" {
			root = "."
		}
		return goscan.NewProvider(root, logger), nil
	}
}

// withCache wraps provider with the configured cache backend. Cache
// construction failures fall back to an uncached provider with a warning
// rather than aborting the command.
func withCache(ctx context.Context, provider analysis.Provider, cfg Config, project string, logger *log.Logger) analysis.Provider {
	c, err := newCache(ctx, cfg)
	if err != nil {
		logger.Warn("cache unavailable, continuing without", "err", err)
		return provider
	}
	ttl := cached.DefaultTTL
	if cfg.CacheTTLMinutes > 0 {
		ttl = time.Duration(cfg.CacheTTLMinutes) * time.Minute
	}
	return cached.NewProvider(provider, c, cache.NewDefaultKeyer(), project, ttl)
}

// loadSnapshot produces the full analysis snapshot for commands that
// need the whole graph at once, either from a snapshot file or by
// scanning the project directory. Remote servers only expose layer
// payloads, not snapshots.
func loadSnapshot(cmd *cobra.Command, o providerOpts, logger *log.Logger) (*analysis.Snapshot, error) {
	if o.server != "" {
		return nil, fmt.Errorf("--server is not supported here; use --project or --snapshot")
	}
	if o.snapshot != "" {
		return analysis.ReadSnapshotFile(o.snapshot)
	}
	root := o.project
	if root == "" {
		root = "."
	}
	return goscan.NewProvider(root, logger).Snapshot(cmd.Context())
}

// newCache builds the cache backend named by cfg.Cache. The default is
// the file cache under the XDG cache directory.
func newCache(ctx context.Context, cfg Config) (cache.Cache, error) {
	switch cfg.Cache {
	case "none":
		return cache.NewNullCache(), nil
	case "memory":
		return cache.NewMemoryCache(cache.DefaultMemoryCacheSize)
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("cache backend redis requires redis_url")
		}
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	case "file", "":
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache)
	}
}

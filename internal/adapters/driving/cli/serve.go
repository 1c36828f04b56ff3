package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/leafstream/internal/adapters/driven/broker"
	configfile "github.com/custodia-labs/leafstream/internal/adapters/driven/config/file"
	"github.com/custodia-labs/leafstream/internal/adapters/driven/directory"
	"github.com/custodia-labs/leafstream/internal/adapters/driven/ledger"
	"github.com/custodia-labs/leafstream/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/leafstream/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/leafstream/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/leafstream/internal/connectors"
	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
	"github.com/custodia-labs/leafstream/internal/core/services"
	"github.com/custodia-labs/leafstream/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion pipeline and HTTP API",
	Long: `Starts one polling loop per configured source, persists accepted
events to the append-only logs, and serves the HTTP API until
interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}

	sources, dir, err := resolveSources(cfg)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".leafstream", "data")
	}

	repo, err := jsonl.NewRepository(dataDir)
	if err != nil {
		return fmt.Errorf("opening event logs: %w", err)
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	hub := broker.New()
	scheduler := services.NewScheduler(
		repo, hub, ledger.New(), connectors.DefaultFactory(), sources,
		services.WithHistory(store.HistoryStore()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer scheduler.Stop() //nolint:errcheck

	if dir != nil {
		go func() {
			if err := dir.Watch(ctx); err != nil {
				logger.Warn("serve: directory watch: %v", err)
			}
		}()
	}

	logger.Info("serve: %d sources, data in %s", len(sources), dataDir)

	server := httpapi.NewServer(sources, repo, hub, dispensaryDirectory(dir))
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// loadConfig resolves the --config flag or the default location.
func loadConfig() (*configfile.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = configfile.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return configfile.Load(path)
}

// resolveSources merges explicit config sources with directory-derived
// ones. Explicit sources win on ID collision; overrides apply only to
// directory-derived sources.
func resolveSources(cfg *configfile.Config) ([]domain.Source, *directory.Directory, error) {
	sources := make([]domain.Source, 0, len(cfg.Sources))
	seen := make(map[string]struct{}, len(cfg.Sources))
	for _, source := range cfg.Sources {
		sources = append(sources, source)
		seen[source.ID] = struct{}{}
	}

	if cfg.DirectoryFile == "" {
		return sources, nil, nil
	}

	dir, err := directory.Load(cfg.DirectoryFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dispensary directory: %w", err)
	}

	for _, derived := range dir.BuildSources(cfg.DefaultCrawlIntervalSeconds) {
		if _, dup := seen[derived.ID]; dup {
			continue
		}
		if override, ok := cfg.Overrides[derived.ID]; ok {
			derived = override.Apply(derived)
		}
		sources = append(sources, derived)
		seen[derived.ID] = struct{}{}
	}

	return sources, dir, nil
}

// dispensaryDirectory converts a possibly-nil concrete directory into
// the port type without producing a non-nil interface around a nil
// pointer.
func dispensaryDirectory(dir *directory.Directory) driven.DispensaryDirectory {
	if dir == nil {
		return nil
	}
	return dir
}

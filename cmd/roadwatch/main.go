package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roadwatch/roadwatch/pkg/alertstore"
	"github.com/roadwatch/roadwatch/pkg/client"
	"github.com/roadwatch/roadwatch/pkg/config"
	"github.com/roadwatch/roadwatch/pkg/connectivity"
	"github.com/roadwatch/roadwatch/pkg/log"
	"github.com/roadwatch/roadwatch/pkg/metrics"
	"github.com/roadwatch/roadwatch/pkg/realtime"
	"github.com/roadwatch/roadwatch/pkg/storage"
	"github.com/roadwatch/roadwatch/pkg/syncer"
	"github.com/roadwatch/roadwatch/pkg/types"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "roadwatch",
	Short: "Roadwatch - Offline-first road alert client",
	Long: `Roadwatch keeps a durable local snapshot of reported road incidents,
queues alert creations made while offline, replays them against the backend
when connectivity returns, and follows server-pushed alert events over a
reconnecting realtime connection.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Roadwatch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("backend-url", "", "Backend base URL (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(alertCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(deadletterCmd)
}

// loadConfig resolves configuration from the --config file plus flag
// overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if backendURL, _ := cmd.Flags().GetString("backend-url"); backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      cfg.LogLevel,
		JSONOutput: cfg.LogFormat == "json",
	})
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.BoltStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return storage.NewBoltStore(cfg.DataDir, cfg.CacheCapacity)
}

func newBackend(cfg *config.Config) (*client.Client, error) {
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	return client.NewClient(cfg.BackendURL,
		client.WithToken(token),
		client.WithTimeout(cfg.RequestTimeout),
	), nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the roadwatch client daemon",
	Long: `Run the long-lived client: keeps the local alert snapshot fresh,
replays queued offline creations when connectivity returns, and follows
realtime alert events from the backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open local store: %w", err)
		}
		defer store.Close()

		backend, err := newBackend(cfg)
		if err != nil {
			return err
		}

		metrics.SetVersion(Version)
		logger := log.WithComponent("main")

		// Prime the in-memory store from the last-known snapshot so there is
		// something to show before the first successful fetch
		alerts := alertstore.New()
		if cached, err := store.CachedAlerts(); err == nil {
			alerts.Replace(cached)
		}

		watcher := connectivity.NewWatcher(backend, cfg.ProbeInterval)
		sync := syncer.New(store, backend, alerts, syncer.Config{
			MaxAttempts: cfg.SyncMaxAttempts,
			Online:      watcher.Online,
		})

		rt := realtime.NewClient(realtime.Config{
			URL:          cfg.ResolveWebSocketURL(),
			PingInterval: cfg.PingInterval,
			BaseDelay:    cfg.ReconnectBaseDelay,
			MaxAttempts:  cfg.ReconnectMaxTries,
		})

		// Realtime events flow into the shared store and the local cache
		eventTypes := []types.EventType{
			types.EventAlertCreated,
			types.EventAlertUpdated,
			types.EventAlertDeleted,
			types.EventAlertCommented,
			types.EventAlertVoted,
		}
		for _, t := range eventTypes {
			rt.Subscribe(t, func(ev *types.AlertEvent) {
				alerts.ApplyEvent(ev)
				if ev.Alert != nil && ev.Type != types.EventAlertDeleted {
					if err := store.AddAlertToCache(ev.Alert); err != nil {
						alog := log.WithAlertID(ev.Alert.ID)
						alog.Error().Err(err).Msg("failed to cache realtime alert")
					}
				}
			})
		}

		// Connectivity transitions and realtime reconnections both trigger a
		// sync pass; there is no free-running sync timer
		watcher.Subscribe(func(online bool) {
			if online {
				rt.Connect()
				go sync.Sync(context.Background())
			}
		})
		rt.SubscribeStatus(func(status types.ConnectionStatus) {
			if status == types.StatusConnected {
				go sync.Sync(context.Background())
			}
		})

		if cfg.MetricsAddr != "" {
			go func() {
				if err := metrics.Serve(cfg.MetricsAddr); err != nil {
					logger.Error().Err(err).Msg("metrics server stopped")
				}
			}()
		}

		watcher.Start()
		rt.Connect()

		// One unconditional pass at startup
		go sync.Sync(context.Background())

		logger.Info().
			Str("backend", cfg.BackendURL).
			Str("data_dir", cfg.DataDir).
			Msg("roadwatch client running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("shutting down")
		watcher.Stop()
		rt.Disconnect()
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one explicit sync pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		backend, err := newBackend(cfg)
		if err != nil {
			return err
		}

		alerts := alertstore.New()
		sync := syncer.New(store, backend, alerts, syncer.Config{
			MaxAttempts: cfg.SyncMaxAttempts,
		})

		res := sync.Sync(cmd.Context())
		if res.Skipped {
			fmt.Printf("Sync skipped (%s)\n", res.SkipReason)
			return nil
		}
		fmt.Printf("Sync complete: %d replayed, %d failed, %d dead-lettered, refreshed=%v\n",
			res.Replayed, res.Failed, res.DeadLettered, res.Refreshed)
		return nil
	},
}

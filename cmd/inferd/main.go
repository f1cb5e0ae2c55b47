package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"inferd/internal/backend"
	"inferd/internal/config"
	"inferd/internal/dispatch"
	"inferd/internal/history"
	"inferd/internal/httpapi"
	"inferd/internal/logx"
	"inferd/internal/modelcache"
	"inferd/internal/pool"
)

func main() {
	var (
		configPath string
		addr       string
		logLevel   string
		historyDB  string
	)

	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Dispatch prompts across a prioritized pool of inference servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// CLI flags override file values
			if addr != "" {
				cfg.Addr = addr
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if historyDB != "" {
				cfg.HistoryDB = historyDB
			}
			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "inferd.yaml", "Config file (yaml, json or toml)")
	root.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :11400")
	root.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.Flags().StringVar(&historyDB, "history-db", "", "Path to the history SQLite database")

	if err := root.Execute(); err != nil {
		logx.Log.Fatal().Err(err).Msg("inferd failed")
	}
}

func run(cfg config.Config) error {
	logx.Configure(cfg.LogLevel)
	log := logx.Log

	var store *history.Store
	var sink dispatch.Sink
	var reader httpapi.History
	if cfg.HistoryEnabled() {
		s, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
		sink = store
		reader = store
	}

	cache := modelcache.New(cfg.CacheTTL(), cfg.FetchTimeout(), log)
	configs := make([]pool.ServerConfig, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		configs = append(configs, pool.ServerConfig{Name: s.Name, BaseURL: s.BaseURL})
	}
	reg := pool.New(configs, cache, log)

	disp := dispatch.New(dispatch.Config{
		Registry:    reg,
		Adapter:     backend.NewHTTPAdapter(cfg.FetchTimeout()),
		Sink:        sink,
		ExecTimeout: cfg.GenerateTimeout(),
		Logger:      log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg.RefreshAll(ctx)
	reg.StartSweep(ctx, cfg.SweepInterval(), disp.Kick)

	mux := httpapi.NewMux(httpapi.Config{
		Dispatcher:  disp,
		Pool:        reg,
		History:     reader,
		Logger:      log,
		CORSEnabled: cfg.CORSEnabled,
		CORSOrigins: cfg.CORSOrigins,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Int("servers", len(cfg.Servers)).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tagdb/tagdb/pkg/log"
	"github.com/tagdb/tagdb/pkg/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Serve Prometheus metrics and health endpoints",
	Long: `Serve /metrics, /health, /ready and /live on the configured metrics
address, probing the object store so the health endpoints reflect real
backend connectivity. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openStore(cfg, dataNamespace(cfg))
		if err != nil {
			return err
		}
		defer store.Close()

		// One probe up front so /ready is meaningful from the first scrape.
		if _, _, err := store.Get(context.Background(), 0); err != nil {
			metrics.RegisterComponent("objectstore", false, err.Error())
		} else {
			metrics.RegisterComponent("objectstore", true, "connected")
		}
		metrics.RegisterComponent("metaindex", true, fmt.Sprintf("data dir %s", cfg.DataDir))
		metrics.SetVersion(Version)

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		mux.HandleFunc("/live", metrics.LivenessHandler())

		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.ListenAndServe()
		}()
		metricsLogger := log.WithComponent("metrics")
		metricsLogger.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listener started")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-sigCh:
			return server.Close()
		}
	},
}

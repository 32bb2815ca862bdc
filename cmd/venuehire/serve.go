package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"venuehire/internal/infra/config"
	ginserver "venuehire/internal/infra/http/gin"
	"venuehire/internal/infra/obs"
	infrapricing "venuehire/internal/infra/pricing"
)

func newServeCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close(context.Background(), logger)

			policy := infrapricing.LoadPolicy(cfg.PricingPolicyFile, logger)
			app, err := buildApplication(st, cfg, policy, time.Now, logger)
			if err != nil {
				return err
			}
			if seed {
				if _, err := loadListingFixtures(ctx, st.factory, cfg.ListingsFixtures, time.Now(), logger); err != nil {
					logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingsFixtures)
				}
			}
			st.runMaintenance(ctx, cfg, logger)

			server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: st.checks}, app.handlers)
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("http shutdown failed", "error", err)
				}
			}()

			logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("HTTP server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", true, "import listing fixtures on startup")
	return cmd
}

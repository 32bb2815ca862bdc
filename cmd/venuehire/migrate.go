package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"venuehire/internal/infra/config"
	mongodb "venuehire/internal/infra/db/mongo"
	"venuehire/internal/infra/db/postgres"
	infraoutbox "venuehire/internal/infra/outbox"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables, collections and indexes for the configured storage driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			switch cfg.StorageDriver {
			case config.DriverPostgres:
				pool, err := postgres.Open(ctx, cfg.PostgresDSN)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := postgres.Migrate(ctx, pool); err != nil {
					return err
				}
			case config.DriverMongo:
				client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
				if err != nil {
					return err
				}
				defer func() { _ = client.Close(context.Background()) }()
				if err := mongodb.NewBookingRepository(client.DB).EnsureIndexes(ctx); err != nil {
					return err
				}
				if _, err := infraoutbox.NewMongoStore(ctx, client.DB); err != nil {
					return err
				}
				if _, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
					return err
				}
			default:
				fmt.Fprintln(cmd.OutOrStdout(), "memory storage needs no migration")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date\n", cfg.StorageDriver)
			return nil
		},
	}
}

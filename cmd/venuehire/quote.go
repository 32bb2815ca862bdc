package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"venuehire/internal/app/dto"
	quotesapp "venuehire/internal/app/handlers/quotes"
	"venuehire/internal/app/queries"
	"venuehire/internal/infra/config"
	"venuehire/internal/infra/obs"
	infrapricing "venuehire/internal/infra/pricing"
)

// newQuoteCmd prices a request against the fixture listings without starting
// the server or touching a database.
func newQuoteCmd() *cobra.Command {
	var (
		listingID string
		date      string
		start     string
		end       string
		guests    int
		fixtures  string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a booking against the fixture listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.StorageDriver = config.DriverMemory
			cfg.RedisAddr = ""
			cfg.KafkaBrokers = nil
			if fixtures != "" {
				cfg.ListingsFixtures = fixtures
			}
			logger := obs.NewLogger(cfg.Env, "warn")
			ctx := cmd.Context()

			st, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close(ctx, logger)
			if _, err := loadListingFixtures(ctx, st.factory, cfg.ListingsFixtures, time.Now(), logger); err != nil {
				return err
			}
			app, err := buildApplication(st, cfg, infrapricing.LoadPolicy(cfg.PricingPolicyFile, logger), time.Now, logger)
			if err != nil {
				return err
			}

			quote, err := queries.Ask[quotesapp.GetQuoteQuery, *dto.Quote](ctx, app.queries, quotesapp.GetQuoteQuery{
				ListingID: listingID,
				Date:      date,
				Start:     start,
				End:       end,
				Guests:    guests,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(quote)
		},
	}

	cmd.Flags().StringVar(&listingID, "listing", "", "listing id")
	cmd.Flags().StringVar(&date, "date", "", "booking date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "start time (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "end time (HH:MM)")
	cmd.Flags().IntVar(&guests, "guests", 1, "number of guests")
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "listing fixtures file (defaults to LISTINGS_FIXTURES)")
	_ = cmd.MarkFlagRequired("listing")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/spf13/cobra"

	"venuehire/internal/infra/broker/kafka"
	"venuehire/internal/infra/config"
	"venuehire/internal/infra/obs"
	infraoutbox "venuehire/internal/infra/outbox"
)

var defaultEventTopics = []string{"listing", "booking"}

// newEventsCmd tails the event topics the outbox publishes to.
func newEventsCmd() *cobra.Command {
	var (
		group      string
		aggregates []string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print events published to kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is required")
			}
			logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, group, nil, kafka.HandlerFunc(func(_ context.Context, msg *sarama.ConsumerMessage) error {
				_, err := fmt.Fprintf(out, "%s\t%s\t%s\n", msg.Topic, msg.Key, msg.Value)
				return err
			}))
			if err != nil {
				return err
			}
			consumer.Logger = logger
			defer consumer.Close()

			topics := make([]string, 0, len(aggregates))
			for _, aggregate := range aggregates {
				topics = append(topics, infraoutbox.Topic(cfg.KafkaTopicPrefix, aggregate))
			}
			if err := consumer.Run(ctx, topics); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", "venuehire-events-tail", "consumer group id")
	cmd.Flags().StringSliceVar(&aggregates, "aggregate", defaultEventTopics, "aggregates whose topics to follow")
	return cmd
}

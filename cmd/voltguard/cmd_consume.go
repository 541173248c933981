package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voltguard/internal/config"
	"voltguard/internal/ingest"
	"voltguard/internal/logging"
	"voltguard/internal/observe"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Score telemetry from Kafka and publish verdicts",
	Long: `Consumes records from the configured input topic, scores them, and
publishes one verdict per record to the output topic. Offsets are
committed after publish, so delivery is at-least-once.`,
	RunE: runConsume,
}

func runConsume(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	metrics := observe.NewMetrics()
	pipe, _, err := buildPipeline(cfg, metrics)
	if err != nil {
		return err
	}

	consumer, err := ingest.NewConsumer(pipe, cfg.Kafka, logging.New("ingest"))
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return consumer.Run(ctx)
}

// Package ingest scores telemetry arriving on a Kafka topic and publishes
// one verdict per record to an output topic. Consumption is at-least-once:
// a malformed message is logged, skipped and committed so one bad producer
// cannot stall the stream, while a scoring failure stops the loop without
// committing, so a restart refetches the failed message.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"voltguard/internal/config"
	"voltguard/internal/predict"
	"voltguard/internal/reconcile"
)

// fetcher is the slice of *kafka.Reader the consumer loop needs. Narrowed
// to an interface so the commit discipline can be tested without a broker.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// publisher is the slice of *kafka.Writer the consumer loop needs.
type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer pumps records from the in topic through the pipeline.
type Consumer struct {
	pipe   *predict.Pipeline
	cfg    config.Kafka
	reader fetcher
	writer publisher
	log    *slog.Logger
}

// NewConsumer wires a consumer against the configured brokers.
func NewConsumer(pipe *predict.Pipeline, cfg config.Kafka, log *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required (set KAFKA_BROKERS or kafka.brokers)")
	}
	if log == nil {
		log = slog.Default()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.InTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OutTopic,
		RequiredAcks: kafka.RequireOne,
	}
	return &Consumer{pipe: pipe, cfg: cfg, reader: reader, writer: writer, log: log}, nil
}

// Run consumes until the context is canceled. A scoring failure is
// returned without committing the message: committing any later offset
// would silently discard the failed batch, so the loop stops and the
// supervisor restarts it from the last committed offset.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("consuming telemetry",
		"in_topic", c.cfg.InTopic, "out_topic", c.cfg.OutTopic, "group", c.cfg.GroupID)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		out, err := c.Handle(ctx, msg.Key, msg.Value)
		if err != nil {
			if errors.Is(err, errBadPayload) {
				c.log.Warn("skipping malformed telemetry message",
					"offset", msg.Offset, "error", err)
			} else {
				return fmt.Errorf("score message at offset %d: %w", msg.Offset, err)
			}
		} else if len(out) > 0 {
			if err := c.writer.WriteMessages(ctx, out...); err != nil {
				return fmt.Errorf("write verdicts: %w", err)
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
}

// Close releases the Kafka connections.
func (c *Consumer) Close() error {
	rerr := c.reader.Close()
	werr := c.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

var errBadPayload = errors.New("payload is not a telemetry record or array of records")

// Handle scores one message value and returns the verdict messages to
// publish. Split from Run so the decode/score path is testable without a
// broker.
func (c *Consumer) Handle(ctx context.Context, key, value []byte) ([]kafka.Message, error) {
	records, err := decodeRecords(value)
	if err != nil {
		return nil, err
	}
	verdicts, err := c.pipe.Predict(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	out := make([]kafka.Message, len(verdicts))
	for i, v := range verdicts {
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal verdict: %w", err)
		}
		out[i] = kafka.Message{Key: key, Value: payload}
	}
	return out, nil
}

func decodeRecords(value []byte) ([]reconcile.Record, error) {
	var raw any
	if err := json.Unmarshal(value, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	switch payload := raw.(type) {
	case map[string]any:
		return []reconcile.Record{reconcile.CoerceRecord(payload)}, nil
	case []any:
		records := make([]reconcile.Record, 0, len(payload))
		for i, item := range payload {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is not an object", errBadPayload, i)
			}
			records = append(records, reconcile.CoerceRecord(obj))
		}
		return records, nil
	}
	return nil, errBadPayload
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"batch-dispatch-service/internal/logging"
	"batch-dispatch-service/internal/models"
)

type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

// SnapshotHandler receives every decoded analytics snapshot.
type SnapshotHandler interface {
	OnSnapshot(ctx context.Context, snap models.AnalyticsSnapshot) []models.AlertEvent
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer feeds analytics snapshots from Kafka into the alert manager.
type Consumer struct {
	reader  messageReader
	handler SnapshotHandler
	logger  *logging.Logger
}

func NewConsumer(cfg Config, handler SnapshotHandler, logger *logging.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{cfg.Broker},
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: reader, handler: handler, logger: logger.WithField("topic", cfg.Topic)}
}

func (s *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Infof("Kafka consumer started")
		for {
			msg, err := s.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					s.logger.Infof("Kafka consumer stopped")
					return
				}
				s.logger.Errorf("Read message failed: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			s.handle(ctx, msg)

			if err := s.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				s.logger.Errorf("Commit offset %d failed: %v", msg.Offset, err)
			}
		}
	}()
}

// handle decodes one message. Malformed payloads are logged and skipped.
func (s *Consumer) handle(ctx context.Context, msg kafkago.Message) {
	var snap models.AnalyticsSnapshot
	if err := json.Unmarshal(msg.Value, &snap); err != nil {
		s.logger.Errorf("Unmarshal snapshot at offset %d failed: %v", msg.Offset, err)
		return
	}
	if snap.CollectedAt.IsZero() {
		snap.CollectedAt = msg.Time
	}
	fresh := s.handler.OnSnapshot(ctx, snap)
	s.logger.Debugf("Processed snapshot at offset %d, %d new alerts", msg.Offset, len(fresh))
}

func (s *Consumer) Close() {
	if err := s.reader.Close(); err != nil {
		s.logger.Errorf("Close Kafka reader failed: %v", err)
	}
}

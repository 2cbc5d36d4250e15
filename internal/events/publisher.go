package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
)

// AlertEvent is published once per suspicious identity in a run
type AlertEvent struct {
	EventID       uuid.UUID            `json:"event_id"`
	ScreeningID   uuid.UUID            `json:"screening_id"`
	WatchlistHash string               `json:"watchlist_hash,omitempty"`
	IdentityKey   string               `json:"identity_key"`
	FullName      string               `json:"full_name"`
	ClientSNs     []string             `json:"client_sns"`
	Matches       []domain.MatchRecord `json:"matches"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// AlertPublisher publishes screening alerts
type AlertPublisher interface {
	PublishRun(ctx context.Context, run *domain.ScreeningRun) error
	Close() error
}

// KafkaAlertPublisher sends alerts to a Kafka topic keyed by identity
type KafkaAlertPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaAlertPublisher wraps an existing producer
func NewKafkaAlertPublisher(producer sarama.SyncProducer, topic string, log *logger.Logger) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("alert_publisher"),
	}
}

// NewSaramaConfig returns the producer configuration alerts require
func NewSaramaConfig(cfg config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 3
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	return sc
}

// NewPublisher builds a Kafka publisher, or a no-op one when Kafka is disabled
func NewPublisher(cfg config.KafkaConfig, log *logger.Logger) (AlertPublisher, error) {
	if !cfg.Enabled {
		return NopPublisher{}, nil
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaAlertPublisher(producer, cfg.AlertsTopic, log), nil
}

// PublishRun sends one message per suspicious identity
func (p *KafkaAlertPublisher) PublishRun(ctx context.Context, run *domain.ScreeningRun) error {
	if len(run.SuspiciousIdentities) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(run.SuspiciousIdentities))
	now := time.Now().UTC()
	for _, ident := range run.SuspiciousIdentities {
		if err := ctx.Err(); err != nil {
			return err
		}
		event := AlertEvent{
			EventID:       uuid.New(),
			ScreeningID:   run.ID,
			WatchlistHash: run.WatchlistHash,
			IdentityKey:   ident.DataID,
			FullName:      ident.FullName,
			ClientSNs:     distinctSerials(ident.ClientMatches),
			Matches:       ident.ClientMatches,
			OccurredAt:    now,
		}
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode alert: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(ident.DataID),
			Value: sarama.ByteEncoder(value),
			Headers: []sarama.RecordHeader{
				{Key: []byte("screening_id"), Value: []byte(run.ID.String())},
			},
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publish alerts: %w", err)
	}
	p.log.Info("alerts published",
		logger.StringField("screening_id", run.ID.String()),
		logger.IntField("alerts", len(msgs)),
	)
	return nil
}

// Close closes the underlying producer
func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher discards alerts
type NopPublisher struct{}

// PublishRun does nothing
func (NopPublisher) PublishRun(context.Context, *domain.ScreeningRun) error { return nil }

// Close does nothing
func (NopPublisher) Close() error { return nil }

func distinctSerials(matches []domain.MatchRecord) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.ClientSN]; ok {
			continue
		}
		seen[m.ClientSN] = struct{}{}
		out = append(out, m.ClientSN)
	}
	return out
}

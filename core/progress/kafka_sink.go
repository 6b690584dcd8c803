package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/pyropy/bufwriter/core/model"
)

var ErrNoBrokers = errors.New("no kafka brokers")

type envelope struct {
	Session uuid.UUID      `json:"session"`
	TS      int64          `json:"ts"`
	Event   model.Progress `json:"event"`
}

// KafkaSink publishes progress events keyed by session id
type KafkaSink struct {
	topic   string
	session uuid.UUID
	p       sarama.SyncProducer
}

func NewKafkaSink(brokersCSV, topic string, session uuid.UUID) (*KafkaSink, error) {
	brokers := splitCSV(brokersCSV)
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	// SyncProducer requires both
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return NewKafkaSinkWithProducer(p, topic, session), nil
}

func NewKafkaSinkWithProducer(p sarama.SyncProducer, topic string, session uuid.UUID) *KafkaSink {
	return &KafkaSink{topic: topic, session: session, p: p}
}

func (s *KafkaSink) Publish(ctx context.Context, p model.Progress) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.Marshal(envelope{
		Session: s.session,
		TS:      time.Now().UnixMilli(),
		Event:   p,
	})
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(s.session.String()),
		Value: sarama.ByteEncoder(b),
	}

	if _, _, err := s.p.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka publish failed: %w", err)
	}

	return nil
}

func (s *KafkaSink) Close() error {
	if s.p != nil {
		return s.p.Close()
	}

	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, x := range parts {
		x = strings.TrimSpace(x)
		if x != "" {
			out = append(out, x)
		}
	}

	return out
}

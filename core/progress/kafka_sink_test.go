package progress

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/pyropy/bufwriter/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaSinkPublish(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	session := uuid.New()
	account := solana.PublicKey{5}

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}

		if env.Session != session {
			return errors.New("unexpected session")
		}

		if env.Event.Kind != model.ProgressCompleted || env.Event.Account != account {
			return errors.New("unexpected event")
		}

		return nil
	})

	sink := NewKafkaSinkWithProducer(producer, "uploads", session)
	require.NoError(t, sink.Publish(context.Background(), model.Completed(account)))
	require.NoError(t, sink.Close())
}

func TestKafkaSinkPublishError(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSinkWithProducer(producer, "uploads", uuid.New())

	err := sink.Publish(context.Background(), model.Sending(1, 2))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, sink.Close())
}

func TestNewKafkaSinkNoBrokers(t *testing.T) {
	_, err := NewKafkaSink(" , ", "uploads", uuid.New())
	assert.ErrorIs(t, err, ErrNoBrokers)
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/sanctions-screening/internal/config"
	"github.com/banking/sanctions-screening/internal/domain"
	"github.com/banking/sanctions-screening/internal/pkg/logger"
)

func testRun() *domain.ScreeningRun {
	return &domain.ScreeningRun{
		ID:            uuid.New(),
		WatchlistHash: "abc",
		SuspiciousIdentities: []domain.SuspiciousIdentity{
			{
				IdentityRecord: domain.IdentityRecord{DataID: "ID9", FullName: "Carlos Santos"},
				ClientMatches: []domain.MatchRecord{
					{ClientSN: "C1", MatchedCombo: "Maria Santos", IdentityKey: "ID9"},
					{ClientSN: "C1", MatchedCombo: "Santos", IdentityKey: "ID9"},
					{ClientSN: "C3", MatchedCombo: "Santos", IdentityKey: "ID9"},
				},
			},
			{
				IdentityRecord: domain.IdentityRecord{DataID: "ID10", FullName: "John Smith"},
				ClientMatches:  []domain.MatchRecord{{ClientSN: "C3", MatchedCombo: "John Smith", IdentityKey: "ID10"}},
			},
		},
	}
}

func TestKafkaAlertPublisher_PublishRun(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()

	var first AlertEvent
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, "banking.sanctions.alerts", msg.Topic)
		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "ID9", string(key))
		value, err := msg.Value.Encode()
		require.NoError(t, err)
		return json.Unmarshal(value, &first)
	})
	producer.ExpectSendMessageAndSucceed()

	run := testRun()
	p := NewKafkaAlertPublisher(producer, "banking.sanctions.alerts", logger.NewNop())
	require.NoError(t, p.PublishRun(context.Background(), run))

	assert.Equal(t, run.ID, first.ScreeningID)
	assert.Equal(t, "ID9", first.IdentityKey)
	assert.Equal(t, []string{"C1", "C3"}, first.ClientSNs)
	assert.Len(t, first.Matches, 3)
}

func TestKafkaAlertPublisher_PropagatesFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()
	producer.ExpectSendMessageAndFail(errors.New("broker down"))
	producer.ExpectSendMessageAndSucceed()

	p := NewKafkaAlertPublisher(producer, "alerts", logger.NewNop())
	err := p.PublishRun(context.Background(), testRun())
	assert.Error(t, err)
}

func TestKafkaAlertPublisher_NothingToPublish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	defer producer.Close()

	p := NewKafkaAlertPublisher(producer, "alerts", logger.NewNop())
	assert.NoError(t, p.PublishRun(context.Background(), &domain.ScreeningRun{}))
}

func TestNewPublisher_DisabledIsNop(t *testing.T) {
	p, err := NewPublisher(config.KafkaConfig{Enabled: false}, logger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.PublishRun(context.Background(), testRun()))
	assert.NoError(t, p.Close())
}

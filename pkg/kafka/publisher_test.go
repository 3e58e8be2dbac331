package kafka_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
	"github.com/Astemirdum/library-lending/pkg/kafka"
	"github.com/IBM/sarama/mocks"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("sends json event", func(t *testing.T) {
		t.Parallel()
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var ev kafka.EventLending
			if err := jsoniter.Unmarshal(val, &ev); err != nil {
				return err
			}
			if ev.Type != kafka.EventBorrowed || ev.LoanID != 7 || ev.MemberID != 3 {
				return errors.New("unexpected event")
			}
			return nil
		})

		cb := circuit_breaker.New(circuit_breaker.Config{RecordLength: 10, Timeout: time.Minute, Percentile: 0.5, RecoveryRequests: 1})
		p := kafka.NewPublisher(producer, kafka.LendingTopic, cb, zap.NewNop())

		ev := kafka.NewEvent(kafka.EventBorrowed, 3, ts)
		ev.LoanID = 7
		p.Publish(context.Background(), ev)
		require.NoError(t, producer.Close())
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		t.Parallel()
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(errors.New("broker down"))
		producer.ExpectSendMessageAndSucceed()

		cb := circuit_breaker.New(circuit_breaker.Config{RecordLength: 10, Timeout: time.Minute, Percentile: 0.5, RecoveryRequests: 1})
		p := kafka.NewPublisher(producer, kafka.LendingTopic, cb, zap.NewNop())

		p.Publish(context.Background(),
			kafka.NewEvent(kafka.EventReturned, 1, ts),
			kafka.NewEvent(kafka.EventFinePaid, 1, ts),
		)
		require.NoError(t, producer.Close())
	})
}

package kafka

import (
	"context"
	"strconv"

	"github.com/Astemirdum/library-lending/pkg/circuit_breaker"
	"github.com/IBM/sarama"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Publisher interface {
	Publish(ctx context.Context, events ...EventLending)
}

type publisher struct {
	producer sarama.SyncProducer
	topic    string
	cb       circuit_breaker.CircuitBreaker
	log      *zap.Logger
}

// NewPublisher sends events through producer. Failures are logged and dropped:
// the ledger is the source of truth, events are notifications.
func NewPublisher(producer sarama.SyncProducer, topic string, cb circuit_breaker.CircuitBreaker, log *zap.Logger) Publisher {
	return &publisher{
		producer: producer,
		topic:    topic,
		cb:       cb,
		log:      log.Named("publisher"),
	}
}

func (p *publisher) Publish(_ context.Context, events ...EventLending) {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			p.log.Error("json.Marshal", zap.Error(err))
			continue
		}
		msg := &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(strconv.FormatInt(ev.MemberID, 10)),
			Value: sarama.ByteEncoder(data),
		}
		err = p.cb.Call(func() error {
			_, _, err := p.producer.SendMessage(msg)
			return err
		})
		if err != nil {
			p.log.Warn("publish event",
				zap.String("type", string(ev.Type)),
				zap.Stringer("id", ev.ID),
				zap.Error(err))
			continue
		}
		p.log.Debug("event published", zap.String("type", string(ev.Type)), zap.Stringer("id", ev.ID))
	}
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, ...EventLending) {}

package kafka

import (
	"context"

	"github.com/IBM/sarama"

	"rentdetail/internal/domain/shared/events"
)

// Producer publishes domain events to one topic, keyed by aggregate id.
type Producer struct {
	sync  sarama.SyncProducer
	topic string
}

func NewProducer(brokers []string, topic string, cfg *sarama.Config) (*Producer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	sync, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newProducer(sync, topic), nil
}

func newProducer(sync sarama.SyncProducer, topic string) *Producer {
	return &Producer{sync: sync, topic: topic}
}

func (p *Producer) Publish(ctx context.Context, event events.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encodeChange(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(event.EventName())},
		},
	}
	if id := event.AggregateID(); id != "" {
		msg.Key = sarama.StringEncoder(id)
	}
	_, _, err = p.sync.SendMessage(msg)
	return err
}

func (p *Producer) Close() error {
	if p.sync == nil {
		return nil
	}
	return p.sync.Close()
}

package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

// Run consumes topics until ctx is cancelled or the group is closed.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Warn("kafka consumer error", "error", err)
		}
	}()
	handler := consumerGroupHandler{handler: c.handler, logger: c.logger}
	for {
		if err := c.group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.handler.Handle(sess.Context(), message); err != nil {
				// Marking a later offset would commit past this one, so the claim stops here.
				// Returning ends the session and Run rejoins from the committed offset.
				h.logger.Error("kafka message handling failed",
					"topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "error", err)
				return fmt.Errorf("handle %s/%d@%d: %w", message.Topic, message.Partition, message.Offset, err)
			}
			sess.MarkMessage(message, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"

	platformErrors "github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/service"
)

// ReservationService is the slice of the service the consumer needs
type ReservationService interface {
	HandlePaymentEvent(ctx context.Context, event service.PaymentEvent) error
}

// Consumer consumes payment processor events that drive reservation
// status transitions
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topics        []string
	handler       *consumerHandler
	logger        logging.Logger
}

// NewConsumer creates a new Kafka consumer group for payment events
func NewConsumer(brokers []string, groupID string, topics []string, reservations ReservationService, logger logging.Logger) (*Consumer, error) {
	config := sarama.NewConfig()

	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Group.Session.Timeout = 30 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	config.Consumer.Return.Errors = true

	config.Consumer.Offsets.AutoCommit.Enable = true
	config.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, platformErrors.Wrap(err, "failed to create Kafka consumer group")
	}

	logger.Info(context.Background(), "Kafka consumer created", map[string]interface{}{
		"brokers":  brokers,
		"group_id": groupID,
		"topics":   topics,
	})

	return &Consumer{
		consumerGroup: consumerGroup,
		topics:        topics,
		handler: &consumerHandler{
			reservations: reservations,
			logger:       logger,
		},
		logger: logger,
	}, nil
}

// Start consumes messages until the context is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	go c.handleErrors(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info(ctx, "Kafka consumer context cancelled")
			return nil
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, c.handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					c.logger.Info(ctx, "Consumer group closed, stopping consumer")
					return nil
				}
				c.logger.Error(ctx, "Error consuming from Kafka", err)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(5 * time.Second):
					continue
				}
			}
		}
	}
}

func (c *Consumer) handleErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case consumerErr := <-c.consumerGroup.Errors():
			if consumerErr != nil {
				c.logger.Error(ctx, "Kafka consumer error", consumerErr)
			}
		}
	}
}

// Close closes the Kafka consumer group
func (c *Consumer) Close() error {
	if c.consumerGroup != nil {
		if err := c.consumerGroup.Close(); err != nil {
			c.logger.Error(context.Background(), "Failed to close Kafka consumer", err)
			return err
		}
		c.logger.Info(context.Background(), "Kafka consumer closed")
	}
	return nil
}

// consumerHandler implements sarama.ConsumerGroupHandler
type consumerHandler struct {
	reservations ReservationService
	logger       logging.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.handleMessage(session.Context(), message); err != nil {
				h.logger.Error(session.Context(), "Failed to handle payment event", err, map[string]interface{}{
					"topic":     message.Topic,
					"partition": message.Partition,
					"offset":    message.Offset,
					"key":       string(message.Key),
				})
				// At-least-once: the message is marked regardless so one
				// poison message cannot stall the partition
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var envelope PaymentEventMessage
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return platformErrors.Wrap(err, "failed to unmarshal payment event")
	}

	h.logger.Debug(ctx, "Received payment event", map[string]interface{}{
		"reservation_id": envelope.ReservationID,
		"event_type":     envelope.EventType,
		"offset":         message.Offset,
	})

	return h.reservations.HandlePaymentEvent(ctx, envelope.PaymentEvent)
}

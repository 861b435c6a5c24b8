package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/service"
)

// Producer publishes reservation events for the payment processor
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   logging.Logger
}

// NewProducer creates a new Kafka producer for reservation events
func NewProducer(brokers []string, topic string, retries int, logger logging.Logger) (*Producer, error) {
	config := sarama.NewConfig()

	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = retries
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Flush.Messages = 100

	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // required for idempotent producer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Kafka producer")
	}

	logger.Info(context.Background(), "Kafka producer created", map[string]interface{}{
		"brokers": brokers,
		"topic":   topic,
		"retries": retries,
	})

	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

// PublishReservationCreated publishes a reservation.created event, keyed by
// reservation ID so all events of one reservation land on one partition.
func (p *Producer) PublishReservationCreated(ctx context.Context, event service.ReservationCreatedEvent) error {
	message := ReservationCreatedMessage{
		ReservationCreatedEvent: event,
		EventMetadata: EventMetadata{
			EventID:   uuid.New().String(),
			EventType: "reservation.created",
			EventTime: time.Now().UTC(),
			Version:   "1.0",
			Source:    "reservation-service",
		},
	}

	data, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "failed to marshal reservation event")
	}

	kafkaMessage := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.ReservationID.String()),
		Value:     sarama.ByteEncoder(data),
		Timestamp: message.EventMetadata.EventTime,
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(message.EventMetadata.EventType)},
			{Key: []byte("event-id"), Value: []byte(message.EventMetadata.EventID)},
			{Key: []byte("source-service"), Value: []byte(message.EventMetadata.Source)},
		},
	}

	partition, offset, err := p.producer.SendMessage(kafkaMessage)
	if err != nil {
		p.logger.Error(ctx, "Failed to publish reservation event", err, map[string]interface{}{
			"reservation_id": event.ReservationID,
			"topic":          p.topic,
		})
		return errors.Wrap(err, "failed to publish reservation event")
	}

	p.logger.Info(ctx, "Reservation event published", map[string]interface{}{
		"reservation_id": event.ReservationID,
		"topic":          p.topic,
		"partition":      partition,
		"offset":         offset,
	})

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			p.logger.Error(context.Background(), "Failed to close Kafka producer", err)
			return err
		}
		p.logger.Info(context.Background(), "Kafka producer closed")
	}
	return nil
}

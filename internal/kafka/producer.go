package kafka

import (
	"context"
	"encoding/json"

	"ms-booking/internal/config"
	"ms-booking/internal/models"

	"github.com/segmentio/kafka-go"
)

// Producer exports booking lifecycle events to downstream consumers (dashboards,
// reporting). Disabled mode turns every publish into a no-op so local setups run
// without a broker.
type Producer struct {
	writer  *kafka.Writer
	topics  config.TopicConfig
	enabled bool
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	if !cfg.Enabled {
		return &Producer{enabled: false}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, topics: cfg.Topics, enabled: true}
}

func (p *Producer) publish(topic string, key string, payload interface{}) error {
	if !p.enabled {
		return nil
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) PublishBookingCreated(booking models.Booking) error {
	return p.publish(p.topics.BookingCreated, booking.BookingID, booking)
}

func (p *Producer) PublishBookingCheckedIn(booking models.Booking) error {
	return p.publish(p.topics.BookingCheckedIn, booking.BookingID, booking)
}

func (p *Producer) PublishBookingCheckedOut(booking models.Booking) error {
	return p.publish(p.topics.BookingCheckedOut, booking.BookingID, booking)
}

func (p *Producer) PublishBookingExtended(booking models.Booking) error {
	return p.publish(p.topics.BookingExtended, booking.BookingID, booking)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

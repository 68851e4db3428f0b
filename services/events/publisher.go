// Package events publishes settlement outcomes for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

const (
	TypeSettlementConfirmed = "settlement.confirmed"
	TypeSettlementRejected  = "settlement.rejected"
	TypeEnrollmentClaimed   = "enrollment.claimed"
)

// SettlementEvent is the wire shape of every settlement outcome.
type SettlementEvent struct {
	Type           string    `json:"type"`
	SettlementID   uint      `json:"settlement_id"`
	CourseID       uint      `json:"course_id"`
	UserID         *uint     `json:"user_id,omitempty"`
	GatewayOrderID string    `json:"gateway_order_id,omitempty"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher emits settlement events.
type Publisher interface {
	Publish(ctx context.Context, evt SettlementEvent) error
	Close() error
}

// KafkaPublisher writes events keyed by settlement id so a settlement's
// events stay on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt SettlementEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "marshal settlement event")
	}
	msg := kafka.Message{
		Key:   []byte(keyFor(evt)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s", evt.Type)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, SettlementEvent) error { return nil }
func (NopPublisher) Close() error                                  { return nil }

func keyFor(evt SettlementEvent) string {
	return "settlement-" + strconv.FormatUint(uint64(evt.SettlementID), 10)
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/race-settlement/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic per event type, keyed by race ID
// so every event for a race lands on the same partition.
type KafkaPublisher struct {
	betPlaced   messageWriter
	raceSettled messageWriter
	logger      *logrus.Logger
}

// NewKafkaPublisher creates writers for the bet-placed and race-settled topics
func NewKafkaPublisher(brokers []string, betPlacedTopic, raceSettledTopic string, logger *logrus.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not provided")
	}

	return &KafkaPublisher{
		betPlaced:   newWriter(brokers, betPlacedTopic),
		raceSettled: newWriter(brokers, raceSettledTopic),
		logger:      logger,
	}, nil
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}
}

// BetPlaced publishes a bet_placed event
func (p *KafkaPublisher) BetPlaced(ctx context.Context, bet *models.Bet) error {
	return p.publish(ctx, p.betPlaced, betPlacedEnvelope(bet))
}

// RaceSettled publishes a race_settled event
func (p *KafkaPublisher) RaceSettled(ctx context.Context, result *models.SettlementResult) error {
	return p.publish(ctx, p.raceSettled, raceSettledEnvelope(result))
}

func (p *KafkaPublisher) publish(ctx context.Context, w messageWriter, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", env.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(env.RaceID),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.Type)},
		},
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", env.Type, err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_type": env.Type,
		"race_id":    env.RaceID,
	}).Debug("Published event")
	return nil
}

// Close flushes and closes both writers
func (p *KafkaPublisher) Close() error {
	return errors.Join(p.betPlaced.Close(), p.raceSettled.Close())
}

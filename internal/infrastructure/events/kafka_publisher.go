// Package events publica los hechos del ledger en Kafka una vez confirmados.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Publisher es un inventory.EventPublisher que además se cierra al apagar el servicio.
type Publisher interface {
	inventory.EventPublisher
	Close() error
}

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
)

// Envelope es el mensaje que viaja por el tópico.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	Data          json.RawMessage `json:"data"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher escribe eventos del ledger con el número de documento como clave,
// así todos los eventos de un documento caen en la misma partición y conservan el orden.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	source string
	log    *logger.Logger
}

// NewKafkaPublisher crea el productor contra los brokers dados.
func NewKafkaPublisher(brokers []string, topic, source string, log *logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaPublisher(w, topic, source, log)
}

func newKafkaPublisher(w messageWriter, topic, source string, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &KafkaPublisher{writer: w, topic: topic, source: source, log: log.Component("kafka_publisher")}
}

// Publish envía los eventos en una sola escritura.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...inventory.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := p.message(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(msgs), p.topic, err)
	}
	p.log.Debug().Int("events", len(msgs)).Str("topic", p.topic).Msg("eventos publicados")
	return nil
}

func (p *KafkaPublisher) message(e inventory.LedgerEvent) (kafka.Message, error) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     string(e.Type),
		AggregateID:   e.AggregateID,
		CorrelationID: e.CorrelationID,
		OccurredAt:    e.OccurredAt.UTC(),
		Source:        p.source,
		Data:          data,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s envelope: %w", e.Type, err)
	}
	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(e.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "source", Value: []byte(p.source)},
		},
	}
	if e.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}
	return msg, nil
}

// Close vacía los mensajes pendientes y cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher descarta los eventos (sin brokers configurados).
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, ...inventory.LedgerEvent) error { return nil }

// Close no hace nada.
func (NopPublisher) Close() error { return nil }

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event kinds published on the appointment topic.
const (
	EventCreated       = "appointment.created"
	EventStatusChanged = "appointment.status_changed"
	EventRescheduled   = "appointment.rescheduled"
	EventReminder      = "appointment.reminder"
)

// AppointmentEvent is the payload written to the event stream.
type AppointmentEvent struct {
	Kind          string    `json:"kind"`
	AppointmentID string    `json:"appointmentId"`
	HumanID       string    `json:"humanId"`
	PatientID     string    `json:"patientId"`
	DoctorID      string    `json:"doctorId,omitempty"`
	ScheduledAt   time.Time `json:"scheduledAt"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Producer publishes appointment events to Kafka. A nil Producer is valid
// and drops everything, so a missing broker just disables the stream.
type Producer struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewProducer builds a producer for the broker and topic. Returns nil when
// broker is empty.
func NewProducer(broker, topic string, log zerolog.Logger) *Producer {
	if broker == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, log: log}
}

// Publish sends one event, keyed by appointment ID so an appointment's
// events stay ordered within a partition.
func (p *Producer) Publish(ctx context.Context, event AppointmentEvent) error {
	if p == nil {
		return nil
	}
	event.OccurredAt = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AppointmentID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("produce %s: %w", event.Kind, err)
	}

	p.log.Debug().
		Str("kind", event.Kind).
		Str("appointment", event.HumanID).
		Msg("appointment event published")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

// Package events publishes order lifecycle notifications to an external
// broker so other systems (printers, displays, analytics) can follow along.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/innstay/api/internal/config"
)

const (
	SubjectOrderCreated = "orders.created"
	SubjectOrderStatus  = "orders.status"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Publisher sends a payload on a subject. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}

type OrderEvent struct {
	EventType      string    `json:"event_type"`
	OccurredAt     time.Time `json:"occurred_at"`
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	TableNumber    *int      `json:"table_number,omitempty"`
}

// New builds the publisher selected by cfg.Driver.
func New(cfg config.EventsConfig, logger *slog.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", "log":
		return NewLogPublisher(logger), nil
	case "nats":
		return NewNATSPublisher(cfg.NATSURL)
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQURL)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.Topic)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// Notifier encodes order events and hands them to a Publisher. Failures are
// logged and swallowed; a broker outage must not fail the request that
// changed the order.
type Notifier struct {
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewNotifier(pub Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, logger: logger, now: time.Now}
}

func (n *Notifier) OrderCreated(ctx context.Context, ev OrderEvent) {
	ev.EventType = EventOrderCreated
	n.emit(ctx, SubjectOrderCreated, ev)
}

func (n *Notifier) OrderStatusChanged(ctx context.Context, ev OrderEvent) {
	ev.EventType = EventOrderStatusChanged
	n.emit(ctx, SubjectOrderStatus, ev)
}

func (n *Notifier) emit(ctx context.Context, subject string, ev OrderEvent) {
	if n == nil || n.pub == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = n.now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("encode order event", "error", err)
		return
	}
	if err := n.pub.Publish(ctx, subject, payload); err != nil {
		n.logger.Warn("publish order event", "subject", subject, "order_id", ev.OrderID, "error", err)
	}
}

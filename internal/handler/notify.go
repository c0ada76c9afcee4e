package handler

import (
	"context"
	"log/slog"

	"github.com/innstay/api/internal/database"
	"github.com/innstay/api/internal/events"
	"github.com/innstay/api/internal/ws"
)

// OrderNotifier is told about order changes after they are stored.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order database.Order, table *database.DiningTable)
	OrderStatusChanged(ctx context.Context, order database.Order, previous string)
}

// OrderBroadcaster pushes order changes to websocket subscribers and to the
// event broker. Either side may be nil.
type OrderBroadcaster struct {
	hub    *ws.Hub
	events *events.Notifier
}

func NewOrderBroadcaster(hub *ws.Hub, notifier *events.Notifier) *OrderBroadcaster {
	return &OrderBroadcaster{hub: hub, events: notifier}
}

func (b *OrderBroadcaster) OrderCreated(ctx context.Context, order database.Order, table *database.DiningTable) {
	ev := orderEvent(order)
	if table != nil {
		n := int(table.Number)
		ev.TableNumber = &n
	}
	b.events.OrderCreated(ctx, ev)
	b.broadcast(events.EventOrderCreated, order)
}

func (b *OrderBroadcaster) OrderStatusChanged(ctx context.Context, order database.Order, previous string) {
	ev := orderEvent(order)
	ev.PreviousStatus = previous
	b.events.OrderStatusChanged(ctx, ev)
	b.broadcast(events.EventOrderStatusChanged, order)
}

// broadcast sends to staff boards and to guests tracking this order.
func (b *OrderBroadcaster) broadcast(eventType string, order database.Order) {
	if b.hub == nil {
		return
	}
	ev, err := ws.NewEvent(eventType, dbOrderToResponse(order))
	if err != nil {
		slog.Error("build websocket event", "error", err)
		return
	}
	b.hub.Broadcast(ws.TopicOrders, ev)
	b.hub.Broadcast(ws.OrderTopic(order.ID), ev)
}

func orderEvent(order database.Order) events.OrderEvent {
	return events.OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
	}
}

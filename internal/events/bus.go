// Package events publishes order lifecycle events to kafka in the service's
// envelope format. Publishing is fire-and-forget; the store remains the
// source of truth.
package events

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
	"github.com/canteenhq/go-canteen-dining/internal/kafkax"
)

type Bus struct {
	Registered *kafkax.Producer
	Confirmed  *kafkax.Producer
	Cancelled  *kafkax.Producer
	Service    string
}

func (b *Bus) OrderRegistered(traceID string, o *dining.DiningOrder) {
	b.publish(b.Registered, dining.EventOrderRegistered, traceID, o.ID,
		dining.OrderRegisteredPayload{
			OrderID:    o.ID,
			UserID:     o.UserID,
			Date:       o.Date,
			MealType:   o.MealType,
			MenuID:     o.MenuID,
			TotalCents: o.TotalCents,
		})
}

func (b *Bus) OrderConfirmed(traceID string, o *dining.DiningOrder) {
	var at time.Time
	if o.ActualDiningTime != nil {
		at = *o.ActualDiningTime
	}
	b.publish(b.Confirmed, dining.EventOrderConfirmed, traceID, o.ID,
		dining.OrderConfirmedPayload{
			OrderID:          o.ID,
			UserID:           o.UserID,
			Date:             o.Date,
			MealType:         o.MealType,
			ConfirmationType: o.ConfirmationType,
			ConfirmedBy:      o.ConfirmedBy,
			ActualDiningTime: at,
		})
}

func (b *Bus) OrderCancelled(traceID string, o *dining.DiningOrder, cancelledBy string) {
	b.publish(b.Cancelled, dining.EventOrderCancelled, traceID, o.ID,
		dining.OrderCancelledPayload{
			OrderID:     o.ID,
			UserID:      o.UserID,
			Date:        o.Date,
			MealType:    o.MealType,
			CancelledBy: cancelledBy,
		})
}

func (b *Bus) publish(p *kafkax.Producer, eventType, traceID, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := dining.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      b.Service,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(dining.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

package dining

import (
	"encoding/json"
	"time"
)

const (
	EventOrderRegistered = "OrderRegistered"
	EventOrderConfirmed  = "OrderConfirmed"
	EventOrderCancelled  = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderRegisteredPayload struct {
	OrderID    string   `json:"order_id"`
	UserID     string   `json:"user_id"`
	Date       string   `json:"date"`
	MealType   MealType `json:"meal_type"`
	MenuID     string   `json:"menu_id,omitempty"`
	TotalCents int      `json:"total_cents"`
}

type OrderConfirmedPayload struct {
	OrderID          string           `json:"order_id"`
	UserID           string           `json:"user_id"`
	Date             string           `json:"date"`
	MealType         MealType         `json:"meal_type"`
	ConfirmationType ConfirmationType `json:"confirmation_type"`
	ConfirmedBy      string           `json:"confirmed_by,omitempty"`
	ActualDiningTime time.Time        `json:"actual_dining_time"`
}

type OrderCancelledPayload struct {
	OrderID     string   `json:"order_id"`
	UserID      string   `json:"user_id"`
	Date        string   `json:"date"`
	MealType    MealType `json:"meal_type"`
	CancelledBy string   `json:"cancelled_by"`
}

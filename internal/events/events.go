package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// Type names an order lifecycle event.
type Type string

const (
	OrderCreated       Type = "OrderCreated"
	OrderStatusChanged Type = "OrderStatusChanged"
	OrderCancelled     Type = "OrderCancelled"
)

const envelopeVersion = 1

// Envelope wraps every published event. CorrelationID is the order id, which
// is also the partition key so one order's events stay ordered.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     Type            `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// OrderPayload is shared by all order events. Previous is set on status changes only.
type OrderPayload struct {
	OrderID  int64              `json:"order_id"`
	UserID   int64              `json:"user_id"`
	Status   domain.OrderStatus `json:"status"`
	Previous domain.OrderStatus `json:"previous_status,omitempty"`
	Total    decimal.Decimal    `json:"total"`
	Items    []ItemQty          `json:"items"`
}

// NewOrderPayload summarises o for an event.
func NewOrderPayload(o domain.Order) OrderPayload {
	items := make([]ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemQty{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return OrderPayload{OrderID: o.ID, UserID: o.UserID, Status: o.Status, Total: o.Total, Items: items}
}

// NewEnvelope wraps payload into a fresh envelope.
func NewEnvelope(producer string, typ Type, orderID int64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     typ,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       raw,
	}, nil
}

// Decode unmarshals the payload of env into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	err := json.Unmarshal(env.Payload, &t)
	return t, err
}

// Publisher hands envelopes to a transport.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }

// Recorder keeps published envelopes in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, env Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, env)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, e := range evs {
		out[i] = e.EventType
	}
	return out
}

package entities

import (
	"context"
	"time"
)

type State string

const (
	StateInitiated            State = "INITIATED"
	StateInventoryPending     State = "INVENTORY_RESERVATION_PENDING"
	StatePaymentPending       State = "PAYMENT_PROCESSING_PENDING"
	StateOrderPending         State = "ORDER_CREATION_PENDING"
	StateCartClearancePending State = "CART_CLEARANCE_PENDING"
	StateCompleted            State = "COMPLETED"
	StateFailed               State = "FAILED"
	StateCompensating         State = "COMPENSATING"
)

// Compensation step names kept in SagaContext.PendingCompensations
const (
	CompensationInventory = "inventory"
	CompensationPayment   = "payment"
)

type CartItem struct {
	ProductId string `bson:"product_id" json:"product_id"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

type Cart struct {
	Items      []CartItem `bson:"items" json:"items"`
	TotalPrice float64    `bson:"total_price" json:"total_price"`
}

type Reservation struct {
	ReservationId string     `bson:"reservation_id" json:"reservation_id"`
	Items         []CartItem `bson:"items,omitempty" json:"items,omitempty"`
}

type Payment struct {
	TransactionId string  `bson:"transaction_id" json:"transaction_id"`
	Amount        float64 `bson:"amount" json:"amount"`
}

type Order struct {
	OrderId string  `bson:"order_id" json:"order_id"`
	Total   float64 `bson:"total,omitempty" json:"total,omitempty"`
}

type StepError struct {
	Step   string `bson:"step" json:"step"`
	Reason string `bson:"reason" json:"reason"`
}

// SagaContext accumulates the facts collected while the saga advances.
// Fields are only ever added or overwritten with more complete data,
// never cleared.
type SagaContext struct {
	CartId      string       `bson:"cart_id" json:"cart_id"`
	UserId      string       `bson:"user_id" json:"user_id"`
	Cart        Cart         `bson:"cart_details" json:"cart_details"`
	Reservation *Reservation `bson:"reservation_details,omitempty" json:"reservation_details,omitempty"`
	Payment     *Payment     `bson:"payment_details,omitempty" json:"payment_details,omitempty"`
	Order       *Order       `bson:"order_details,omitempty" json:"order_details,omitempty"`
	Errors      []StepError  `bson:"errors" json:"errors"`

	// Compensation commands published but not yet acknowledged.
	PendingCompensations []string `bson:"pending_compensations,omitempty" json:"pending_compensations,omitempty"`
}

type Saga struct {
	Id                string      `bson:"_id" json:"id"`
	State             State       `bson:"state" json:"state"`
	Context           SagaContext `bson:"context" json:"context"`
	ProcessedEventIds []string    `bson:"processed_event_ids" json:"processed_event_ids"`
	// Version guards Replace against concurrent writers.
	Version int64 `bson:"version" json:"version"`
	// Deadline is the unix time after which a non-terminal saga is
	// considered stuck; 0 once the saga is terminal.
	Deadline  int64 `bson:"deadline" json:"deadline"`
	CreatedAt int64 `bson:"created_at" json:"created_at"`
	UpdatedAt int64 `bson:"updated_at" json:"updated_at"`
}

func (s *Saga) IsTerminal() bool {
	return s.State == StateCompleted || s.State == StateFailed
}

func (s *Saga) HasProcessed(eventId string) bool {
	for _, id := range s.ProcessedEventIds {
		if id == eventId {
			return true
		}
	}
	return false
}

func (s *Saga) MarkProcessed(eventId string) {
	s.ProcessedEventIds = append(s.ProcessedEventIds, eventId)
}

func (s *Saga) RecordError(step, reason string) {
	s.Context.Errors = append(s.Context.Errors, StepError{step, reason})
}

// AckCompensation removes step from the pending compensations and reports
// whether any remain.
func (s *Saga) AckCompensation(step string) bool {
	pending := s.Context.PendingCompensations[:0]
	for _, p := range s.Context.PendingCompensations {
		if p != step {
			pending = append(pending, p)
		}
	}
	s.Context.PendingCompensations = pending
	return len(pending) > 0
}

func (s *Saga) Touch(ttl time.Duration) {
	now := time.Now().Unix()
	s.UpdatedAt = now
	if s.IsTerminal() {
		s.Deadline = 0
	} else {
		s.Deadline = now + int64(ttl/time.Second)
	}
}

type CheckoutOrchestrator interface {
	IsActive() bool
	Initiate(ctx context.Context, cartId, userId string, cart Cart) (string, error)
}

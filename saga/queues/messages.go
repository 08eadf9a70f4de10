package queues

import (
	"fmt"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
)

// Event types published by the downstream services (and the initiator).
const (
	EventCheckoutInitiated        = "CheckoutInitiated"
	EventInventoryReserved        = "InventoryReserved"
	EventInventoryReservationFail = "InventoryReservationFailed"
	EventPaymentProcessed         = "PaymentProcessed"
	EventPaymentFailed            = "PaymentFailed"
	EventOrderCreated             = "OrderCreated"
	EventOrderCreationFailed      = "OrderCreationFailed"
	EventCartCleared              = "CartCleared"
	EventCartClearanceFailed      = "CartClearanceFailed"
	EventInventoryCompensated     = "InventoryCompensated"
	EventPaymentCompensated       = "PaymentCompensated"
	// Synthetic event injected by the expiry sweeper, never read from the bus.
	EventStepTimedOut = "StepTimedOut"
)

// Command types addressed to the downstream services.
const (
	CmdReserveInventory    = "ReserveInventory"
	CmdProcessPayment      = "ProcessPayment"
	CmdCreateOrder         = "CreateOrder"
	CmdClearCart           = "ClearCart"
	CmdCompensateInventory = "CompensateInventory"
	CmdCompensatePayment   = "CompensatePayment"
)

// Event is an inbound notification correlated to a saga.
type Event struct {
	Type        string                `json:"type"`
	SagaId      string                `json:"saga_id"`
	EventId     string                `json:"event_id,omitempty"`
	Reason      string                `json:"reason,omitempty"`
	CartId      string                `json:"cart_id,omitempty"`
	UserId      string                `json:"user_id,omitempty"`
	Cart        *entities.Cart        `json:"cart_details,omitempty"`
	Reservation *entities.Reservation `json:"reservation_details,omitempty"`
	Payment     *entities.Payment     `json:"payment_details,omitempty"`
	Order       *entities.Order       `json:"order_details,omitempty"`
}

// Command is an outbound directive for a downstream service. ReplyTo names
// the topic where the service should publish its result event.
type Command struct {
	Type        string                `json:"type"`
	SagaId      string                `json:"saga_id"`
	EventId     string                `json:"event_id"`
	ReplyTo     string                `json:"reply_to_topic"`
	CartId      string                `json:"cart_id,omitempty"`
	UserId      string                `json:"user_id,omitempty"`
	Items       []entities.CartItem   `json:"items,omitempty"`
	Amount      float64               `json:"amount,omitempty"`
	Cart        *entities.Cart        `json:"cart_details,omitempty"`
	Reservation *entities.Reservation `json:"reservation_details,omitempty"`
	Payment     *entities.Payment     `json:"payment_details,omitempty"`
}

// InboundMessage is a raw message as delivered by the transport.
type InboundMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Value     []byte
}

// PositionalId is the fallback idempotency key for events that carry no
// event id of their own.
func (m *InboundMessage) PositionalId() string {
	return fmt.Sprintf("%s-%d-%d", m.Topic, m.Partition, m.Offset)
}

package saga

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/queues"
)

func (o *Orchestrator) buildTransitions() map[transitionKey]handler {
	return map[transitionKey]handler{
		{entities.StateInitiated, queues.EventCheckoutInitiated}:               o.onCheckoutInitiated,
		{entities.StateInventoryPending, queues.EventInventoryReserved}:        o.onInventoryReserved,
		{entities.StateInventoryPending, queues.EventInventoryReservationFail}: o.onInventoryReservationFailed,
		{entities.StatePaymentPending, queues.EventPaymentProcessed}:           o.onPaymentProcessed,
		{entities.StatePaymentPending, queues.EventPaymentFailed}:              o.onPaymentFailed,
		{entities.StateOrderPending, queues.EventOrderCreated}:                 o.onOrderCreated,
		{entities.StateOrderPending, queues.EventOrderCreationFailed}:          o.onOrderCreationFailed,
		{entities.StateCartClearancePending, queues.EventCartCleared}:          o.onCartCleared,
		{entities.StateCartClearancePending, queues.EventCartClearanceFailed}:  o.onCartClearanceFailed,

		{entities.StateCompensating, queues.EventInventoryCompensated}: o.onCompensationAck(entities.CompensationInventory),
		{entities.StateCompensating, queues.EventPaymentCompensated}:   o.onCompensationAck(entities.CompensationPayment),

		{entities.StateInitiated, queues.EventStepTimedOut}:            o.onInitiatedTimedOut,
		{entities.StateInventoryPending, queues.EventStepTimedOut}:     o.onInventoryReservationFailed,
		{entities.StatePaymentPending, queues.EventStepTimedOut}:       o.onPaymentFailed,
		{entities.StateOrderPending, queues.EventStepTimedOut}:         o.onOrderCreationFailed,
		{entities.StateCartClearancePending, queues.EventStepTimedOut}: o.onCartClearanceFailed,
		{entities.StateCompensating, queues.EventStepTimedOut}:         o.onCompensationTimedOut,
	}
}

func (o *Orchestrator) onCheckoutInitiated(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	if err := o.publishCommand(ctx, o.topics.Inventory, &queues.Command{
		Type:   queues.CmdReserveInventory,
		SagaId: sg.Id,
		CartId: sg.Context.CartId,
		UserId: sg.Context.UserId,
		Items:  sg.Context.Cart.Items,
	}); err != nil {
		return err
	}
	sg.State = entities.StateInventoryPending
	return nil
}

func (o *Orchestrator) onInventoryReserved(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.Context.Reservation = ev.Reservation
	if err := o.publishCommand(ctx, o.topics.Payment, &queues.Command{
		Type:   queues.CmdProcessPayment,
		SagaId: sg.Id,
		UserId: sg.Context.UserId,
		Amount: sg.Context.Cart.TotalPrice,
	}); err != nil {
		return err
	}
	sg.State = entities.StatePaymentPending
	return nil
}

// Nothing was reserved, so the saga fails without compensation.
func (o *Orchestrator) onInventoryReservationFailed(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.RecordError("inventory", ev.Reason)
	sg.State = entities.StateFailed
	log.Infof("saga %s failed: inventory reservation rejected", sg.Id)
	return nil
}

func (o *Orchestrator) onPaymentProcessed(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.Context.Payment = ev.Payment
	if err := o.publishCommand(ctx, o.topics.Order, &queues.Command{
		Type:        queues.CmdCreateOrder,
		SagaId:      sg.Id,
		UserId:      sg.Context.UserId,
		Cart:        &sg.Context.Cart,
		Payment:     sg.Context.Payment,
		Reservation: sg.Context.Reservation,
	}); err != nil {
		return err
	}
	sg.State = entities.StateOrderPending
	return nil
}

func (o *Orchestrator) onPaymentFailed(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.RecordError("payment", ev.Reason)
	if err := o.compensateInventory(ctx, sg); err != nil {
		return err
	}
	sg.Context.PendingCompensations = []string{entities.CompensationInventory}
	sg.State = entities.StateCompensating
	return nil
}

func (o *Orchestrator) onOrderCreated(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.Context.Order = ev.Order
	if err := o.publishCommand(ctx, o.topics.Cart, &queues.Command{
		Type:   queues.CmdClearCart,
		SagaId: sg.Id,
		UserId: sg.Context.UserId,
		CartId: sg.Context.CartId,
	}); err != nil {
		return err
	}
	sg.State = entities.StateCartClearancePending
	return nil
}

// Payment is unwound before inventory, the reverse of acquisition order.
func (o *Orchestrator) onOrderCreationFailed(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.RecordError("order_creation", ev.Reason)
	if err := o.compensatePayment(ctx, sg); err != nil {
		return err
	}
	if err := o.compensateInventory(ctx, sg); err != nil {
		return err
	}
	sg.Context.PendingCompensations = []string{entities.CompensationPayment, entities.CompensationInventory}
	sg.State = entities.StateCompensating
	return nil
}

func (o *Orchestrator) onCartCleared(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.State = entities.StateCompleted
	log.Infof("saga %s completed", sg.Id)
	return nil
}

// The order is already placed, so nothing gets reversed; the saga waits in
// COMPENSATING until the sweeper resolves it.
func (o *Orchestrator) onCartClearanceFailed(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.RecordError("cart_clearance", ev.Reason)
	sg.State = entities.StateCompensating
	return nil
}

func (o *Orchestrator) onCompensationAck(step string) handler {
	return func(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
		if remaining := sg.AckCompensation(step); !remaining {
			sg.State = entities.StateFailed
			log.Infof("saga %s compensated and closed", sg.Id)
		}
		return nil
	}
}

// An INITIATED record past its deadline means CheckoutInitiated never made
// it to the bus; re-emit it instead of failing the saga.
func (o *Orchestrator) onInitiatedTimedOut(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	log.Warnf("saga %s stuck in INITIATED, re-emitting CheckoutInitiated", sg.Id)
	return o.publishEvent(ctx, &queues.Event{
		Type:   queues.EventCheckoutInitiated,
		SagaId: sg.Id,
		CartId: sg.Context.CartId,
		UserId: sg.Context.UserId,
		Cart:   &sg.Context.Cart,
	})
}

func (o *Orchestrator) onCompensationTimedOut(ctx context.Context, sg *entities.Saga, ev *queues.Event) error {
	sg.RecordError("compensation", ev.Reason)
	sg.State = entities.StateFailed
	log.Warnf("saga %s closed with unacknowledged compensations %v", sg.Id, sg.Context.PendingCompensations)
	return nil
}

func (o *Orchestrator) compensateInventory(ctx context.Context, sg *entities.Saga) error {
	return o.publishCommand(ctx, o.topics.Inventory, &queues.Command{
		Type:        queues.CmdCompensateInventory,
		SagaId:      sg.Id,
		UserId:      sg.Context.UserId,
		CartId:      sg.Context.CartId,
		Items:       sg.Context.Cart.Items,
		Reservation: sg.Context.Reservation,
	})
}

func (o *Orchestrator) compensatePayment(ctx context.Context, sg *entities.Saga) error {
	return o.publishCommand(ctx, o.topics.Payment, &queues.Command{
		Type:    queues.CmdCompensatePayment,
		SagaId:  sg.Id,
		UserId:  sg.Context.UserId,
		Payment: sg.Context.Payment,
	})
}

package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/domain/entities"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/queues"
	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/storages"
)

var (
	ErrStoreUnavailable   = errors.New("saga store unavailable")
	ErrPublishUnavailable = errors.New("event publish unavailable")
	ErrNotActive          = errors.New("orchestrator not active")
)

const (
	opTimeout        = 10 * time.Second
	maxApplyAttempts = 3
	sweepBatchSize   = 100
	listenRetryDelay = 5 * time.Second
)

// Topics names the kafka topics the orchestrator talks over.
type Topics struct {
	Initiated string
	Events    string
	Inventory string
	Payment   string
	Order     string
	Cart      string
}

type transitionKey struct {
	state entities.State
	event string
}

type handler func(ctx context.Context, sg *entities.Saga, ev *queues.Event) error

// Orchestrator owns the checkout transaction state: it creates saga records,
// reacts to downstream events and drives every record to a terminal state.
type Orchestrator struct {
	store         storages.Storage
	producer      queues.Producer
	consumer      queues.Consumer
	topics        Topics
	ttl           time.Duration
	sweepInterval time.Duration
	listenRetry   time.Duration
	active        int32
	transitions   map[transitionKey]handler
}

func NewOrchestrator(store storages.Storage, producer queues.Producer, consumer queues.Consumer, topics Topics, ttl, sweepInterval time.Duration) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		producer:      producer,
		consumer:      consumer,
		topics:        topics,
		ttl:           ttl,
		sweepInterval: sweepInterval,
		listenRetry:   listenRetryDelay,
	}
	o.transitions = o.buildTransitions()
	return o
}

func (o *Orchestrator) IsActive() bool {
	return atomic.LoadInt32(&o.active) == 1
}

// Start runs the consumption loop and the expiry sweeper until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&o.active, 0, 1) {
		log.Warn("saga orchestrator already active")
		return
	}
	go o.runListener(ctx)
	go o.RunSweeper(ctx, o.sweepInterval)
	log.Info("saga orchestrator has been started")
}

// runListener keeps the consumption loop alive. A consume failure (open
// circuit, store blip) stops Listen with the triggering offset uncommitted,
// so the loop waits out the pause and re-enters Listen to get the message
// redelivered.
func (o *Orchestrator) runListener(ctx context.Context) {
	defer atomic.StoreInt32(&o.active, 0)
	for {
		err := o.consumer.Listen(ctx, o.onMessage)
		if err == nil || ctx.Err() != nil {
			log.Info("saga listener has been stopped")
			return
		}
		log.WithError(err).Errorf("saga listener failed, restarting in %s", o.listenRetry)
		select {
		case <-time.After(o.listenRetry):
		case <-ctx.Done():
			return
		}
	}
}

// Initiate creates the saga record and emits the CheckoutInitiated event.
// The record is durable before the event goes out: a publish failure leaves
// an INITIATED record behind for the reconciliation sweep.
func (o *Orchestrator) Initiate(ctx context.Context, cartId, userId string, cart entities.Cart) (string, error) {
	if !o.IsActive() {
		return "", ErrNotActive
	}

	now := time.Now().Unix()
	sg := &entities.Saga{
		Id:    uuid.NewString(),
		State: entities.StateInitiated,
		Context: entities.SagaContext{
			CartId: cartId,
			UserId: userId,
			Cart:   cart,
			Errors: []entities.StepError{},
		},
		ProcessedEventIds: []string{},
		Deadline:          now + int64(o.ttl/time.Second),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := o.store.Create(ctx, sg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ev := queues.Event{
		Type:    queues.EventCheckoutInitiated,
		SagaId:  sg.Id,
		EventId: uuid.NewString(),
		CartId:  cartId,
		UserId:  userId,
		Cart:    &cart,
	}
	if err := o.publishEvent(ctx, &ev); err != nil {
		log.WithError(err).Errorf("saga %s persisted but CheckoutInitiated was not published", sg.Id)
		return "", fmt.Errorf("%w: %v", ErrPublishUnavailable, err)
	}

	log.Infof("checkout saga %s initiated", sg.Id)
	return sg.Id, nil
}

func (o *Orchestrator) onMessage(m queues.InboundMessage) error {
	var ev queues.Event
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		log.WithError(err).Error("could not parse message: ", string(m.Value))
		return nil
	}
	if ev.SagaId == "" {
		log.Warn("received event without saga id, dropping")
		return nil
	}

	eventId := ev.EventId
	if eventId == "" {
		eventId = m.PositionalId()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return o.apply(ctx, &ev, eventId)
}

// apply runs one event through the state machine, retrying on an optimistic
// conflict with a concurrently updated record.
func (o *Orchestrator) apply(ctx context.Context, ev *queues.Event, eventId string) error {
	for attempt := 1; ; attempt++ {
		err := o.applyOnce(ctx, ev, eventId)
		if err == nil || attempt >= maxApplyAttempts || !errors.Is(err, storages.ErrVersionConflict) {
			return err
		}
		log.Warnf("version conflict applying event %s to saga %s, retrying", eventId, ev.SagaId)
	}
}

func (o *Orchestrator) applyOnce(ctx context.Context, ev *queues.Event, eventId string) error {
	sg, err := o.store.Get(ctx, ev.SagaId)
	if err != nil {
		if errors.Is(err, storages.ErrSagaNotFound) {
			if ev.Type == queues.EventCheckoutInitiated {
				log.Errorf("CheckoutInitiated received but no record exists for saga %s, initial creation must have failed", ev.SagaId)
			} else {
				log.Warnf("no record for saga %s, dropping event %q", ev.SagaId, ev.Type)
			}
			return nil
		}
		return err
	}

	if sg.IsTerminal() {
		log.Infof("saga %s already %s, dropping event %q", sg.Id, sg.State, ev.Type)
		return nil
	}
	if sg.HasProcessed(eventId) {
		log.Debugf("event %s for saga %s already processed, skipping", eventId, sg.Id)
		return nil
	}
	sg.MarkProcessed(eventId)

	if h, ok := o.transitions[transitionKey{sg.State, ev.Type}]; ok {
		log.Infof("processing event %q for saga %s in state %s", ev.Type, sg.Id, sg.State)
		if err = h(ctx, sg, ev); err != nil {
			return err
		}
	} else {
		log.Warnf("no transition for event %q in state %s for saga %s", ev.Type, sg.State, sg.Id)
	}

	sg.Touch(o.ttl)
	return o.store.Replace(ctx, sg)
}

// RunSweeper periodically fails over sagas whose deadline passed without a
// downstream reply, feeding them through the regular transition path.
func (o *Orchestrator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.sweep()
		case <-ctx.Done():
			log.Info("saga expiry sweeper has been stopped")
			return
		}
	}
}

func (o *Orchestrator) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	sagas, err := o.store.FetchExpired(ctx, time.Now().Unix(), sweepBatchSize)
	if err != nil {
		log.WithError(err).Error("failed to fetch expired sagas")
		return
	}

	for i := range sagas {
		ev := queues.Event{
			Type:   queues.EventStepTimedOut,
			SagaId: sagas[i].Id,
			Reason: "step timed out",
		}
		if err = o.apply(ctx, &ev, uuid.NewString()); err != nil {
			log.WithError(err).Errorf("failed to expire saga %s", sagas[i].Id)
		}
	}
}

func (o *Orchestrator) publishEvent(ctx context.Context, ev *queues.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return o.producer.Publish(ctx, o.topics.Initiated, ev.SagaId, payload)
}

func (o *Orchestrator) publishCommand(ctx context.Context, topic string, cmd *queues.Command) error {
	cmd.EventId = uuid.NewString()
	cmd.ReplyTo = o.topics.Events
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	log.Infof("publishing %s command for saga %s", cmd.Type, cmd.SagaId)
	return o.producer.Publish(ctx, topic, cmd.SagaId, payload)
}

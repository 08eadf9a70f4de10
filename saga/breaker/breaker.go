package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NitheshChakaravarthySeelan/community-platform/checkout/saga/queues"
)

// ErrOpenCircuit indicates the breaker rejected the call without trying
// the underlying publish.
var ErrOpenCircuit = errors.New("circuit breaker is open")

const (
	DefaultMaxFailures = 5
	DefaultCooldown    = 60 * time.Second
)

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker stops publish attempts after MaxFailures consecutive failures and
// lets a single probe through once Cooldown elapsed.
type Breaker struct {
	mu       sync.Mutex
	maxFails int
	cooldown time.Duration
	now      func() time.Time

	state    state
	failures int
	openedAt time.Time
	probing  bool
}

func New(maxFails int, cooldown time.Duration) *Breaker {
	if maxFails < 1 {
		maxFails = DefaultMaxFailures
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Breaker{
		maxFails: maxFails,
		cooldown: cooldown,
		now:      time.Now,
		state:    stateClosed,
	}
}

func (b *Breaker) Execute(fn func() error) error {
	now := b.now()

	b.mu.Lock()
	switch b.state {
	case stateOpen:
		if now.Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpenCircuit
		}
		b.state = stateHalfOpen
	case stateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpenCircuit
		}
	}
	if b.state == stateHalfOpen {
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.probing = false
	}

	if err == nil {
		b.state = stateClosed
		b.failures = 0
		return nil
	}

	if b.state == stateHalfOpen {
		b.state = stateOpen
		b.openedAt = now
		b.failures = 0
		return err
	}

	b.failures++
	if b.failures >= b.maxFails {
		b.state = stateOpen
		b.openedAt = now
	}
	return err
}

// Producer wraps a queues.Producer so a struggling broker fails fast
// instead of stalling saga processing.
type Producer struct {
	base queues.Producer
	brk  *Breaker
}

func NewProducer(base queues.Producer, brk *Breaker) *Producer {
	return &Producer{base, brk}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return p.brk.Execute(func() error {
		return p.base.Publish(ctx, topic, key, payload)
	})
}

func (p *Producer) Close() error {
	return p.base.Close()
}

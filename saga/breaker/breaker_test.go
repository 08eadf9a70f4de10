package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroker = errors.New("broker unreachable")

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := New(5, time.Minute)

	calls := 0
	fail := func() error { calls++; return errBroker }

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Execute(fail), errBroker)
	}
	assert.Equal(t, 5, calls)

	// the sixth attempt is rejected without touching the broker
	require.ErrorIs(t, b.Execute(fail), ErrOpenCircuit)
	assert.Equal(t, 5, calls)
}

func TestBreakerHalfOpensAfterCooldown(t *testing.T) {
	b := New(5, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errBroker })
	}
	require.ErrorIs(t, b.Execute(func() error { return nil }), ErrOpenCircuit)

	// cooldown elapses, a probe goes through and closes the circuit
	now = now.Add(61 * time.Second)
	require.NoError(t, b.Execute(func() error { return nil }))
	require.NoError(t, b.Execute(func() error { return nil }))
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := New(5, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errBroker })
	}

	now = now.Add(61 * time.Second)
	require.ErrorIs(t, b.Execute(func() error { return errBroker }), errBroker)
	require.ErrorIs(t, b.Execute(func() error { return nil }), ErrOpenCircuit)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New(5, time.Minute)

	for i := 0; i < 4; i++ {
		_ = b.Execute(func() error { return errBroker })
	}
	require.NoError(t, b.Execute(func() error { return nil }))

	// the count started over, so four more failures keep the circuit closed
	for i := 0; i < 4; i++ {
		require.ErrorIs(t, b.Execute(func() error { return errBroker }), errBroker)
	}
	require.NoError(t, b.Execute(func() error { return nil }))
}

type flakyProducer struct {
	err   error
	calls int
}

func (p *flakyProducer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	p.calls++
	return p.err
}

func (p *flakyProducer) Close() error { return nil }

func TestProducerFailsFastWhileOpen(t *testing.T) {
	base := &flakyProducer{err: errBroker}
	p := NewProducer(base, New(5, time.Minute))

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, p.Publish(context.Background(), "t", "k", nil), errBroker)
	}
	require.ErrorIs(t, p.Publish(context.Background(), "t", "k", nil), ErrOpenCircuit)
	assert.Equal(t, 5, base.calls)
}

package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClearer struct {
	m       sync.Mutex
	cleared []string
	err     error
}

func (c *mockClearer) ClearCart(_ context.Context, userID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return c.err
	}
	c.cleared = append(c.cleared, userID)
	return nil
}

func newTestPoller(c CartClearer) *Poller {
	return &Poller{carts: c, log: zerolog.Nop()}
}

func TestHandle_ClearsCart(t *testing.T) {
	clearer := &mockClearer{}
	p := newTestPoller(clearer)

	err := p.handle(context.Background(), []byte(`{"checkout_id":"ch1","user_id":"123","total_amount":"1"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"123"}, clearer.cleared)
}

func TestHandle_MissingCartIsNotAnError(t *testing.T) {
	p := newTestPoller(&mockClearer{err: service.ErrCartNotFound})

	err := p.handle(context.Background(), []byte(`{"user_id":"123"}`))
	assert.NoError(t, err)
}

func TestHandle_InvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{"user_id":`},
		{"no user id", `{"checkout_id":"ch1"}`},
		{"user id wrong type", `{"user_id":123}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearer := &mockClearer{}
			p := newTestPoller(clearer)

			err := p.handle(context.Background(), []byte(tt.payload))
			assert.Error(t, err)
			assert.Empty(t, clearer.cleared)
		})
	}
}

func TestHandle_ClearError(t *testing.T) {
	p := newTestPoller(&mockClearer{err: fmt.Errorf("database error")})

	err := p.handle(context.Background(), []byte(`{"user_id":"123"}`))
	require.ErrorContains(t, err, "database error")
	assert.False(t, errors.Is(err, service.ErrCartNotFound))
}

func TestRun_ReturnsAfterCancel(t *testing.T) {
	p := NewPoller(&mockClearer{}, Config{
		Brokers: []string{"127.0.0.1:1"},
		Topic:   "checkout-completed",
		GroupID: "cart-service-test",
	}, zerolog.Nop())
	t.Cleanup(p.Close)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Go(func() { p.Run(ctx) })

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// CartClearer empties a user's cart.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// CheckoutCompletedEvent is the part of the checkout payload the cart needs.
type CheckoutCompletedEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

var errMissingUserID = errors.New("missing or invalid user_id")

// Poller clears carts once their owner has checked out.
type Poller struct {
	carts  CartClearer
	reader *kafka.Reader
	log    zerolog.Logger
}

func NewPoller(carts CartClearer, cfg Config, log zerolog.Logger) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{
		carts:  carts,
		reader: reader,
		log:    log.With().Str("component", "checkout-poller").Str("topic", cfg.Topic).Logger(),
	}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Msg("checkout poller started")
	for {
		if ctx.Err() != nil {
			p.log.Info().Msg("checkout poller stopped")
			return
		}
		p.poll(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Error().Err(err).Msg("error closing reader")
	}
}

func (p *Poller) poll(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Error().Err(err).Msg("error reading message")
		return
	}

	if err := p.handle(ctx, m.Value); err != nil {
		p.log.Error().Err(err).
			Int("partition", m.Partition).
			Int64("offset", m.Offset).
			Msg("skipping checkout event")
	}
}

// handle clears the cart named by one event. A user without a cart is not
// an error.
func (p *Poller) handle(ctx context.Context, value []byte) error {
	var event CheckoutCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if event.UserID == "" {
		return errMissingUserID
	}

	err := p.carts.ClearCart(ctx, event.UserID)
	if errors.Is(err, service.ErrCartNotFound) {
		p.log.Debug().Str("user_id", event.UserID).Msg("no cart to clear")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", event.UserID, err)
	}

	p.log.Info().
		Str("user_id", event.UserID).
		Str("checkout_id", event.CheckoutID).
		Msg("cart cleared after checkout")
	return nil
}

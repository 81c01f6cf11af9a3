package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/repository"
	"github.com/fjod/go_cart/shop-api/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// CartService implements the cart operations. Every mutating call is one
// load-mutate-save of the user's cart document; concurrent writers for the
// same user are not serialized.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
	}
}

// GetCart returns the user's cart with product details resolved on every
// line, creating and persisting an empty cart on first access.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart = domain.NewCart(userID)
		if err := s.carts.SaveCart(ctx, cart); err != nil {
			return nil, fmt.Errorf("failed to create cart: %w", err)
		}
		return cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	products, err := s.lookupProducts(ctx, cart.Items)
	if err != nil {
		return nil, err
	}
	for i, p := range products {
		if p != nil {
			cart.Items[i].Product = p.Summary()
		}
	}

	return cart, nil
}

// AddItem adds quantity units of productID, merging into an existing line.
// A zero quantity means one unit. The merged line may not exceed
// domain.MaxItemQuantity.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > domain.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	pid, ok := parseObjectID(productID)
	if !ok {
		return nil, ErrProductNotFound
	}
	product, err := s.products.GetProduct(ctx, pid)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	cart, err := s.carts.GetCart(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		cart = domain.NewCart(userID)
		cart.Items = append(cart.Items, domain.CartItem{ProductID: pid, Quantity: quantity})
		cart.TotalPrice = product.Price * float64(quantity)
	case err != nil:
		return nil, fmt.Errorf("failed to get cart: %w", err)
	default:
		if i := cart.FindItem(pid); i >= 0 {
			if quantity > domain.MaxItemQuantity-cart.Items[i].Quantity {
				return nil, ErrInvalidQuantity
			}
			cart.Items[i].Quantity += quantity
		} else {
			cart.Items = append(cart.Items, domain.CartItem{ProductID: pid, Quantity: quantity})
		}
		if err := s.recalculate(ctx, cart); err != nil {
			return nil, err
		}
	}

	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// UpdateQuantity sets the quantity of an existing line. It never creates one.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if productID == "" || quantity < 1 {
		return nil, ErrProductAndQuantityRequired
	}
	if quantity > domain.MaxItemQuantity {
		return nil, ErrInvalidQuantity
	}

	cart, i, err := s.findLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	cart.Items[i].Quantity = quantity

	if err := s.recalculate(ctx, cart); err != nil {
		return nil, err
	}
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if productID == "" {
		return nil, ErrProductIDRequired
	}

	cart, i, err := s.findLine(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)

	if err := s.recalculate(ctx, cart); err != nil {
		return nil, err
	}
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// ClearCart empties the user's cart but keeps the document.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}

	cart.Clear()
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return cart, nil
}

// findLine loads the cart and locates the line for productID.
func (s *CartService) findLine(ctx context.Context, userID, productID string) (*domain.Cart, int, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, -1, err
	}

	pid, ok := parseObjectID(productID)
	if !ok {
		return nil, -1, ErrItemNotInCart
	}
	i := cart.FindItem(pid)
	if i < 0 {
		return nil, -1, ErrItemNotInCart
	}
	return cart, i, nil
}

// recalculate recomputes the cart total from current product prices.
// Lines whose product no longer exists add nothing and stay in the cart.
func (s *CartService) recalculate(ctx context.Context, cart *domain.Cart) error {
	products, err := s.lookupProducts(ctx, cart.Items)
	if err != nil {
		return err
	}

	var total float64
	for i, p := range products {
		if p == nil {
			logger.FromContext(ctx).Debug().
				Str("product_id", cart.Items[i].ProductID.Hex()).
				Msg("product missing, excluded from cart total")
			continue
		}
		total += p.Price * float64(cart.Items[i].Quantity)
	}

	cart.TotalPrice = total
	return nil
}

// lookupProducts fetches the product of every line concurrently. The result
// is index-aligned with items; missing products are nil.
func (s *CartService) lookupProducts(ctx context.Context, items []domain.CartItem) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			p, err := s.products.GetProduct(gctx, item.ProductID)
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to get product %s: %w", item.ProductID.Hex(), err)
			}
			products[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

func parseObjectID(id string) (primitive.ObjectID, bool) {
	if id == "" {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}

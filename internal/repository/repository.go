package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
)

// CartRepository persists one cart document per user.
// GetCart reports a missing cart as ErrCartNotFound.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

// ProductRepository reports missing products as ErrProductNotFound.
type ProductRepository interface {
	GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/repository"
)

// ProductService is the product CRUD used by the admin routes. Deleting a
// product leaves carts referencing it untouched.
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, ErrProductNotFound
	}

	p, err := s.repo.GetProduct(ctx, oid)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// Create requires a title and a price.
func (s *ProductService) Create(ctx context.Context, input domain.ProductPatch) (*domain.Product, error) {
	if input.Title == nil {
		return nil, ErrTitleRequired
	}
	if input.Price == nil {
		return nil, ErrInvalidPrice
	}

	p := &domain.Product{}
	p.Apply(input)
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return p, nil
}

// Update applies the supplied fields only.
func (s *ProductService) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Apply(patch)
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	err = s.repo.UpdateProduct(ctx, p)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, ok := parseObjectID(id)
	if !ok {
		return ErrProductNotFound
	}

	err := s.repo.DeleteProduct(ctx, oid)
	if errors.Is(err, repository.ErrProductNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func validateProduct(p *domain.Product) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return ErrTitleRequired
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return ErrInvalidPrice
	}
	return nil
}

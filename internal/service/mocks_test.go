package service

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockCartRepository struct {
	m       sync.RWMutex
	carts   map[string]*domain.Cart
	saves   int
	getErr  error
	saveErr error
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: map[string]*domain.Cart{}}
}

func copyCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = append([]domain.CartItem{}, c.Items...)
	return &cp
}

func (m *mockCartRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return copyCart(c), nil
}

func (m *mockCartRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if cart.ID.IsZero() {
		cart.ID = primitive.NewObjectID()
	}
	m.saves++
	m.carts[cart.UserID] = copyCart(cart)
	return nil
}

func (m *mockCartRepository) stored(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

func (m *mockCartRepository) put(cart *domain.Cart) {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[cart.UserID] = copyCart(cart)
}

type mockProductRepository struct {
	m        sync.RWMutex
	products map[primitive.ObjectID]*domain.Product
	calls    int
	err      error
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	repo := &mockProductRepository{products: map[primitive.ObjectID]*domain.Product{}}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (m *mockProductRepository) GetProduct(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) ListProducts(context.Context) ([]*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	products := []*domain.Product{}
	for _, p := range m.products {
		products = append(products, p)
	}
	return products, nil
}

func (m *mockProductRepository) CreateProduct(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	p.ID = primitive.NewObjectID()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepository) UpdateProduct(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockProductRepository) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) setPrice(id primitive.ObjectID, price float64) {
	m.m.Lock()
	defer m.m.Unlock()
	m.products[id].Price = price
}

func (m *mockProductRepository) remove(id primitive.ObjectID) {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.products, id)
}

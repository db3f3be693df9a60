package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/aim840912/haode-api/internal/domain/product"
	"github.com/aim840912/haode-api/internal/storage"
	"github.com/aim840912/haode-api/pkg/logger"
)

// Service manages the product catalog.
type Service struct {
	store storage.ProductStore
	log   *logger.Logger
}

// New constructs a product service.
func New(store storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("products")
	}
	return &Service{store: store, log: log}
}

// Create registers a new catalog entry.
func (s *Service) Create(ctx context.Context, p product.Product) (product.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(strings.ToLower(p.Category))

	if p.Name == "" {
		return product.Product{}, fmt.Errorf("name is required")
	}
	if p.Price < 0 {
		return product.Product{}, fmt.Errorf("price cannot be negative")
	}
	if p.Inventory < 0 {
		return product.Product{}, fmt.Errorf("inventory cannot be negative")
	}
	if !product.ValidCategory(p.Category) {
		return product.Product{}, fmt.Errorf("unknown category %s", p.Category)
	}

	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return product.Product{}, err
	}
	s.log.WithField("product_id", created.ID).
		WithField("category", created.Category).
		Info("product created")
	return created, nil
}

// Update replaces mutable fields on a product.
func (s *Service) Update(ctx context.Context, id string, p product.Product) (product.Product, error) {
	existing, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	p.ID = existing.ID
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(strings.ToLower(p.Category))

	if p.Name == "" {
		return product.Product{}, fmt.Errorf("name is required")
	}
	if p.Price < 0 {
		return product.Product{}, fmt.Errorf("price cannot be negative")
	}
	if p.Inventory < 0 {
		return product.Product{}, fmt.Errorf("inventory cannot be negative")
	}
	if !product.ValidCategory(p.Category) {
		return product.Product{}, fmt.Errorf("unknown category %s", p.Category)
	}

	updated, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return product.Product{}, err
	}
	s.log.WithField("product_id", updated.ID).Info("product updated")
	return updated, nil
}

// SetActive toggles catalog visibility.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (product.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if p.Active == active {
		return p, nil
	}

	p.Active = active
	p, err = s.store.UpdateProduct(ctx, p)
	if err != nil {
		return product.Product{}, err
	}
	s.log.WithField("product_id", p.ID).
		WithField("active", active).
		Info("product visibility changed")
	return p, nil
}

// AdjustInventory applies a delta to the on-hand count. The count never
// goes below zero.
func (s *Service) AdjustInventory(ctx context.Context, id string, delta int) (product.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	next := p.Inventory + delta
	if next < 0 {
		return product.Product{}, fmt.Errorf("inventory for %s would drop below zero", id)
	}
	p.Inventory = next

	return s.store.UpdateProduct(ctx, p)
}

// Get retrieves a single product by identifier.
func (s *Service) Get(ctx context.Context, id string) (product.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// List returns products matching the filter.
func (s *Service) List(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	return s.store.ListProducts(ctx, filter)
}

// Delete removes a product from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}

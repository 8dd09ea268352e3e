package ledger

import (
	"context"
	"strings"
	"time"

	"medishop/apperr"
	"medishop/models"
	"medishop/repository"
)

// ProductInput is the admin payload for creating a product.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	Category    string
	Images      []string
}

// CatalogService serves products to customers and admins.
type CatalogService struct {
	products repository.ProductRepository
	now      func() time.Time
}

func NewCatalogService(products repository.ProductRepository) *CatalogService {
	return &CatalogService{products: products, now: time.Now}
}

// ListProducts lists products, optionally by category. Inactive products are
// only included for admins.
func (s *CatalogService) ListProducts(ctx context.Context, category string, includeInactive bool) ([]models.Product, error) {
	products, err := s.products.List(ctx, strings.TrimSpace(category), includeInactive)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list products")
	}
	return products, nil
}

// GetProduct returns one product. Inactive products are hidden unless
// includeInactive is set.
func (s *CatalogService) GetProduct(ctx context.Context, id string, includeInactive bool) (*models.Product, error) {
	pid, err := models.ParseID("product id", id)
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, pid)
	if err != nil {
		return nil, notFoundOr(err, "Product not found")
	}
	if !p.IsActive && !includeInactive {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

func validateProduct(name string, price float64, stock int) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("Product name is required")
	}
	if price < 0 {
		return apperr.Validation("Price must not be negative")
	}
	if stock < 0 {
		return apperr.Validation("Stock must not be negative")
	}
	return nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := validateProduct(in.Name, in.Price, in.Stock); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    strings.TrimSpace(in.Category),
		Images:      in.Images,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Insert(ctx, p); err != nil {
		return nil, apperr.Internal(err, "failed to create product")
	}
	return p, nil
}

// UpdateProduct applies an admin edit. Stock set here overwrites the count,
// which is how restocking is done.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, upd repository.ProductUpdate) (*models.Product, error) {
	pid, err := models.ParseID("product id", id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, apperr.Validation("Product name is required")
	}
	if upd.Price != nil && *upd.Price < 0 {
		return nil, apperr.Validation("Price must not be negative")
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return nil, apperr.Validation("Stock must not be negative")
	}
	if err := s.products.Update(ctx, pid, upd, s.now().UTC()); err != nil {
		return nil, notFoundOr(err, "Product not found")
	}
	return s.GetProduct(ctx, id, true)
}

// DeactivateProduct hides a product from the storefront without deleting it.
func (s *CatalogService) DeactivateProduct(ctx context.Context, id string) error {
	inactive := false
	_, err := s.UpdateProduct(ctx, id, repository.ProductUpdate{IsActive: &inactive})
	return err
}

// Seed inserts products only into an empty catalog. It reports how many were
// inserted.
func (s *CatalogService) Seed(ctx context.Context, items []ProductInput) (int, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, apperr.Internal(err, "failed to count products")
	}
	if n > 0 {
		return 0, nil
	}
	for i, in := range items {
		if _, err := s.CreateProduct(ctx, in); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

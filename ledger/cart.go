package ledger

import (
	"context"
	"errors"
	"time"

	"medishop/apperr"
	"medishop/models"
	"medishop/repository"
)

// CartService manages per-user carts. A cart is not a reservation; stock is
// only checked here as a courtesy.
type CartService struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	now      func() time.Time
}

func NewCartService(products repository.ProductRepository, carts repository.CartRepository) *CartService {
	return &CartService{products: products, carts: carts, now: time.Now}
}

func (s *CartService) load(ctx context.Context, user models.Principal) (*models.Cart, error) {
	cart, err := s.carts.FindByUser(ctx, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Cart{UserID: user.ID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load cart")
	}
	return cart, nil
}

// GetCart returns the caller's cart, empty if none exists yet.
func (s *CartService) GetCart(ctx context.Context, user models.Principal) (*models.Cart, error) {
	return s.load(ctx, user)
}

// AddToCart adds qty of a product, merging with an existing line.
func (s *CartService) AddToCart(ctx context.Context, user models.Principal, productID string, qty int) (*models.Cart, error) {
	pid, err := models.ParseID("product id", productID)
	if err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, apperr.Validation("Quantity must be at least 1")
	}
	p, err := s.products.FindByID(ctx, pid)
	if err != nil {
		return nil, notFoundOr(err, "Product not found")
	}
	if !p.IsActive {
		return nil, apperr.NotFound("Product not found")
	}

	cart, err := s.load(ctx, user)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == pid {
			cart.Items[i].Quantity += qty
			cart.Items[i].Price = p.Price
			qty = cart.Items[i].Quantity
			found = true
			break
		}
	}
	if p.Stock < qty {
		return nil, apperr.Conflict("Only %d of %s left in stock", p.Stock, p.Name)
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{ProductID: pid, Quantity: qty, Price: p.Price})
	}
	return s.save(ctx, cart)
}

// RemoveFromCart drops a product line from the cart.
func (s *CartService) RemoveFromCart(ctx context.Context, user models.Principal, productID string) (*models.Cart, error) {
	pid, err := models.ParseID("product id", productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.load(ctx, user)
	if err != nil {
		return nil, err
	}
	kept := cart.Items[:0]
	for _, it := range cart.Items {
		if it.ProductID != pid {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(cart.Items) {
		return nil, apperr.NotFound("Product not in cart")
	}
	cart.Items = kept
	return s.save(ctx, cart)
}

// ClearCart removes the caller's cart.
func (s *CartService) ClearCart(ctx context.Context, user models.Principal) error {
	if err := s.carts.DeleteByUser(ctx, user.ID); err != nil {
		return apperr.Internal(err, "failed to clear cart")
	}
	return nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.Recalculate()
	cart.UpdatedAt = s.now().UTC()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, apperr.Internal(err, "failed to save cart")
	}
	return cart, nil
}

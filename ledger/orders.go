package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medishop/apperr"
	"medishop/config"
	"medishop/events"
	"medishop/models"
	"medishop/payment"
	"medishop/repository"
)

// LineItem is one requested product and quantity, already normalized from
// whatever field names the client used.
type LineItem struct {
	ProductID string
	Quantity  int
}

// CreateOrderInput is what a customer submits at checkout. With no items the
// caller's cart is used.
type CreateOrderInput struct {
	Items         []LineItem
	Shipping      models.ShippingInfo
	PaymentMethod string
	Notes         string
}

// OrderNotifier sends the order confirmation to the customer.
type OrderNotifier interface {
	SendOrderConfirmation(toEmail string, order models.Order) error
}

// Gateway produces a payment link for an order.
type Gateway interface {
	Configured() bool
	PaymentURL(ctx context.Context, req payment.PaymentRequest) (string, error)
}

// OrderService is the order ledger.
type OrderService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	carts     repository.CartRepository
	pricing   config.Pricing
	converter payment.Converter
	gateways  map[models.PaymentMethod]Gateway
	events    events.Emitter
	notifier  OrderNotifier
	now       func() time.Time
}

// OrderServiceDeps groups the collaborators of an OrderService.
type OrderServiceDeps struct {
	Products repository.ProductRepository
	Orders   repository.OrderRepository
	Carts    repository.CartRepository
	Pricing  config.Pricing
	Gateways map[models.PaymentMethod]Gateway
	Events   events.Emitter
	// Notifier is optional.
	Notifier OrderNotifier
}

func NewOrderService(d OrderServiceDeps) *OrderService {
	em := d.Events
	if em == nil {
		em = events.Discard{}
	}
	return &OrderService{
		products:  d.Products,
		orders:    d.Orders,
		carts:     d.Carts,
		pricing:   d.Pricing,
		converter: payment.NewConverter(d.Pricing.ExchangeRate),
		gateways:  d.Gateways,
		events:    em,
		notifier:  d.Notifier,
		now:       time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

func (s *OrderService) Converter() payment.Converter { return s.converter }

type reservation struct {
	id  primitive.ObjectID
	qty int
}

// releaseAll gives back every reservation made so far. Failures are logged;
// there is nothing more the request can do about them.
func (s *OrderService) releaseAll(ctx context.Context, held []reservation) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range held {
		if err := s.products.ReleaseStock(ctx, r.id, r.qty); err != nil {
			slog.ErrorContext(ctx, "Failed to release reserved stock", "product_id", r.id.Hex(), "quantity", r.qty, "err", err)
		}
	}
}

func (s *OrderService) cartLines(ctx context.Context, userID primitive.ObjectID) ([]LineItem, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to load cart")
	}
	lines := make([]LineItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		lines = append(lines, LineItem{ProductID: it.ProductID.Hex(), Quantity: it.Quantity})
	}
	return lines, nil
}

// CreateOrder validates the request, reserves stock for every line and then
// persists the order. Either every reservation holds and the order exists, or
// no stock was changed.
func (s *OrderService) CreateOrder(ctx context.Context, user models.Principal, in CreateOrderInput) (*models.Order, error) {
	method, ok := models.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return nil, apperr.Validation("Invalid payment method")
	}

	lines := in.Items
	fromCart := false
	if len(lines) == 0 {
		var err error
		if lines, err = s.cartLines(ctx, user.ID); err != nil {
			return nil, err
		}
		fromCart = true
	}
	if len(lines) == 0 {
		return nil, apperr.Validation("Cart is empty")
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		pid, err := models.ParseID("product id", line.ProductID)
		if err != nil {
			return nil, err
		}
		if line.Quantity < 1 {
			return nil, apperr.Validation("Quantity must be at least 1")
		}
		p, err := s.products.FindByID(ctx, pid)
		if err != nil {
			return nil, notFoundOr(err, "Product %s not found", line.ProductID)
		}
		if !p.IsActive {
			return nil, apperr.Validation("Product %s is no longer available", p.Name)
		}
		if p.Price < 0 {
			return nil, apperr.Validation("Invalid price for product %s", p.Name)
		}
		if p.Stock < line.Quantity {
			return nil, apperr.Conflict("Out of stock for %s", p.Name)
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.PrimaryImage(),
			Price:     p.Price,
			Quantity:  line.Quantity,
			Subtotal:  lineSubtotal(p.Price, line.Quantity).InexactFloat64(),
		})
	}

	totals := ComputeTotals(items, s.pricing)

	held := make([]reservation, 0, len(items))
	for _, it := range items {
		ok, err := s.products.ReserveStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			s.releaseAll(ctx, held)
			slog.ErrorContext(ctx, "Stock reservation failed", "product_id", it.ProductID.Hex(), "step", "reserve", "err", err)
			return nil, apperr.Internal(err, "failed to reserve stock")
		}
		if !ok {
			s.releaseAll(ctx, held)
			return nil, apperr.Conflict("Out of stock for %s", it.Name)
		}
		held = append(held, reservation{id: it.ProductID, qty: it.Quantity})
	}

	now := s.now().UTC()
	order := &models.Order{
		Code:        NewOrderCode(now),
		UserID:      user.ID,
		Items:       items,
		Shipping:    in.Shipping,
		Payment:     models.PaymentInfo{Method: method, Status: models.PaymentPending},
		Subtotal:    totals.Subtotal,
		ShippingFee: totals.ShippingFee,
		Tax:         totals.Tax,
		Total:       totals.Total,
		TotalLocal:  s.converter.ToLocal(totals.Total),
		Status:      models.OrderPending,
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		s.releaseAll(ctx, held)
		slog.ErrorContext(ctx, "Order insert failed, stock released", "order_code", order.Code, "step", "insert", "err", err)
		return nil, apperr.Internal(err, "failed to create order")
	}

	slog.InfoContext(ctx, "Order created", "order_id", order.ID.Hex(), "order_code", order.Code, "total", order.Total, "total_local", order.TotalLocal, "method", method)
	s.events.Emit(ctx, events.Event{
		Name:        events.OrderCreated,
		Provider:    string(method),
		OrderID:     order.ID.Hex(),
		Status:      string(order.Status),
		AmountLocal: order.TotalLocal,
		At:          now,
	})

	if fromCart {
		if err := s.carts.DeleteByUser(ctx, user.ID); err != nil {
			slog.WarnContext(ctx, "Failed to clear cart after order", "order_id", order.ID.Hex(), "err", err)
		}
	}
	if s.notifier != nil && user.Email != "" {
		placed := *order
		go func() {
			if err := s.notifier.SendOrderConfirmation(user.Email, placed); err != nil {
				slog.Warn("Failed to send order confirmation", "order_id", placed.ID.Hex(), "err", err)
			}
		}()
	}
	return order, nil
}

func (s *OrderService) findOrder(ctx context.Context, id string) (*models.Order, error) {
	oid, err := models.ParseID("order id", id)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.FindByID(ctx, oid)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	return o, nil
}

func (s *OrderService) ownedOrder(ctx context.Context, user models.Principal, id string) (*models.Order, error) {
	o, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.ID && !user.IsAdmin() {
		return nil, apperr.Forbidden("You do not have access to this order")
	}
	return o, nil
}

// GetOrder returns an order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, user models.Principal, id string) (*models.Order, error) {
	return s.ownedOrder(ctx, user, id)
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, user models.Principal) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list orders")
	}
	return orders, nil
}

// releaseOrderStock returns every line of o to the catalog.
func (s *OrderService) releaseOrderStock(ctx context.Context, o *models.Order) {
	held := make([]reservation, 0, len(o.Items))
	for _, it := range o.Items {
		held = append(held, reservation{id: it.ProductID, qty: it.Quantity})
	}
	s.releaseAll(ctx, held)
}

// move applies a conditional status change and releases stock when the order
// lands in Cancelled. Stock is released only by the call whose update matched.
func (s *OrderService) move(ctx context.Context, o *models.Order, to models.OrderStatus, activity *models.Activity) error {
	now := s.now().UTC()
	if activity != nil {
		activity.Timestamp = now
	}
	ok, err := s.orders.ChangeStatus(ctx, o.ID, repository.StatusChange{From: o.Status, To: to, Activity: activity, At: now})
	if err != nil {
		return apperr.Internal(err, "failed to update order status")
	}
	if !ok {
		return apperr.Conflict("Order status changed concurrently, please retry")
	}
	if to == models.OrderCancelled {
		s.releaseOrderStock(ctx, o)
	}
	name := events.OrderStatusChanged
	if to == models.OrderCancelled {
		name = events.OrderCancelled
	}
	s.events.Emit(ctx, events.Event{
		Name:     name,
		Provider: string(o.Payment.Method),
		OrderID:  o.ID.Hex(),
		Status:   string(to),
		Message:  fmt.Sprintf("%s -> %s", o.Status, to),
		At:       now,
	})
	return nil
}

// CancelOrder lets a customer cancel their own order while it is Pending.
func (s *OrderService) CancelOrder(ctx context.Context, user models.Principal, id string) (*models.Order, error) {
	o, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.ID {
		return nil, apperr.Forbidden("You do not have access to this order")
	}
	if o.Status != models.OrderPending {
		return nil, apperr.Conflict("Only pending orders can be cancelled")
	}
	activity := &models.Activity{
		Type:    "status_change",
		Status:  models.OrderCancelled,
		Actor:   models.Actor{ID: user.ID.Hex(), Name: user.Name},
		Message: "Cancelled by customer",
	}
	if err := s.move(ctx, o, models.OrderCancelled, activity); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Order cancelled by customer", "order_id", o.ID.Hex())
	return s.findOrder(ctx, id)
}

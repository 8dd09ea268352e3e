package ledger

import (
	"context"
	"log/slog"

	"medishop/apperr"
	"medishop/events"
	"medishop/models"
	"medishop/payment"
)

// PaymentOptions are the per-request inputs of a payment link.
type PaymentOptions struct {
	ClientIP string
	BankCode string
	Locale   string
}

// PaymentLink is a freshly created payment attempt.
type PaymentLink struct {
	URL         string `json:"payment_url"`
	OrderID     string `json:"order_id"`
	OrderCode   string `json:"order_code"`
	AmountLocal int64  `json:"amount"`
}

// RequestPaymentURL creates a payment attempt for the caller's order with the
// given provider. Repeated calls create independent attempts; the
// reconciliation engine guarantees at most one settlement.
func (s *OrderService) RequestPaymentURL(ctx context.Context, user models.Principal, id string, method models.PaymentMethod, opts PaymentOptions) (*PaymentLink, error) {
	gw, ok := s.gateways[method]
	if !ok || !gw.Configured() {
		return nil, apperr.Unavailable("%s payment gateway is not configured", method)
	}
	o, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.ID {
		return nil, apperr.Forbidden("You do not have access to this order")
	}
	switch {
	case o.Payment.Status == models.PaymentPaid:
		return nil, apperr.Conflict("Order has already been paid")
	case o.Payment.Status == models.PaymentFailed:
		return nil, apperr.Conflict("Payment for this order has failed, please place a new order")
	case o.Status == models.OrderCancelled:
		return nil, apperr.Conflict("Order has been cancelled")
	case o.Payment.Method != method:
		return nil, apperr.Conflict("Order payment method is %s, not %s", o.Payment.Method, method)
	case o.Total <= 0:
		return nil, apperr.Validation("Invalid order total amount")
	}

	amount, err := EnsureLocalTotal(ctx, s.orders, s.converter, o)
	if err != nil {
		return nil, err
	}
	ref := o.ID.Hex()
	url, err := gw.PaymentURL(ctx, payment.PaymentRequest{
		OrderRef:    ref,
		AmountLocal: amount,
		Description: "Thanh toan don hang " + o.Code,
		ClientIP:    opts.ClientIP,
		Locale:      opts.Locale,
		BankCode:    opts.BankCode,
	})
	if err != nil {
		slog.WarnContext(ctx, "Payment link creation failed", "order_id", ref, "provider", method, "step", "initiate", "err", err)
		return nil, err
	}

	now := s.now().UTC()
	if err := s.orders.MarkPaymentInitiated(ctx, o.ID, method, now); err != nil {
		slog.ErrorContext(ctx, "Failed to record payment initiation", "order_id", ref, "provider", method, "err", err)
	}
	slog.InfoContext(ctx, "Payment link created", "order_id", ref, "provider", method, "amount_local", amount)
	s.events.Emit(ctx, events.Event{
		Name:        events.PaymentURLCreated,
		Provider:    string(method),
		OrderID:     ref,
		Status:      string(o.Payment.Status),
		AmountLocal: amount,
		At:          now,
	})
	return &PaymentLink{URL: url, OrderID: ref, OrderCode: o.Code, AmountLocal: amount}, nil
}

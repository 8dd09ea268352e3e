// Package ledger owns the order lifecycle and the customer-facing services
// around it: catalog, cart and accounts. Stock is reserved with conditional
// single-document updates and compensated on every failure path.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"medishop/apperr"
	"medishop/models"
	"medishop/payment"
	"medishop/repository"
)

// notFoundOr turns a repository miss into a NotFound error and anything else
// into an internal one.
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return apperr.Internal(err, "database error")
}

// NewOrderCode returns ORD + timestamp + six random hex characters.
func NewOrderCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "ORD" + now.Format("20060102150405") + suffix
}

// EnsureLocalTotal returns the order's gateway-currency total, computing and
// persisting it only when none was stored yet. If another writer stored a
// value first, that stored value wins.
func EnsureLocalTotal(ctx context.Context, orders repository.OrderRepository, conv payment.Converter, o *models.Order) (int64, error) {
	value, computed := conv.Resolve(o.TotalLocal, o.Total)
	if !computed {
		return value, nil
	}
	wrote, err := orders.SetTotalLocal(ctx, o.ID, value)
	if err != nil {
		return 0, apperr.Internal(err, "failed to store local total")
	}
	if !wrote {
		fresh, err := orders.FindByID(ctx, o.ID)
		if err != nil {
			return 0, notFoundOr(err, "Order not found")
		}
		if fresh.TotalLocal > 0 {
			value = fresh.TotalLocal
		}
	} else {
		slog.InfoContext(ctx, "Local total computed", "order_id", o.ID.Hex(), "total_local", value, "rate", conv.Rate())
	}
	o.TotalLocal = value
	return value, nil
}

// ResolveOrder finds an order by its identity, falling back to the
// human-readable code.
func ResolveOrder(ctx context.Context, orders repository.OrderRepository, ref string) (*models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.NotFound("Order not found")
	}
	if id, err := models.ParseID("order id", ref); err == nil {
		o, err := orders.FindByID(ctx, id)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Internal(err, "database error")
		}
	}
	o, err := orders.FindByCode(ctx, ref)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	return o, nil
}

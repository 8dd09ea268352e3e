package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"medishop/apperr"
	"medishop/events"
	"medishop/models"
	"medishop/repository"
)

// ShippingPatch carries the shipping fields an admin wants to change. Nil
// fields are left as they are.
type ShippingPatch struct {
	FullName *string
	Phone    *string
	Email    *string
	Address  *string
	City     *string
	State    *string
	Zip      *string
	Country  *string
	Note     *string
}

// AdminOrderUpdate is an edit of the free-form order fields.
type AdminOrderUpdate struct {
	Notes    *string
	Shipping *ShippingPatch
}

// OrderPage is one page of an admin order listing.
type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
	Pages  int            `json:"pages"`
}

func actorOf(p models.Principal) models.Actor {
	return models.Actor{ID: p.ID.Hex(), Name: p.Name}
}

// AdminGetOrder returns any order.
func (s *OrderService) AdminGetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.findOrder(ctx, id)
}

// AdminListOrders pages through all orders. Limit is clamped to 1..100 and
// defaults to 10.
func (s *OrderService) AdminListOrders(ctx context.Context, status, userID string, page, limit int) (*OrderPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = 10
	case limit > 100:
		limit = 100
	}
	f := models.OrderFilter{Page: page, Limit: limit}
	if status != "" {
		st, ok := models.ParseOrderStatus(status)
		if !ok {
			return nil, apperr.Validation("Invalid status: %s", status)
		}
		f.Status = st
	}
	if userID != "" {
		uid, err := models.ParseID("user id", userID)
		if err != nil {
			return nil, err
		}
		f.UserID = uid
	}
	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list orders")
	}
	return &OrderPage{
		Orders: orders,
		Total:  total,
		Page:   page,
		Limit:  limit,
		Pages:  int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// AdminUpdateStatus moves an order along the status table on behalf of an
// administrator and records the change in the activity log. Requesting the
// current status is a no-op.
func (s *OrderService) AdminUpdateStatus(ctx context.Context, actor models.Principal, id, status, note string) (*models.Order, error) {
	to, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, apperr.Validation("Invalid status: %s", status)
	}
	o, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return o, nil
	}
	if !models.CanTransition(o.Status, to) {
		allowed := models.AllowedTransitions(o.Status)
		if len(allowed) == 0 {
			return nil, apperr.Validation("Cannot change status of a %s order", o.Status)
		}
		return nil, apperr.Validation("Cannot change status from %s to %s. Allowed: %s",
			o.Status, to, strings.Join(allowed, ", "))
	}
	msg := fmt.Sprintf("Status changed from %s to %s", o.Status, to)
	if note = strings.TrimSpace(note); note != "" {
		msg += ": " + note
	}
	activity := &models.Activity{
		Type:    "status_change",
		Status:  to,
		Actor:   actorOf(actor),
		Message: msg,
	}
	if err := s.move(ctx, o, to, activity); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Order status updated", "order_id", o.ID.Hex(), "from", o.Status, "to", to, "actor", actor.ID.Hex())
	return s.findOrder(ctx, id)
}

func applyPatch(dst *models.ShippingInfo, p *ShippingPatch) []string {
	var changed []string
	set := func(name string, field *string, v *string) {
		if v == nil || *field == strings.TrimSpace(*v) {
			return
		}
		*field = strings.TrimSpace(*v)
		changed = append(changed, "shipping."+name)
	}
	set("full_name", &dst.FullName, p.FullName)
	set("phone", &dst.Phone, p.Phone)
	set("email", &dst.Email, p.Email)
	set("address", &dst.Address, p.Address)
	set("city", &dst.City, p.City)
	set("state", &dst.State, p.State)
	set("zip", &dst.Zip, p.Zip)
	set("country", &dst.Country, p.Country)
	set("note", &dst.Note, p.Note)
	return changed
}

// AdminUpdateOrder merges shipping fields and notes into an order and appends
// an update entry naming the changed fields.
func (s *OrderService) AdminUpdateOrder(ctx context.Context, actor models.Principal, id string, upd AdminOrderUpdate) (*models.Order, error) {
	if upd.Notes == nil && upd.Shipping == nil {
		return nil, apperr.Validation("No fields to update")
	}
	o, err := s.findOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []string
	du := repository.DetailsUpdate{At: s.now().UTC()}
	if upd.Notes != nil && strings.TrimSpace(*upd.Notes) != o.Notes {
		notes := strings.TrimSpace(*upd.Notes)
		du.Notes = &notes
		fields = append(fields, "notes")
	}
	if upd.Shipping != nil {
		shipping := o.Shipping
		if changed := applyPatch(&shipping, upd.Shipping); len(changed) > 0 {
			du.Shipping = &shipping
			fields = append(fields, changed...)
		}
	}
	if len(fields) == 0 {
		return o, nil
	}
	du.Activity = models.Activity{
		Type:      "update",
		Actor:     actorOf(actor),
		Message:   "Updated " + strings.Join(fields, ", "),
		Fields:    fields,
		Timestamp: du.At,
	}
	if err := s.orders.UpdateDetails(ctx, o.ID, du); err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	return s.findOrder(ctx, id)
}

// AdminDeleteOrder hard-deletes an order. Stock still held by the order is
// returned to the catalog.
func (s *OrderService) AdminDeleteOrder(ctx context.Context, actor models.Principal, id string) error {
	o, err := s.findOrder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, o.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Order not found")
		}
		return apperr.Internal(err, "failed to delete order")
	}
	if o.Status != models.OrderCancelled && o.Status != models.OrderDelivered {
		s.releaseOrderStock(ctx, o)
	}
	slog.InfoContext(ctx, "Order deleted", "order_id", o.ID.Hex(), "status", o.Status, "actor", actor.ID.Hex())
	s.events.Emit(ctx, events.Event{
		Name:    events.OrderDeleted,
		OrderID: o.ID.Hex(),
		Status:  string(o.Status),
		At:      s.now().UTC(),
	})
	return nil
}

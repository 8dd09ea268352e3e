// Package reconcile applies inbound payment notifications to the order
// ledger. The notification channel is the only writer; the browser return
// channel only reads back what the ledger already holds.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"medishop/apperr"
	"medishop/events"
	"medishop/ledger"
	"medishop/models"
	"medishop/payment"
	"medishop/repository"
)

type result int

const (
	resultConfirmed result = iota
	resultPending
	resultNotFound
	resultAlreadyProcessed
	resultAmountMismatch
	resultSignature
	resultError
)

// Engine reconciles provider notifications against stored orders.
type Engine struct {
	orders    repository.OrderRepository
	converter payment.Converter
	vnpay     *payment.VNPay
	momo      *payment.MoMo
	events    events.Emitter
	now       func() time.Time
}

func New(orders repository.OrderRepository, converter payment.Converter, vnpay *payment.VNPay, momo *payment.MoMo, em events.Emitter) *Engine {
	if em == nil {
		em = events.Discard{}
	}
	return &Engine{
		orders:    orders,
		converter: converter,
		vnpay:     vnpay,
		momo:      momo,
		events:    em,
		now:       time.Now,
	}
}

func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func claimedStatus(o payment.Outcome) models.PaymentStatus {
	if o == payment.OutcomeSuccess {
		return models.PaymentPaid
	}
	return models.PaymentFailed
}

func (e *Engine) emit(ctx context.Context, name string, n payment.Notification, orderID, status, msg string) {
	e.events.Emit(ctx, events.Event{
		Name:          name,
		Provider:      string(n.Provider),
		OrderID:       orderID,
		Status:        status,
		AmountLocal:   n.AmountLocal,
		ResponseCode:  n.Code,
		TransactionNo: n.TransactionNo,
		Message:       msg,
		At:            e.now().UTC(),
	})
}

// apply runs the shared notification pipeline on an already verified
// notification: resolve, idempotency, amount, then settle.
func (e *Engine) apply(ctx context.Context, n payment.Notification) result {
	log := slog.With("provider", n.Provider, "order_ref", n.OrderRef, "response_code", n.Code)

	o, err := ledger.ResolveOrder(ctx, e.orders, n.OrderRef)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.WarnContext(ctx, "Payment notification for unknown order", "step", "resolve")
			return resultNotFound
		}
		log.ErrorContext(ctx, "Failed to load order for notification", "step", "resolve", "err", err)
		e.emit(ctx, events.PaymentNotificationFailed, n, n.OrderRef, "", "resolve failed")
		return resultError
	}
	orderID := o.ID.Hex()
	log = log.With("order_id", orderID)

	if o.Payment.Status.Terminal() {
		if n.Outcome != payment.OutcomePending && claimedStatus(n.Outcome) != o.Payment.Status {
			log.WarnContext(ctx, "Duplicate notification disagrees with recorded outcome",
				"recorded", o.Payment.Status, "claimed", n.Outcome.String(), "step", "idempotency")
			e.emit(ctx, events.PaymentDuplicateConflict, n, orderID, string(o.Payment.Status),
				"claimed "+n.Outcome.String()+" after "+string(o.Payment.Status))
		} else {
			log.InfoContext(ctx, "Duplicate notification ignored", "step", "idempotency")
			e.emit(ctx, events.PaymentDuplicate, n, orderID, string(o.Payment.Status), "")
		}
		return resultAlreadyProcessed
	}

	expected, err := ledger.EnsureLocalTotal(ctx, e.orders, e.converter, o)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve expected amount", "step", "amount", "err", err)
		return resultError
	}

	now := e.now().UTC()
	st := models.Settlement{
		TransactionNo:  n.TransactionNo,
		ResponseCode:   n.Code,
		BankCode:       n.BankCode,
		PayDate:        n.PayDate,
		ExpectedAmount: expected,
		ReceivedAmount: n.AmountLocal,
		At:             now,
	}
	res := resultConfirmed
	switch {
	case n.AmountLocal != expected:
		mismatch := apperr.AmountMismatch(expected, n.AmountLocal)
		log.WarnContext(ctx, "Payment amount mismatch", "expected", expected, "received", n.AmountLocal, "step", "amount")
		st.Status = models.PaymentFailed
		st.OrderStatus = models.OrderPaymentFailed
		st.FailReason = mismatch.Message
		res = resultAmountMismatch
	case n.Outcome == payment.OutcomePending:
		log.InfoContext(ctx, "Payment still in progress", "step", "classify")
		e.emit(ctx, events.PaymentPending, n, orderID, string(o.Payment.Status), n.Reason)
		return resultPending
	case n.Outcome == payment.OutcomeSuccess:
		st.Status = models.PaymentPaid
		st.OrderStatus = models.OrderPaid
	default:
		st.Status = models.PaymentFailed
		st.OrderStatus = models.OrderPaymentFailed
		st.FailReason = n.Reason
	}

	applied, err := e.orders.Settle(ctx, o.ID, st)
	if err != nil {
		log.ErrorContext(ctx, "Failed to record payment outcome", "step", "settle", "err", err)
		e.emit(ctx, events.PaymentNotificationFailed, n, orderID, "", "settle failed")
		return resultError
	}
	if !applied {
		log.InfoContext(ctx, "Payment already settled by a concurrent notification", "step", "settle")
		e.emit(ctx, events.PaymentDuplicate, n, orderID, "", "lost settle race")
		return resultAlreadyProcessed
	}

	if res == resultAmountMismatch {
		e.emit(ctx, events.PaymentAmountMismatch, n, orderID, string(st.Status), st.FailReason)
	}
	if o.Status != models.OrderPending {
		log.WarnContext(ctx, "Payment settled for an order no longer pending", "order_status", o.Status, "step", "settle")
		e.emit(ctx, events.PaymentSettledLate, n, orderID, string(st.Status), "order status "+string(o.Status)+" kept")
	}
	log.InfoContext(ctx, "Payment settled", "payment_status", st.Status, "amount_local", n.AmountLocal, "transaction_no", n.TransactionNo)
	e.emit(ctx, events.PaymentSettled, n, orderID, string(st.Status), st.FailReason)
	return res
}

// Return outcomes reported to the browser.
const (
	ReturnSuccess = "success"
	ReturnFailed  = "failed"
	ReturnPending = "pending"
)

// ReturnResult is what the ledger currently says about the order behind a
// browser return.
type ReturnResult struct {
	Outcome       string               `json:"outcome"`
	OrderID       string               `json:"order_id"`
	OrderCode     string               `json:"order_code"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Reason        string               `json:"reason,omitempty"`
	AmountLocal   int64                `json:"amount,omitempty"`
}

// readBack resolves the order for a verified return and reports its stored
// state. It never writes.
func (e *Engine) readBack(ctx context.Context, n payment.Notification) (*ReturnResult, error) {
	o, err := ledger.ResolveOrder(ctx, e.orders, n.OrderRef)
	if err != nil {
		return nil, err
	}
	r := &ReturnResult{
		OrderID:       o.ID.Hex(),
		OrderCode:     o.Code,
		Status:        o.Status,
		PaymentStatus: o.Payment.Status,
		AmountLocal:   o.TotalLocal,
	}
	switch o.Payment.Status {
	case models.PaymentPaid:
		r.Outcome = ReturnSuccess
	case models.PaymentFailed:
		r.Outcome = ReturnFailed
		r.Reason = o.Payment.FailReason
	default:
		r.Outcome = ReturnPending
	}
	return r, nil
}

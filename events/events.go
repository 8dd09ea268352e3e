// Package events emits order and payment facts to observability sinks.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event names.
const (
	OrderCreated              = "order.created"
	OrderCancelled            = "order.cancelled"
	OrderStatusChanged        = "order.status_changed"
	OrderDeleted              = "order.deleted"
	PaymentURLCreated         = "payment.url_created"
	PaymentSettled            = "payment.settled"
	PaymentPending            = "payment.pending"
	PaymentDuplicate          = "payment.duplicate"
	PaymentDuplicateConflict  = "payment.duplicate_conflict"
	PaymentSignatureRejected  = "payment.signature_rejected"
	PaymentAmountMismatch     = "payment.amount_mismatch"
	PaymentSettledLate        = "payment.settled_out_of_band"
	PaymentNotificationFailed = "payment.notification_failed"
)

// Event is one side-channel fact about an order.
type Event struct {
	Name          string    `json:"name"`
	Provider      string    `json:"provider,omitempty"`
	OrderID       string    `json:"order_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	AmountLocal   int64     `json:"amount_local,omitempty"`
	ResponseCode  string    `json:"response_code,omitempty"`
	TransactionNo string    `json:"transaction_no,omitempty"`
	Message       string    `json:"message,omitempty"`
	At            time.Time `json:"at"`
}

// Emitter consumes events. Implementations must not fail the caller; they
// log their own delivery errors.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// LogEmitter writes every event as a structured log line.
type LogEmitter struct {
	Logger *slog.Logger
}

func (l LogEmitter) Emit(ctx context.Context, e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event",
		"name", e.Name,
		"provider", e.Provider,
		"order_id", e.OrderID,
		"status", e.Status,
		"amount_local", e.AmountLocal,
		"response_code", e.ResponseCode,
		"transaction_no", e.TransactionNo,
		"message", e.Message,
	)
}

// Multi fans an event out to several emitters.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, em := range m {
		em.Emit(ctx, e)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of what was recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

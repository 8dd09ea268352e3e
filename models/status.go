package models

import (
	"sort"
	"strings"
)

// OrderStatus is the fulfilment status of an order.
type OrderStatus string

const (
	OrderPending       OrderStatus = "Pending"
	OrderConfirmed     OrderStatus = "Confirmed"
	OrderDelivered     OrderStatus = "Delivered"
	OrderCancelled     OrderStatus = "Cancelled"
	OrderPaid          OrderStatus = "Paid"
	OrderPaymentFailed OrderStatus = "Payment Failed"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:       {OrderConfirmed, OrderCancelled},
	OrderConfirmed:     {OrderDelivered, OrderCancelled},
	OrderPaid:          {OrderConfirmed, OrderCancelled},
	OrderPaymentFailed: {OrderCancelled},
	OrderDelivered:     nil,
	OrderCancelled:     nil,
}

// ParseOrderStatus canonicalizes a status name regardless of casing.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.TrimSpace(s)
	for st := range transitions {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// AllowedTransitions lists the statuses reachable from s, sorted.
func AllowedTransitions(s OrderStatus) []string {
	out := make([]string, 0, len(transitions[s]))
	for _, t := range transitions[s] {
		out = append(out, string(t))
	}
	sort.Strings(out)
	return out
}

// CanTransition reports whether from -> to is a legal administrative move.
func CanTransition(from, to OrderStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

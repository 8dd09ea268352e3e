package models

import (
	"strings"
	"time"
)

// PaymentMethod is how the customer chose to pay for an order.
type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "COD"
	PaymentVNPay PaymentMethod = "VNPAY"
	PaymentMoMo  PaymentMethod = "MOMO"
)

// ParsePaymentMethod accepts any casing; an empty value defaults to COD.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "COD":
		return PaymentCOD, true
	case "VNPAY":
		return PaymentVNPay, true
	case "MOMO":
		return PaymentMoMo, true
	}
	return "", false
}

// PaymentStatus is the payment sub-state of an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// Terminal reports whether no reconciliation event may change the status again.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentPaid || s == PaymentFailed
}

// PaymentInfo is embedded in the order document.
type PaymentInfo struct {
	Method         PaymentMethod `bson:"method" json:"method"`
	Status         PaymentStatus `bson:"status" json:"status"`
	TransactionNo  string        `bson:"transaction_no,omitempty" json:"transaction_no,omitempty"`
	ResponseCode   string        `bson:"response_code,omitempty" json:"response_code,omitempty"`
	BankCode       string        `bson:"bank_code,omitempty" json:"bank_code,omitempty"`
	PayDate        string        `bson:"pay_date,omitempty" json:"pay_date,omitempty"`
	FailReason     string        `bson:"fail_reason,omitempty" json:"fail_reason,omitempty"`
	ExpectedAmount int64         `bson:"expected_amount,omitempty" json:"expected_amount,omitempty"`
	ReceivedAmount int64         `bson:"received_amount,omitempty" json:"received_amount,omitempty"`
	InitiatedAt    *time.Time    `bson:"initiated_at,omitempty" json:"initiated_at,omitempty"`
	NotifiedAt     *time.Time    `bson:"notified_at,omitempty" json:"notified_at,omitempty"`
}

// Settlement is the terminal outcome written by the reconciliation engine.
type Settlement struct {
	Status         PaymentStatus
	OrderStatus    OrderStatus
	TransactionNo  string
	ResponseCode   string
	BankCode       string
	PayDate        string
	FailReason     string
	ExpectedAmount int64
	ReceivedAmount int64
	At             time.Time
}

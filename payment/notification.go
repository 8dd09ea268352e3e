package payment

import "medishop/models"

// Outcome is what a provider claims happened to a payment.
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
	// OutcomePending means the provider reports a non-final state.
	OutcomePending
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePending:
		return "pending"
	default:
		return "failure"
	}
}

// Notification is the provider-neutral shape of an inbound callback, produced
// only after the signature has been verified.
type Notification struct {
	Provider models.PaymentMethod
	// OrderRef is the order reference sent at initiation time.
	OrderRef string
	// AmountLocal is the asserted amount in local currency units. It is -1
	// when the provider value could not be read as a whole local amount.
	AmountLocal   int64
	Outcome       Outcome
	Code          string
	Reason        string
	TransactionNo string
	BankCode      string
	PayDate       string
	RequestID     string
	ExtraData     string
}

// PaymentRequest is the input of an outbound payment initiation.
type PaymentRequest struct {
	OrderRef    string
	AmountLocal int64
	Description string
	ClientIP    string
	Locale      string
	BankCode    string
}

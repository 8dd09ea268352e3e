package reconcile

import (
	"context"
	"log/slog"
	"net/url"

	"medishop/events"
	"medishop/models"
	"medishop/payment"
)

var vnpayAcks = map[result]payment.VNPayAck{
	resultConfirmed:        {RspCode: payment.VNPayRspConfirmed, Message: "Confirm Success"},
	resultPending:          {RspCode: payment.VNPayRspConfirmed, Message: "Confirm Success"},
	resultNotFound:         {RspCode: payment.VNPayRspOrderNotFound, Message: "Order not found"},
	resultAlreadyProcessed: {RspCode: payment.VNPayRspAlreadyUpdated, Message: "Order already confirmed"},
	resultAmountMismatch:   {RspCode: payment.VNPayRspInvalidAmount, Message: "Invalid amount"},
	resultSignature:        {RspCode: payment.VNPayRspInvalidChecksum, Message: "Invalid signature"},
	resultError:            {RspCode: payment.VNPayRspUnknownError, Message: "Unknown error"},
}

type momoAck struct {
	code    int
	message string
}

var momoAcks = map[result]momoAck{
	resultConfirmed:        {payment.MoMoAckOK, "Success"},
	resultPending:          {payment.MoMoAckOK, "Received"},
	resultNotFound:         {payment.MoMoAckOrderNotFound, "Order not found"},
	resultAlreadyProcessed: {payment.MoMoAckAlreadyHandled, "Order already confirmed"},
	resultAmountMismatch:   {payment.MoMoAckInvalidAmount, "Invalid amount"},
	resultSignature:        {payment.MoMoAckInvalidSig, "Invalid signature"},
	resultError:            {payment.MoMoAckUnknownError, "Unknown error"},
}

func (e *Engine) rejectSignature(ctx context.Context, provider models.PaymentMethod, ref string) {
	slog.WarnContext(ctx, "Payment notification rejected: invalid signature", "provider", provider, "order_ref", ref, "step", "verify")
	e.events.Emit(ctx, events.Event{
		Name:     events.PaymentSignatureRejected,
		Provider: string(provider),
		OrderID:  ref,
		At:       e.now().UTC(),
	})
}

// VNPayIPN handles the VNPAY server-to-server notification and returns the
// acknowledgement body VNPAY expects.
func (e *Engine) VNPayIPN(ctx context.Context, q url.Values) payment.VNPayAck {
	n, err := e.vnpay.ParseNotification(q)
	if err != nil {
		e.rejectSignature(ctx, models.PaymentVNPay, q.Get("vnp_TxnRef"))
		return vnpayAcks[resultSignature]
	}
	return vnpayAcks[e.apply(ctx, n)]
}

// VNPayReturn verifies a VNPAY browser return and reports the stored order
// state.
func (e *Engine) VNPayReturn(ctx context.Context, q url.Values) (*ReturnResult, error) {
	n, err := e.vnpay.ParseNotification(q)
	if err != nil {
		e.rejectSignature(ctx, models.PaymentVNPay, q.Get("vnp_TxnRef"))
		return nil, err
	}
	return e.readBack(ctx, n)
}

// MoMoIPN handles the MoMo server-to-server notification and returns the
// signed acknowledgement.
func (e *Engine) MoMoIPN(ctx context.Context, p map[string]string) payment.MoMoAck {
	n, err := e.momo.ParseNotification(p)
	if err != nil {
		return e.RejectMoMo(ctx, p)
	}
	ack := momoAcks[e.apply(ctx, n)]
	return e.momo.Ack(n, ack.code, ack.message)
}

// RejectMoMo builds the signed rejection MoMo receives for a notification
// that cannot be verified. p may be nil when the body was unreadable.
func (e *Engine) RejectMoMo(ctx context.Context, p map[string]string) payment.MoMoAck {
	e.rejectSignature(ctx, models.PaymentMoMo, p["orderId"])
	ack := momoAcks[resultSignature]
	raw := payment.Notification{OrderRef: p["orderId"], RequestID: p["requestId"], ExtraData: p["extraData"]}
	return e.momo.Ack(raw, ack.code, ack.message)
}

// MoMoReturn verifies a MoMo browser return and reports the stored order
// state.
func (e *Engine) MoMoReturn(ctx context.Context, p map[string]string) (*ReturnResult, error) {
	n, err := e.momo.ParseNotification(p)
	if err != nil {
		e.rejectSignature(ctx, models.PaymentMoMo, p["orderId"])
		return nil, err
	}
	return e.readBack(ctx, n)
}

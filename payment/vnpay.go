package payment

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"medishop/apperr"
	"medishop/config"
	"medishop/models"
)

const (
	vnpSecureHash     = "vnp_SecureHash"
	vnpSecureHashType = "vnp_SecureHashType"
	vnpTimeLayout     = "20060102150405"
	paymentLinkTTL    = 15 * time.Minute
)

// vnpayZone is GMT+7, the zone VNPAY expects timestamps in.
var vnpayZone = time.FixedZone("ICT", 7*60*60)

// VNPAY acknowledgement codes returned from the notification endpoint.
const (
	VNPayRspConfirmed       = "00"
	VNPayRspOrderNotFound   = "01"
	VNPayRspAlreadyUpdated  = "02"
	VNPayRspInvalidAmount   = "04"
	VNPayRspInvalidChecksum = "97"
	VNPayRspUnknownError    = "99"
)

var vnpayResponseText = map[string]string{
	"00": "Transaction successful",
	"07": "Money deducted, transaction suspected of fraud",
	"09": "Card or account not registered for internet banking",
	"10": "Card or account authentication failed more than 3 times",
	"11": "Payment window expired",
	"12": "Card or account is locked",
	"13": "Wrong OTP entered",
	"24": "Customer cancelled the transaction",
	"51": "Insufficient account balance",
	"65": "Daily transaction limit exceeded",
	"75": "Paying bank under maintenance",
	"79": "Wrong payment password entered too many times",
	"99": "Other error",
}

// VNPayResponseText maps a vnp_ResponseCode to a human-readable reason.
func VNPayResponseText(code string) string {
	if s, ok := vnpayResponseText[code]; ok {
		return s
	}
	return "Unknown error"
}

// VNPayAck is the JSON body VNPAY expects from the notification endpoint.
type VNPayAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// VNPay builds signed redirect URLs and verifies VNPAY callbacks.
type VNPay struct {
	cfg config.VNPay
	now func() time.Time
}

func NewVNPay(cfg config.VNPay) *VNPay {
	return &VNPay{cfg: cfg, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (g *VNPay) WithClock(now func() time.Time) *VNPay {
	g.now = now
	return g
}

func (g *VNPay) Configured() bool { return g.cfg.Configured() }

// Canonical returns the string VNPAY signs for params.
func (g *VNPay) Canonical(params url.Values) string {
	return SortedCanonical(params, vnpSecureHash, vnpSecureHashType)
}

// Sign signs params with the merchant hash secret.
func (g *VNPay) Sign(params url.Values) string {
	return SignSHA512(g.cfg.HashSecret, g.Canonical(params))
}

// Verify checks vnp_SecureHash against the remaining parameters. A missing
// hash never verifies.
func (g *VNPay) Verify(params url.Values) bool {
	if !g.Configured() {
		return false
	}
	return digestEqual(g.Sign(params), params.Get(vnpSecureHash))
}

// BuildURL returns the signed payment URL for req. The amount is sent in
// hundredths of the local unit.
func (g *VNPay) BuildURL(req PaymentRequest) (string, error) {
	if !g.Configured() {
		return "", apperr.Unavailable("VNPAY payment gateway is not configured")
	}
	if req.AmountLocal <= 0 {
		return "", apperr.Validation("invalid order total amount")
	}
	now := g.now().In(vnpayZone)
	ip := req.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	locale := req.Locale
	if locale == "" {
		locale = "vn"
	}

	params := url.Values{}
	params.Set("vnp_Version", g.cfg.Version)
	params.Set("vnp_Command", g.cfg.Command)
	params.Set("vnp_TmnCode", g.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.AmountLocal*100, 10))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", req.OrderRef)
	params.Set("vnp_OrderInfo", req.Description)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", locale)
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", now.Format(vnpTimeLayout))
	params.Set("vnp_ExpireDate", now.Add(paymentLinkTTL).Format(vnpTimeLayout))
	if req.BankCode != "" {
		params.Set("vnp_BankCode", req.BankCode)
	}

	query := g.Canonical(params)
	hash := SignSHA512(g.cfg.HashSecret, query)
	return g.cfg.PayURL + "?" + query + "&" + vnpSecureHashType + "=SHA512&" + vnpSecureHash + "=" + hash, nil
}

// ParseNotification verifies and normalizes an IPN or return query.
func (g *VNPay) ParseNotification(params url.Values) (Notification, error) {
	if !g.Verify(params) {
		return Notification{}, apperr.Signature("invalid signature")
	}
	n := Notification{
		Provider:      models.PaymentVNPay,
		OrderRef:      params.Get("vnp_TxnRef"),
		AmountLocal:   -1,
		Code:          params.Get("vnp_ResponseCode"),
		TransactionNo: params.Get("vnp_TransactionNo"),
		BankCode:      params.Get("vnp_BankCode"),
		PayDate:       params.Get("vnp_PayDate"),
	}
	if raw, err := strconv.ParseInt(params.Get("vnp_Amount"), 10, 64); err == nil && raw%100 == 0 {
		n.AmountLocal = raw / 100
	}
	if n.Code == "00" && params.Get("vnp_TransactionStatus") == "00" {
		n.Outcome = OutcomeSuccess
	} else {
		n.Outcome = OutcomeFailure
	}
	n.Reason = VNPayResponseText(n.Code)
	return n, nil
}

// PaymentURL satisfies the ledger's gateway contract.
func (g *VNPay) PaymentURL(_ context.Context, req PaymentRequest) (string, error) {
	return g.BuildURL(req)
}

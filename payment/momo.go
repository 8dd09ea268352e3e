package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"medishop/apperr"
	"medishop/config"
	"medishop/models"
)

// MoMo acknowledgement result codes returned from the notification endpoint.
const (
	MoMoAckOK             = 0
	MoMoAckOrderNotFound  = 1
	MoMoAckAlreadyHandled = 2
	MoMoAckInvalidAmount  = 4
	MoMoAckInvalidSig     = 97
	MoMoAckUnknownError   = 99
)

var momoInFlight = map[string]bool{
	"1000": true,
	"7000": true,
	"7002": true,
	"8000": true,
	"9000": true,
}

var momoResultText = map[string]string{
	"0":    "Successful",
	"9000": "Transaction authorized, awaiting capture",
	"8000": "Transaction pending user confirmation",
	"7000": "Transaction is being processed",
	"7002": "Transaction is being processed by the provider",
	"1000": "Transaction initiated, waiting for user confirmation",
	"1001": "Insufficient balance",
	"1002": "Transaction rejected by the issuer",
	"1003": "Transaction cancelled after authorization",
	"1004": "Amount exceeds payment limit",
	"1005": "Payment URL or QR code expired",
	"1006": "User declined the payment",
	"1007": "Account inactive or not found",
	"1017": "Transaction cancelled by merchant",
	"1026": "Transaction restricted by promotion rules",
	"1080": "Refund attempt failed",
	"1081": "Refund rejected",
	"2019": "Invalid orderGroupId",
	"4001": "Transaction restricted for this account",
	"4100": "User login failed",
}

// MoMoResultText maps a MoMo resultCode to a human-readable reason.
func MoMoResultText(code string) string {
	if s, ok := momoResultText[code]; ok {
		return s
	}
	return "Unknown error"
}

// MoMoCreateRequest is the signed JSON body posted to the create endpoint.
type MoMoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	PartnerName string `json:"partnerName"`
	StoreID     string `json:"storeId"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	Lang        string `json:"lang"`
	ExtraData   string `json:"extraData"`
	RequestType string `json:"requestType"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	ResultCode  int    `json:"resultCode"`
	Message     string `json:"message"`
	PayURL      string `json:"payUrl"`
}

// MoMoAck is the signed JSON body MoMo expects from the notification endpoint.
type MoMoAck struct {
	PartnerCode  string `json:"partnerCode"`
	RequestID    string `json:"requestId"`
	OrderID      string `json:"orderId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// MoMo builds signed create requests, calls the gateway and verifies callbacks.
type MoMo struct {
	cfg    config.MoMo
	client *http.Client
	now    func() time.Time
	newID  func() string
}

func NewMoMo(cfg config.MoMo) *MoMo {
	return &MoMo{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithHTTPClient replaces the client used to reach the create endpoint.
func (g *MoMo) WithHTTPClient(c *http.Client) *MoMo {
	g.client = c
	return g
}

func (g *MoMo) WithClock(now func() time.Time) *MoMo {
	g.now = now
	return g
}

func (g *MoMo) Configured() bool { return g.cfg.Configured() }

// BuildRequest returns the signed create request for req. The amount is sent
// in whole local units and every call gets a fresh request id.
func (g *MoMo) BuildRequest(req PaymentRequest) (MoMoCreateRequest, error) {
	if !g.Configured() {
		return MoMoCreateRequest{}, apperr.Unavailable("MoMo payment gateway is not configured")
	}
	if req.AmountLocal <= 0 {
		return MoMoCreateRequest{}, apperr.Validation("invalid order total amount")
	}
	info := req.Description
	if info == "" {
		info = "Thanh toan don hang " + req.OrderRef
	}
	r := MoMoCreateRequest{
		PartnerCode: g.cfg.PartnerCode,
		PartnerName: "MediShop",
		StoreID:     "MediShop",
		RequestID:   g.newID(),
		Amount:      req.AmountLocal,
		OrderID:     req.OrderRef,
		OrderInfo:   info,
		RedirectURL: g.cfg.RedirectURL,
		IPNURL:      g.cfg.IPNURL,
		Lang:        "vi",
		RequestType: g.cfg.RequestType,
	}
	r.Signature = SignSHA256(g.cfg.SecretKey, OrderedCanonical([]Field{
		{"accessKey", g.cfg.AccessKey},
		{"amount", strconv.FormatInt(r.Amount, 10)},
		{"extraData", r.ExtraData},
		{"ipnUrl", r.IPNURL},
		{"orderId", r.OrderID},
		{"orderInfo", r.OrderInfo},
		{"partnerCode", r.PartnerCode},
		{"redirectUrl", r.RedirectURL},
		{"requestId", r.RequestID},
		{"requestType", r.RequestType},
	}))
	return r, nil
}

// Create posts a signed create request and returns the hosted payment URL.
func (g *MoMo) Create(ctx context.Context, req PaymentRequest) (string, error) {
	body, err := g.BuildRequest(req)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperr.Internal(err, "encode MoMo request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Internal(err, "build MoMo request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", apperr.Unavailable("MoMo gateway unreachable")
	}
	defer resp.Body.Close()

	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Unavailable("MoMo gateway returned an unreadable response (HTTP %d)", resp.StatusCode)
	}
	if out.ResultCode != 0 || out.PayURL == "" {
		return "", apperr.Unavailable("MoMo payment creation failed: %s", out.Message)
	}
	return out.PayURL, nil
}

func (g *MoMo) notificationCanonical(p map[string]string) string {
	return OrderedCanonical([]Field{
		{"accessKey", g.cfg.AccessKey},
		{"amount", p["amount"]},
		{"extraData", p["extraData"]},
		{"message", p["message"]},
		{"orderId", p["orderId"]},
		{"orderInfo", p["orderInfo"]},
		{"orderType", p["orderType"]},
		{"partnerCode", p["partnerCode"]},
		{"payType", p["payType"]},
		{"requestId", p["requestId"]},
		{"responseTime", p["responseTime"]},
		{"resultCode", p["resultCode"]},
		{"transId", p["transId"]},
	})
}

// SignNotification signs a notification parameter set the way MoMo does.
func (g *MoMo) SignNotification(p map[string]string) string {
	return SignSHA256(g.cfg.SecretKey, g.notificationCanonical(p))
}

// Verify checks the signature field of a notification parameter set.
func (g *MoMo) Verify(p map[string]string) bool {
	if !g.Configured() {
		return false
	}
	return digestEqual(g.SignNotification(p), p["signature"])
}

// ParseNotification verifies and normalizes an IPN or return parameter set.
func (g *MoMo) ParseNotification(p map[string]string) (Notification, error) {
	if !g.Verify(p) {
		return Notification{}, apperr.Signature("invalid signature")
	}
	n := Notification{
		Provider:      models.PaymentMoMo,
		OrderRef:      p["orderId"],
		AmountLocal:   -1,
		Code:          p["resultCode"],
		TransactionNo: p["transId"],
		BankCode:      p["payType"],
		PayDate:       p["responseTime"],
		RequestID:     p["requestId"],
		ExtraData:     p["extraData"],
	}
	if amount, err := strconv.ParseInt(p["amount"], 10, 64); err == nil {
		n.AmountLocal = amount
	}
	switch {
	case n.Code == "0":
		n.Outcome = OutcomeSuccess
	case momoInFlight[n.Code]:
		n.Outcome = OutcomePending
	default:
		n.Outcome = OutcomeFailure
	}
	n.Reason = MoMoResultText(n.Code)
	if n.Outcome == OutcomeFailure && p["message"] != "" && n.Reason == "Unknown error" {
		n.Reason = p["message"]
	}
	return n, nil
}

// Ack builds the signed acknowledgement for a notification.
func (g *MoMo) Ack(n Notification, code int, message string) MoMoAck {
	ack := MoMoAck{
		PartnerCode:  g.cfg.PartnerCode,
		RequestID:    n.RequestID,
		OrderID:      n.OrderRef,
		ResultCode:   code,
		Message:      message,
		ResponseTime: g.now().UnixMilli(),
		ExtraData:    n.ExtraData,
	}
	ack.Signature = SignSHA256(g.cfg.SecretKey, OrderedCanonical([]Field{
		{"accessKey", g.cfg.AccessKey},
		{"extraData", ack.ExtraData},
		{"message", ack.Message},
		{"orderId", ack.OrderID},
		{"partnerCode", ack.PartnerCode},
		{"requestId", ack.RequestID},
		{"responseTime", strconv.FormatInt(ack.ResponseTime, 10)},
		{"resultCode", fmt.Sprint(ack.ResultCode)},
	}))
	return ack
}

func (g *MoMo) PaymentURL(ctx context.Context, req PaymentRequest) (string, error) {
	return g.Create(ctx, req)
}

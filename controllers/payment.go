package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medishop/apperr"
	"medishop/ledger"
	"medishop/models"
	"medishop/reconcile"
	"medishop/utils"
)

// Payment link creation may call out to the provider.
const paymentTimeout = 15 * time.Second

// PaymentController serves payment link creation and the provider callbacks.
type PaymentController struct {
	Orders      *ledger.OrderService
	Engine      *reconcile.Engine
	FrontendURL string
}

func NewPaymentController(orders *ledger.OrderService, engine *reconcile.Engine, frontendURL string) *PaymentController {
	return &PaymentController{Orders: orders, Engine: engine, FrontendURL: strings.TrimRight(frontendURL, "/")}
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (pc *PaymentController) create(w http.ResponseWriter, r *http.Request, method models.PaymentMethod) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body struct {
		OrderID      string `json:"orderId"`
		OrderIDSnake string `json:"order_id"`
		BankCode     string `json:"bank_code"`
		Locale       string `json:"locale"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	id := body.OrderID
	if id == "" {
		id = body.OrderIDSnake
	}
	if id == "" {
		utils.WriteError(w, r, apperr.Validation("orderId is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), paymentTimeout)
	defer cancel()
	link, err := pc.Orders.RequestPaymentURL(ctx, p, id, method, ledger.PaymentOptions{
		ClientIP: clientIP(r),
		BankCode: body.BankCode,
		Locale:   body.Locale,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, link)
}

// CreateVNPay returns a signed VNPAY redirect for one of the caller's orders.
func (pc *PaymentController) CreateVNPay(w http.ResponseWriter, r *http.Request) {
	pc.create(w, r, models.PaymentVNPay)
}

// CreateMoMo returns a MoMo pay URL for one of the caller's orders.
func (pc *PaymentController) CreateMoMo(w http.ResponseWriter, r *http.Request) {
	pc.create(w, r, models.PaymentMoMo)
}

// VNPayIPN is the VNPAY server-to-server notification. VNPAY expects HTTP 200
// with a RspCode body for every outcome.
func (pc *PaymentController) VNPayIPN(w http.ResponseWriter, r *http.Request) {
	ack := pc.Engine.VNPayIPN(r.Context(), r.URL.Query())
	utils.WriteJSON(w, http.StatusOK, ack)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// returnRedirect builds the storefront result page for a browser return.
func (pc *PaymentController) returnRedirect(method models.PaymentMethod, res *reconcile.ReturnResult) string {
	q := url.Values{}
	q.Set("orderId", res.OrderID)
	q.Set("orderCode", res.OrderCode)
	q.Set("amount", strconv.FormatInt(res.AmountLocal, 10))
	q.Set("method", strings.ToLower(string(method)))
	page := "/payment-result"
	switch res.Outcome {
	case reconcile.ReturnSuccess:
		page = "/payment-success"
	case reconcile.ReturnFailed:
		page = "/payment-fail"
		if res.Reason != "" {
			q.Set("message", res.Reason)
		}
	}
	return pc.FrontendURL + page + "?" + q.Encode()
}

func (pc *PaymentController) failRedirect(method models.PaymentMethod, ref string, err error) string {
	q := url.Values{}
	if ref != "" {
		q.Set("orderId", ref)
	}
	q.Set("method", strings.ToLower(string(method)))
	q.Set("message", apperr.PublicMessage(err))
	return pc.FrontendURL + "/payment-fail?" + q.Encode()
}

func (pc *PaymentController) finishReturn(w http.ResponseWriter, r *http.Request, method models.PaymentMethod, ref string, res *reconcile.ReturnResult, err error) {
	if wantsJSON(r) {
		if err != nil {
			utils.WriteError(w, r, err)
			return
		}
		utils.WriteJSON(w, http.StatusOK, res)
		return
	}
	if err != nil {
		if !errors.Is(err, apperr.ErrSignature) && !errors.Is(err, apperr.ErrNotFound) {
			utils.WriteError(w, r, err)
			return
		}
		http.Redirect(w, r, pc.failRedirect(method, ref, err), http.StatusFound)
		return
	}
	http.Redirect(w, r, pc.returnRedirect(method, res), http.StatusFound)
}

// VNPayReturn verifies the browser return and redirects to the storefront
// page matching what the ledger recorded.
func (pc *PaymentController) VNPayReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := pc.Engine.VNPayReturn(r.Context(), q)
	pc.finishReturn(w, r, models.PaymentVNPay, q.Get("vnp_TxnRef"), res, err)
}

// momoParams flattens a MoMo callback into string fields. MoMo posts JSON
// with numeric amounts; return redirects arrive as a query or form.
func momoParams(r *http.Request) (map[string]string, error) {
	out := map[string]string{}
	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, apperr.Validation("Invalid notification body")
		}
		for k, v := range raw {
			if v == nil {
				out[k] = ""
				continue
			}
			out[k] = fmt.Sprint(v)
		}
		return out, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, apperr.Validation("Invalid notification body")
	}
	for k := range r.Form {
		out[k] = r.Form.Get(k)
	}
	return out, nil
}

// MoMoIPN is the MoMo server-to-server notification. The acknowledgement is
// signed and always sent with HTTP 200.
func (pc *PaymentController) MoMoIPN(w http.ResponseWriter, r *http.Request) {
	params, err := momoParams(r)
	if err != nil {
		slog.WarnContext(r.Context(), "Unreadable MoMo notification body", "err", err)
		utils.WriteJSON(w, http.StatusOK, pc.Engine.RejectMoMo(r.Context(), nil))
		return
	}
	ack := pc.Engine.MoMoIPN(r.Context(), params)
	utils.WriteJSON(w, http.StatusOK, ack)
}

// MoMoReturn verifies the MoMo browser return, sent as GET or POST.
func (pc *PaymentController) MoMoReturn(w http.ResponseWriter, r *http.Request) {
	params, err := momoParams(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	res, err := pc.Engine.MoMoReturn(r.Context(), params)
	pc.finishReturn(w, r, models.PaymentMoMo, params["orderId"], res, err)
}

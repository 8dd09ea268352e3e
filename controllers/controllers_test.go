package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"medishop/config"
	"medishop/controllers"
	"medishop/events"
	"medishop/ledger"
	"medishop/middleware"
	"medishop/models"
	"medishop/payment"
	"medishop/reconcile"
	"medishop/repository/memory"
	"medishop/routes"
	"medishop/utils"
)

const frontend = "http://shop.test"

type app struct {
	router  *mux.Router
	store   *memory.Store
	users   *ledger.UserService
	tokens  *utils.TokenIssuer
	catalog *ledger.CatalogService
	vnpay   *payment.VNPay
	momo    *payment.MoMo
	events  *events.Recorder
}

func newApp(t *testing.T) *app {
	t.Helper()
	store := memory.New()
	rec := &events.Recorder{}
	tokens := utils.NewTokenIssuer("test-secret")
	vnpay := payment.NewVNPay(config.VNPay{TmnCode: "TMN", HashSecret: "vnp-secret", PayURL: "https://sandbox.test/pay", Version: "2.1.0", Command: "pay"})
	momo := payment.NewMoMo(config.MoMo{PartnerCode: "MOMO", AccessKey: "ak", SecretKey: "momo-secret"})

	orders := ledger.NewOrderService(ledger.OrderServiceDeps{
		Products: store.Products(),
		Orders:   store.Orders(),
		Carts:    store.Carts(),
		Pricing:  config.Pricing{ExchangeRate: 25000},
		Gateways: map[models.PaymentMethod]ledger.Gateway{models.PaymentVNPay: vnpay},
		Events:   rec,
	})
	users := ledger.NewUserService(store.Users(), tokens).WithHashCost(bcrypt.MinCost).WithOrders(store.Orders())
	catalog := ledger.NewCatalogService(store.Products())
	engine := reconcile.New(store.Orders(), orders.Converter(), vnpay, momo, rec)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, middleware.NewAuth(tokens, users), routes.Controllers{
		Users:    controllers.NewUserController(users),
		Products: controllers.NewProductController(catalog),
		Carts:    controllers.NewCartController(ledger.NewCartService(store.Products(), store.Carts())),
		Orders:   controllers.NewOrderController(orders),
		Payments: controllers.NewPaymentController(orders, engine, frontend+"/"),
	})
	return &app{router: router, store: store, users: users, tokens: tokens, catalog: catalog, vnpay: vnpay, momo: momo, events: rec}
}

func (a *app) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *app) login(t *testing.T, email string) string {
	t.Helper()
	rr := a.do(t, "POST", "/api/auth/register", "", map[string]string{"name": "Lan", "email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = a.do(t, "POST", "/api/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (a *app) adminToken(t *testing.T) string {
	t.Helper()
	_, err := a.users.EnsureAdmin(context.Background(), "Admin", "admin@shop.test", "adminpw")
	require.NoError(t, err)
	token, _, err := a.users.Login(context.Background(), "admin@shop.test", "adminpw")
	require.NoError(t, err)
	return token
}

func (a *app) product(t *testing.T, price float64, stock int) *models.Product {
	t.Helper()
	p, err := a.catalog.CreateProduct(context.Background(), ledger.ProductInput{Name: "Vitamin C", Price: price, Stock: stock, Category: "vitamins"})
	require.NoError(t, err)
	return p
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rr)["error"]
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")

	rr := a.do(t, "GET", "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lan@shop.test", decode[models.User](t, rr).Email)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = a.do(t, "GET", "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Authorization header missing", errorOf(t, rr))

	req := httptest.NewRequest("GET", "/api/profile", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rr = a.do(t, "GET", "/api/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = a.do(t, "POST", "/api/auth/register", "", map[string]string{"name": "Lan", "email": "lan@shop.test", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = a.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "lan@shop.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBannedUserRejected(t *testing.T) {
	a := newApp(t)
	u := &models.User{Name: "B", Email: "ban@shop.test", Role: models.RoleUser, Banned: true}
	require.NoError(t, a.store.Users().Insert(context.Background(), u))
	token, err := a.tokens.GenerateJWT(*u)
	require.NoError(t, err)

	rr := a.do(t, "GET", "/api/profile", token, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAdminGate(t *testing.T) {
	a := newApp(t)
	user := a.login(t, "lan@shop.test")
	admin := a.adminToken(t)
	body := map[string]any{"name": "Thermometer", "price": 12.5, "stock": 3, "category": "devices"}

	rr := a.do(t, "POST", "/api/admin/products", user, body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.do(t, "POST", "/api/admin/products", admin, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[models.Product](t, rr)
	assert.True(t, created.IsActive)

	rr = a.do(t, "GET", "/api/products/"+created.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = a.do(t, "GET", "/api/products/nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateOrderAcceptsItemAliases(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	p1 := a.product(t, 10, 5)
	p2 := a.product(t, 2.5, 5)
	p3 := a.product(t, 1, 5)

	rr := a.do(t, "POST", "/api/orders", token, map[string]any{
		"items": []map[string]any{
			{"productId": p1.ID.Hex(), "quantity": 1},
			{"product_id": p2.ID.Hex(), "quantity": 2},
			{"id": p3.ID.Hex(), "quantity": 3},
		},
		"shipping_info":  map[string]string{"full_name": "Lan", "phone": "0901", "address": "1 Le Loi", "city": "HCM"},
		"payment_method": "cod",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	order := decode[models.Order](t, rr)
	assert.Len(t, order.Items, 3)
	assert.Equal(t, 18.0, order.Total)
	assert.Equal(t, int64(450000), order.TotalLocal)
	assert.Equal(t, "Lan", order.Shipping.FullName)

	for id, want := range map[string]int{p1.ID.Hex(): 4, p2.ID.Hex(): 3, p3.ID.Hex(): 2} {
		p, err := a.catalog.GetProduct(context.Background(), id, true)
		require.NoError(t, err)
		assert.Equal(t, want, p.Stock)
	}

	rr = a.do(t, "POST", "/api/orders/"+order.ID.Hex()+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.OrderCancelled, decode[models.Order](t, rr).Status)
	p, err := a.catalog.GetProduct(context.Background(), p1.ID.Hex(), true)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	rr = a.do(t, "POST", "/api/orders/"+order.ID.Hex()+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateOrderOutOfStock(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	p := a.product(t, 10, 1)

	rr := a.do(t, "POST", "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": p.ID.Hex(), "quantity": 2}},
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, errorOf(t, rr), "Out of stock")
}

func TestOrderFromCart(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	p := a.product(t, 4, 10)

	rr := a.do(t, "POST", "/api/cart", token, map[string]any{"product_id": p.ID.Hex(), "quantity": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 8.0, decode[models.Cart](t, rr).Total)

	rr = a.do(t, "POST", "/api/orders", token, map[string]any{})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = a.do(t, "GET", "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[models.Cart](t, rr).Items)

	rr = a.do(t, "GET", "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Order](t, rr), 1)
}

func TestOrderOwnership(t *testing.T) {
	a := newApp(t)
	owner := a.login(t, "owner@shop.test")
	other := a.login(t, "other@shop.test")
	p := a.product(t, 4, 10)

	rr := a.do(t, "POST", "/api/orders", owner, map[string]any{
		"items": []map[string]any{{"productId": p.ID.Hex(), "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[models.Order](t, rr).ID.Hex()

	assert.Equal(t, http.StatusForbidden, a.do(t, "GET", "/api/orders/"+id, other, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, "POST", "/api/orders/"+id+"/cancel", other, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, "GET", "/api/orders/"+id, owner, nil).Code)
}

func TestAdminStatusUpdate(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	admin := a.adminToken(t)
	p := a.product(t, 4, 10)

	rr := a.do(t, "POST", "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": p.ID.Hex(), "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[models.Order](t, rr).ID.Hex()

	rr = a.do(t, "PATCH", "/api/admin/orders/"+id+"/status", admin, map[string]string{"status": "Delivered"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, errorOf(t, rr), "Allowed:")

	rr = a.do(t, "PATCH", "/api/admin/orders/"+id+"/status", admin, map[string]string{"status": "Confirmed", "note": "packed"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, models.OrderConfirmed, decode[models.Order](t, rr).Status)

	rr = a.do(t, "GET", "/api/admin/orders?status=Confirmed", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[ledger.OrderPage](t, rr)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.Limit)
}

// gatewayOrder places an order of 20.00 (500000 local) paid with method.
func (a *app) gatewayOrder(t *testing.T, token, method string) models.Order {
	t.Helper()
	p := a.product(t, 10, 10)
	rr := a.do(t, "POST", "/api/orders", token, map[string]any{
		"items":          []map[string]any{{"productId": p.ID.Hex(), "quantity": 2}},
		"payment_method": method,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[models.Order](t, rr)
}

func (a *app) vnpayQuery(ref, amount, code string) url.Values {
	q := url.Values{
		"vnp_TxnRef":            {ref},
		"vnp_Amount":            {amount},
		"vnp_ResponseCode":      {code},
		"vnp_TransactionStatus": {code},
		"vnp_TransactionNo":     {"14400001"},
		"vnp_BankCode":          {"NCB"},
	}
	q.Set("vnp_SecureHash", a.vnpay.Sign(q))
	return q
}

func TestVNPayCheckoutFlow(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	order := a.gatewayOrder(t, token, "VNPAY")

	req := httptest.NewRequest("POST", "/api/payment/vnpay/create", strings.NewReader(`{"orderId":"`+order.ID.Hex()+`"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	link := decode[ledger.PaymentLink](t, rr)
	assert.Equal(t, int64(500000), link.AmountLocal)
	u, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, "50000000", u.Query().Get("vnp_Amount"))
	assert.Equal(t, "203.0.113.7", u.Query().Get("vnp_IpAddr"))

	// Return before the IPN reports the order as still pending.
	q := a.vnpayQuery(order.ID.Hex(), "50000000", "00")
	rr = a.do(t, "GET", "/api/payment/vnpay/return?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), frontend+"/payment-result?"))

	rr = a.do(t, "GET", "/api/payment/vnpay/ipn?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "00", decode[payment.VNPayAck](t, rr).RspCode)

	rr = a.do(t, "GET", "/api/payment/vnpay/ipn?"+q.Encode(), "", nil)
	assert.Equal(t, "02", decode[payment.VNPayAck](t, rr).RspCode)

	rr = a.do(t, "GET", "/api/payment/vnpay/return?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/payment-success", loc.Path)
	assert.Equal(t, order.ID.Hex(), loc.Query().Get("orderId"))
	assert.Equal(t, "vnpay", loc.Query().Get("method"))

	req = httptest.NewRequest("GET", "/api/payment/vnpay/return?"+q.Encode(), nil)
	req.Header.Set("Accept", "application/json")
	rr = httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[reconcile.ReturnResult](t, rr)
	assert.Equal(t, reconcile.ReturnSuccess, res.Outcome)
	assert.Equal(t, models.OrderPaid, res.Status)

	// A paid order cannot start another payment.
	rr = a.do(t, "POST", "/api/payment/vnpay/create", token, map[string]string{"order_id": order.ID.Hex()})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestVNPayCallbacksRejectTampering(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	order := a.gatewayOrder(t, token, "VNPAY")

	q := a.vnpayQuery(order.ID.Hex(), "50000000", "00")
	q.Set("vnp_Amount", "100")
	rr := a.do(t, "GET", "/api/payment/vnpay/ipn?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "97", decode[payment.VNPayAck](t, rr).RspCode)

	rr = a.do(t, "GET", "/api/payment/vnpay/return?"+q.Encode(), "", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/payment-fail", loc.Path)
	assert.NotEmpty(t, loc.Query().Get("message"))

	got, err := a.store.Orders().FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, got.Payment.Status)
	assert.Len(t, a.events.Named(events.PaymentSignatureRejected), 2)
}

func TestVNPayAmountMismatchFailsOrder(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	order := a.gatewayOrder(t, token, "VNPAY")

	q := a.vnpayQuery(order.ID.Hex(), "100000", "00")
	rr := a.do(t, "GET", "/api/payment/vnpay/ipn?"+q.Encode(), "", nil)
	assert.Equal(t, "04", decode[payment.VNPayAck](t, rr).RspCode)

	rr = a.do(t, "GET", "/api/payment/vnpay/return?"+q.Encode(), "", nil)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/payment-fail", loc.Path)
}

func TestMoMoIPNAcceptsJSONAndForm(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	first := a.gatewayOrder(t, token, "MOMO")
	second := a.gatewayOrder(t, token, "MOMO")

	params := func(ref string) map[string]string {
		p := map[string]string{
			"partnerCode":  "MOMO",
			"orderId":      ref,
			"requestId":    "req-1",
			"amount":       "500000",
			"orderInfo":    "Thanh toan don hang",
			"orderType":    "momo_wallet",
			"transId":      "3100000001",
			"resultCode":   "0",
			"message":      "Successful.",
			"payType":      "qr",
			"responseTime": "1714532645000",
			"extraData":    "",
		}
		p["signature"] = a.momo.SignNotification(p)
		return p
	}

	// JSON body with numeric fields, as MoMo posts it.
	p := params(first.ID.Hex())
	body := `{"partnerCode":"MOMO","orderId":"` + p["orderId"] + `","requestId":"req-1","amount":500000,` +
		`"orderInfo":"Thanh toan don hang","orderType":"momo_wallet","transId":3100000001,"resultCode":0,` +
		`"message":"Successful.","payType":"qr","responseTime":1714532645000,"extraData":"","signature":"` + p["signature"] + `"}`
	req := httptest.NewRequest("POST", "/api/payment/momo/ipn", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	ack := decode[payment.MoMoAck](t, rr)
	assert.Equal(t, payment.MoMoAckOK, ack.ResultCode)
	assert.NotEmpty(t, ack.Signature)

	form := url.Values{}
	for k, v := range params(second.ID.Hex()) {
		form.Set(k, v)
	}
	req = httptest.NewRequest("POST", "/api/payment/momo/ipn", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, payment.MoMoAckOK, decode[payment.MoMoAck](t, rr).ResultCode)

	for _, id := range []string{first.ID.Hex(), second.ID.Hex()} {
		rr = a.do(t, "GET", "/api/orders/"+id, token, nil)
		assert.Equal(t, models.PaymentPaid, decode[models.Order](t, rr).Payment.Status)
	}

	rr = a.do(t, "GET", "/api/payment/momo/return?"+form.Encode(), "", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), frontend+"/payment-success?"))
}

func TestMoMoIPNMalformedBodyGetsSignedRejection(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest("POST", "/api/payment/momo/ipn", strings.NewReader(`{"orderId":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	ack := decode[payment.MoMoAck](t, rr)
	assert.Equal(t, payment.MoMoAckInvalidSig, ack.ResultCode)
	assert.NotEmpty(t, ack.Signature)
	assert.Len(t, a.events.Named(events.PaymentSignatureRejected), 1)
}

func TestMoMoCreateUnconfigured(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	order := a.gatewayOrder(t, token, "MOMO")

	rr := a.do(t, "POST", "/api/payment/momo/create", token, map[string]string{"orderId": order.ID.Hex()})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = a.do(t, "POST", "/api/payment/vnpay/create", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminUserManagement(t *testing.T) {
	a := newApp(t)
	userToken := a.login(t, "lan@shop.test")
	admin := a.adminToken(t)
	lan, err := a.store.Users().FindByEmail(context.Background(), "lan@shop.test")
	require.NoError(t, err)
	root, err := a.store.Users().FindByEmail(context.Background(), "admin@shop.test")
	require.NoError(t, err)

	rr := a.do(t, "GET", "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.do(t, "GET", "/api/admin/users?q=lan&limit=5", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := decode[ledger.UserPage](t, rr)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Users, 1)
	assert.NotContains(t, rr.Body.String(), "password")

	rr = a.do(t, "GET", "/api/admin/users/"+lan.ID.Hex(), admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "lan@shop.test", decode[ledger.UserDetail](t, rr).User.Email)

	rr = a.do(t, "PATCH", "/api/admin/users/"+lan.ID.Hex(), admin, map[string]string{"email": "admin@shop.test"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = a.do(t, "PATCH", "/api/admin/users/"+lan.ID.Hex(), admin, map[string]string{"phone": "0909"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = a.do(t, "PATCH", "/api/admin/users/"+lan.ID.Hex()+"/ban", admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ban must be a boolean", errorOf(t, rr))
	rr = a.do(t, "PATCH", "/api/admin/users/"+root.ID.Hex()+"/ban", admin, map[string]bool{"ban": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = a.do(t, "PATCH", "/api/admin/users/"+lan.ID.Hex()+"/ban", admin, map[string]bool{"ban": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = a.do(t, "GET", "/api/profile", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = a.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "lan@shop.test", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = a.do(t, "PATCH", "/api/admin/users/"+lan.ID.Hex()+"/ban", admin, map[string]bool{"ban": false})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = a.do(t, "GET", "/api/profile", userToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, "PATCH", "/api/admin/users/"+lan.ID.Hex()+"/role", admin, map[string]string{"role": "superuser"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = a.do(t, "PATCH", "/api/admin/users/"+root.ID.Hex()+"/role", admin, map[string]string{"role": "user"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = a.do(t, "PATCH", "/api/admin/users/"+lan.ID.Hex()+"/role", admin, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = a.do(t, "GET", "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, "POST", "/api/admin/users/"+lan.ID.Hex()+"/reset-password", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	temp := decode[map[string]string](t, rr)["tempPassword"]
	require.NotEmpty(t, temp)
	rr = a.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "lan@shop.test", "password": temp})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, "GET", "/api/admin/users/"+primitive.NewObjectID().Hex(), admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminSeesInactiveProducts(t *testing.T) {
	a := newApp(t)
	admin := a.adminToken(t)
	p := a.product(t, 5, 10)

	rr := a.do(t, "DELETE", "/api/admin/products/"+p.ID.Hex(), admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, "GET", "/api/products/"+p.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = a.do(t, "GET", "/api/products", "", nil)
	assert.Empty(t, decode[[]models.Product](t, rr))

	rr = a.do(t, "GET", "/api/admin/products/"+p.ID.Hex(), admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[models.Product](t, rr).IsActive)
	rr = a.do(t, "GET", "/api/admin/products?category=vitamins", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Product](t, rr), 1)
}

func TestClearCart(t *testing.T) {
	a := newApp(t)
	token := a.login(t, "lan@shop.test")
	p := a.product(t, 5, 10)

	rr := a.do(t, "POST", "/api/cart", token, map[string]any{"product_id": p.ID.Hex(), "quantity": 2})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = a.do(t, "DELETE", "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = a.do(t, "GET", "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[models.Cart](t, rr).Items)
}

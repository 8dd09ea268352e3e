package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"medishop/ledger"
	"medishop/middleware"
	"medishop/models"
	"medishop/utils"
)

// OrderController handles order-related requests
type OrderController struct {
	Orders *ledger.OrderService
}

// NewOrderController creates a new OrderController
func NewOrderController(orders *ledger.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// lineItemBody accepts the product reference under any of the names clients
// send.
type lineItemBody struct {
	ProductID      string `json:"productId"`
	ProductIDSnake string `json:"product_id"`
	ID             string `json:"id"`
	Quantity       int    `json:"quantity"`
}

func (b lineItemBody) normalize() ledger.LineItem {
	id := b.ProductID
	if id == "" {
		id = b.ProductIDSnake
	}
	if id == "" {
		id = b.ID
	}
	return ledger.LineItem{ProductID: id, Quantity: b.Quantity}
}

type createOrderBody struct {
	Items         []lineItemBody       `json:"items"`
	Shipping      *models.ShippingInfo `json:"shipping"`
	ShippingInfo  *models.ShippingInfo `json:"shipping_info"`
	PaymentMethod string               `json:"payment_method"`
	Notes         string               `json:"notes"`
}

// CreateOrder places an order from the given items, or from the cart when
// none are given.
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var body createOrderBody
	if !decodeBody(w, r, &body) {
		return
	}
	in := ledger.CreateOrderInput{PaymentMethod: body.PaymentMethod, Notes: body.Notes}
	for _, it := range body.Items {
		in.Items = append(in.Items, it.normalize())
	}
	switch {
	case body.Shipping != nil:
		in.Shipping = *body.Shipping
	case body.ShippingInfo != nil:
		in.Shipping = *body.ShippingInfo
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	order, err := oc.Orders.CreateOrder(ctx, p, in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order)
}

// GetOrders lists the caller's orders, newest first
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	orders, err := oc.Orders.ListOrders(ctx, p)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// GetOrder returns one of the caller's orders
func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	order, err := oc.Orders.GetOrder(ctx, p, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// CancelOrder cancels a pending order and returns its stock
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	order, err := oc.Orders.CancelOrder(ctx, p, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// AdminGetOrders pages through all orders, filtered by ?status= and ?user_id=
func (oc *OrderController) AdminGetOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	res, err := oc.Orders.AdminListOrders(ctx, q.Get("status"), q.Get("user_id"), page, limit)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (oc *OrderController) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	order, err := oc.Orders.AdminGetOrder(ctx, mux.Vars(r)["id"])
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus moves an order along the status machine
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.PrincipalFrom(r.Context())
	var body struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	order, err := oc.Orders.AdminUpdateStatus(ctx, actor, mux.Vars(r)["id"], body.Status, body.Note)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

type shippingPatchBody struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
	State    *string `json:"state"`
	Zip      *string `json:"zip"`
	Country  *string `json:"country"`
	Note     *string `json:"note"`
}

// UpdateOrder edits the notes and shipping details of an order
func (oc *OrderController) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.PrincipalFrom(r.Context())
	var body struct {
		Notes    *string            `json:"notes"`
		Shipping *shippingPatchBody `json:"shipping"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	upd := ledger.AdminOrderUpdate{Notes: body.Notes}
	if s := body.Shipping; s != nil {
		upd.Shipping = &ledger.ShippingPatch{
			FullName: s.FullName,
			Phone:    s.Phone,
			Email:    s.Email,
			Address:  s.Address,
			City:     s.City,
			State:    s.State,
			Zip:      s.Zip,
			Country:  s.Country,
			Note:     s.Note,
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	order, err := oc.Orders.AdminUpdateOrder(ctx, actor, mux.Vars(r)["id"], upd)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// DeleteOrder removes an order, returning its stock unless it was already
// cancelled or delivered
func (oc *OrderController) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.PrincipalFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := oc.Orders.AdminDeleteOrder(ctx, actor, mux.Vars(r)["id"]); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Order deleted"})
}

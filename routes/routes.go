// routes/routes.go
package routes

import (
	"github.com/gorilla/mux"

	"medishop/controllers"
	"medishop/middleware"
)

// Controllers groups every handler set the router serves.
type Controllers struct {
	Users    *controllers.UserController
	Products *controllers.ProductController
	Carts    *controllers.CartController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
}

// RegisterRoutes sets up all the routes for the application under /api
func RegisterRoutes(router *mux.Router, auth *middleware.Auth, c Controllers) {
	api := router.PathPrefix("/api").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", c.Users.Register).Methods("POST")
	api.HandleFunc("/auth/login", c.Users.Login).Methods("POST")
	api.HandleFunc("/products", c.Products.GetProducts).Methods("GET")
	api.HandleFunc("/products/{id}", c.Products.GetProductByID).Methods("GET")

	// Provider callbacks carry their own signatures
	api.HandleFunc("/payment/vnpay/ipn", c.Payments.VNPayIPN).Methods("GET")
	api.HandleFunc("/payment/vnpay/return", c.Payments.VNPayReturn).Methods("GET")
	api.HandleFunc("/payment/momo/ipn", c.Payments.MoMoIPN).Methods("POST")
	api.HandleFunc("/payment/momo/return", c.Payments.MoMoReturn).Methods("GET", "POST")

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(auth.AuthMiddleware)
	protected.HandleFunc("/profile", c.Users.GetProfile).Methods("GET")

	// Cart Routes
	protected.HandleFunc("/cart", c.Carts.GetCart).Methods("GET")
	protected.HandleFunc("/cart", c.Carts.AddToCart).Methods("POST")
	protected.HandleFunc("/cart", c.Carts.ClearCart).Methods("DELETE")
	protected.HandleFunc("/cart/{product_id}", c.Carts.RemoveFromCart).Methods("DELETE")

	// Order Routes
	protected.HandleFunc("/orders", c.Orders.GetOrders).Methods("GET")
	protected.HandleFunc("/orders", c.Orders.CreateOrder).Methods("POST")
	protected.HandleFunc("/orders/{id}", c.Orders.GetOrder).Methods("GET")
	protected.HandleFunc("/orders/{id}/cancel", c.Orders.CancelOrder).Methods("POST")

	protected.HandleFunc("/payment/vnpay/create", c.Payments.CreateVNPay).Methods("POST")
	protected.HandleFunc("/payment/momo/create", c.Payments.CreateMoMo).Methods("POST")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("/products", c.Products.AdminGetProducts).Methods("GET")
	admin.HandleFunc("/products", c.Products.CreateProduct).Methods("POST")
	admin.HandleFunc("/products/{id}", c.Products.AdminGetProductByID).Methods("GET")
	admin.HandleFunc("/products/{id}", c.Products.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/products/{id}", c.Products.DeleteProduct).Methods("DELETE")
	admin.HandleFunc("/orders", c.Orders.AdminGetOrders).Methods("GET")
	admin.HandleFunc("/orders/{id}", c.Orders.AdminGetOrder).Methods("GET")
	admin.HandleFunc("/orders/{id}/status", c.Orders.UpdateOrderStatus).Methods("PATCH")
	admin.HandleFunc("/orders/{id}", c.Orders.UpdateOrder).Methods("PATCH")
	admin.HandleFunc("/orders/{id}", c.Orders.DeleteOrder).Methods("DELETE")

	admin.HandleFunc("/users", c.Users.AdminGetUsers).Methods("GET")
	admin.HandleFunc("/users/{id}", c.Users.AdminGetUser).Methods("GET")
	admin.HandleFunc("/users/{id}", c.Users.AdminUpdateUser).Methods("PATCH")
	admin.HandleFunc("/users/{id}/ban", c.Users.BanUser).Methods("PATCH")
	admin.HandleFunc("/users/{id}/role", c.Users.SetUserRole).Methods("PATCH")
	admin.HandleFunc("/users/{id}/reset-password", c.Users.ResetUserPassword).Methods("POST")
}

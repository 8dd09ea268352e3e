package controllers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"medishop/ledger"
	"medishop/repository"
	"medishop/utils"
)

// ProductController handles product-related requests
type ProductController struct {
	Catalog *ledger.CatalogService
}

// NewProductController creates a new ProductController
func NewProductController(catalog *ledger.CatalogService) *ProductController {
	return &ProductController{Catalog: catalog}
}

type productBody struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	Category    *string  `json:"category"`
	Images      []string `json:"images"`
	IsActive    *bool    `json:"is_active"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CreateProduct handles adding a new product (Admin only)
func (pc *ProductController) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	product, err := pc.Catalog.CreateProduct(ctx, ledger.ProductInput{
		Name:        deref(body.Name),
		Description: deref(body.Description),
		Price:       deref(body.Price),
		Stock:       deref(body.Stock),
		Category:    deref(body.Category),
		Images:      body.Images,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, product)
}

func (pc *ProductController) list(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	products, err := pc.Catalog.ListProducts(ctx, r.URL.Query().Get("category"), includeInactive)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, products)
}

func (pc *ProductController) get(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	product, err := pc.Catalog.GetProduct(ctx, mux.Vars(r)["id"], includeInactive)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, product)
}

// GetProducts lists active products, optionally filtered by ?category=
func (pc *ProductController) GetProducts(w http.ResponseWriter, r *http.Request) {
	pc.list(w, r, false)
}

// GetProductByID retrieves a single active product
func (pc *ProductController) GetProductByID(w http.ResponseWriter, r *http.Request) {
	pc.get(w, r, false)
}

// AdminGetProducts lists the whole catalog, deactivated products included
func (pc *ProductController) AdminGetProducts(w http.ResponseWriter, r *http.Request) {
	pc.list(w, r, true)
}

// AdminGetProductByID retrieves any product (Admin only)
func (pc *ProductController) AdminGetProductByID(w http.ResponseWriter, r *http.Request) {
	pc.get(w, r, true)
}

// UpdateProduct applies a partial product edit (Admin only)
func (pc *ProductController) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if !decodeBody(w, r, &body) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	product, err := pc.Catalog.UpdateProduct(ctx, mux.Vars(r)["id"], repository.ProductUpdate{
		Name:        body.Name,
		Description: body.Description,
		Price:       body.Price,
		Stock:       body.Stock,
		Category:    body.Category,
		Images:      body.Images,
		IsActive:    body.IsActive,
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, product)
}

// DeleteProduct deactivates a product (Admin only). Orders keep their
// snapshot of it.
func (pc *ProductController) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := pc.Catalog.DeactivateProduct(ctx, mux.Vars(r)["id"]); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Product deactivated"})
}

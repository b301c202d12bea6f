package server

import (
	"net/http"

	"github.com/alfredjeanlab/backoffice/internal/form"
	"github.com/alfredjeanlab/backoffice/internal/listing"
	"github.com/alfredjeanlab/backoffice/internal/model"
)

// handleListProducts handles GET /v1/products.
func (s *BackofficeServer) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := listing.ParseProducts(r.URL.Query())
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch products")
		return
	}

	products, total, err := s.store.ListProducts(r.Context(), q)
	if err != nil {
		writeFailure(w, r, err, "Failed to fetch products")
		return
	}
	if products == nil {
		products = []*model.Product{}
	}

	writeJSON(w, http.StatusOK, listResponse[*model.Product]{
		Data:       products,
		Pagination: model.NewPagination(q.Page.Page, q.Page.PageSize, total),
	})
}

// handleGetProduct handles GET /v1/products/{id}.
func (s *BackofficeServer) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.store.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, r, notFound(err, "Product"), "Failed to fetch product")
		return
	}
	writeSuccess(w, http.StatusOK, product)
}

// handleCreateProduct handles POST /v1/products.
func (s *BackofficeServer) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	f, err := form.Parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	product, err := s.createProduct(r.Context(), principalFrom(r.Context()), f)
	if err != nil {
		writeFailure(w, r, err, "Failed to create product")
		return
	}
	writeSuccess(w, http.StatusCreated, product)
}

// handleUpdateProduct handles PUT /v1/products/{id}.
func (s *BackofficeServer) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	f, err := form.Parse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	product, err := s.updateProduct(r.Context(), principalFrom(r.Context()), r.PathValue("id"), f)
	if err != nil {
		writeFailure(w, r, err, "Failed to update product")
		return
	}
	writeSuccess(w, http.StatusOK, product)
}

// handleDeleteProduct handles DELETE /v1/products/{id}.
func (s *BackofficeServer) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteProduct(r.Context(), principalFrom(r.Context()), r.PathValue("id")); err != nil {
		writeFailure(w, r, err, "Failed to delete product")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// handleSetProductActive handles POST /v1/products/{id}/active.
func (s *BackofficeServer) handleSetProductActive(w http.ResponseWriter, r *http.Request) {
	active, err := toggleValue(r)
	if err != nil {
		writeFailure(w, r, err, "Failed to update product status")
		return
	}
	if err := s.setProductActive(r.Context(), principalFrom(r.Context()), r.PathValue("id"), active); err != nil {
		writeFailure(w, r, err, "Failed to update product status")
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

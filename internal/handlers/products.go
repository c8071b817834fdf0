package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"

	"github.com/mendelflow/mendelflowgo/internal/models"
)

// ProductInput is the create/update payload. Absent fields are kept on update.
type ProductInput struct {
	SKU         *string         `json:"sku"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Location    *string         `json:"location"`
	Quantity    *int            `json:"quantity"`
	Unit        *string         `json:"unit"`
	Weight      *float64        `json:"weight"`
	ImageURL    *string         `json:"imageUrl"`
	Attributes  json.RawMessage `json:"attributes"`
	IsActive    *bool           `json:"isActive"`
}

func (p ProductInput) updates() (map[string]interface{}, string) {
	u := map[string]interface{}{}
	if p.SKU != nil {
		sku := strings.TrimSpace(*p.SKU)
		if sku == "" {
			return nil, "SKU cannot be empty"
		}
		u["sku"] = sku
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, "Name cannot be empty"
		}
		u["name"] = name
	}
	if p.Description != nil {
		u["description"] = *p.Description
	}
	if p.Location != nil {
		u["location"] = strings.TrimSpace(*p.Location)
	}
	if p.Quantity != nil {
		if *p.Quantity < 0 {
			return nil, "Quantity cannot be negative"
		}
		u["quantity"] = *p.Quantity
	}
	if p.Unit != nil {
		u["unit"] = *p.Unit
	}
	if p.Weight != nil {
		u["weight"] = *p.Weight
	}
	if p.ImageURL != nil {
		u["image_url"] = *p.ImageURL
	}
	if len(p.Attributes) > 0 {
		if !json.Valid(p.Attributes) {
			return nil, "Attributes must be valid JSON"
		}
		u["attributes"] = datatypes.JSON(p.Attributes)
	}
	if p.IsActive != nil {
		u["is_active"] = *p.IsActive
	}
	return u, ""
}

// listPublicProducts serves the read-only catalog without authentication
func (r *Router) listPublicProducts(w http.ResponseWriter, req *http.Request) {
	products, err := r.store.ListProducts(req.Context(), req.URL.Query().Get("q"), true)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	activeOnly := req.URL.Query().Get("all") != "true"
	products, err := r.store.ListProducts(req.Context(), req.URL.Query().Get("q"), activeOnly)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	product, err := r.store.GetProduct(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	var in ProductInput
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	if in.SKU == nil || in.Name == nil {
		respondError(w, http.StatusBadRequest, "SKU and name are required")
		return
	}
	if _, msg := in.updates(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	product := &models.Product{
		SKU:      strings.TrimSpace(*in.SKU),
		Name:     strings.TrimSpace(*in.Name),
		Unit:     "pcs",
		IsActive: true,
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Location != nil {
		product.Location = strings.TrimSpace(*in.Location)
	}
	if in.Quantity != nil {
		product.Quantity = *in.Quantity
	}
	if in.Unit != nil && *in.Unit != "" {
		product.Unit = *in.Unit
	}
	if in.Weight != nil {
		product.Weight = *in.Weight
	}
	if in.ImageURL != nil {
		product.ImageURL = *in.ImageURL
	}
	if len(in.Attributes) > 0 {
		product.Attributes = datatypes.JSON(in.Attributes)
	}

	if err := r.store.CreateProduct(req.Context(), product); err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (r *Router) updateProduct(w http.ResponseWriter, req *http.Request) {
	var in ProductInput
	if err := decodeJSON(req, &in); err != nil {
		r.fail(w, req, err)
		return
	}
	updates, msg := in.updates()
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	if len(updates) == 0 {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	product, err := r.store.UpdateProduct(req.Context(), mux.Vars(req)["id"], updates)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (r *Router) deleteProduct(w http.ResponseWriter, req *http.Request) {
	if err := r.store.DeleteProduct(req.Context(), mux.Vars(req)["id"]); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

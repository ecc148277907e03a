package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chaipat/go-shop-backend/internal/shop"
)

type SuppliersHandler struct {
	Repo *shop.Repo
}

type supplierReq struct {
	CompanyName string  `json:"CompanyName"`
	ContactName *string `json:"ContactName"`
	Address     *string `json:"Address"`
	PostalCode  *string `json:"PostalCode"`
	Country     *string `json:"Country"`
}

func (h *SuppliersHandler) Register(r chi.Router) {
	r.Get("/api/suppliers/{id}", h.get)
	r.Post("/api/suppliers", h.create)
	r.Put("/api/suppliers/{id}", h.update)
}

func (h *SuppliersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.Repo.GetSupplier(ctx, id)
	if err != nil {
		if errors.Is(err, shop.ErrSupplierNotFound) {
			writeError(w, http.StatusNotFound, "Supplier not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Fetch supplier failed", "")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SuppliersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req supplierReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.CompanyName) == "" {
		writeError(w, http.StatusBadRequest, "CompanyName is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id, err := h.Repo.CreateSupplier(ctx, shop.Supplier{
		CompanyName: strings.TrimSpace(req.CompanyName),
		ContactName: req.ContactName,
		Address:     req.Address,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Create supplier failed", "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *SuppliersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", "")
		return
	}

	var req supplierReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err = h.Repo.UpdateSupplier(ctx, id, shop.Supplier{
		CompanyName: req.CompanyName,
		ContactName: req.ContactName,
		Address:     req.Address,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
	})
	if err != nil {
		if errors.Is(err, shop.ErrSupplierNotFound) {
			writeError(w, http.StatusNotFound, "Supplier not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Update supplier failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

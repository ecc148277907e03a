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

type CategoriesHandler struct {
	Repo *shop.Repo
}

type categoryReq struct {
	CategoryName string `json:"CategoryName"`
}

func (h *CategoriesHandler) Register(r chi.Router) {
	r.Get("/api/categories", h.list)
	r.Get("/api/categories/{id}", h.get)
	r.Post("/api/categories", h.create)
	r.Put("/api/categories/{id}", h.update)
}

func (h *CategoriesHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cs, err := h.Repo.ListCategories(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "List categories failed", "")
		return
	}
	if cs == nil {
		cs = []shop.Category{}
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *CategoriesHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, shop.ErrCategoryNotFound) {
			writeError(w, http.StatusNotFound, "Category not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Fetch category failed", "")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CategoriesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.CategoryName) == "" {
		writeError(w, http.StatusBadRequest, "CategoryName is required", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id, err := h.Repo.CreateCategory(ctx, strings.TrimSpace(req.CategoryName))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Create category failed", "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *CategoriesHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", "")
		return
	}

	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Repo.UpdateCategory(ctx, id, req.CategoryName); err != nil {
		if errors.Is(err, shop.ErrCategoryNotFound) {
			writeError(w, http.StatusNotFound, "Category not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Update category failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

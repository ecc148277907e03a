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
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/chaipat/go-shop-backend/internal/redisx"
	"github.com/chaipat/go-shop-backend/internal/shop"
	"github.com/chaipat/go-shop-backend/internal/uploads"
)

type ProductsHandler struct {
	Repo    *shop.Repo
	Svc     ShopService
	Redis   *redis.Client
	Uploads *uploads.Store

	topGroup singleflight.Group
}

type productReq struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    *string `json:"image_url"`
	ImageBase64 string  `json:"image_base64"`
	CategoryID  *int64  `json:"category_id"`
	SupplierID  *int64  `json:"supplier_id"`
	Description string  `json:"description"`

	// Inline supplier creation when no supplier_id is given.
	SupplierCompany string  `json:"supplier_company"`
	SupplierContact *string `json:"supplier_contact"`
	SupplierAddr    *string `json:"supplier_addr"`
	SupplierPostal  *string `json:"supplier_postal"`
	SupplierCountry *string `json:"supplier_country"`
}

func (h *ProductsHandler) Register(r chi.Router, requireAuth, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/api/products", h.list)
	r.Get("/api/products/top5", h.top5)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/api/products/{id}/quote", h.quote)
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/api/products", h.create)
			r.Post("/api/products/base64", h.createBase64)
			r.Put("/api/products/{id}", h.update)
			r.Delete("/api/products/{id}", h.delete)
		})
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.ListProducts(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "List failed", "")
		return
	}
	if ps == nil {
		ps = []shop.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

// top5 caches in Redis; singleflight keeps concurrent cache misses from
// stampeding the database.
func (h *ProductsHandler) top5(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, redisx.KeyTopProducts).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	v, err, _ := h.topGroup.Do(redisx.KeyTopProducts, func() (any, error) {
		ps, err := h.Repo.TopProducts(ctx, 5)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(ps)
		if err != nil {
			return nil, err
		}
		if h.Redis != nil {
			_ = h.Redis.Set(ctx, redisx.KeyTopProducts, body, redisx.TTLTopProducts).Err()
		}
		return body, nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch Top 5 Products", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(v.([]byte))
}

func (h *ProductsHandler) quote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	qty, qerr := strconv.Atoi(r.URL.Query().Get("qty"))
	if qerr != nil {
		qty = 1
	}
	if err != nil || id <= 0 || qty <= 0 {
		writeError(w, http.StatusBadRequest, "bad params", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Svc.Quote(ctx, id, qty)
	if err != nil {
		if errors.Is(err, shop.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "quote failed", "")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// create accepts either JSON or a multipart form with an image file.
func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req productReq
	var imageURL *string

	if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(uploads.MaxImageBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form", "")
			return
		}
		req = productReqFromForm(r)
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			url, err := h.Uploads.SaveMultipart(file, header)
			if err != nil {
				writeError(w, http.StatusBadRequest, "upload failed", err.Error())
				return
			}
			imageURL = &url
		} else {
			imageURL = req.ImageURL
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json", "")
			return
		}
		imageURL = req.ImageURL
	}

	h.insertProduct(ctx, w, req, imageURL)
}

// createBase64 accepts the image inline as a data URL.
func (h *ProductsHandler) createBase64(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}

	imageURL := req.ImageURL
	if strings.HasPrefix(req.ImageBase64, "data:image/") {
		url, err := h.Uploads.SaveDataURL(req.ImageBase64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "upload failed", err.Error())
			return
		}
		imageURL = &url
	}

	h.insertProduct(ctx, w, req, imageURL)
}

func (h *ProductsHandler) insertProduct(ctx context.Context, w http.ResponseWriter, req productReq, imageURL *string) {
	if req.CategoryID == nil {
		writeError(w, http.StatusBadRequest, "category_id is required and must be a number", "")
		return
	}

	supplierID := req.SupplierID
	if supplierID == nil && strings.TrimSpace(req.SupplierCompany) != "" {
		id, err := h.Repo.CreateSupplier(ctx, shop.Supplier{
			CompanyName: strings.TrimSpace(req.SupplierCompany),
			ContactName: req.SupplierContact,
			Address:     req.SupplierAddr,
			PostalCode:  req.SupplierPostal,
			Country:     req.SupplierCountry,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Create failed", "")
			return
		}
		supplierID = &id
	}

	var desc *string
	if d := strings.TrimSpace(req.Description); d != "" {
		desc = &d
	}

	id, err := h.Repo.CreateProduct(ctx, shop.NewProduct{
		Name:        strings.TrimSpace(req.Name),
		UnitPrice:   decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		ImageURL:    imageURL,
		CategoryID:  req.CategoryID,
		SupplierID:  supplierID,
		Description: desc,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Create failed", "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product_id": id, "image_url": imageURL})
}

type productPatchReq struct {
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	ImageURL    *string  `json:"image_url"`
	CategoryID  *int64   `json:"category_id"`
	SupplierID  *int64   `json:"supplier_id"`
	Description *string  `json:"description"`
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req productPatchReq
	var uploadedURL *string

	if strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(uploads.MaxImageBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form", "")
			return
		}
		req = productPatchFromForm(r)
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			url, err := h.Uploads.SaveMultipart(file, header)
			if err != nil {
				writeError(w, http.StatusBadRequest, "upload failed", err.Error())
				return
			}
			uploadedURL = &url
			req.ImageURL = &url
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}

	patch := shop.ProductPatch{
		Name:        req.Name,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		SupplierID:  req.SupplierID,
		Description: req.Description,
	}
	if req.Price != nil {
		p := decimal.NewFromFloat(*req.Price)
		patch.UnitPrice = &p
	}

	if err := h.Repo.UpdateProduct(ctx, id, patch); err != nil {
		if errors.Is(err, shop.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Update failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "image_url": uploadedURL})
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Repo.DeleteProduct(ctx, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Delete failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func productReqFromForm(r *http.Request) productReq {
	req := productReq{
		Name:            r.FormValue("name"),
		Description:     r.FormValue("description"),
		SupplierCompany: r.FormValue("supplier_company"),
	}
	req.Price, _ = strconv.ParseFloat(r.FormValue("price"), 64)
	req.Stock, _ = strconv.Atoi(r.FormValue("stock"))
	req.CategoryID = formInt64(r, "category_id")
	req.SupplierID = formInt64(r, "supplier_id")
	if v := r.FormValue("image_url"); v != "" {
		req.ImageURL = &v
	}
	if v := r.FormValue("supplier_contact"); v != "" {
		req.SupplierContact = &v
	}
	if v := r.FormValue("supplier_addr"); v != "" {
		req.SupplierAddr = &v
	}
	if v := r.FormValue("supplier_postal"); v != "" {
		req.SupplierPostal = &v
	}
	if v := r.FormValue("supplier_country"); v != "" {
		req.SupplierCountry = &v
	}
	return req
}

func productPatchFromForm(r *http.Request) productPatchReq {
	var req productPatchReq
	if v := r.FormValue("name"); v != "" {
		req.Name = &v
	}
	if v := r.FormValue("price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			req.Price = &f
		}
	}
	if v := r.FormValue("stock"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Stock = &n
		}
	}
	if v := r.FormValue("image_url"); v != "" {
		req.ImageURL = &v
	}
	req.CategoryID = formInt64(r, "category_id")
	req.SupplierID = formInt64(r, "supplier_id")
	if v := r.FormValue("description"); v != "" {
		req.Description = &v
	}
	return req
}

func formInt64(r *http.Request, field string) *int64 {
	v := r.FormValue(field)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

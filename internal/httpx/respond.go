package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chaipat/go-shop-backend/internal/shop"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg, detail string) {
	body := map[string]string{"error": msg}
	if detail != "" {
		body["detail"] = detail
	}
	writeJSON(w, code, body)
}

// checkoutDetail maps a checkout failure to the client-facing detail string.
// Domain rejections keep their message; anything else stays generic so raw
// storage errors never leak.
func checkoutDetail(err error) string {
	switch {
	case errors.Is(err, shop.ErrEmptyCart):
		return "order items is empty"
	case errors.Is(err, shop.ErrInsufficientStock):
		return "cannot place order: insufficient stock"
	case errors.Is(err, shop.ErrProductNotFound):
		return err.Error()
	default:
		return "checkout failed"
	}
}

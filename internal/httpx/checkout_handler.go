package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/chaipat/go-shop-backend/internal/auth"
	kafkax "github.com/chaipat/go-shop-backend/internal/kafka"
	"github.com/chaipat/go-shop-backend/internal/redisx"
	"github.com/chaipat/go-shop-backend/internal/shop"
)

// ShopService is the slice of shop.Service the checkout handlers need.
type ShopService interface {
	Checkout(ctx context.Context, cart []shop.CartLine, actingUserID int64) (int64, error)
	OrderLines(ctx context.Context, orderID int64) ([]shop.OrderLineView, error)
	Preview(ctx context.Context, orderID int64) (shop.OrderPreview, error)
	Quote(ctx context.Context, productID int64, qty int) (shop.Quote, error)
	CartQuote(ctx context.Context, cart []shop.CartLine) ([]shop.Quote, decimal.Decimal, error)
}

type CheckoutHandler struct {
	Svc      ShopService
	Producer *kafkax.Producer
	Redis    *redis.Client
	Service  string
}

type checkoutReq struct {
	Items []shop.CartLine `json:"items"`
}

type checkoutResp struct {
	OrderID int64 `json:"order_id"`
}

func (h *CheckoutHandler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/api/checkout", h.checkout)
		r.Get("/api/orders/{id}/items", h.orderItems)
		r.Get("/api/orders/{id}/preview", h.orderPreview)
		r.Post("/api/cart/quote", h.cartQuote)
	})
	r.Get("/api/checkout/{orderID}", h.getOrder)
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", "")
		return
	}

	var userID int64
	if u, ok := auth.UserFromContext(r.Context()); ok {
		userID = u.ID
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := h.Svc.Checkout(ctx, req.Items, userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Checkout failed", checkoutDetail(err))
		return
	}

	h.publishOrderPlaced(ctx, r, orderID, userID, req.Items)
	writeJSON(w, http.StatusOK, checkoutResp{OrderID: orderID})
}

// publishOrderPlaced emits the order event after commit. Best effort: a
// broker problem never fails the checkout response.
func (h *CheckoutHandler) publishOrderPlaced(ctx context.Context, r *http.Request, orderID, userID int64, cart []shop.CartLine) {
	if h.Producer == nil {
		return
	}

	items := make([]shop.PlacedItem, 0, len(cart))
	if lines, err := h.Svc.OrderLines(ctx, orderID); err == nil {
		for _, l := range lines {
			items = append(items, shop.PlacedItem{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice.StringFixed(2),
			})
		}
	} else {
		for _, l := range cart {
			if l.ProductID > 0 && l.Quantity > 0 {
				items = append(items, shop.PlacedItem{ProductID: l.ProductID, Quantity: l.Quantity})
			}
		}
	}

	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(shop.OrderPlacedPayload{OrderID: orderID, UserID: userID, Items: items}),
	}
	h.Producer.Publish(shop.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *CheckoutHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Svc.OrderLines(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Fetch order failed", "")
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusNotFound, "Order not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orderId": orderID, "items": items})
}

func (h *CheckoutHandler) orderItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Svc.OrderLines(ctx, orderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fetch items failed", "")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CheckoutHandler) orderPreview(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Committed orders are immutable, so the preview caches well.
	key := fmt.Sprintf(redisx.KeyOrderPreview, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	preview, err := h.Svc.Preview(ctx, orderID)
	if err != nil {
		if errors.Is(err, shop.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Preview failed", "")
		return
	}

	body, _ := json.Marshal(preview)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLOrderPreview).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *CheckoutHandler) cartQuote(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items empty", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	quotes, total, err := h.Svc.CartQuote(ctx, req.Items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "quote failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": quotes, "total": total})
}

package shop

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface the service drives. Mutating calls made
// inside the WithTx callback run on the same transaction; the transaction is
// committed when the callback returns nil and rolled back otherwise.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// SetActingUser binds the caller identity to the open transaction so the
	// stock-movement audit rows can attribute the mutation. 0 means unknown.
	SetActingUser(ctx context.Context, userID int64) error

	// NextOrderID advances the order sequence. Ids are unique and monotonic;
	// an id handed out to a checkout that later fails is never reused.
	NextOrderID(ctx context.Context) (int64, error)

	// ProductUnitPrice returns the current price, or ErrProductNotFound.
	ProductUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, error)

	InsertOrderLine(ctx context.Context, line OrderLine) error

	// DecrementStock subtracts qty from the product's stock and records the
	// movement. Returns ErrInsufficientStock when stock would go negative.
	DecrementStock(ctx context.Context, productID int64, qty int, orderID int64) error

	OrderLines(ctx context.Context, orderID int64) ([]OrderLineView, error)
	OrderPreview(ctx context.Context, orderID int64) (OrderPreview, error)
	ProductQuote(ctx context.Context, productID int64, qty int) (Quote, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Checkout creates an order from the cart: one transaction covering sequence
// advance, per-line price snapshot, line insert, and stock decrement, in cart
// order. Either every line commits or none does.
func (s *Service) Checkout(ctx context.Context, cart []CartLine, actingUserID int64) (int64, error) {
	lines := make([]CartLine, 0, len(cart))
	for _, l := range cart {
		if l.ProductID > 0 && l.Quantity > 0 {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return 0, ErrEmptyCart
	}

	var orderID int64
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.store.SetActingUser(txCtx, actingUserID); err != nil {
			return err
		}

		id, err := s.store.NextOrderID(txCtx)
		if err != nil {
			return err
		}
		orderID = id

		for _, l := range lines {
			price, err := s.store.ProductUnitPrice(txCtx, l.ProductID)
			if err != nil {
				return err
			}
			rate, _ := CalcLineAmounts(price, l.Quantity)
			line := OrderLine{
				OrderID:      orderID,
				ProductID:    l.ProductID,
				UnitPrice:    price,
				Quantity:     l.Quantity,
				DiscountRate: rate,
			}
			if err := s.store.InsertOrderLine(txCtx, line); err != nil {
				return err
			}
			if err := s.store.DecrementStock(txCtx, l.ProductID, l.Quantity, orderID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, classifyCheckout(err)
	}
	return orderID, nil
}

// classifyCheckout keeps domain errors intact and hides everything else
// behind CheckoutError so raw storage detail never reaches a client.
func classifyCheckout(err error) error {
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrInsufficientStock):
		return err
	default:
		return &CheckoutError{cause: err}
	}
}

// OrderLines returns the committed lines of an order with amounts computed at
// query time. An unknown order yields an empty slice, not an error.
func (s *Service) OrderLines(ctx context.Context, orderID int64) ([]OrderLineView, error) {
	return s.store.OrderLines(ctx, orderID)
}

// Preview returns the discounted per-line amounts plus the order totals.
// ErrOrderNotFound when the order has no lines.
func (s *Service) Preview(ctx context.Context, orderID int64) (OrderPreview, error) {
	return s.store.OrderPreview(ctx, orderID)
}

func (s *Service) Quote(ctx context.Context, productID int64, qty int) (Quote, error) {
	if productID <= 0 || qty <= 0 {
		return Quote{}, ErrProductNotFound
	}
	return s.store.ProductQuote(ctx, productID, qty)
}

// CartQuote prices a whole cart without reserving anything. Invalid lines and
// unknown products are skipped, mirroring checkout's filtering.
func (s *Service) CartQuote(ctx context.Context, cart []CartLine) ([]Quote, decimal.Decimal, error) {
	quotes := make([]Quote, 0, len(cart))
	total := decimal.Zero
	for _, l := range cart {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			continue
		}
		q, err := s.store.ProductQuote(ctx, l.ProductID, l.Quantity)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return nil, decimal.Zero, err
		}
		quotes = append(quotes, q)
		total = total.Add(q.LineTotal)
	}
	return quotes, total.Round(2), nil
}

package shop

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProduct struct {
	price decimal.Decimal
	stock int
}

// fakeStore mimics the transactional store: mutations inside WithTx land in a
// scratch copy that only replaces the committed state when the callback
// succeeds.
type fakeStore struct {
	products map[int64]fakeProduct
	lines    map[int64][]OrderLine
	nextID   int64
	seqErr   error

	scratchProducts map[int64]fakeProduct
	scratchLines    map[int64][]OrderLine
	inTx            bool

	actingUser int64
	seqCalls   int
}

func newFakeStore(products map[int64]fakeProduct) *fakeStore {
	return &fakeStore{
		products: products,
		lines:    map[int64][]OrderLine{},
		nextID:   1000,
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.inTx = true
	f.scratchProducts = make(map[int64]fakeProduct, len(f.products))
	for k, v := range f.products {
		f.scratchProducts[k] = v
	}
	f.scratchLines = make(map[int64][]OrderLine, len(f.lines))
	for k, v := range f.lines {
		f.scratchLines[k] = append([]OrderLine(nil), v...)
	}

	err := fn(ctx)
	f.inTx = false
	if err != nil {
		return err
	}
	f.products = f.scratchProducts
	f.lines = f.scratchLines
	return nil
}

func (f *fakeStore) SetActingUser(ctx context.Context, userID int64) error {
	f.actingUser = userID
	return nil
}

func (f *fakeStore) NextOrderID(ctx context.Context) (int64, error) {
	f.seqCalls++
	if f.seqErr != nil {
		return 0, f.seqErr
	}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeStore) ProductUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	p, ok := f.scratchProducts[productID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	return p.price, nil
}

func (f *fakeStore) InsertOrderLine(ctx context.Context, line OrderLine) error {
	f.scratchLines[line.OrderID] = append(f.scratchLines[line.OrderID], line)
	return nil
}

func (f *fakeStore) DecrementStock(ctx context.Context, productID int64, qty int, orderID int64) error {
	p := f.scratchProducts[productID]
	if p.stock < qty {
		return fmt.Errorf("%w: product %d", ErrInsufficientStock, productID)
	}
	p.stock -= qty
	f.scratchProducts[productID] = p
	return nil
}

func (f *fakeStore) OrderLines(ctx context.Context, orderID int64) ([]OrderLineView, error) {
	views := []OrderLineView{}
	for _, l := range f.lines[orderID] {
		rate := l.DiscountRate
		gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		views = append(views, OrderLineView{
			ProductID:      l.ProductID,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			DiscountRate:   rate,
			DiscountAmount: gross.Mul(rate).Round(2),
			LineTotal:      gross.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2),
		})
	}
	return views, nil
}

func (f *fakeStore) OrderPreview(ctx context.Context, orderID int64) (OrderPreview, error) {
	items, _ := f.OrderLines(ctx, orderID)
	if len(items) == 0 {
		return OrderPreview{}, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	subtotal, discount, grand := decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		discount = discount.Add(it.DiscountAmount)
		grand = grand.Add(it.LineTotal)
	}
	return OrderPreview{
		Items:   items,
		Summary: OrderSummary{OrderID: orderID, Subtotal: subtotal, DiscountTotal: discount, GrandTotal: grand},
	}, nil
}

func (f *fakeStore) ProductQuote(ctx context.Context, productID int64, qty int) (Quote, error) {
	p, ok := f.products[productID]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	rate, net := CalcLineAmounts(p.price, qty)
	return Quote{
		ProductID:    productID,
		UnitPrice:    p.price,
		Quantity:     qty,
		DiscountRate: rate,
		LineTotal:    net,
		NetUnitPrice: net.Div(decimal.NewFromInt(int64(qty))).Round(2),
	}, nil
}

func price(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCheckoutSuccess(t *testing.T) {
	store := newFakeStore(map[int64]fakeProduct{
		7: {price: price("10.00"), stock: 5},
		8: {price: price("2.50"), stock: 20},
	})
	svc := NewService(store)

	orderID, err := svc.Checkout(context.Background(), []CartLine{
		{ProductID: 7, Quantity: 3},
		{ProductID: 8, Quantity: 10},
	}, 42)
	require.NoError(t, err)
	require.NotZero(t, orderID)

	assert.Equal(t, 2, store.products[7].stock, "stock decreases by exactly the requested quantity")
	assert.Equal(t, 10, store.products[8].stock)
	assert.Equal(t, int64(42), store.actingUser)

	lines := store.lines[orderID]
	require.Len(t, lines, 2)
	assert.True(t, lines[0].UnitPrice.Equal(price("10.00")), "unit price snapshotted at checkout")
	assert.True(t, lines[0].DiscountRate.IsZero())
	assert.True(t, lines[1].DiscountRate.Equal(price("0.10")), "bulk tier applies per line")
}

func TestCheckoutWorkedExample(t *testing.T) {
	// product 7: price 10.00, stock 5, cart qty 3 -> stock 2, line_total 30.00
	store := newFakeStore(map[int64]fakeProduct{7: {price: price("10.00"), stock: 5}})
	svc := NewService(store)

	orderID, err := svc.Checkout(context.Background(), []CartLine{{ProductID: 7, Quantity: 3}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, store.products[7].stock)

	views, err := svc.OrderLines(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].LineTotal.Equal(price("30.00")), "line_total = %s", views[0].LineTotal)
}

func TestCheckoutInsufficientStockRollsBackEverything(t *testing.T) {
	store := newFakeStore(map[int64]fakeProduct{
		1: {price: price("5.00"), stock: 100},
		2: {price: price("9.99"), stock: 2},
	})
	svc := NewService(store)

	// First line would succeed; second oversells. Nothing may stick.
	_, err := svc.Checkout(context.Background(), []CartLine{
		{ProductID: 1, Quantity: 10},
		{ProductID: 2, Quantity: 3},
	}, 0)
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.Equal(t, 100, store.products[1].stock, "no partial decrement survives")
	assert.Equal(t, 2, store.products[2].stock)
	assert.Empty(t, store.lines, "no order lines persisted")
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := newFakeStore(nil)
	svc := NewService(store)

	_, err := svc.Checkout(context.Background(), nil, 0)
	require.ErrorIs(t, err, ErrEmptyCart)

	// Invalid entries are dropped, which can empty the cart too.
	_, err = svc.Checkout(context.Background(), []CartLine{
		{ProductID: -1, Quantity: 5},
		{ProductID: 3, Quantity: 0},
	}, 0)
	require.ErrorIs(t, err, ErrEmptyCart)

	assert.Zero(t, store.seqCalls, "no transaction work before validation")
}

func TestCheckoutProductNotFound(t *testing.T) {
	store := newFakeStore(map[int64]fakeProduct{1: {price: price("5.00"), stock: 10}})
	svc := NewService(store)

	_, err := svc.Checkout(context.Background(), []CartLine{
		{ProductID: 1, Quantity: 1},
		{ProductID: 999, Quantity: 1},
	}, 0)
	require.ErrorIs(t, err, ErrProductNotFound)

	assert.Equal(t, 10, store.products[1].stock)
	assert.Empty(t, store.lines)
}

func TestCheckoutWrapsInfrastructureErrors(t *testing.T) {
	store := newFakeStore(map[int64]fakeProduct{1: {price: price("5.00"), stock: 10}})
	store.seqErr = errors.New("sequence unavailable")
	svc := NewService(store)

	_, err := svc.Checkout(context.Background(), []CartLine{{ProductID: 1, Quantity: 1}}, 0)
	require.Error(t, err)

	var ce *CheckoutError
	require.ErrorAs(t, err, &ce, "non-domain failures surface as CheckoutError")
	assert.ErrorIs(t, err, store.seqErr, "cause stays unwrappable")
	assert.NotErrorIs(t, err, ErrInsufficientStock)
}

func TestOrderLinesReadIsIdempotent(t *testing.T) {
	store := newFakeStore(map[int64]fakeProduct{7: {price: price("10.00"), stock: 50}})
	svc := NewService(store)

	orderID, err := svc.Checkout(context.Background(), []CartLine{{ProductID: 7, Quantity: 5}}, 0)
	require.NoError(t, err)

	first, err := svc.OrderLines(context.Background(), orderID)
	require.NoError(t, err)
	second, err := svc.OrderLines(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPreviewGrandTotalMatchesLineSum(t *testing.T) {
	store := newFakeStore(map[int64]fakeProduct{
		1: {price: price("19.99"), stock: 50},
		2: {price: price("3.33"), stock: 50},
	})
	svc := NewService(store)

	orderID, err := svc.Checkout(context.Background(), []CartLine{
		{ProductID: 1, Quantity: 7},
		{ProductID: 2, Quantity: 12},
	}, 0)
	require.NoError(t, err)

	preview, err := svc.Preview(context.Background(), orderID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range preview.Items {
		sum = sum.Add(it.UnitPrice.
			Mul(decimal.NewFromInt(int64(it.Quantity))).
			Mul(decimal.NewFromInt(1).Sub(it.DiscountRate)).
			Round(2))
	}
	diff := sum.Sub(preview.Summary.GrandTotal).Abs()
	assert.True(t, diff.LessThanOrEqual(price("0.01")), "grand total %s vs line sum %s", preview.Summary.GrandTotal, sum)
}

func TestPreviewUnknownOrder(t *testing.T) {
	svc := NewService(newFakeStore(nil))

	_, err := svc.Preview(context.Background(), 12345)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderLinesUnknownOrderIsEmptyNotError(t *testing.T) {
	svc := NewService(newFakeStore(nil))

	views, err := svc.OrderLines(context.Background(), 12345)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestCartQuoteSkipsInvalidAndUnknownLines(t *testing.T) {
	store := newFakeStore(map[int64]fakeProduct{
		1: {price: price("10.00"), stock: 5},
	})
	svc := NewService(store)

	quotes, total, err := svc.CartQuote(context.Background(), []CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 0, Quantity: 2},
		{ProductID: 999, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.True(t, total.Equal(price("20.00")), "total = %s", total)
}

package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (r *Repo) OrderLines(ctx context.Context, orderID int64) ([]OrderLineView, error) {
	rows, err := r.query(ctx, `
		SELECT
			ol.product_id,
			p.name,
			ol.unit_price,
			ol.quantity,
			ol.discount_rate,
			ROUND(ol.unit_price * ol.quantity * ol.discount_rate, 2)       AS discount_amount,
			ROUND(ol.unit_price * ol.quantity * (1 - ol.discount_rate), 2) AS line_total,
			p.image_url
		FROM order_lines ol
		JOIN products p ON p.id = ol.product_id
		WHERE ol.order_id = $1
		ORDER BY ol.product_id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("order lines: %w", err)
	}
	defer rows.Close()

	out := []OrderLineView{}
	for rows.Next() {
		var v OrderLineView
		if err := rows.Scan(&v.ProductID, &v.Name, &v.UnitPrice, &v.Quantity,
			&v.DiscountRate, &v.DiscountAmount, &v.LineTotal, &v.ImageURL); err != nil {
			return nil, fmt.Errorf("order lines scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// OrderPreview computes per-line discounted amounts and the order totals in
// one pass. No lines means the order id is unknown.
func (r *Repo) OrderPreview(ctx context.Context, orderID int64) (OrderPreview, error) {
	items, err := r.OrderLines(ctx, orderID)
	if err != nil {
		return OrderPreview{}, err
	}
	if len(items) == 0 {
		return OrderPreview{}, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}

	subtotal, discountTotal, grandTotal := decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		discountTotal = discountTotal.Add(it.DiscountAmount)
		grandTotal = grandTotal.Add(it.LineTotal)
	}
	return OrderPreview{
		Items: items,
		Summary: OrderSummary{
			OrderID:       orderID,
			Subtotal:      subtotal.Round(2),
			DiscountTotal: discountTotal.Round(2),
			GrandTotal:    grandTotal.Round(2),
		},
	}, nil
}

func (r *Repo) ProductQuote(ctx context.Context, productID int64, qty int) (Quote, error) {
	var q Quote
	err := r.queryRow(ctx,
		`SELECT id, name, unit_price FROM products WHERE id = $1`, productID,
	).Scan(&q.ProductID, &q.Name, &q.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
		}
		return Quote{}, fmt.Errorf("quote product %d: %w", productID, err)
	}

	q.Quantity = qty
	rate, net := CalcLineAmounts(q.UnitPrice, qty)
	q.DiscountRate = rate
	q.LineTotal = net
	q.NetUnitPrice = net.Div(decimal.NewFromInt(int64(qty))).Round(2)
	return q, nil
}

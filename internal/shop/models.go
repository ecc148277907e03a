package shop

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"price"`
	UnitsInStock int             `json:"stock"`
	ImageURL     *string         `json:"image_url"`
	CategoryID   *int64          `json:"category_id"`
	SupplierID   *int64          `json:"supplier_id"`
	Description  *string         `json:"description"`
	DateAdded    time.Time       `json:"date_added"`
	LastUpdated  time.Time       `json:"last_updated"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"CategoryName"`
}

type Supplier struct {
	ID          int64   `json:"id"`
	CompanyName string  `json:"CompanyName"`
	ContactName *string `json:"ContactName"`
	Address     *string `json:"Address"`
	PostalCode  *string `json:"PostalCode"`
	Country     *string `json:"Country"`
}

// CartLine is a caller-supplied checkout request line. Entries with a
// non-positive id or quantity are dropped before processing.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderLine is the persisted snapshot of one cart line. UnitPrice is the
// product's price at checkout time and never changes afterwards.
type OrderLine struct {
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
}

// OrderLineView is the read-side join of an order line to its product.
// Discount and total are computed at query time, not stored.
type OrderLineView struct {
	ProductID      int64           `json:"id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"qty"`
	DiscountRate   decimal.Decimal `json:"rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
	ImageURL       *string         `json:"image_url"`
}

type OrderSummary struct {
	OrderID       int64           `json:"order_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

type OrderPreview struct {
	Items   []OrderLineView `json:"items"`
	Summary OrderSummary    `json:"summary"`
}

// Quote prices one product/quantity pair without touching stock.
type Quote struct {
	ProductID    int64           `json:"id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"qty"`
	DiscountRate decimal.Decimal `json:"rate"`
	NetUnitPrice decimal.Decimal `json:"net_unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type StockLevel struct {
	ProductID    int64  `json:"product_id"`
	Name         string `json:"name"`
	UnitsInStock int    `json:"units_in_stock"`
}

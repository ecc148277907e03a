package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type NewProduct struct {
	Name        string
	UnitPrice   decimal.Decimal
	Stock       int
	ImageURL    *string
	CategoryID  *int64
	SupplierID  *int64
	Description *string
}

// ProductPatch updates only the fields that are non-nil.
type ProductPatch struct {
	Name        *string
	UnitPrice   *decimal.Decimal
	Stock       *int
	ImageURL    *string
	CategoryID  *int64
	SupplierID  *int64
	Description *string
}

const productColumns = `
	p.id, p.name, p.unit_price, p.units_in_stock, p.image_url,
	p.category_id, p.supplier_id, p.description, p.date_added, p.last_updated`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.UnitsInStock, &p.ImageURL,
		&p.CategoryID, &p.SupplierID, &p.Description, &p.DateAdded, &p.LastUpdated)
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.query(ctx, `SELECT`+productColumns+` FROM products p ORDER BY p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopProducts returns the n products with the most stock on hand.
func (r *Repo) TopProducts(ctx context.Context, n int) ([]Product, error) {
	rows, err := r.query(ctx,
		`SELECT`+productColumns+` FROM products p ORDER BY p.units_in_stock DESC, p.id LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("top products scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.queryRow(ctx, `SELECT`+productColumns+` FROM products p WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (r *Repo) CreateProduct(ctx context.Context, in NewProduct) (int64, error) {
	var id int64
	err := r.queryRow(ctx, `
		INSERT INTO products (name, unit_price, units_in_stock, image_url, category_id, supplier_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.Name, in.UnitPrice, in.Stock, in.ImageURL, in.CategoryID, in.SupplierID, in.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

func (r *Repo) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) error {
	sets := []string{}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.UnitPrice != nil {
		add("unit_price", *patch.UnitPrice)
	}
	if patch.Stock != nil {
		add("units_in_stock", *patch.Stock)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.CategoryID != nil {
		add("category_id", *patch.CategoryID)
	}
	if patch.SupplierID != nil {
		add("supplier_id", *patch.SupplierID)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	sets = append(sets, "last_updated = NOW()")

	tag, err := r.exec(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := r.exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

// StockLevels reads the current stock for the given products (stockwatch).
func (r *Repo) StockLevels(ctx context.Context, ids []int64) ([]StockLevel, error) {
	rows, err := r.query(ctx,
		`SELECT id, name, units_in_stock FROM products WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("stock levels: %w", err)
	}
	defer rows.Close()

	var out []StockLevel
	for rows.Next() {
		var s StockLevel
		if err := rows.Scan(&s.ProductID, &s.Name, &s.UnitsInStock); err != nil {
			return nil, fmt.Errorf("stock levels scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.query(ctx, `SELECT id, name FROM categories ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("list categories scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.queryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, fmt.Errorf("%w: %d", ErrCategoryNotFound, id)
		}
		return Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *Repo) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.queryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, id int64, name string) error {
	tag, err := r.exec(ctx, `UPDATE categories SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("update category %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrCategoryNotFound, id)
	}
	return nil
}

func (r *Repo) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.queryRow(ctx, `
		SELECT id, company_name, contact_name, address, postal_code, country
		FROM suppliers WHERE id = $1`, id,
	).Scan(&s.ID, &s.CompanyName, &s.ContactName, &s.Address, &s.PostalCode, &s.Country)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, fmt.Errorf("%w: %d", ErrSupplierNotFound, id)
		}
		return Supplier{}, fmt.Errorf("get supplier %d: %w", id, err)
	}
	return s, nil
}

func (r *Repo) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.queryRow(ctx, `
		INSERT INTO suppliers (company_name, contact_name, address, postal_code, country)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		s.CompanyName, s.ContactName, s.Address, s.PostalCode, s.Country,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create supplier: %w", err)
	}
	return id, nil
}

func (r *Repo) UpdateSupplier(ctx context.Context, id int64, s Supplier) error {
	tag, err := r.exec(ctx, `
		UPDATE suppliers
		SET company_name = $2, contact_name = $3, address = $4, postal_code = $5, country = $6
		WHERE id = $1`,
		id, s.CompanyName, s.ContactName, s.Address, s.PostalCode, s.Country,
	)
	if err != nil {
		return fmt.Errorf("update supplier %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrSupplierNotFound, id)
	}
	return nil
}

package shop

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo implements Store on pgx. Inside WithTx the transaction travels in the
// context, so the same methods work both pooled and transactional.
type Repo struct {
	DB *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{DB: db}
}

type txKey struct{}

func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		// The original error wins; a failed rollback is only logged.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Printf("tx rollback: %v", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func (r *Repo) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.DB.Exec(ctx, sql, args...)
}

func (r *Repo) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.DB.QueryRow(ctx, sql, args...)
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.DB.Query(ctx, sql, args...)
}

// SetActingUser binds the caller id to the transaction (set_config with
// is_local=true dies with the tx). The stock-movement insert reads it back.
func (r *Repo) SetActingUser(ctx context.Context, userID int64) error {
	_, err := r.exec(ctx, `SELECT set_config('app.acting_user', $1::text, true)`, userID)
	if err != nil {
		return fmt.Errorf("set acting user: %w", err)
	}
	return nil
}

func (r *Repo) NextOrderID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.queryRow(ctx, `SELECT nextval('order_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("order sequence: %w", err)
	}
	return id, nil
}

func (r *Repo) ProductUnitPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.queryRow(ctx, `SELECT unit_price FROM products WHERE id = $1`, productID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
		}
		return decimal.Zero, fmt.Errorf("read product %d: %w", productID, err)
	}
	return price, nil
}

func (r *Repo) InsertOrderLine(ctx context.Context, line OrderLine) error {
	_, err := r.exec(ctx, `
		INSERT INTO order_lines (order_id, product_id, unit_price, quantity, discount_rate)
		VALUES ($1, $2, $3, $4, $5)`,
		line.OrderID, line.ProductID, line.UnitPrice, line.Quantity, line.DiscountRate,
	)
	if err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

// DecrementStock is the stock guard: the decrement only matches when enough
// stock remains, so zero affected rows after a successful price lookup means
// oversell. The audit row carries the acting user bound by SetActingUser.
func (r *Repo) DecrementStock(ctx context.Context, productID int64, qty int, orderID int64) error {
	tag, err := r.exec(ctx, `
		UPDATE products
		SET units_in_stock = units_in_stock - $2, last_updated = NOW()
		WHERE id = $1 AND units_in_stock >= $2`,
		productID, qty,
	)
	if err != nil {
		return fmt.Errorf("decrement stock %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", ErrInsufficientStock, productID)
	}

	_, err = r.exec(ctx, `
		INSERT INTO stock_movements (product_id, order_id, quantity_delta, acting_user_id)
		VALUES ($1, $2, $3,
			COALESCE(NULLIF(current_setting('app.acting_user', true), ''), '0')::bigint)`,
		productID, orderID, -qty,
	)
	if err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	return nil
}

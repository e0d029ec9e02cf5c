package quote

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	ListByCustomer(ctx context.Context, customerID string) ([]Quote, error)
	CreateFromCart(ctx context.Context, customerID string, now time.Time) (*Quote, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) ListByCustomer(ctx context.Context, customerID string) ([]Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(status,''), grand_total::text, created_at
		FROM quotes WHERE customer_id=$1
		ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Quote{}
	for rows.Next() {
		var (
			q     Quote
			total string
		)
		if err := rows.Scan(&q.ID, &q.Name, &q.Status, &total, &q.CreatedDate); err != nil {
			return nil, err
		}
		if q.GrandTotal, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// CreateFromCart snapshots the customer's cart lines into a draft quote. The
// cart itself is left as is.
func (r *PGRepo) CreateFromCart(ctx context.Context, customerID string, now time.Time) (*Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cartID string
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE customer_id=$1`, customerID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	var (
		total string
		lines int
	)
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity * unit_price),0)::text, COUNT(*)
		FROM cart_items WHERE cart_id=$1
	`, cartID).Scan(&total, &lines); err != nil {
		return nil, err
	}
	if lines == 0 {
		return nil, ErrEmptyCart
	}

	q := Quote{ID: uuid.NewString(), Name: NewName(now), Status: StatusDraft, CreatedDate: now}
	if q.GrandTotal, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO quotes (id, customer_id, name, status, grand_total, created_at)
		VALUES ($1,$2,$3,$4,$5::numeric,$6)
	`, q.ID, customerID, q.Name, q.Status, q.GrandTotal.String(), now); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO quote_lines (id, quote_id, product_id, quantity, unit_price)
		SELECT gen_random_uuid()::text, $2, product_id, quantity, unit_price
		FROM cart_items WHERE cart_id=$1
	`, cartID, q.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &q, nil
}

// Package product holds the storefront catalog: the product model, the local
// filter engine, and the Postgres repository behind the reference API.
package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Query struct {
	Q              string
	Category       string
	TopSellersOnly bool
	// Limit <= 0 returns every match
	Limit  int
	Offset int
}

type Repository interface {
	List(ctx context.Context, q Query) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// RecordView marks productID as just viewed by customerID.
	RecordView(ctx context.Context, customerID, productID string) error
	// RecentlyViewed returns the customer's last viewed products, newest first.
	RecentlyViewed(ctx context.Context, customerID string, limit int) ([]Product, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const productColumns = `id, name, COALESCE(description,''), COALESCE(family,''), stock_quantity, is_top_seller, unit_price::text`

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var limit *int
	if q.Limit > 0 {
		limit = &q.Limit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE ($1 = '' OR name ILIKE '%'||$1||'%' OR description ILIKE '%'||$1||'%')
		  AND ($2 = '' OR lower(family) = lower($2))
		  AND (NOT $3 OR is_top_seller)
		ORDER BY name ASC
		LIMIT $4 OFFSET $5
	`, strings.TrimSpace(q.Q), q.Category, q.TopSellersOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PGRepo) RecordView(ctx context.Context, customerID, productID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO product_views (customer_id, product_id, viewed_at)
		VALUES ($1,$2,NOW())
		ON CONFLICT (customer_id, product_id) DO UPDATE SET viewed_at = EXCLUDED.viewed_at
	`, customerID, productID)
	return err
}

func (r *PGRepo) RecentlyViewed(ctx context.Context, customerID string, limit int) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, COALESCE(p.description,''), COALESCE(p.family,''), p.stock_quantity, p.is_top_seller, p.unit_price::text
		FROM product_views v
		JOIN products p ON p.id = v.product_id
		WHERE v.customer_id = $1
		ORDER BY v.viewed_at DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p     Product
		price *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Stock, &p.TopSeller, &price); err != nil {
		return nil, err
	}
	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, err
		}
		p.UnitPrice = &d
	}
	return &p, nil
}

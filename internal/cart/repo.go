package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("cart not found")
	ErrLineNotFound = errors.New("cart line not found")
)

// Repository stores one open cart per customer.
type Repository interface {
	GetByCustomer(ctx context.Context, customerID string) (*Cart, error)
	AddItem(ctx context.Context, customerID, productID string, quantity int, unitPrice decimal.Decimal) error
	UpdateQuantity(ctx context.Context, customerID, lineID string, quantity int) error
	RemoveItem(ctx context.Context, customerID, lineID string) error
	ItemCount(ctx context.Context, customerID string) (int, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) GetByCustomer(ctx context.Context, customerID string) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Cart
	err := r.db.QueryRow(ctx, `SELECT id FROM carts WHERE customer_id=$1`, customerID).Scan(&c.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT ci.id, ci.product_id, COALESCE(p.name,''), ci.quantity, ci.unit_price::text
		FROM cart_items ci
		LEFT JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at ASC, ci.id ASC
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Lines = []Line{}
	for rows.Next() {
		var (
			l     Line
			price string
		)
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Quantity, &price); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		c.Lines = append(c.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := c.Totalled()
	return &out, nil
}

// addLineSQL inserts a line or adds to the existing line for the product in
// one statement, so concurrent first adds cannot race on the unique key.
// The price snapshot of an existing line is kept.
const addLineSQL = `
	INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price, added_at)
	VALUES ($1,$2,$3,$4,$5::numeric,NOW())
	ON CONFLICT (cart_id, product_id)
	DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
`

// AddItem opens the customer's cart if needed. Adding a product already in
// the cart raises the quantity of its line and keeps the original price.
func (r *PGRepo) AddItem(ctx context.Context, customerID, productID string, quantity int, unitPrice decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cartID string
	if err := tx.QueryRow(ctx, `
		INSERT INTO carts (id, customer_id, created_at, updated_at)
		VALUES ($1,$2,NOW(),NOW())
		ON CONFLICT (customer_id) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`, uuid.NewString(), customerID).Scan(&cartID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, addLineSQL, uuid.NewString(), cartID, productID, quantity, unitPrice.String()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) UpdateQuantity(ctx context.Context, customerID, lineID string, quantity int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE cart_items ci SET quantity = $3
		FROM carts c
		WHERE ci.cart_id = c.id AND c.customer_id = $1 AND ci.id = $2
	`, customerID, lineID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *PGRepo) RemoveItem(ctx context.Context, customerID, lineID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.cart_id = c.id AND c.customer_id = $1 AND ci.id = $2
	`, customerID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *PGRepo) ItemCount(ctx context.Context, customerID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(ci.quantity),0)::int
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE c.customer_id = $1
	`, customerID).Scan(&n)
	return n, err
}

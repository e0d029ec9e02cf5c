package order

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
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
)

type Repository interface {
	PlaceFromCart(ctx context.Context, customerID string, req CheckoutRequest, now time.Time) (*Confirmation, error)
	GetByID(ctx context.Context, customerID, id string) (*Order, []Item, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `id, order_number, customer_id, status, effective_date, total_amount::text,
	first_name, last_name, email, COALESCE(phone,''), COALESCE(company,''),
	ship_street, ship_city, COALESCE(ship_state,''), ship_postal_code, COALESCE(ship_country,''),
	created_at, updated_at`

// PlaceFromCart turns the customer's cart lines into an order and empties the
// cart in one transaction.
func (r *PGRepo) PlaceFromCart(ctx context.Context, customerID string, req CheckoutRequest, now time.Time) (*Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cartID string
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE customer_id=$1 FOR UPDATE`, customerID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity, unit_price::text
		FROM cart_items WHERE cart_id=$1
		ORDER BY added_at ASC, id ASC
	`, cartID)
	if err != nil {
		return nil, err
	}
	var (
		items []Item
		total = decimal.Zero
	)
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			rows.Close()
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			rows.Close()
			return nil, err
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	o := Confirmation{OrderID: uuid.NewString(), OrderNumber: NewOrderNumber(now), TotalAmount: total}
	c, s := req.Contact, req.Shipping
	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, order_number, customer_id, status, effective_date, total_amount,
			first_name, last_name, email, phone, company,
			ship_street, ship_city, ship_state, ship_postal_code, ship_country,
			payment_token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,NOW(),NOW())
	`, o.OrderID, o.OrderNumber, customerID, StatusPlaced, now, total.String(),
		c.FirstName, c.LastName, c.Email, c.Phone, c.Company,
		s.Street, s.City, s.State, s.PostalCode, s.Country, req.PaymentToken); err != nil {
		return nil, err
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1,$2,$3,$4,$5::numeric)
		`, uuid.NewString(), o.OrderID, it.ProductID, it.Quantity, it.Price.String()); err != nil {
			return nil, err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) GetByID(ctx context.Context, customerID, id string) (*Order, []Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 AND customer_id=$2`, id, customerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, price::text
		FROM order_items WHERE order_id=$1
	`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, nil, err
		}
		items = append(items, it)
	}
	return o, items, rows.Err()
}

func (r *PGRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE customer_id=$1
		ORDER BY effective_date DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o     Order
		total string
	)
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.EffectiveDate, &total,
		&o.Contact.FirstName, &o.Contact.LastName, &o.Contact.Email, &o.Contact.Phone, &o.Contact.Company,
		&o.Shipping.Street, &o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	o.TotalAmount = d
	return &o, nil
}

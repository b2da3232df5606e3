package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stitchkart/checkout/internal/money"
)

type Repo struct{ DB *pgxpool.Pool }

// Insert writes the order and its items in one transaction. All-or-nothing:
// a failure leaves no partial order behind.
func (r *Repo) Insert(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("orders: begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var gwOrderID, gwPaymentID, gwSignature, gwStatus *string
	if pr := o.PaymentResult; pr != nil {
		gwOrderID, gwPaymentID, gwSignature, gwStatus = &pr.GatewayOrderID, &pr.GatewayPaymentID, &pr.Signature, &pr.Status
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(
			id, buyer_id, payment_method,
			ship_name, ship_phone, ship_address, ship_postal_code, ship_country,
			items_cents, shipping_cents, tax_cents, total_cents,
			is_paid, paid_at, is_delivered, delivered_at,
			gateway_order_id, gateway_payment_id, gateway_signature, payment_status,
			created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		o.ID, o.BuyerID, string(o.PaymentMethod),
		o.ShippingAddress.Name, o.ShippingAddress.Phone, o.ShippingAddress.Address,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.Pricing.ItemsCents.Int64(), o.Pricing.ShippingCents.Int64(),
		o.Pricing.TaxCents.Int64(), o.Pricing.TotalCents.Int64(),
		o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt,
		gwOrderID, gwPaymentID, gwSignature, gwStatus,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("orders: insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(
				order_id, product_id, name, unit_cents, qty, kind,
				color, size, color_a, size_a, color_b, size_b)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			o.ID, it.ProductID, it.Name, it.UnitCents.Int64(), it.Qty.Int(), string(it.Kind),
			it.Color, it.Size, it.ColorA, it.SizeA, it.ColorB, it.SizeB,
		)
		if err != nil {
			return fmt.Errorf("orders: insert item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("orders: commit insert: %w", err)
	}
	return nil
}

const orderColumns = `
	id, buyer_id, payment_method,
	ship_name, ship_phone, ship_address, ship_postal_code, ship_country,
	items_cents, shipping_cents, tax_cents, total_cents,
	is_paid, paid_at, is_delivered, delivered_at,
	gateway_order_id, gateway_payment_id, gateway_signature, payment_status,
	created_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var method string
	var items, shipping, tax, total int64
	var gwOrder, gwPayment, gwSig, gwStatus *string
	err := row.Scan(
		&o.ID, &o.BuyerID, &method,
		&o.ShippingAddress.Name, &o.ShippingAddress.Phone, &o.ShippingAddress.Address,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&items, &shipping, &tax, &total,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt,
		&gwOrder, &gwPayment, &gwSig, &gwStatus,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = PaymentMethod(method)
	o.Pricing = Pricing{
		ItemsCents:    money.Cents(items),
		ShippingCents: money.Cents(shipping),
		TaxCents:      money.Cents(tax),
		TotalCents:    money.Cents(total),
	}
	if gwOrder != nil || gwPayment != nil {
		o.PaymentResult = &PaymentResult{}
		if gwOrder != nil {
			o.PaymentResult.GatewayOrderID = *gwOrder
		}
		if gwPayment != nil {
			o.PaymentResult.GatewayPaymentID = *gwPayment
		}
		if gwSig != nil {
			o.PaymentResult.Signature = *gwSig
		}
		if gwStatus != nil {
			o.PaymentResult.Status = *gwStatus
		}
	}
	return &o, nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("orders: get: %w", err)
	}
	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) list(ctx context.Context, where string, args ...any) ([]*Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders `+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("orders: scan: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, os []*Order) error {
	if len(os) == 0 {
		return nil
	}
	byID := make(map[string]*Order, len(os))
	ids := make([]string, 0, len(os))
	for _, o := range os {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, name, unit_cents, qty, kind,
		       color, size, color_a, size_a, color_b, size_b
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("orders: load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      LineItem
			unit    int64
			qty     int
			kind    string
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &unit, &qty, &kind,
			&it.Color, &it.Size, &it.ColorA, &it.SizeA, &it.ColorB, &it.SizeB); err != nil {
			return fmt.Errorf("orders: scan item: %w", err)
		}
		it.UnitCents = money.Cents(unit)
		it.Qty = money.Quantity(qty)
		it.Kind = ItemKind(kind)
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("orders: load items: %w", err)
	}
	return nil
}

func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error) {
	return r.list(ctx, `WHERE buyer_id=$1`, buyerID)
}

// ListSplitByMethod returns gateway orders and COD orders separately,
// each newest first.
func (r *Repo) ListSplitByMethod(ctx context.Context) (razorpay, cod []*Order, err error) {
	razorpay, err = r.list(ctx, `WHERE payment_method=$1`, string(MethodRazorpay))
	if err != nil {
		return nil, nil, err
	}
	cod, err = r.list(ctx, `WHERE payment_method=$1`, string(MethodCOD))
	if err != nil {
		return nil, nil, err
	}
	return razorpay, cod, nil
}

func (r *Repo) SetDelivered(ctx context.Context, orderID string, at time.Time) error {
	// is_delivered=FALSE guard keeps delivered_at stable on repeat calls;
	// zero rows affected is the idempotent no-op, not an error.
	_, err := r.DB.Exec(ctx, `
		UPDATE orders SET is_delivered=TRUE, delivered_at=$2
		WHERE id=$1 AND is_delivered=FALSE`, orderID, at)
	if err != nil {
		return fmt.Errorf("orders: set delivered: %w", err)
	}
	return nil
}

func (r *Repo) SetPaid(ctx context.Context, orderID string, at time.Time) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE orders SET is_paid=TRUE, paid_at=$2
		WHERE id=$1 AND payment_method=$3 AND is_paid=FALSE`, orderID, at, string(MethodCOD))
	if err != nil {
		return fmt.Errorf("orders: set paid: %w", err)
	}
	return nil
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var revenue int64
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_delivered),
		       COUNT(*) FILTER (WHERE NOT is_delivered),
		       COALESCE(SUM(total_cents) FILTER (WHERE is_paid), 0)
		FROM orders`).
		Scan(&s.TotalOrders, &s.DeliveredOrders, &s.PendingDeliveries, &revenue)
	if err != nil {
		return Stats{}, fmt.Errorf("orders: stats: %w", err)
	}
	s.RevenueCents = money.Cents(revenue)
	return s, nil
}

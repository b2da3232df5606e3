package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	price_cents    BIGINT NOT NULL DEFAULT 0,
	is_couple_pack BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS variants (
	id          BIGSERIAL PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	list_kind   TEXT NOT NULL,
	color_name  TEXT NOT NULL,
	color_hex   TEXT NOT NULL DEFAULT '#cccccc',
	front_image TEXT NOT NULL DEFAULT '',
	back_image  TEXT NOT NULL DEFAULT '',
	UNIQUE (product_id, list_kind, color_name)
);

CREATE TABLE IF NOT EXISTS variant_sizes (
	variant_id BIGINT NOT NULL REFERENCES variants(id) ON DELETE CASCADE,
	size_label TEXT NOT NULL,
	stock      INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
	PRIMARY KEY (variant_id, size_label)
);

CREATE TABLE IF NOT EXISTS orders (
	id                 TEXT PRIMARY KEY,
	buyer_id           TEXT NOT NULL,
	payment_method     TEXT NOT NULL,
	ship_name          TEXT NOT NULL DEFAULT '',
	ship_phone         TEXT NOT NULL DEFAULT '',
	ship_address       TEXT NOT NULL DEFAULT '',
	ship_postal_code   TEXT NOT NULL DEFAULT '',
	ship_country       TEXT NOT NULL DEFAULT '',
	items_cents        BIGINT NOT NULL DEFAULT 0,
	shipping_cents     BIGINT NOT NULL DEFAULT 0,
	tax_cents          BIGINT NOT NULL DEFAULT 0,
	total_cents        BIGINT NOT NULL DEFAULT 0,
	is_paid            BOOLEAN NOT NULL DEFAULT FALSE,
	paid_at            TIMESTAMPTZ,
	is_delivered       BOOLEAN NOT NULL DEFAULT FALSE,
	delivered_at       TIMESTAMPTZ,
	gateway_order_id   TEXT,
	gateway_payment_id TEXT,
	gateway_signature  TEXT,
	payment_status     TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
	id         BIGSERIAL PRIMARY KEY,
	order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	unit_cents BIGINT NOT NULL DEFAULT 0,
	qty        INT NOT NULL,
	kind       TEXT NOT NULL,
	color      TEXT NOT NULL DEFAULT '',
	size       TEXT NOT NULL DEFAULT '',
	color_a    TEXT NOT NULL DEFAULT '',
	size_a     TEXT NOT NULL DEFAULT '',
	color_b    TEXT NOT NULL DEFAULT '',
	size_b     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders (buyer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_method ON orders (payment_method, created_at DESC);
`

// Migrate applies the schema. Idempotent; both binaries run it on boot.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

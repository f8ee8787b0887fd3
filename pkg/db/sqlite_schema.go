package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for the local sqlite driver.
// Ids are supplied by the application because sqlite has no gen_random_uuid.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id text PRIMARY KEY,
		email text NOT NULL UNIQUE,
		full_name text NOT NULL,
		is_staff boolean NOT NULL DEFAULT false,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id text PRIMARY KEY,
		name text NOT NULL,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE IF NOT EXISTS product_variants (
		id text PRIMARY KEY,
		product_id text NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		name text NOT NULL,
		sku text NOT NULL,
		price numeric NOT NULL,
		discount_price numeric,
		stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0),
		weight_grams integer NOT NULL DEFAULT 0,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		total_price numeric NOT NULL DEFAULT 0,
		shipping_cost numeric NOT NULL DEFAULT 0,
		discount numeric NOT NULL DEFAULT 0,
		final_price numeric NOT NULL DEFAULT 0,
		shipping_name text NOT NULL,
		shipping_phone text NOT NULL,
		shipping_address text NOT NULL,
		shipping_province text NOT NULL,
		shipping_city text NOT NULL,
		shipping_postal_code text NOT NULL,
		shipping_courier text,
		shipping_tracking_number text,
		payment_method text,
		payment_details text,
		paid_at datetime,
		shipped_at datetime,
		delivered_at datetime,
		cancelled_at datetime,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id text PRIMARY KEY,
		order_id text NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		variant_id text REFERENCES product_variants(id) ON DELETE SET NULL,
		product_name text NOT NULL,
		variant_name text NOT NULL,
		price numeric NOT NULL,
		discount_price numeric,
		quantity integer NOT NULL CHECK (quantity > 0),
		subtotal numeric NOT NULL,
		created_at datetime
	)`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
		id text PRIMARY KEY,
		order_id text NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		transaction_id text NOT NULL UNIQUE,
		payment_type text NOT NULL,
		amount numeric NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		transaction_status text,
		fraud_status text,
		transaction_time datetime,
		raw_response text,
		redirect_token text,
		redirect_url text,
		created_at datetime,
		updated_at datetime
	)`,
	`CREATE TABLE IF NOT EXISTS shipping_rates (
		id text PRIMARY KEY,
		origin text NOT NULL,
		destination text NOT NULL,
		courier text NOT NULL,
		service text NOT NULL,
		description text NOT NULL DEFAULT '',
		cost numeric NOT NULL,
		etd text NOT NULL DEFAULT '',
		weight_grams integer NOT NULL,
		created_at datetime,
		updated_at datetime,
		UNIQUE (origin, destination, courier, service, weight_grams)
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id text PRIMARY KEY,
		event_type text NOT NULL,
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		payload text NOT NULL,
		created_at datetime,
		published_at datetime,
		attempt_count integer NOT NULL DEFAULT 0,
		last_error text
	)`,
}

// ApplySQLiteSchema creates the tables on a sqlite connection. It is idempotent.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

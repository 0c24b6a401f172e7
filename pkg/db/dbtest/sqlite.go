// Package dbtest opens isolated in-memory sqlite databases carrying the
// marketplace schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/marketplace-backend/pkg/db"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		cart TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE stores (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		is_active BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price NUMERIC NOT NULL,
		images TEXT,
		in_stock BOOLEAN NOT NULL DEFAULT 1,
		allow_return BOOLEAN NOT NULL DEFAULT 1,
		allow_replacement BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE addresses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		street TEXT NOT NULL,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		zip TEXT NOT NULL,
		country TEXT NOT NULL,
		phone TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE coupons (
		code TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		discount NUMERIC NOT NULL,
		discount_type TEXT NOT NULL,
		for_new_user BOOLEAN NOT NULL DEFAULT 0,
		for_member BOOLEAN NOT NULL DEFAULT 0,
		is_public BOOLEAN NOT NULL DEFAULT 0,
		usage_limit INTEGER,
		used_count INTEGER NOT NULL DEFAULT 0,
		store_id TEXT,
		expires_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE shipping_settings (
		id TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL,
		shipping_type TEXT NOT NULL,
		flat_rate NUMERIC NOT NULL DEFAULT 0,
		per_item_fee NUMERIC NOT NULL DEFAULT 0,
		max_item_fee NUMERIC,
		free_shipping_min NUMERIC NOT NULL DEFAULT 0,
		base_weight NUMERIC NOT NULL DEFAULT 0,
		base_weight_fee NUMERIC NOT NULL DEFAULT 0,
		additional_weight_fee NUMERIC NOT NULL DEFAULT 0,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		address_id TEXT NOT NULL,
		total NUMERIC NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'ORDER_PLACED',
		is_paid BOOLEAN NOT NULL DEFAULT 0,
		is_coupon_used BOOLEAN NOT NULL DEFAULT 0,
		coupon TEXT,
		is_guest BOOLEAN NOT NULL DEFAULT 0,
		guest_name TEXT,
		guest_email TEXT,
		guest_phone TEXT,
		tracking_id TEXT,
		tracking_url TEXT,
		courier TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE guest_users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL,
		convert_token_digest TEXT UNIQUE,
		token_expiry DATETIME,
		account_created BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE return_requests (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		type TEXT NOT NULL,
		reason TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		images TEXT,
		videos TEXT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		fast_process BOOLEAN NOT NULL DEFAULT 0,
		product_rating INTEGER,
		delivery_rating INTEGER,
		review_text TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a fresh in-memory database with the schema applied.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// a single connection keeps the shared in-memory database alive and serializes writes
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// OpenClient wraps Open in a db.Client for services that need transactions.
func OpenClient(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromConn(conn), conn
}

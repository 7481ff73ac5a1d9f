// Package postgres is the database-backed store. It speaks database/sql
// through the pgx stdlib driver and keeps the embedded-document fields
// (items, addresses, buyer info) as JSONB so both backends share the same
// record shapes.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"storefront/internal/models"
	"storefront/internal/stores"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	db *sql.DB
}

// OpenDB builds the connection pool from the POSTGRES_* environment
// variables and verifies connectivity.
func OpenDB() (*sql.DB, error) {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "postgres")
	password := os.Getenv("POSTGRES_PASSWORD")
	dbname := envOr("POSTGRES_DB", "storefront")
	sslmode := envOr("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return db, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewStore applies the embedded migrations and returns the store.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ---- users ----

func (s *Store) InsertUser(ctx context.Context, u models.User) error {
	const q = `
		INSERT INTO users (id, email, name, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, q, u.ID, u.Email, u.Name, u.PasswordHash, u.IsAdmin, u.CreatedAt); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	const q = `
		SELECT id, email, name, password_hash, is_admin, created_at
		FROM users WHERE id = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const q = `
		SELECT id, email, name, password_hash, is_admin, created_at
		FROM users WHERE email = $1
	`
	return s.scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *Store) scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, stores.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}

// ---- products ----

func (s *Store) InsertProduct(ctx context.Context, p models.Product) error {
	const q = `
		INSERT INTO products (id, name, slug, description, price, category, image_url, stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := s.db.ExecContext(ctx, q,
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.Category, p.ImageURL, p.Stock, p.CreatedAt); err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

func (s *Store) ProductByID(ctx context.Context, id string) (models.Product, error) {
	const q = `
		SELECT id, name, slug, description, price, category, image_url, stock, created_at
		FROM products WHERE id = $1
	`
	var p models.Product
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.Stock, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, stores.ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("scanning product: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	const q = `
		SELECT id, name, slug, description, price, category, image_url, stock, created_at
		FROM products
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	out := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Category, &p.ImageURL, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, p models.Product) error {
	const q = `
		UPDATE products
		SET name = $2, slug = $3, description = $4, price = $5, category = $6, image_url = $7, stock = $8
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, p.ID, p.Name, p.Slug, p.Description, p.Price, p.Category, p.ImageURL, p.Stock)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	return requireRow(res)
}

// ---- variants ----

func (s *Store) InsertVariant(ctx context.Context, v models.Variant) error {
	const q = `
		INSERT INTO variants (id, product_id, size, color, sku, stock, price_adjustment, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := s.db.ExecContext(ctx, q,
		v.ID, v.ProductID, v.Size, v.Color, v.SKU, v.Stock, v.PriceAdjustment, v.ImageURL); err != nil {
		return fmt.Errorf("inserting variant: %w", err)
	}
	return nil
}

func (s *Store) VariantByID(ctx context.Context, id string) (models.Variant, error) {
	const q = `
		SELECT id, product_id, size, color, sku, stock, price_adjustment, image_url
		FROM variants WHERE id = $1
	`
	var v models.Variant
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&v.ID, &v.ProductID, &v.Size, &v.Color, &v.SKU, &v.Stock, &v.PriceAdjustment, &v.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Variant{}, stores.ErrNotFound
	}
	if err != nil {
		return models.Variant{}, fmt.Errorf("scanning variant: %w", err)
	}
	return v, nil
}

func (s *Store) VariantsByProduct(ctx context.Context, productID string) ([]models.Variant, error) {
	const q = `
		SELECT id, product_id, size, color, sku, stock, price_adjustment, image_url
		FROM variants WHERE product_id = $1
	`
	rows, err := s.db.QueryContext(ctx, q, productID)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	defer rows.Close()

	out := []models.Variant{}
	for rows.Next() {
		var v models.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.Color, &v.SKU, &v.Stock, &v.PriceAdjustment, &v.ImageURL); err != nil {
			return nil, fmt.Errorf("scanning variant row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) UpdateVariant(ctx context.Context, v models.Variant) error {
	const q = `
		UPDATE variants
		SET product_id = $2, size = $3, color = $4, sku = $5, stock = $6, price_adjustment = $7, image_url = $8
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, v.ID, v.ProductID, v.Size, v.Color, v.SKU, v.Stock, v.PriceAdjustment, v.ImageURL)
	if err != nil {
		return fmt.Errorf("updating variant: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteVariant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM variants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting variant: %w", err)
	}
	return requireRow(res)
}

// ---- carts ----

func (s *Store) CartByUser(ctx context.Context, userID string) (models.Cart, error) {
	const q = `SELECT user_id, id, items, updated_at FROM carts WHERE user_id = $1`
	var (
		cart  models.Cart
		items []byte
	)
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&cart.UserID, &cart.ID, &items, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Cart{}, stores.ErrNotFound
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("scanning cart: %w", err)
	}
	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return models.Cart{}, fmt.Errorf("decoding cart items: %w", err)
	}
	return cart, nil
}

func (s *Store) SaveCart(ctx context.Context, cart models.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("encoding cart items: %w", err)
	}
	const q = `
		INSERT INTO carts (user_id, id, items, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET items = $3, updated_at = $4
	`
	if _, err := s.db.ExecContext(ctx, q, cart.UserID, cart.ID, items, cart.UpdatedAt); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

func (s *Store) DeleteCart(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}

// ---- orders ----

func (s *Store) InsertOrder(ctx context.Context, o models.Order) error {
	items, shippingAddr, billingAddr, buyer, err := encodeOrderDocs(o)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO orders (id, user_id, items, total_amount, status, payment_id,
			shipping_address, billing_address, buyer_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := s.db.ExecContext(ctx, q,
		o.ID, o.UserID, items, o.TotalAmount, o.Status, o.PaymentID,
		shippingAddr, billingAddr, buyer, o.CreatedAt); err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

func encodeOrderDocs(o models.Order) (items, shippingAddr, billingAddr, buyer []byte, err error) {
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding order items: %w", err)
	}
	if shippingAddr, err = json.Marshal(o.ShippingAddress); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding shipping address: %w", err)
	}
	if billingAddr, err = json.Marshal(o.BillingAddress); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding billing address: %w", err)
	}
	if buyer, err = json.Marshal(o.BuyerInfo); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encoding buyer info: %w", err)
	}
	return items, shippingAddr, billingAddr, buyer, nil
}

const orderColumns = `id, user_id, items, total_amount, status, payment_id,
	shipping_address, billing_address, buyer_info, created_at`

func scanOrder(scan func(dest ...any) error) (models.Order, error) {
	var (
		o                                       models.Order
		items, shippingAddr, billingAddr, buyer []byte
	)
	err := scan(&o.ID, &o.UserID, &items, &o.TotalAmount, &o.Status, &o.PaymentID,
		&shippingAddr, &billingAddr, &buyer, &o.CreatedAt)
	if err != nil {
		return models.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return models.Order{}, fmt.Errorf("decoding order items: %w", err)
	}
	if err := json.Unmarshal(shippingAddr, &o.ShippingAddress); err != nil {
		return models.Order{}, fmt.Errorf("decoding shipping address: %w", err)
	}
	if err := json.Unmarshal(billingAddr, &o.BillingAddress); err != nil {
		return models.Order{}, fmt.Errorf("decoding billing address: %w", err)
	}
	if err := json.Unmarshal(buyer, &o.BuyerInfo); err != nil {
		return models.Order{}, fmt.Errorf("decoding buyer info: %w", err)
	}
	return o, nil
}

func (s *Store) OrderByID(ctx context.Context, id string) (models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.db.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, stores.ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("scanning order: %w", err)
	}
	return o, nil
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1`
	return s.queryOrders(ctx, q, userID)
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	return s.queryOrders(ctx, q)
}

func (s *Store) queryOrders(ctx context.Context, q string, args ...any) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOrder(ctx context.Context, o models.Order) error {
	items, shippingAddr, billingAddr, buyer, err := encodeOrderDocs(o)
	if err != nil {
		return err
	}
	const q = `
		UPDATE orders
		SET items = $2, total_amount = $3, status = $4, payment_id = $5,
			shipping_address = $6, billing_address = $7, buyer_info = $8
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q,
		o.ID, items, o.TotalAmount, o.Status, o.PaymentID, shippingAddr, billingAddr, buyer)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}
	return requireRow(res)
}

// ---- shipping ----

func (s *Store) InsertShipping(ctx context.Context, rec models.ShippingInfo) error {
	const q = `
		INSERT INTO shipping (order_id, carrier, tracking_number, status, estimated_delivery, shipped_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.ExecContext(ctx, q,
		rec.OrderID, rec.Carrier, rec.TrackingNumber, rec.Status,
		rec.EstimatedDelivery, rec.ShippedAt, rec.DeliveredAt); err != nil {
		return fmt.Errorf("inserting shipping record: %w", err)
	}
	return nil
}

const shippingColumns = `order_id, carrier, tracking_number, status, estimated_delivery, shipped_at, delivered_at`

func (s *Store) scanShipping(row *sql.Row) (models.ShippingInfo, error) {
	var rec models.ShippingInfo
	err := row.Scan(&rec.OrderID, &rec.Carrier, &rec.TrackingNumber, &rec.Status,
		&rec.EstimatedDelivery, &rec.ShippedAt, &rec.DeliveredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ShippingInfo{}, stores.ErrNotFound
	}
	if err != nil {
		return models.ShippingInfo{}, fmt.Errorf("scanning shipping record: %w", err)
	}
	return rec, nil
}

func (s *Store) ShippingByOrder(ctx context.Context, orderID string) (models.ShippingInfo, error) {
	q := `SELECT ` + shippingColumns + ` FROM shipping WHERE order_id = $1 ORDER BY rec_id LIMIT 1`
	return s.scanShipping(s.db.QueryRowContext(ctx, q, orderID))
}

func (s *Store) ShippingByTracking(ctx context.Context, trackingNumber string) (models.ShippingInfo, error) {
	q := `SELECT ` + shippingColumns + ` FROM shipping WHERE tracking_number = $1 ORDER BY rec_id LIMIT 1`
	return s.scanShipping(s.db.QueryRowContext(ctx, q, trackingNumber))
}

func (s *Store) UpdateShipping(ctx context.Context, rec models.ShippingInfo) error {
	// Only the first record for the order is updated, mirroring the file
	// backend's first-match semantics when duplicates exist.
	const q = `
		UPDATE shipping
		SET carrier = $2, tracking_number = $3, status = $4,
			estimated_delivery = $5, shipped_at = $6, delivered_at = $7
		WHERE rec_id = (SELECT rec_id FROM shipping WHERE order_id = $1 ORDER BY rec_id LIMIT 1)
	`
	res, err := s.db.ExecContext(ctx, q,
		rec.OrderID, rec.Carrier, rec.TrackingNumber, rec.Status,
		rec.EstimatedDelivery, rec.ShippedAt, rec.DeliveredAt)
	if err != nil {
		return fmt.Errorf("updating shipping record: %w", err)
	}
	return requireRow(res)
}

// ---- returns ----

func (s *Store) InsertReturn(ctx context.Context, r models.ReturnRequest) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("encoding return items: %w", err)
	}
	const q = `
		INSERT INTO returns (id, order_id, user_id, items, reason, status, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := s.db.ExecContext(ctx, q,
		r.ID, r.OrderID, r.UserID, items, r.Reason, r.Status, r.CreatedAt, r.ProcessedAt); err != nil {
		return fmt.Errorf("inserting return request: %w", err)
	}
	return nil
}

const returnColumns = `id, order_id, user_id, items, reason, status, created_at, processed_at`

func scanReturn(scan func(dest ...any) error) (models.ReturnRequest, error) {
	var (
		r     models.ReturnRequest
		items []byte
	)
	err := scan(&r.ID, &r.OrderID, &r.UserID, &items, &r.Reason, &r.Status, &r.CreatedAt, &r.ProcessedAt)
	if err != nil {
		return models.ReturnRequest{}, err
	}
	if err := json.Unmarshal(items, &r.Items); err != nil {
		return models.ReturnRequest{}, fmt.Errorf("decoding return items: %w", err)
	}
	return r, nil
}

func (s *Store) ReturnByID(ctx context.Context, id string) (models.ReturnRequest, error) {
	q := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1`
	r, err := scanReturn(s.db.QueryRowContext(ctx, q, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReturnRequest{}, stores.ErrNotFound
	}
	if err != nil {
		return models.ReturnRequest{}, fmt.Errorf("scanning return request: %w", err)
	}
	return r, nil
}

func (s *Store) ReturnsByUser(ctx context.Context, userID string) ([]models.ReturnRequest, error) {
	q := `SELECT ` + returnColumns + ` FROM returns WHERE user_id = $1`
	return s.queryReturns(ctx, q, userID)
}

func (s *Store) ListReturns(ctx context.Context) ([]models.ReturnRequest, error) {
	q := `SELECT ` + returnColumns + ` FROM returns`
	return s.queryReturns(ctx, q)
}

func (s *Store) queryReturns(ctx context.Context, q string, args ...any) ([]models.ReturnRequest, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing return requests: %w", err)
	}
	defer rows.Close()

	out := []models.ReturnRequest{}
	for rows.Next() {
		r, err := scanReturn(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning return row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateReturn(ctx context.Context, r models.ReturnRequest) error {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("encoding return items: %w", err)
	}
	const q = `
		UPDATE returns
		SET items = $2, reason = $3, status = $4, processed_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, r.ID, items, r.Reason, r.Status, r.ProcessedAt)
	if err != nil {
		return fmt.Errorf("updating return request: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return stores.ErrNotFound
	}
	return nil
}

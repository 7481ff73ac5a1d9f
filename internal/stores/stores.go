// Package stores defines the persistence contract shared by the JSON-file
// and Postgres backends. Every collection gets plain get/list/insert/
// update/delete operations; filtering and business rules live in the
// domain services so the two backends stay dumb and interchangeable.
package stores

import (
	"context"
	"errors"

	"storefront/internal/models"
)

// ErrNotFound is returned by every lookup that misses, regardless of
// backend.
var ErrNotFound = errors.New("record not found")

type Store interface {
	// users, keyed by id; email is unique with a case-sensitive exact match
	InsertUser(ctx context.Context, u models.User) error
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)

	InsertProduct(ctx context.Context, p models.Product) error
	ProductByID(ctx context.Context, id string) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id string) error

	InsertVariant(ctx context.Context, v models.Variant) error
	VariantByID(ctx context.Context, id string) (models.Variant, error)
	VariantsByProduct(ctx context.Context, productID string) ([]models.Variant, error)
	UpdateVariant(ctx context.Context, v models.Variant) error
	DeleteVariant(ctx context.Context, id string) error

	// carts, keyed by user id; SaveCart upserts the whole record
	CartByUser(ctx context.Context, userID string) (models.Cart, error)
	SaveCart(ctx context.Context, cart models.Cart) error
	DeleteCart(ctx context.Context, userID string) error

	InsertOrder(ctx context.Context, o models.Order) error
	OrderByID(ctx context.Context, id string) (models.Order, error)
	OrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	UpdateOrder(ctx context.Context, o models.Order) error

	// shipping records; lookups return the first record for the order
	InsertShipping(ctx context.Context, s models.ShippingInfo) error
	ShippingByOrder(ctx context.Context, orderID string) (models.ShippingInfo, error)
	ShippingByTracking(ctx context.Context, trackingNumber string) (models.ShippingInfo, error)
	UpdateShipping(ctx context.Context, s models.ShippingInfo) error

	InsertReturn(ctx context.Context, r models.ReturnRequest) error
	ReturnByID(ctx context.Context, id string) (models.ReturnRequest, error)
	ReturnsByUser(ctx context.Context, userID string) ([]models.ReturnRequest, error)
	ListReturns(ctx context.Context) ([]models.ReturnRequest, error)
	UpdateReturn(ctx context.Context, r models.ReturnRequest) error

	// Close flushes (file backend) or releases the connection pool.
	Close() error
}

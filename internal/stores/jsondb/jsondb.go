// Package jsondb is the file-backed store: one JSON document per
// collection, rewritten wholesale on every mutation. A RWMutex per
// collection guards the whole read-modify-write sequence including the
// flush to disk, so concurrent handlers never observe a torn collection.
package jsondb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"storefront/internal/models"
	"storefront/internal/stores"

	"storefront/pkg/logkey"
)

const (
	usersFile    = "users.json"
	productsFile = "products.json"
	cartsFile    = "carts.json"
	ordersFile   = "orders.json"
	variantsFile = "variants.json"
	shippingFile = "shipping.json"
	returnsFile  = "returns.json"
)

type Store struct {
	dir string

	usersMu sync.RWMutex
	users   map[string]models.User

	productsMu sync.RWMutex
	products   []models.Product

	cartsMu sync.RWMutex
	carts   map[string]models.Cart

	ordersMu sync.RWMutex
	orders   []models.Order

	variantsMu sync.RWMutex
	variants   []models.Variant

	shippingMu sync.RWMutex
	shipping   []models.ShippingInfo

	returnsMu sync.RWMutex
	returns   []models.ReturnRequest
}

// Open loads every collection from dir, creating it if needed. Unreadable
// files degrade to empty collections with a logged warning instead of
// failing startup.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}

	s := &Store{
		dir:   dir,
		users: map[string]models.User{},
		carts: map[string]models.Cart{},
	}
	loadCollection(dir, usersFile, &s.users)
	loadCollection(dir, productsFile, &s.products)
	loadCollection(dir, cartsFile, &s.carts)
	loadCollection(dir, ordersFile, &s.orders)
	loadCollection(dir, variantsFile, &s.variants)
	loadCollection(dir, shippingFile, &s.shipping)
	loadCollection(dir, returnsFile, &s.returns)
	return s, nil
}

func loadCollection(dir, name string, out any) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not load collection, starting empty",
				slog.String("file", name), slog.String(logkey.ERROR, err.Error()))
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("could not parse collection, starting empty",
			slog.String("file", name), slog.String(logkey.ERROR, err.Error()))
	}
}

// flush writes one collection. Failures are logged and swallowed: the
// mutation stays visible in memory, matching the reference behavior on
// read-only filesystems.
func (s *Store) flush(name string, data any) {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Warn("could not marshal collection", slog.String("file", name), slog.String(logkey.ERROR, err.Error()))
		return
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), buf, 0o644); err != nil {
		slog.Warn("could not save collection, data is in-memory only",
			slog.String("file", name), slog.String(logkey.ERROR, err.Error()))
	}
}

// Close flushes all collections.
func (s *Store) Close() error {
	s.usersMu.Lock()
	s.flush(usersFile, s.users)
	s.usersMu.Unlock()
	s.productsMu.Lock()
	s.flush(productsFile, s.products)
	s.productsMu.Unlock()
	s.cartsMu.Lock()
	s.flush(cartsFile, s.carts)
	s.cartsMu.Unlock()
	s.ordersMu.Lock()
	s.flush(ordersFile, s.orders)
	s.ordersMu.Unlock()
	s.variantsMu.Lock()
	s.flush(variantsFile, s.variants)
	s.variantsMu.Unlock()
	s.shippingMu.Lock()
	s.flush(shippingFile, s.shipping)
	s.shippingMu.Unlock()
	s.returnsMu.Lock()
	s.flush(returnsFile, s.returns)
	s.returnsMu.Unlock()
	return nil
}

// ---- users ----

func (s *Store) InsertUser(ctx context.Context, u models.User) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	s.users[u.ID] = u
	s.flush(usersFile, s.users)
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, stores.ErrNotFound
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, stores.ErrNotFound
}

// ---- products ----

func (s *Store) InsertProduct(ctx context.Context, p models.Product) error {
	s.productsMu.Lock()
	defer s.productsMu.Unlock()
	s.products = append(s.products, p)
	s.flush(productsFile, s.products)
	return nil
}

func (s *Store) ProductByID(ctx context.Context, id string) (models.Product, error) {
	s.productsMu.RLock()
	defer s.productsMu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, stores.ErrNotFound
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	s.productsMu.RLock()
	defer s.productsMu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p models.Product) error {
	s.productsMu.Lock()
	defer s.productsMu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			s.flush(productsFile, s.products)
			return nil
		}
	}
	return stores.ErrNotFound
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.productsMu.Lock()
	defer s.productsMu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			s.flush(productsFile, s.products)
			return nil
		}
	}
	return stores.ErrNotFound
}

// ---- variants ----

func (s *Store) InsertVariant(ctx context.Context, v models.Variant) error {
	s.variantsMu.Lock()
	defer s.variantsMu.Unlock()
	s.variants = append(s.variants, v)
	s.flush(variantsFile, s.variants)
	return nil
}

func (s *Store) VariantByID(ctx context.Context, id string) (models.Variant, error) {
	s.variantsMu.RLock()
	defer s.variantsMu.RUnlock()
	for _, v := range s.variants {
		if v.ID == id {
			return v, nil
		}
	}
	return models.Variant{}, stores.ErrNotFound
}

func (s *Store) VariantsByProduct(ctx context.Context, productID string) ([]models.Variant, error) {
	s.variantsMu.RLock()
	defer s.variantsMu.RUnlock()
	out := []models.Variant{}
	for _, v := range s.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) UpdateVariant(ctx context.Context, v models.Variant) error {
	s.variantsMu.Lock()
	defer s.variantsMu.Unlock()
	for i := range s.variants {
		if s.variants[i].ID == v.ID {
			s.variants[i] = v
			s.flush(variantsFile, s.variants)
			return nil
		}
	}
	return stores.ErrNotFound
}

func (s *Store) DeleteVariant(ctx context.Context, id string) error {
	s.variantsMu.Lock()
	defer s.variantsMu.Unlock()
	for i := range s.variants {
		if s.variants[i].ID == id {
			s.variants = append(s.variants[:i], s.variants[i+1:]...)
			s.flush(variantsFile, s.variants)
			return nil
		}
	}
	return stores.ErrNotFound
}

// ---- carts ----

func (s *Store) CartByUser(ctx context.Context, userID string) (models.Cart, error) {
	s.cartsMu.RLock()
	defer s.cartsMu.RUnlock()
	cart, ok := s.carts[userID]
	if !ok {
		return models.Cart{}, stores.ErrNotFound
	}
	return cart, nil
}

func (s *Store) SaveCart(ctx context.Context, cart models.Cart) error {
	s.cartsMu.Lock()
	defer s.cartsMu.Unlock()
	s.carts[cart.UserID] = cart
	s.flush(cartsFile, s.carts)
	return nil
}

func (s *Store) DeleteCart(ctx context.Context, userID string) error {
	s.cartsMu.Lock()
	defer s.cartsMu.Unlock()
	if _, ok := s.carts[userID]; !ok {
		return nil
	}
	delete(s.carts, userID)
	s.flush(cartsFile, s.carts)
	return nil
}

// ---- orders ----

func (s *Store) InsertOrder(ctx context.Context, o models.Order) error {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()
	s.orders = append(s.orders, o)
	s.flush(ordersFile, s.orders)
	return nil
}

func (s *Store) OrderByID(ctx context.Context, id string) (models.Order, error) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return models.Order{}, stores.ErrNotFound
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out, nil
}

func (s *Store) UpdateOrder(ctx context.Context, o models.Order) error {
	s.ordersMu.Lock()
	defer s.ordersMu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == o.ID {
			s.orders[i] = o
			s.flush(ordersFile, s.orders)
			return nil
		}
	}
	return stores.ErrNotFound
}

// ---- shipping ----

func (s *Store) InsertShipping(ctx context.Context, rec models.ShippingInfo) error {
	s.shippingMu.Lock()
	defer s.shippingMu.Unlock()
	s.shipping = append(s.shipping, rec)
	s.flush(shippingFile, s.shipping)
	return nil
}

func (s *Store) ShippingByOrder(ctx context.Context, orderID string) (models.ShippingInfo, error) {
	s.shippingMu.RLock()
	defer s.shippingMu.RUnlock()
	for _, rec := range s.shipping {
		if rec.OrderID == orderID {
			return rec, nil
		}
	}
	return models.ShippingInfo{}, stores.ErrNotFound
}

func (s *Store) ShippingByTracking(ctx context.Context, trackingNumber string) (models.ShippingInfo, error) {
	s.shippingMu.RLock()
	defer s.shippingMu.RUnlock()
	for _, rec := range s.shipping {
		if rec.TrackingNumber == trackingNumber {
			return rec, nil
		}
	}
	return models.ShippingInfo{}, stores.ErrNotFound
}

func (s *Store) UpdateShipping(ctx context.Context, rec models.ShippingInfo) error {
	s.shippingMu.Lock()
	defer s.shippingMu.Unlock()
	for i := range s.shipping {
		if s.shipping[i].OrderID == rec.OrderID {
			s.shipping[i] = rec
			s.flush(shippingFile, s.shipping)
			return nil
		}
	}
	return stores.ErrNotFound
}

// ---- returns ----

func (s *Store) InsertReturn(ctx context.Context, r models.ReturnRequest) error {
	s.returnsMu.Lock()
	defer s.returnsMu.Unlock()
	s.returns = append(s.returns, r)
	s.flush(returnsFile, s.returns)
	return nil
}

func (s *Store) ReturnByID(ctx context.Context, id string) (models.ReturnRequest, error) {
	s.returnsMu.RLock()
	defer s.returnsMu.RUnlock()
	for _, r := range s.returns {
		if r.ID == id {
			return r, nil
		}
	}
	return models.ReturnRequest{}, stores.ErrNotFound
}

func (s *Store) ReturnsByUser(ctx context.Context, userID string) ([]models.ReturnRequest, error) {
	s.returnsMu.RLock()
	defer s.returnsMu.RUnlock()
	out := []models.ReturnRequest{}
	for _, r := range s.returns {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListReturns(ctx context.Context) ([]models.ReturnRequest, error) {
	s.returnsMu.RLock()
	defer s.returnsMu.RUnlock()
	out := make([]models.ReturnRequest, len(s.returns))
	copy(out, s.returns)
	return out, nil
}

func (s *Store) UpdateReturn(ctx context.Context, r models.ReturnRequest) error {
	s.returnsMu.Lock()
	defer s.returnsMu.Unlock()
	for i := range s.returns {
		if s.returns[i].ID == r.ID {
			s.returns[i] = r
			s.flush(returnsFile, s.returns)
			return nil
		}
	}
	return stores.ErrNotFound
}

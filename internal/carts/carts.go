// Package carts manages the single live cart per user. Line prices are
// whatever the caller supplied when the item was added; they are not
// re-checked against the catalog.
package carts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/models"
	"storefront/internal/stores"
)

// ErrItemNotFound is returned by UpdateItem when the cart has no line for
// the product.
var ErrItemNotFound = errors.New("item not found in cart")

type NewItem struct {
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	Price     float64 `json:"price" validate:"min=0"`
}

type Conf struct {
	store stores.Store

	// mu guards userMu; each user's mutex serializes that user's
	// load-modify-save sequence so a concurrent add never drops a line.
	mu     sync.Mutex
	userMu map[string]*sync.Mutex
}

func NewConf(store stores.Store) (*Conf, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	return &Conf{store: store, userMu: map[string]*sync.Mutex{}}, nil
}

func (c *Conf) userLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.userMu[userID]
	if !ok {
		m = &sync.Mutex{}
		c.userMu[userID] = m
	}
	return m
}

// Get returns the user's cart, or an empty-items cart when none exists.
func (c *Conf) Get(ctx context.Context, userID string) (models.Cart, error) {
	cart, err := c.store.CartByUser(ctx, userID)
	if errors.Is(err, stores.ErrNotFound) {
		return models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("loading cart: %w", err)
	}
	return cart, nil
}

// AddItem creates the cart on first use; an existing line for the same
// product accumulates quantity.
func (c *Conf) AddItem(ctx context.Context, userID string, item NewItem) error {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	cart, err := c.store.CartByUser(ctx, userID)
	switch {
	case errors.Is(err, stores.ErrNotFound):
		cart = models.Cart{
			ID:     uuid.NewString(),
			UserID: userID,
			Items:  []models.CartItem{{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price}},
		}
	case err != nil:
		return fmt.Errorf("loading cart: %w", err)
	default:
		merged := false
		for i := range cart.Items {
			if cart.Items[i].ProductID == item.ProductID {
				cart.Items[i].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			cart.Items = append(cart.Items, models.CartItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
		}
	}

	cart.UpdatedAt = time.Now().UTC()
	if err := c.store.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

// UpdateItem overwrites the line's quantity; zero or negative removes the
// line. The cart record itself survives with zero lines.
func (c *Conf) UpdateItem(ctx context.Context, userID, productID string, quantity int) error {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	cart, err := c.store.CartByUser(ctx, userID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrItemNotFound
	}

	if quantity <= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	} else {
		cart.Items[idx].Quantity = quantity
	}

	cart.UpdatedAt = time.Now().UTC()
	if err := c.store.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

// Clear deletes the cart record; clearing an absent cart is not an error.
func (c *Conf) Clear(ctx context.Context, userID string) error {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return c.store.DeleteCart(ctx, userID)
}

// Package orders creates and reads order snapshots. The total is computed
// once from the supplied items and never recomputed; creating an order
// does not touch the cart or product stock.
package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"storefront/internal/models"
	"storefront/internal/stores"
)

const (
	userListCap  = 100
	adminListCap = 1000
)

type NewOrder struct {
	Items           []models.CartItem `json:"items" validate:"required,min=1,dive"`
	ShippingAddress models.Address    `json:"shipping_address"`
	BillingAddress  models.Address    `json:"billing_address"`
	BuyerInfo       models.BuyerInfo  `json:"buyer_info"`
}

type Conf struct {
	store stores.Store
}

func NewConf(store stores.Store) (*Conf, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	return &Conf{store: store}, nil
}

// Create snapshots the supplied items into a pending order. Prices come
// from the caller verbatim.
func (c *Conf) Create(ctx context.Context, userID string, no NewOrder) (models.Order, error) {
	var total float64
	for _, item := range no.Items {
		total += item.Price * float64(item.Quantity)
	}

	o := models.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Items:           no.Items,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		ShippingAddress: no.ShippingAddress,
		BillingAddress:  no.BillingAddress,
		BuyerInfo:       no.BuyerInfo,
		CreatedAt:       time.Now().UTC(),
	}
	if err := c.store.InsertOrder(ctx, o); err != nil {
		return models.Order{}, fmt.Errorf("inserting order: %w", err)
	}
	return o, nil
}

// ListForUser returns the user's orders most-recent-first, capped at 100.
func (c *Conf) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	out, err := c.store.OrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	sortNewestFirst(out)
	if len(out) > userListCap {
		out = out[:userListCap]
	}
	return out, nil
}

// Get folds the ownership check into the lookup: an order belonging to a
// different user reads as missing, not forbidden.
func (c *Conf) Get(ctx context.Context, orderID, userID string) (models.Order, error) {
	o, err := c.store.OrderByID(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if o.UserID != userID {
		return models.Order{}, stores.ErrNotFound
	}
	return o, nil
}

// AdminList returns all orders most-recent-first, capped at 1000.
func (c *Conf) AdminList(ctx context.Context) ([]models.Order, error) {
	out, err := c.store.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	sortNewestFirst(out)
	if len(out) > adminListCap {
		out = out[:adminListCap]
	}
	return out, nil
}

// UpdateStatus overwrites the status without validating the transition;
// the admin console relies on that looseness.
func (c *Conf) UpdateStatus(ctx context.Context, orderID, status string) error {
	o, err := c.store.OrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	o.Status = status
	if err := c.store.UpdateOrder(ctx, o); err != nil {
		return fmt.Errorf("updating order: %w", err)
	}
	return nil
}

func sortNewestFirst(out []models.Order) {
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
}

package shipping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/models"
	"storefront/internal/stores"

	"github.com/google/uuid"
)

var (
	// ErrForbidden marks a shipment lookup by a user who neither owns the
	// order nor is an admin.
	ErrForbidden = errors.New("access denied")

	// ErrNotDelivered marks a return request against an order that has not
	// reached delivered status.
	ErrNotDelivered = errors.New("order must be delivered to request return")

	// ErrOrderNotFound distinguishes a lookup against an unknown order from
	// an existing order that simply has no shipment yet.
	ErrOrderNotFound = errors.New("order not found")
)

type NewShipping struct {
	OrderID        string `json:"order_id" validate:"required"`
	Carrier        string `json:"carrier" validate:"required"`
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

type NewReturn struct {
	OrderID string            `json:"order_id" validate:"required"`
	Items   []models.CartItem `json:"items" validate:"required,min=1,dive"`
	Reason  string            `json:"reason" validate:"required"`
}

// TrackingEvent is one synthesized timeline entry for public tracking.
type TrackingEvent struct {
	Date     time.Time `json:"date"`
	Status   string    `json:"status"`
	Location string    `json:"location"`
}

type TrackingInfo struct {
	TrackingNumber  string          `json:"tracking_number"`
	Carrier         string          `json:"carrier"`
	Status          string          `json:"status"`
	CurrentLocation string          `json:"current_location"`
	Events          []TrackingEvent `json:"events"`
}

type Conf struct {
	store stores.Store
}

func NewConf(store stores.Store) (*Conf, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	return &Conf{store: store}, nil
}

// Create records a shipment for an existing order and advances the order to
// shipped. Multiple shipments per order are allowed; lookups by order return
// the earliest one.
func (c *Conf) Create(ctx context.Context, ns NewShipping) (models.ShippingInfo, error) {
	order, err := c.store.OrderByID(ctx, ns.OrderID)
	if err != nil {
		return models.ShippingInfo{}, fmt.Errorf("looking up order %s: %w", ns.OrderID, err)
	}

	now := time.Now().UTC()
	info := models.ShippingInfo{
		OrderID:        ns.OrderID,
		Carrier:        ns.Carrier,
		TrackingNumber: ns.TrackingNumber,
		Status:         models.ShippingStatusShipped,
		ShippedAt:      &now,
	}
	if err := c.store.InsertShipping(ctx, info); err != nil {
		return models.ShippingInfo{}, fmt.Errorf("inserting shipping record: %w", err)
	}

	order.Status = models.OrderStatusShipped
	if err := c.store.UpdateOrder(ctx, order); err != nil {
		return models.ShippingInfo{}, fmt.Errorf("advancing order %s to shipped: %w", ns.OrderID, err)
	}

	return info, nil
}

// Get returns the shipment for an order. Non-admin callers may only see
// shipments for their own orders.
func (c *Conf) Get(ctx context.Context, orderID string, user models.User) (models.ShippingInfo, error) {
	order, err := c.store.OrderByID(ctx, orderID)
	if errors.Is(err, stores.ErrNotFound) {
		return models.ShippingInfo{}, ErrOrderNotFound
	}
	if err != nil {
		return models.ShippingInfo{}, fmt.Errorf("looking up order %s: %w", orderID, err)
	}
	if order.UserID != user.ID && !user.IsAdmin {
		return models.ShippingInfo{}, ErrForbidden
	}

	info, err := c.store.ShippingByOrder(ctx, orderID)
	if err != nil {
		return models.ShippingInfo{}, fmt.Errorf("looking up shipping for order %s: %w", orderID, err)
	}
	return info, nil
}

// Track synthesizes a public tracking timeline from the stored shipment.
// The carrier integration is mocked: events are derived from the record's
// status and timestamps.
func (c *Conf) Track(ctx context.Context, trackingNumber string) (TrackingInfo, error) {
	info, err := c.store.ShippingByTracking(ctx, trackingNumber)
	if err != nil {
		return TrackingInfo{}, fmt.Errorf("looking up tracking number %s: %w", trackingNumber, err)
	}

	now := time.Now().UTC()
	shippedAt := now
	if info.ShippedAt != nil {
		shippedAt = *info.ShippedAt
	}

	currentLocation := "Origin"
	if info.Status == models.ShippingStatusInTransit {
		currentLocation = "Distribution Center"
	}

	tracking := TrackingInfo{
		TrackingNumber:  info.TrackingNumber,
		Carrier:         info.Carrier,
		Status:          info.Status,
		CurrentLocation: currentLocation,
		Events: []TrackingEvent{
			{Date: shippedAt, Status: "Shipped", Location: "Origin Warehouse"},
		},
	}

	if info.Status == models.ShippingStatusDelivered {
		deliveredAt := now
		if info.DeliveredAt != nil {
			deliveredAt = *info.DeliveredAt
		}
		tracking.Events = append(tracking.Events, TrackingEvent{
			Date: deliveredAt, Status: "Delivered", Location: "Destination",
		})
	}

	return tracking, nil
}

// UpdateStatus overwrites the shipment status for an order. Reaching
// delivered stamps the delivery time and cascades to the order.
func (c *Conf) UpdateStatus(ctx context.Context, orderID, status string) (models.ShippingInfo, error) {
	info, err := c.store.ShippingByOrder(ctx, orderID)
	if err != nil {
		return models.ShippingInfo{}, fmt.Errorf("looking up shipping for order %s: %w", orderID, err)
	}

	info.Status = status
	if status == models.ShippingStatusDelivered {
		now := time.Now().UTC()
		info.DeliveredAt = &now

		order, err := c.store.OrderByID(ctx, orderID)
		if err == nil {
			order.Status = models.OrderStatusDelivered
			if err := c.store.UpdateOrder(ctx, order); err != nil {
				return models.ShippingInfo{}, fmt.Errorf("advancing order %s to delivered: %w", orderID, err)
			}
		}
	}

	if err := c.store.UpdateShipping(ctx, info); err != nil {
		return models.ShippingInfo{}, fmt.Errorf("updating shipping for order %s: %w", orderID, err)
	}
	return info, nil
}

// CreateReturn files a return request for a delivered order owned by the
// caller.
func (c *Conf) CreateReturn(ctx context.Context, userID string, nr NewReturn) (models.ReturnRequest, error) {
	order, err := c.store.OrderByID(ctx, nr.OrderID)
	if err != nil {
		return models.ReturnRequest{}, fmt.Errorf("looking up order %s: %w", nr.OrderID, err)
	}
	if order.UserID != userID {
		return models.ReturnRequest{}, fmt.Errorf("order %s not owned by caller: %w", nr.OrderID, stores.ErrNotFound)
	}
	if order.Status != models.OrderStatusDelivered {
		return models.ReturnRequest{}, ErrNotDelivered
	}

	ret := models.ReturnRequest{
		ID:        uuid.NewString(),
		OrderID:   nr.OrderID,
		UserID:    userID,
		Items:     nr.Items,
		Reason:    nr.Reason,
		Status:    models.ReturnStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.store.InsertReturn(ctx, ret); err != nil {
		return models.ReturnRequest{}, fmt.Errorf("inserting return request: %w", err)
	}
	return ret, nil
}

func (c *Conf) ReturnsForUser(ctx context.Context, userID string) ([]models.ReturnRequest, error) {
	returns, err := c.store.ReturnsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing returns for user %s: %w", userID, err)
	}
	sortReturnsNewestFirst(returns)
	return returns, nil
}

func (c *Conf) AdminReturns(ctx context.Context) ([]models.ReturnRequest, error) {
	returns, err := c.store.ListReturns(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing returns: %w", err)
	}
	sortReturnsNewestFirst(returns)
	return returns, nil
}

// UpdateReturnStatus overwrites the status of a return request. Reaching
// processed stamps the processing time.
func (c *Conf) UpdateReturnStatus(ctx context.Context, returnID, status string) (models.ReturnRequest, error) {
	ret, err := c.store.ReturnByID(ctx, returnID)
	if err != nil {
		return models.ReturnRequest{}, fmt.Errorf("looking up return %s: %w", returnID, err)
	}

	ret.Status = status
	if status == models.ReturnStatusProcessed {
		now := time.Now().UTC()
		ret.ProcessedAt = &now
	}
	if err := c.store.UpdateReturn(ctx, ret); err != nil {
		return models.ReturnRequest{}, fmt.Errorf("updating return %s: %w", returnID, err)
	}
	return ret, nil
}

func sortReturnsNewestFirst(returns []models.ReturnRequest) {
	sort.SliceStable(returns, func(i, j int) bool {
		return returns[i].CreatedAt.After(returns[j].CreatedAt)
	})
}

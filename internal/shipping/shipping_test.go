package shipping

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/stores"
	"storefront/internal/stores/jsondb"
)

func newTestConf(t *testing.T) (*Conf, stores.Store) {
	t.Helper()
	store, err := jsondb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	c, err := NewConf(store)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}
	return c, store
}

func seedOrder(t *testing.T, store stores.Store, id, userID, status string) models.Order {
	t.Helper()
	order := models.Order{
		ID:        id,
		UserID:    userID,
		Items:     []models.CartItem{{ProductID: "p1", Quantity: 1, Price: 10}},
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.InsertOrder(context.Background(), order); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}
	return order
}

func TestCreateAdvancesOrder(t *testing.T) {
	c, store := newTestConf(t)
	ctx := context.Background()
	seedOrder(t, store, "o1", "u1", models.OrderStatusPaid)

	info, err := c.Create(ctx, NewShipping{OrderID: "o1", Carrier: "Aras", TrackingNumber: "TRK1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.Status != models.ShippingStatusShipped || info.ShippedAt == nil {
		t.Errorf("shipping = %+v, want shipped with timestamp", info)
	}

	order, err := store.OrderByID(ctx, "o1")
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if order.Status != models.OrderStatusShipped {
		t.Errorf("order status = %q, want shipped", order.Status)
	}

	if _, err := c.Create(ctx, NewShipping{OrderID: "missing", Carrier: "Aras", TrackingNumber: "TRK2"}); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("Create for missing order: got %v, want ErrNotFound", err)
	}
}

func TestGetOwnership(t *testing.T) {
	c, store := newTestConf(t)
	ctx := context.Background()
	seedOrder(t, store, "o1", "owner", models.OrderStatusPaid)
	if _, err := c.Create(ctx, NewShipping{OrderID: "o1", Carrier: "MNG", TrackingNumber: "TRK1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := c.Get(ctx, "o1", models.User{ID: "owner"}); err != nil {
		t.Errorf("owner Get: %v", err)
	}
	if _, err := c.Get(ctx, "o1", models.User{ID: "admin", IsAdmin: true}); err != nil {
		t.Errorf("admin Get: %v", err)
	}
	if _, err := c.Get(ctx, "o1", models.User{ID: "other"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign Get: got %v, want ErrForbidden", err)
	}
	if _, err := c.Get(ctx, "missing", models.User{ID: "owner"}); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order Get: got %v, want ErrOrderNotFound", err)
	}

	// Order without a shipment reads as missing shipping info, not as a
	// missing order.
	seedOrder(t, store, "o2", "owner", models.OrderStatusPaid)
	_, err := c.Get(ctx, "o2", models.User{ID: "owner"})
	if !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("unshipped order Get: got %v, want ErrNotFound", err)
	}
	if errors.Is(err, ErrOrderNotFound) {
		t.Error("unshipped order Get reported the order itself as missing")
	}
}

func TestTrackTimeline(t *testing.T) {
	c, store := newTestConf(t)
	ctx := context.Background()
	seedOrder(t, store, "o1", "u1", models.OrderStatusPaid)
	if _, err := c.Create(ctx, NewShipping{OrderID: "o1", Carrier: "MNG", TrackingNumber: "TRK1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tr, err := c.Track(ctx, "TRK1")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if tr.CurrentLocation != "Origin" || len(tr.Events) != 1 || tr.Events[0].Status != "Shipped" {
		t.Errorf("shipped tracking = %+v", tr)
	}

	if _, err := c.UpdateStatus(ctx, "o1", models.ShippingStatusInTransit); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	tr, err = c.Track(ctx, "TRK1")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if tr.CurrentLocation != "Distribution Center" {
		t.Errorf("in transit location = %q, want Distribution Center", tr.CurrentLocation)
	}

	if _, err := c.UpdateStatus(ctx, "o1", models.ShippingStatusDelivered); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	tr, err = c.Track(ctx, "TRK1")
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(tr.Events) != 2 || tr.Events[1].Status != "Delivered" || tr.Events[1].Location != "Destination" {
		t.Errorf("delivered tracking events = %+v", tr.Events)
	}

	if _, err := c.Track(ctx, "NOPE"); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("unknown tracking number: got %v, want ErrNotFound", err)
	}
}

func TestUpdateStatusDeliveredCascades(t *testing.T) {
	c, store := newTestConf(t)
	ctx := context.Background()
	seedOrder(t, store, "o1", "u1", models.OrderStatusPaid)
	if _, err := c.Create(ctx, NewShipping{OrderID: "o1", Carrier: "MNG", TrackingNumber: "TRK1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	info, err := c.UpdateStatus(ctx, "o1", models.ShippingStatusDelivered)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if info.DeliveredAt == nil {
		t.Error("DeliveredAt not stamped")
	}

	order, err := store.OrderByID(ctx, "o1")
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if order.Status != models.OrderStatusDelivered {
		t.Errorf("order status = %q, want delivered", order.Status)
	}
}

func TestCreateReturnRequiresDelivered(t *testing.T) {
	c, store := newTestConf(t)
	ctx := context.Background()
	seedOrder(t, store, "o1", "u1", models.OrderStatusShipped)
	seedOrder(t, store, "o2", "u1", models.OrderStatusDelivered)

	nr := NewReturn{OrderID: "o1", Items: []models.CartItem{{ProductID: "p1", Quantity: 1, Price: 10}}, Reason: "damaged"}
	if _, err := c.CreateReturn(ctx, "u1", nr); !errors.Is(err, ErrNotDelivered) {
		t.Errorf("return on shipped order: got %v, want ErrNotDelivered", err)
	}

	nr.OrderID = "o2"
	if _, err := c.CreateReturn(ctx, "intruder", nr); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("return on foreign order: got %v, want ErrNotFound", err)
	}

	ret, err := c.CreateReturn(ctx, "u1", nr)
	if err != nil {
		t.Fatalf("CreateReturn: %v", err)
	}
	if ret.Status != models.ReturnStatusPending || ret.ID == "" {
		t.Errorf("return = %+v, want pending with id", ret)
	}
}

func TestReturnListingAndStatus(t *testing.T) {
	c, store := newTestConf(t)
	ctx := context.Background()
	seedOrder(t, store, "o1", "u1", models.OrderStatusDelivered)
	seedOrder(t, store, "o2", "u1", models.OrderStatusDelivered)

	first, err := c.CreateReturn(ctx, "u1", NewReturn{OrderID: "o1", Items: []models.CartItem{{ProductID: "p1", Quantity: 1}}, Reason: "wrong size"})
	if err != nil {
		t.Fatalf("CreateReturn: %v", err)
	}
	// Force a later timestamp for deterministic ordering.
	second, err := c.CreateReturn(ctx, "u1", NewReturn{OrderID: "o2", Items: []models.CartItem{{ProductID: "p1", Quantity: 1}}, Reason: "damaged"})
	if err != nil {
		t.Fatalf("CreateReturn: %v", err)
	}
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	if err := store.UpdateReturn(ctx, second); err != nil {
		t.Fatalf("UpdateReturn: %v", err)
	}

	list, err := c.ReturnsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ReturnsForUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("user returns = %+v, want newest first", list)
	}

	all, err := c.AdminReturns(ctx)
	if err != nil {
		t.Fatalf("AdminReturns: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin returns = %d, want 2", len(all))
	}

	updated, err := c.UpdateReturnStatus(ctx, first.ID, models.ReturnStatusProcessed)
	if err != nil {
		t.Fatalf("UpdateReturnStatus: %v", err)
	}
	if updated.ProcessedAt == nil {
		t.Error("ProcessedAt not stamped for processed return")
	}

	if _, err := c.UpdateReturnStatus(ctx, "missing", models.ReturnStatusApproved); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("missing return update: got %v, want ErrNotFound", err)
	}
}

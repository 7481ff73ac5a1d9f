package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/stores"
	"storefront/internal/stores/jsondb"
	"storefront/internal/stores/kafka"
)

type mockGateway struct {
	ChargeFunc func(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

func (m *mockGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	return m.ChargeFunc(ctx, req)
}

type recordingProducer struct {
	messages chan []byte
}

func (p *recordingProducer) ProduceMessage(topic string, key []byte, value []byte) error {
	if topic != kafka.TopicOrderPaid {
		return errors.New("unexpected topic " + topic)
	}
	p.messages <- value
	return nil
}

func seedOrder(t *testing.T, store stores.Store, userID string) models.Order {
	t.Helper()
	order := models.Order{
		ID:     "ord-1",
		UserID: userID,
		Items: []models.CartItem{
			{ProductID: "p1", Quantity: 2, Price: 10},
			{ProductID: "p2", Quantity: 1, Price: 5},
		},
		TotalAmount: 25,
		Status:      models.OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.InsertOrder(context.Background(), order); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}
	return order
}

func TestProcessSuccess(t *testing.T) {
	store, err := jsondb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	ctx := context.Background()
	user := models.User{ID: "u1", Email: "u1@example.com"}
	order := seedOrder(t, store, user.ID)
	if err := store.SaveCart(ctx, models.Cart{UserID: user.ID, Items: order.Items}); err != nil {
		t.Fatalf("SaveCart: %v", err)
	}

	gw := &mockGateway{ChargeFunc: func(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
		if req.Order.ID != order.ID {
			t.Errorf("charged order %s, want %s", req.Order.ID, order.ID)
		}
		return ChargeResult{PaymentID: "pi_123"}, nil
	}}
	producer := &recordingProducer{messages: make(chan []byte, 4)}
	c, err := NewConf(store, gw, producer)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}

	res, err := c.Process(ctx, user, NewPayment{OrderID: order.ID})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !res.Success || res.PaymentID != "pi_123" {
		t.Fatalf("result = %+v, want success with pi_123", res)
	}

	got, err := store.OrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if got.Status != models.OrderStatusPaid || got.PaymentID != "pi_123" {
		t.Errorf("order after payment = %q/%q, want paid/pi_123", got.Status, got.PaymentID)
	}

	cart, err := store.CartByUser(ctx, user.ID)
	if err == nil && len(cart.Items) > 0 {
		t.Errorf("cart not cleared after payment: %+v", cart)
	}

	// One event per line item.
	for i := 0; i < len(order.Items); i++ {
		select {
		case raw := <-producer.messages:
			var ev kafka.OrderPaidEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				t.Fatalf("unmarshaling event: %v", err)
			}
			if ev.OrderId != order.ID {
				t.Errorf("event order id = %s, want %s", ev.OrderId, order.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestProcessDeclineLeavesOrderUntouched(t *testing.T) {
	store, err := jsondb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	ctx := context.Background()
	user := models.User{ID: "u1", Email: "u1@example.com"}
	order := seedOrder(t, store, user.ID)

	gw := &mockGateway{ChargeFunc: func(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
		return ChargeResult{}, &DeclineError{Message: "insufficient funds", Code: "card_declined"}
	}}
	c, err := NewConf(store, gw, nil)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}

	res, err := c.Process(ctx, user, NewPayment{OrderID: order.ID})
	if err != nil {
		t.Fatalf("Process on decline: %v", err)
	}
	if res.Success {
		t.Fatal("decline reported as success")
	}
	if res.Message != "insufficient funds" || res.ErrorCode != "card_declined" {
		t.Errorf("result = %+v, want decline details", res)
	}

	got, err := store.OrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if got.Status != models.OrderStatusPending {
		t.Errorf("order status after decline = %q, want pending", got.Status)
	}
}

func TestProcessOwnershipAndMissing(t *testing.T) {
	store, err := jsondb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	ctx := context.Background()
	order := seedOrder(t, store, "owner")

	gw := &mockGateway{ChargeFunc: func(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
		t.Fatal("gateway must not be called")
		return ChargeResult{}, nil
	}}
	c, err := NewConf(store, gw, nil)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}

	if _, err := c.Process(ctx, models.User{ID: "intruder"}, NewPayment{OrderID: order.ID}); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("foreign order: got %v, want ErrNotFound", err)
	}
	if _, err := c.Process(ctx, models.User{ID: "owner"}, NewPayment{OrderID: "missing"}); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("missing order: got %v, want ErrNotFound", err)
	}
}

func TestProcessGatewayFault(t *testing.T) {
	store, err := jsondb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	ctx := context.Background()
	user := models.User{ID: "u1"}
	order := seedOrder(t, store, user.ID)

	gw := &mockGateway{ChargeFunc: func(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
		return ChargeResult{}, errors.New("connection reset")
	}}
	c, err := NewConf(store, gw, nil)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}

	if _, err := c.Process(ctx, user, NewPayment{OrderID: order.ID}); err == nil {
		t.Fatal("gateway fault swallowed")
	}

	got, err := store.OrderByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("OrderByID: %v", err)
	}
	if got.Status != models.OrderStatusPending {
		t.Errorf("order status after fault = %q, want pending", got.Status)
	}
}

package carts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/stores"
	"storefront/internal/stores/jsondb"
)

func newTestConf(t *testing.T) *Conf {
	t.Helper()
	store, err := jsondb.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	c, err := NewConf(store)
	if err != nil {
		t.Fatalf("NewConf: %v", err)
	}
	return c
}

func TestGetMissingCartIsEmptyNotError(t *testing.T) {
	c := newTestConf(t)

	cart, err := c.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("items = %v, want empty", cart.Items)
	}
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	if err := c.AddItem(ctx, "u1", NewItem{ProductID: "p1", Quantity: 2, Price: 10}); err != nil {
		t.Fatalf("first AddItem: %v", err)
	}
	if err := c.AddItem(ctx, "u1", NewItem{ProductID: "p1", Quantity: 3, Price: 10}); err != nil {
		t.Fatalf("second AddItem: %v", err)
	}
	if err := c.AddItem(ctx, "u1", NewItem{ProductID: "p2", Quantity: 1, Price: 5}); err != nil {
		t.Fatalf("third AddItem: %v", err)
	}

	cart, err := c.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("got %d lines, want 2", len(cart.Items))
	}
	if cart.Items[0].ProductID != "p1" || cart.Items[0].Quantity != 5 {
		t.Errorf("first line = %+v, want p1 x5", cart.Items[0])
	}
}

func TestUpdateItem(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	if err := c.UpdateItem(ctx, "u1", "p1", 2); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("update with no cart: got %v, want ErrNotFound", err)
	}

	if err := c.AddItem(ctx, "u1", NewItem{ProductID: "p1", Quantity: 2, Price: 10}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := c.UpdateItem(ctx, "u1", "missing", 2); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("update of absent line: got %v, want ErrItemNotFound", err)
	}

	if err := c.UpdateItem(ctx, "u1", "p1", 7); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	cart, _ := c.Get(ctx, "u1")
	if cart.Items[0].Quantity != 7 {
		t.Errorf("quantity = %d, want 7", cart.Items[0].Quantity)
	}

	// Zero quantity removes the line but the cart record survives.
	if err := c.UpdateItem(ctx, "u1", "p1", 0); err != nil {
		t.Fatalf("UpdateItem to zero: %v", err)
	}
	cart, err := c.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("items = %v, want empty", cart.Items)
	}
	if cart.ID == "" {
		t.Error("cart entity was auto-deleted after removing its last line")
	}
}

func TestConcurrentAddsNeverDropALine(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	const adds = 50
	var wg sync.WaitGroup
	errs := make(chan error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.AddItem(ctx, "u1", NewItem{ProductID: "p1", Quantity: 1, Price: 10})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}

	cart, err := c.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("got %d lines, want 1", len(cart.Items))
	}
	if cart.Items[0].Quantity != adds {
		t.Errorf("quantity = %d, want %d", cart.Items[0].Quantity, adds)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	if err := c.AddItem(ctx, "u1", NewItem{ProductID: "p1", Quantity: 1, Price: 10}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := c.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := c.Clear(ctx, "u1"); err != nil {
		t.Errorf("second Clear: %v", err)
	}

	cart, err := c.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get after clear: %v", err)
	}
	if len(cart.Items) != 0 || cart.ID != "" {
		t.Errorf("cart after clear = %+v, want empty", cart)
	}
}

package products

import (
	"context"
	"errors"
	"sort"
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

func seedCatalog(t *testing.T, c *Conf) {
	t.Helper()
	for _, np := range []NewProduct{
		{Name: "Espresso Machine", Price: 250, Category: "Kitchen"},
		{Name: "Coffee Grinder", Price: 75, Category: "Kitchen"},
		{Name: "Desk Lamp", Price: 50, Category: "Office"},
		{Name: "Monitor Stand", Price: 100, Category: "Office"},
		{Name: "Notebook", Price: 5, Category: ""},
	} {
		if _, err := c.Create(context.Background(), np); err != nil {
			t.Fatalf("seeding %q: %v", np.Name, err)
		}
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestListFilters(t *testing.T) {
	c := newTestConf(t)
	seedCatalog(t, c)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filters", Filter{}, []string{"Coffee Grinder", "Desk Lamp", "Espresso Machine", "Monitor Stand", "Notebook"}},
		{"category", Filter{Category: "Kitchen"}, []string{"Coffee Grinder", "Espresso Machine"}},
		{"search is case-insensitive substring", Filter{Search: "coffee"}, []string{"Coffee Grinder"}},
		{"price bounds inclusive", Filter{MinPrice: floatPtr(50), MaxPrice: floatPtr(100)}, []string{"Coffee Grinder", "Desk Lamp", "Monitor Stand"}},
		{"all filters AND", Filter{Category: "Office", Search: "lamp", MinPrice: floatPtr(50), MaxPrice: floatPtr(100)}, []string{"Desk Lamp"}},
		{"no match", Filter{Category: "Kitchen", Search: "lamp"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			names := []string{}
			for _, p := range got {
				names = append(names, p.Name)
			}
			sort.Strings(names)
			if len(names) != len(tt.want) {
				t.Fatalf("got %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", names, tt.want)
				}
			}
		})
	}
}

func TestCategoriesDistinctNonEmpty(t *testing.T) {
	c := newTestConf(t)
	seedCatalog(t, c)

	got, err := c.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	sort.Strings(got)
	want := []string{"Kitchen", "Office"}
	if len(got) != len(want) {
		t.Fatalf("categories = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("categories = %v, want %v", got, want)
		}
	}
}

func TestUpdateReplacesMutableFields(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	p, err := c.Create(ctx, NewProduct{Name: "Old Name", Price: 10, Category: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := c.Update(ctx, p.ID, NewProduct{Name: "New Name", Price: 20, Category: "B"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "New Name" || updated.Price != 20 || updated.Category != "B" {
		t.Errorf("update did not replace fields: %+v", updated)
	}
	if updated.Slug != "new-name" {
		t.Errorf("slug = %q, want new-name", updated.Slug)
	}
	if !updated.CreatedAt.Equal(p.CreatedAt) {
		t.Error("update altered the creation time")
	}
}

func TestVariantRequiresExistingProduct(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	if _, err := c.CreateVariant(ctx, "missing", NewVariant{Size: "M"}); !errors.Is(err, stores.ErrNotFound) {
		t.Errorf("CreateVariant on missing product: got %v, want ErrNotFound", err)
	}

	p, err := c.Create(ctx, NewProduct{Name: "Shirt", Price: 30, Category: "Clothing"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	v, err := c.CreateVariant(ctx, p.ID, NewVariant{Size: "M", Color: "blue", Stock: 3})
	if err != nil {
		t.Fatalf("CreateVariant: %v", err)
	}

	// Variants survive a hard delete of the parent product.
	if err := c.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	remaining, err := c.ListVariants(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListVariants: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != v.ID {
		t.Errorf("variant did not survive product deletion: %+v", remaining)
	}
}

func TestSeedSamplesOnlyWhenEmpty(t *testing.T) {
	c := newTestConf(t)
	ctx := context.Background()

	n, err := c.SeedSamples(ctx)
	if err != nil {
		t.Fatalf("SeedSamples: %v", err)
	}
	if n != 2 {
		t.Errorf("seeded %d products, want 2", n)
	}

	n, err = c.SeedSamples(ctx)
	if err != nil {
		t.Fatalf("second SeedSamples: %v", err)
	}
	if n != 0 {
		t.Errorf("reseeded %d products into a non-empty catalog", n)
	}
}

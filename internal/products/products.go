// Package products is the catalog service: product and variant CRUD,
// category listing and filter-based search. Filtering is a linear scan
// over the collection so both store backends behave identically.
package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"storefront/internal/models"
	"storefront/internal/stores"
)

// listCap bounds an unpaginated catalog listing.
const listCap = 1000

type NewProduct struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"min=0"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Stock       int     `json:"stock" validate:"min=0"`
}

type NewVariant struct {
	Size            string  `json:"size"`
	Color           string  `json:"color"`
	SKU             string  `json:"sku"`
	Stock           int     `json:"stock" validate:"min=0"`
	PriceAdjustment float64 `json:"price_adjustment"`
	ImageURL        string  `json:"image_url"`
}

// Filter fields are optional; absent fields impose no constraint. All
// supplied fields must match (AND semantics). Price bounds are inclusive.
type Filter struct {
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
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

func (c *Conf) List(ctx context.Context, f Filter) ([]models.Product, error) {
	all, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	search := strings.ToLower(f.Search)
	out := []models.Product{}
	for _, p := range all {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, p)
		if len(out) == listCap {
			break
		}
	}
	return out, nil
}

func (c *Conf) Get(ctx context.Context, id string) (models.Product, error) {
	return c.store.ProductByID(ctx, id)
}

func (c *Conf) Create(ctx context.Context, np NewProduct) (models.Product, error) {
	p := models.Product{
		ID:          uuid.NewString(),
		Name:        np.Name,
		Slug:        slug.Make(np.Name),
		Description: np.Description,
		Price:       np.Price,
		Category:    np.Category,
		ImageURL:    np.ImageURL,
		Stock:       np.Stock,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.store.InsertProduct(ctx, p); err != nil {
		return models.Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return p, nil
}

// Update replaces every mutable field; id and creation time survive.
func (c *Conf) Update(ctx context.Context, id string, np NewProduct) (models.Product, error) {
	current, err := c.store.ProductByID(ctx, id)
	if err != nil {
		return models.Product{}, err
	}
	updated := models.Product{
		ID:          current.ID,
		Name:        np.Name,
		Slug:        slug.Make(np.Name),
		Description: np.Description,
		Price:       np.Price,
		Category:    np.Category,
		ImageURL:    np.ImageURL,
		Stock:       np.Stock,
		CreatedAt:   current.CreatedAt,
	}
	if err := c.store.UpdateProduct(ctx, updated); err != nil {
		return models.Product{}, fmt.Errorf("updating product: %w", err)
	}
	return updated, nil
}

// Delete is an unconditional hard delete; referencing carts, orders and
// variants are left untouched.
func (c *Conf) Delete(ctx context.Context, id string) error {
	return c.store.DeleteProduct(ctx, id)
}

// Categories returns the distinct non-empty category values. Order is
// unspecified.
func (c *Conf) Categories(ctx context.Context) ([]string, error) {
	all, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	seen := map[string]bool{}
	out := []string{}
	for _, p := range all {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	return out, nil
}

// CreateVariant requires an existing parent product; the reference stays
// weak afterwards.
func (c *Conf) CreateVariant(ctx context.Context, productID string, nv NewVariant) (models.Variant, error) {
	if _, err := c.store.ProductByID(ctx, productID); err != nil {
		return models.Variant{}, err
	}
	v := models.Variant{
		ID:              uuid.NewString(),
		ProductID:       productID,
		Size:            nv.Size,
		Color:           nv.Color,
		SKU:             nv.SKU,
		Stock:           nv.Stock,
		PriceAdjustment: nv.PriceAdjustment,
		ImageURL:        nv.ImageURL,
	}
	if err := c.store.InsertVariant(ctx, v); err != nil {
		return models.Variant{}, fmt.Errorf("inserting variant: %w", err)
	}
	return v, nil
}

func (c *Conf) ListVariants(ctx context.Context, productID string) ([]models.Variant, error) {
	return c.store.VariantsByProduct(ctx, productID)
}

func (c *Conf) UpdateVariant(ctx context.Context, id string, nv NewVariant) (models.Variant, error) {
	current, err := c.store.VariantByID(ctx, id)
	if err != nil {
		return models.Variant{}, err
	}
	updated := models.Variant{
		ID:              current.ID,
		ProductID:       current.ProductID,
		Size:            nv.Size,
		Color:           nv.Color,
		SKU:             nv.SKU,
		Stock:           nv.Stock,
		PriceAdjustment: nv.PriceAdjustment,
		ImageURL:        nv.ImageURL,
	}
	if err := c.store.UpdateVariant(ctx, updated); err != nil {
		return models.Variant{}, fmt.Errorf("updating variant: %w", err)
	}
	return updated, nil
}

func (c *Conf) DeleteVariant(ctx context.Context, id string) error {
	return c.store.DeleteVariant(ctx, id)
}

// SeedSamples inserts two demo products into an empty catalog so a fresh
// install has something to show. No-op when any product exists.
func (c *Conf) SeedSamples(ctx context.Context) (int, error) {
	existing, err := c.store.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing products: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	samples := []NewProduct{
		{Name: "Sample Product 1", Description: "This is a sample product", Price: 99.99, Category: "Electronics", ImageURL: "/uploads/sample1.jpg", Stock: 10},
		{Name: "Sample Product 2", Description: "Another sample product", Price: 149.99, Category: "Clothing", ImageURL: "/uploads/sample2.jpg", Stock: 5},
	}
	for _, np := range samples {
		if _, err := c.Create(ctx, np); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}

// Package models holds the entities shared by the stores and the domain
// services. Carts and orders embed their own copy of CartItem, so a later
// price change on a product never rewrites an existing cart line or order
// snapshot.
package models

import "time"

// Order lifecycle. Admin updates overwrite the status without validating
// the transition.
const (
	OrderStatusPending    = "pending"
	OrderStatusPaid       = "paid"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	ShippingStatusPending   = "pending"
	ShippingStatusShipped   = "shipped"
	ShippingStatusInTransit = "in_transit"
	ShippingStatusDelivered = "delivered"
)

const (
	ReturnStatusPending   = "pending"
	ReturnStatusApproved  = "approved"
	ReturnStatusRejected  = "rejected"
	ReturnStatusProcessed = "processed"
)

// User is never returned to clients directly; handlers project it into a
// public shape without the password hash.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
}

// Variant holds the product id as a weak reference; deleting the parent
// product does not cascade here.
type Variant struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	Size            string  `json:"size,omitempty"`
	Color           string  `json:"color,omitempty"`
	SKU             string  `json:"sku,omitempty"`
	Stock           int     `json:"stock"`
	PriceAdjustment float64 `json:"price_adjustment"`
	ImageURL        string  `json:"image_url,omitempty"`
}

// CartItem is a value embedded in carts, orders and return requests.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Cart is keyed by user id; a user has at most one live cart.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Address struct {
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	ZipCode     string `json:"zip_code,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
}

type BuyerInfo struct {
	Name           string `json:"name,omitempty"`
	Surname        string `json:"surname,omitempty"`
	IdentityNumber string `json:"identity_number,omitempty"`
}

// Order snapshots the items and total at creation; neither is recomputed
// afterwards.
type Order struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Items           []CartItem `json:"items"`
	TotalAmount     float64    `json:"total_amount"`
	Status          string     `json:"status"`
	PaymentID       string     `json:"payment_id,omitempty"`
	ShippingAddress Address    `json:"shipping_address"`
	BillingAddress  Address    `json:"billing_address"`
	BuyerInfo       BuyerInfo  `json:"buyer_info"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ShippingInfo is one-to-one with an order by convention only; dispatching
// an order twice appends a second record.
type ShippingInfo struct {
	OrderID           string     `json:"order_id"`
	Carrier           string     `json:"carrier"`
	TrackingNumber    string     `json:"tracking_number"`
	Status            string     `json:"status"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	ShippedAt         *time.Time `json:"shipped_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`
}

type ReturnRequest struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"order_id"`
	UserID      string     `json:"user_id"`
	Items       []CartItem `json:"items"`
	Reason      string     `json:"reason"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a registered customer account
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Category is catalog reference data
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	Description string `db:"description" json:"description,omitempty"`
	ImageURL    string `db:"image_url" json:"imageUrl,omitempty"`
}

// Brand is catalog reference data
type Brand struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Slug     string `db:"slug" json:"slug"`
	ImageURL string `db:"image_url" json:"imageUrl,omitempty"`
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	SKU         string          `db:"sku" json:"sku"`
	Name        string          `db:"name" json:"name"`
	Slug        string          `db:"slug" json:"slug"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	ImageURL    string          `db:"image_url" json:"imageUrl,omitempty"`
	CategoryID  int64           `db:"category_id" json:"categoryId"`
	BrandID     int64           `db:"brand_id" json:"brandId"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`

	Category *Category      `db:"-" json:"category,omitempty"`
	Brand    *Brand         `db:"-" json:"brand,omitempty"`
	Images   []ProductImage `db:"-" json:"images,omitempty"`
}

// ProductImage is one entry of a product's ordered gallery
type ProductImage struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"productId"`
	URL       string `db:"url" json:"url"`
	Position  int    `db:"position" json:"position"`
}

// Cart belongs to either a user or a guest token
type Cart struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"userId,omitempty"`
	GuestToken *string   `db:"guest_token" json:"-"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// CartItem is one (product, quantity) line of a cart
type CartItem struct {
	ID        int64     `db:"id" json:"id"`
	CartID    int64     `db:"cart_id" json:"cartId"`
	ProductID int64     `db:"product_id" json:"productId"`
	Quantity  int       `db:"quantity" json:"qty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Product *Product `db:"-" json:"product,omitempty"`
}

// CartSummary is recomputed from the current lines on every read
type CartSummary struct {
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is the immutable record created from a cart at checkout
type Order struct {
	ID           int64           `db:"id" json:"id"`
	UserID       *int64          `db:"user_id" json:"userId,omitempty"`
	CartID       int64           `db:"cart_id" json:"cartId"`
	Status       string          `db:"status" json:"status"`
	TotalAmount  decimal.Decimal `db:"total_amount" json:"totalAmount"`
	ShipName     string          `db:"ship_name" json:"shipName"`
	ShipLine1    string          `db:"ship_line1" json:"shipLine1"`
	ShipLine2    string          `db:"ship_line2" json:"shipLine2,omitempty"`
	ShipCity     string          `db:"ship_city" json:"shipCity"`
	ShipProvince string          `db:"ship_province" json:"shipProvince,omitempty"`
	ShipPostal   string          `db:"ship_postal" json:"shipPostal"`
	ShipCountry  string          `db:"ship_country" json:"shipCountry"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`

	Items []OrderItem `db:"-" json:"items"`
}

// OrderItem represents items in an order
type OrderItem struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         int64           `db:"order_id" json:"orderId"`
	ProductID       int64           `db:"product_id" json:"productId"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PriceAtPurchase decimal.Decimal `db:"price_at_purchase" json:"priceAtPurchase"`

	Product *Product `db:"-" json:"product,omitempty"`
}

// Address is a saved shipping address of a user
type Address struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"userId"`
	Name       string    `db:"name" json:"name"`
	Line1      string    `db:"line1" json:"line1"`
	Line2      string    `db:"line2" json:"line2,omitempty"`
	City       string    `db:"city" json:"city"`
	Province   string    `db:"province" json:"province,omitempty"`
	PostalCode string    `db:"postal_code" json:"postal"`
	Country    string    `db:"country" json:"country"`
	IsDefault  bool      `db:"is_default" json:"isDefault"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ShippingAddress is the by-value snapshot copied into an order
type ShippingAddress struct {
	Name       string `json:"name" binding:"max=200"`
	Line1      string `json:"line" binding:"required,max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"required,max=100"`
	Province   string `json:"province" binding:"max=100"`
	PostalCode string `json:"postal" binding:"required,max=20"`
	Country    string `json:"country" binding:"required,max=100"`
}

// PaymentMethod is a selectable payment option shown at checkout
type PaymentMethod struct {
	ID        int64  `db:"id" json:"id"`
	Slug      string `db:"slug" json:"slug"`
	Name      string `db:"name" json:"name"`
	IconURL   string `db:"icon_url" json:"iconUrl,omitempty"`
	IsActive  bool   `db:"is_active" json:"-"`
	SortOrder int    `db:"sort_order" json:"-"`
}

// Cart statuses
const (
	CartStatusOpen    = "OPEN"
	CartStatusOrdered = "ORDERED"
)

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusCancelled = "CANCELLED"
)

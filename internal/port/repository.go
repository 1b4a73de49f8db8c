package port

import (
	"context"
	"errors"

	"storefront/internal/models"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// Lookups return (nil, nil) when the row does not exist.

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
}

type CartRepository interface {
	// UpsertOpenCartForUser finds or creates the user's OPEN cart in a single statement.
	// created reports whether a new row was inserted.
	UpsertOpenCartForUser(ctx context.Context, userID int64) (cart *models.Cart, created bool, err error)
	UpsertOpenCartForGuest(ctx context.Context, token string) (cart *models.Cart, created bool, err error)
	FindOpenCartForUser(ctx context.Context, userID int64) (*models.Cart, error)
	FindOpenCartForGuest(ctx context.Context, token string) (*models.Cart, error)
	// GetCartByID returns a cart in any status.
	GetCartByID(ctx context.Context, id int64) (*models.Cart, error)

	GetCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	// UpsertCartItem inserts the line or increments its quantity by qty.
	UpsertCartItem(ctx context.Context, cartID, productID int64, qty int) (*models.CartItem, error)
	// DecrementCartItem lowers the quantity by one only while it is above one.
	// It returns nil when no line qualified.
	DecrementCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	DeleteCartItem(ctx context.Context, cartID, productID int64) (bool, error)
	ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	// MergeCartItems moves every line of fromCartID into toCartID, summing quantities.
	MergeCartItems(ctx context.Context, fromCartID, toCartID int64) (int, error)
}

type CatalogRepository interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	CountProducts(ctx context.Context, filter models.ProductFilter) (int, error)
	ListProducts(ctx context.Context, filter models.ProductFilter, sort models.ProductSort, limit, offset int) ([]models.Product, error)
	ListProductImages(ctx context.Context, productID int64) ([]models.ProductImage, error)
	ListRecommendations(ctx context.Context, categoryID, excludeID int64, limit int) ([]models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListBrands(ctx context.Context) ([]models.Brand, error)
	ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error)
}

type OrderRepository interface {
	// InTx runs fn in one transaction; any error rolls everything back.
	InTx(ctx context.Context, fn func(tx OrderTx) error) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, limit int) ([]models.Order, error)
}

// OrderTx is the set of writes checkout performs atomically.
type OrderTx interface {
	// LockCart reads the cart row and holds it until the transaction ends.
	LockCart(ctx context.Context, cartID int64) (*models.Cart, error)
	ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderItem(ctx context.Context, item *models.OrderItem) error
	UpdateCartStatus(ctx context.Context, cartID int64, status string) error
}

type AddressRepository interface {
	CreateAddress(ctx context.Context, address *models.Address) error
	ListAddressesByUser(ctx context.Context, userID int64) ([]models.Address, error)
	GetAddressForUser(ctx context.Context, id, userID int64) (*models.Address, error)
}

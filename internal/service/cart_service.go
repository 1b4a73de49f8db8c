package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/port"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxQuantityPerAdd bounds a single add-to-cart request
const MaxQuantityPerAdd = 999

// Identity is who a request acts for. A known user takes precedence over the
// guest token.
type Identity struct {
	UserID     *int64
	GuestToken string
}

// Anonymous reports whether the request carries neither a user nor a guest token
func (i Identity) Anonymous() bool {
	return i.UserID == nil && i.GuestToken == ""
}

// ResolvedCart is the OPEN cart for an identity. NewGuestToken is set when a
// token was minted and the caller must hand it back to the client.
type ResolvedCart struct {
	Cart          *models.Cart
	GuestToken    string
	NewGuestToken bool
}

// CartService owns carts and their line items
type CartService struct {
	carts   port.CartRepository
	users   port.UserRepository
	catalog port.CatalogRepository
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(carts port.CartRepository, users port.UserRepository, catalog port.CatalogRepository) *CartService {
	return &CartService{
		carts:   carts,
		users:   users,
		catalog: catalog,
		logger:  util.Named("cart"),
	}
}

// Resolve returns the identity's OPEN cart, creating it when needed
func (s *CartService) Resolve(ctx context.Context, id Identity) (*ResolvedCart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Resolve")
	defer span.End()

	userID, err := s.knownUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if userID != nil {
		cart, created, err := s.carts.UpsertOpenCartForUser(ctx, *userID)
		if err != nil {
			return nil, persistence("upsert user cart", err)
		}
		if created {
			util.CartsCreatedTotal.WithLabelValues("user").Inc()
			s.logger.Info("Cart created", zap.Int64("cart_id", cart.ID), zap.Int64("user_id", *userID))
		}
		return &ResolvedCart{Cart: cart}, nil
	}

	token, minted := id.GuestToken, false
	if token == "" {
		token, minted = uuid.New().String(), true
	}

	cart, created, err := s.carts.UpsertOpenCartForGuest(ctx, token)
	if err != nil {
		return nil, persistence("upsert guest cart", err)
	}
	if created {
		util.CartsCreatedTotal.WithLabelValues("guest").Inc()
		s.logger.Info("Cart created", zap.Int64("cart_id", cart.ID), zap.Bool("new_guest_token", minted))
	}

	return &ResolvedCart{Cart: cart, GuestToken: token, NewGuestToken: minted}, nil
}

// Find returns the identity's OPEN cart without creating one
func (s *CartService) Find(ctx context.Context, id Identity) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Find")
	defer span.End()

	userID, err := s.knownUser(ctx, id)
	if err != nil {
		return nil, err
	}

	var cart *models.Cart
	switch {
	case userID != nil:
		cart, err = s.carts.FindOpenCartForUser(ctx, *userID)
	case id.GuestToken != "":
		cart, err = s.carts.FindOpenCartForGuest(ctx, id.GuestToken)
	}
	if err != nil {
		return nil, persistence("find cart", err)
	}
	if cart == nil {
		return nil, notFound("cart not found")
	}
	return cart, nil
}

// ByID returns a cart in any status
func (s *CartService) ByID(ctx context.Context, cartID int64) (*models.Cart, error) {
	cart, err := s.carts.GetCartByID(ctx, cartID)
	if err != nil {
		return nil, persistence("get cart", err)
	}
	if cart == nil {
		return nil, notFound("cart %d not found", cartID)
	}
	return cart, nil
}

// knownUser returns the identity's user id only when the user exists
func (s *CartService) knownUser(ctx context.Context, id Identity) (*int64, error) {
	if id.UserID == nil {
		return nil, nil
	}

	user, err := s.users.GetUserByID(ctx, *id.UserID)
	if err != nil {
		return nil, persistence("get user", err)
	}
	if user == nil {
		s.logger.Warn("Unknown user in cart identity, using guest cart", zap.Int64("user_id", *id.UserID))
		return nil, nil
	}
	return &user.ID, nil
}

// AddToCart validates the request, then resolves the cart and adds the line.
// Nothing is created when validation fails.
func (s *CartService) AddToCart(ctx context.Context, id Identity, productID int64, qty *int) (*ResolvedCart, *models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	n, err := normalizeQty(qty)
	if err != nil {
		return nil, nil, err
	}
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	resolved, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	item, err := s.addItem(ctx, resolved.Cart, product, n)
	if err != nil {
		return nil, nil, err
	}
	return resolved, item, nil
}

// AddItem adds qty units of a product to the cart, incrementing an existing line
func (s *CartService) AddItem(ctx context.Context, cart *models.Cart, productID int64, qty int) (*models.CartItem, error) {
	n, err := normalizeQty(&qty)
	if err != nil {
		return nil, err
	}
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.addItem(ctx, cart, product, n)
}

func (s *CartService) addItem(ctx context.Context, cart *models.Cart, product *models.Product, qty int) (*models.CartItem, error) {
	item, err := s.carts.UpsertCartItem(ctx, cart.ID, product.ID, qty)
	if err != nil {
		return nil, persistence("upsert cart item", err)
	}
	item.Product = product

	util.CartItemsAddedTotal.Add(float64(qty))
	s.logger.Debug("Cart item added",
		zap.Int64("cart_id", cart.ID),
		zap.Int64("product_id", product.ID),
		zap.Int("qty", qty),
		zap.Int("line_qty", item.Quantity))
	return item, nil
}

func (s *CartService) product(ctx context.Context, productID int64) (*models.Product, error) {
	if productID <= 0 {
		return nil, badRequest("invalid productId")
	}
	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		return nil, persistence("get product", err)
	}
	if product == nil {
		return nil, notFound("product %d not found", productID)
	}
	return product, nil
}

func normalizeQty(qty *int) (int, error) {
	if qty == nil {
		return 1, nil
	}
	if *qty < 1 || *qty > MaxQuantityPerAdd {
		return 0, badRequest("qty must be between 1 and %d", MaxQuantityPerAdd)
	}
	return *qty, nil
}

// DecreaseItem lowers a line by one, deleting it when it would reach zero.
// The returned item is nil when the line was removed.
func (s *CartService) DecreaseItem(ctx context.Context, cart *models.Cart, productID int64) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.DecreaseItem")
	defer span.End()

	line, err := s.carts.GetCartItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, persistence("get cart item", err)
	}
	if line == nil {
		return nil, notFound("item not found")
	}

	if line.Quantity > 1 {
		item, err := s.carts.DecrementCartItem(ctx, cart.ID, productID)
		if err != nil {
			return nil, persistence("decrement cart item", err)
		}
		if item != nil {
			return item, nil
		}
		// a concurrent request already took the line down to one
	}

	deleted, err := s.carts.DeleteCartItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, persistence("delete cart item", err)
	}
	if !deleted {
		return nil, notFound("item not found")
	}
	return nil, nil
}

// RemoveItem deletes a line regardless of its quantity
func (s *CartService) RemoveItem(ctx context.Context, cart *models.Cart, productID int64) error {
	deleted, err := s.carts.DeleteCartItem(ctx, cart.ID, productID)
	if err != nil {
		return persistence("delete cart item", err)
	}
	if !deleted {
		return notFound("item not found")
	}
	return nil
}

// Items returns the cart's lines with live product data
func (s *CartService) Items(ctx context.Context, cart *models.Cart) ([]models.CartItem, error) {
	items, err := s.carts.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, persistence("list cart items", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// Summary recomputes item count and subtotal from the cart's current lines
func (s *CartService) Summary(ctx context.Context, cart *models.Cart) (models.CartSummary, error) {
	items, err := s.Items(ctx, cart)
	if err != nil {
		return models.CartSummary{}, err
	}
	return Summarize(items), nil
}

// Summarize folds line items into a summary at current product prices
func Summarize(items []models.CartItem) models.CartSummary {
	summary := models.CartSummary{Subtotal: decimal.Zero}
	for _, item := range items {
		summary.ItemCount += item.Quantity
		if item.Product != nil {
			summary.Subtotal = summary.Subtotal.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return summary
}

// MergeGuestCart folds the guest token's OPEN cart into the user's OPEN cart.
// It returns the number of lines moved.
func (s *CartService) MergeGuestCart(ctx context.Context, userID int64, guestToken string) (int, error) {
	ctx, span := util.StartSpan(ctx, "CartService.MergeGuestCart")
	defer span.End()

	if guestToken == "" {
		return 0, nil
	}

	guest, err := s.carts.FindOpenCartForGuest(ctx, guestToken)
	if err != nil {
		return 0, persistence("find guest cart", err)
	}
	if guest == nil {
		return 0, nil
	}

	resolved, err := s.Resolve(ctx, Identity{UserID: &userID})
	if err != nil {
		return 0, err
	}
	if resolved.Cart.ID == guest.ID {
		return 0, nil
	}

	moved, err := s.carts.MergeCartItems(ctx, guest.ID, resolved.Cart.ID)
	if err != nil {
		return 0, persistence("merge carts", err)
	}

	if moved > 0 {
		util.CartMergesTotal.Inc()
		s.logger.Info("Guest cart merged",
			zap.Int64("guest_cart_id", guest.ID),
			zap.Int64("user_cart_id", resolved.Cart.ID),
			zap.Int("lines", moved))
	}
	return moved, nil
}

// Package storetest provides an in-memory implementation of the repository
// ports for service and handler tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/port"

	"github.com/shopspring/decimal"
)

// Memory implements every repository port. The zero value is not usable; call New.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	clock  time.Time
	fail   map[string]error

	users      map[int64]models.User
	categories map[int64]models.Category
	brands     map[int64]models.Brand
	products   map[int64]models.Product
	images     map[int64][]models.ProductImage
	carts      map[int64]models.Cart
	cartItems  map[int64]models.CartItem
	orders     map[int64]models.Order
	orderItems []models.OrderItem
	addresses  map[int64]models.Address
	payments   []models.PaymentMethod
}

var (
	_ port.UserRepository    = (*Memory)(nil)
	_ port.CartRepository    = (*Memory)(nil)
	_ port.CatalogRepository = (*Memory)(nil)
	_ port.OrderRepository   = (*Memory)(nil)
	_ port.AddressRepository = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		fail:       make(map[string]error),
		users:      make(map[int64]models.User),
		categories: make(map[int64]models.Category),
		brands:     make(map[int64]models.Brand),
		products:   make(map[int64]models.Product),
		images:     make(map[int64][]models.ProductImage),
		carts:      make(map[int64]models.Cart),
		cartItems:  make(map[int64]models.CartItem),
		orders:     make(map[int64]models.Order),
		addresses:  make(map[int64]models.Address),
	}
}

// Fail makes the named method return err until cleared with Fail(method, nil)
func (m *Memory) Fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

func (m *Memory) check(method string) error {
	return m.fail[method]
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// tick returns a strictly increasing timestamp so ordering by time is stable
func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// Seeding helpers

func (m *Memory) AddCategory(name, slug string) models.Category {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.Category{ID: m.id(), Name: name, Slug: slug}
	m.categories[c.ID] = c
	return c
}

func (m *Memory) AddBrand(name, slug string) models.Brand {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := models.Brand{ID: m.id(), Name: name, Slug: slug}
	m.brands[b.ID] = b
	return b
}

// AddProduct stores p with a fresh id and creation time
func (m *Memory) AddProduct(p models.Product) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	if p.SKU == "" {
		p.SKU = fmt.Sprintf("SKU-%d", p.ID)
	}
	if p.Slug == "" {
		p.Slug = fmt.Sprintf("product-%d", p.ID)
	}
	if p.Name == "" {
		p.Name = fmt.Sprintf("Product %d", p.ID)
	}
	p.Category, p.Brand, p.Images = nil, nil, nil
	m.products[p.ID] = p
	return p
}

func (m *Memory) AddProductImage(productID int64, url string, position int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[productID] = append(m.images[productID], models.ProductImage{
		ID: m.id(), ProductID: productID, URL: url, Position: position,
	})
}

func (m *Memory) AddPaymentMethod(pm models.PaymentMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm.ID = m.id()
	m.payments = append(m.payments, pm)
}

// SetProductPrice changes a product's live price
func (m *Memory) SetProductPrice(productID int64, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[productID]
	p.Price = price
	m.products[productID] = p
}

// Cart returns a cart by id regardless of status
func (m *Memory) Cart(id int64) (models.Cart, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	return c, ok
}

// OpenCartCount counts OPEN carts, used to assert no duplicates were made
func (m *Memory) OpenCartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.carts {
		if c.Status == models.CartStatusOpen {
			n++
		}
	}
	return n
}

// OrderCount counts persisted orders
func (m *Memory) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// UserRepository

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("CreateUser"); err != nil {
		return err
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: users_email_key", port.ErrDuplicate)
		}
		if user.Phone != nil && u.Phone != nil && *u.Phone == *user.Phone {
			return fmt.Errorf("%w: users_phone_key", port.ErrDuplicate)
		}
	}
	user.ID = m.id()
	user.CreatedAt = m.tick()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return m.findUser("GetUserByID", func(u models.User) bool { return u.ID == id })
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser("GetUserByEmail", func(u models.User) bool { return u.Email == email })
}

func (m *Memory) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return m.findUser("GetUserByPhone", func(u models.User) bool { return u.Phone != nil && *u.Phone == phone })
}

func (m *Memory) findUser(method string, match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(method); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

// CartRepository

func (m *Memory) UpsertOpenCartForUser(ctx context.Context, userID int64) (*models.Cart, bool, error) {
	return m.upsertCart("UpsertOpenCartForUser", func(c models.Cart) bool {
		return c.UserID != nil && *c.UserID == userID
	}, func(c *models.Cart) { c.UserID = &userID })
}

func (m *Memory) UpsertOpenCartForGuest(ctx context.Context, token string) (*models.Cart, bool, error) {
	return m.upsertCart("UpsertOpenCartForGuest", func(c models.Cart) bool {
		return c.GuestToken != nil && *c.GuestToken == token
	}, func(c *models.Cart) { c.GuestToken = &token })
}

func (m *Memory) upsertCart(method string, match func(models.Cart) bool, owner func(*models.Cart)) (*models.Cart, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(method); err != nil {
		return nil, false, err
	}
	if c := m.openCart(match); c != nil {
		return c, false, nil
	}

	c := models.Cart{ID: m.id(), Status: models.CartStatusOpen, CreatedAt: m.tick()}
	c.UpdatedAt = c.CreatedAt
	owner(&c)
	m.carts[c.ID] = c
	return &c, true, nil
}

func (m *Memory) FindOpenCartForUser(ctx context.Context, userID int64) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("FindOpenCartForUser"); err != nil {
		return nil, err
	}
	return m.openCart(func(c models.Cart) bool { return c.UserID != nil && *c.UserID == userID }), nil
}

func (m *Memory) FindOpenCartForGuest(ctx context.Context, token string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("FindOpenCartForGuest"); err != nil {
		return nil, err
	}
	return m.openCart(func(c models.Cart) bool { return c.GuestToken != nil && *c.GuestToken == token }), nil
}

func (m *Memory) openCart(match func(models.Cart) bool) *models.Cart {
	for _, c := range m.carts {
		if c.Status == models.CartStatusOpen && match(c) {
			c := c
			return &c
		}
	}
	return nil
}

func (m *Memory) GetCartByID(ctx context.Context, id int64) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetCartByID"); err != nil {
		return nil, err
	}
	if c, ok := m.carts[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) GetCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetCartItem"); err != nil {
		return nil, err
	}
	if item, ok := m.line(cartID, productID); ok {
		return &item, nil
	}
	return nil, nil
}

func (m *Memory) line(cartID, productID int64) (models.CartItem, bool) {
	for _, item := range m.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			return item, true
		}
	}
	return models.CartItem{}, false
}

func (m *Memory) UpsertCartItem(ctx context.Context, cartID, productID int64, qty int) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("UpsertCartItem"); err != nil {
		return nil, err
	}
	item, ok := m.line(cartID, productID)
	if ok {
		item.Quantity += qty
		item.UpdatedAt = m.tick()
	} else {
		item = models.CartItem{ID: m.id(), CartID: cartID, ProductID: productID, Quantity: qty, CreatedAt: m.tick()}
		item.UpdatedAt = item.CreatedAt
	}
	m.cartItems[item.ID] = item
	return &item, nil
}

func (m *Memory) DecrementCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("DecrementCartItem"); err != nil {
		return nil, err
	}
	item, ok := m.line(cartID, productID)
	if !ok || item.Quantity <= 1 {
		return nil, nil
	}
	item.Quantity--
	item.UpdatedAt = m.tick()
	m.cartItems[item.ID] = item
	return &item, nil
}

func (m *Memory) DeleteCartItem(ctx context.Context, cartID, productID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("DeleteCartItem"); err != nil {
		return false, err
	}
	item, ok := m.line(cartID, productID)
	if !ok {
		return false, nil
	}
	delete(m.cartItems, item.ID)
	return true, nil
}

func (m *Memory) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListCartItems"); err != nil {
		return nil, err
	}
	return m.listCartItems(cartID), nil
}

func (m *Memory) listCartItems(cartID int64) []models.CartItem {
	var items []models.CartItem
	for _, item := range m.cartItems {
		if item.CartID == cartID {
			p := m.products[item.ProductID]
			item.Product = &p
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (m *Memory) MergeCartItems(ctx context.Context, fromCartID, toCartID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("MergeCartItems"); err != nil {
		return 0, err
	}
	moved := 0
	for id, item := range m.cartItems {
		if item.CartID != fromCartID {
			continue
		}
		if target, ok := m.line(toCartID, item.ProductID); ok {
			target.Quantity += item.Quantity
			m.cartItems[target.ID] = target
		} else {
			line := models.CartItem{ID: m.id(), CartID: toCartID, ProductID: item.ProductID, Quantity: item.Quantity}
			line.CreatedAt = m.tick()
			line.UpdatedAt = line.CreatedAt
			m.cartItems[line.ID] = line
		}
		delete(m.cartItems, id)
		moved++
	}
	return moved, nil
}

// CatalogRepository

func (m *Memory) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetProductByID"); err != nil {
		return nil, err
	}
	if p, ok := m.products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetProductBySlug"); err != nil {
		return nil, err
	}
	for _, p := range m.products {
		if p.Slug == slug {
			c, b := m.categories[p.CategoryID], m.brands[p.BrandID]
			p.Category, p.Brand = &c, &b
			return &p, nil
		}
	}
	return nil, nil
}

func (m *Memory) filtered(filter models.ProductFilter) []models.Product {
	var out []models.Product
	for _, p := range m.products {
		c := m.categories[p.CategoryID]
		if filter.CategorySlug != "" && c.Slug != filter.CategorySlug {
			continue
		}
		if filter.PriceMin != nil && p.Price.LessThan(*filter.PriceMin) {
			continue
		}
		if filter.PriceMax != nil && p.Price.GreaterThan(*filter.PriceMax) {
			continue
		}
		p.Category = &c
		out = append(out, p)
	}
	return out
}

func (m *Memory) CountProducts(ctx context.Context, filter models.ProductFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("CountProducts"); err != nil {
		return 0, err
	}
	return len(m.filtered(filter)), nil
}

func (m *Memory) ListProducts(ctx context.Context, filter models.ProductFilter, sortBy models.ProductSort, limit, offset int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListProducts"); err != nil {
		return nil, err
	}

	products := m.filtered(filter)
	less := map[models.ProductSort]func(a, b models.Product) bool{
		models.SortNewest:    func(a, b models.Product) bool { return a.CreatedAt.After(b.CreatedAt) },
		models.SortOldest:    func(a, b models.Product) bool { return a.CreatedAt.Before(b.CreatedAt) },
		models.SortPriceAsc:  func(a, b models.Product) bool { return a.Price.LessThan(b.Price) },
		models.SortPriceDesc: func(a, b models.Product) bool { return a.Price.GreaterThan(b.Price) },
		models.SortNameAsc:   func(a, b models.Product) bool { return strings.Compare(a.Name, b.Name) < 0 },
		models.SortNameDesc:  func(a, b models.Product) bool { return strings.Compare(a.Name, b.Name) > 0 },
	}[sortBy]
	if less == nil {
		return nil, fmt.Errorf("unsupported sort %q", sortBy)
	}
	sort.Slice(products, func(i, j int) bool {
		if less(products[i], products[j]) {
			return true
		}
		if less(products[j], products[i]) {
			return false
		}
		return products[i].ID < products[j].ID
	})

	if offset >= len(products) {
		return []models.Product{}, nil
	}
	end := offset + limit
	if end > len(products) {
		end = len(products)
	}
	return products[offset:end], nil
}

func (m *Memory) ListProductImages(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	images := append([]models.ProductImage(nil), m.images[productID]...)
	sort.Slice(images, func(i, j int) bool { return images[i].Position < images[j].Position })
	return images, nil
}

func (m *Memory) ListRecommendations(ctx context.Context, categoryID, excludeID int64, limit int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListRecommendations"); err != nil {
		return nil, err
	}
	var out []models.Product
	for _, p := range m.products {
		if p.CategoryID == categoryID && p.ID != excludeID {
			c := m.categories[p.CategoryID]
			p.Category = &c
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListBrands(ctx context.Context) ([]models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Brand
	for _, b := range m.brands {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PaymentMethod
	for _, pm := range m.payments {
		if pm.IsActive {
			out = append(out, pm)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// AddressRepository

func (m *Memory) CreateAddress(ctx context.Context, address *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("CreateAddress"); err != nil {
		return err
	}
	if address.IsDefault {
		for id, a := range m.addresses {
			if a.UserID == address.UserID && a.IsDefault {
				a.IsDefault = false
				m.addresses[id] = a
			}
		}
	}
	address.ID = m.id()
	address.CreatedAt = m.tick()
	m.addresses[address.ID] = *address
	return nil
}

func (m *Memory) ListAddressesByUser(ctx context.Context, userID int64) ([]models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListAddressesByUser"); err != nil {
		return nil, err
	}
	var out []models.Address
	for _, a := range m.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) GetAddressForUser(ctx context.Context, id, userID int64) (*models.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.addresses[id]; ok && a.UserID == userID {
		return &a, nil
	}
	return nil, nil
}

// Ping fails only when a failure was injected for it
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check("Ping")
}

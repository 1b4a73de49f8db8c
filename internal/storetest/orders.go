package storetest

import (
	"context"
	"fmt"
	"sort"

	"storefront/internal/models"
	"storefront/internal/port"
)

// InTx holds the store lock for the whole of fn and restores the previous
// state when fn fails, mirroring a database rollback.
func (m *Memory) InTx(ctx context.Context, fn func(tx port.OrderTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("InTx"); err != nil {
		return err
	}

	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	nextID     int64
	carts      map[int64]models.Cart
	cartItems  map[int64]models.CartItem
	orders     map[int64]models.Order
	orderItems []models.OrderItem
}

func (m *Memory) snapshot() snapshot {
	s := snapshot{
		nextID:     m.nextID,
		carts:      make(map[int64]models.Cart, len(m.carts)),
		cartItems:  make(map[int64]models.CartItem, len(m.cartItems)),
		orders:     make(map[int64]models.Order, len(m.orders)),
		orderItems: append([]models.OrderItem(nil), m.orderItems...),
	}
	for k, v := range m.carts {
		s.carts[k] = v
	}
	for k, v := range m.cartItems {
		s.cartItems[k] = v
	}
	for k, v := range m.orders {
		s.orders[k] = v
	}
	return s
}

func (m *Memory) restore(s snapshot) {
	m.nextID = s.nextID
	m.carts = s.carts
	m.cartItems = s.cartItems
	m.orders = s.orders
	m.orderItems = s.orderItems
}

// memTx runs with Memory.mu already held
type memTx struct {
	m *Memory
}

func (t *memTx) LockCart(ctx context.Context, cartID int64) (*models.Cart, error) {
	if err := t.m.check("LockCart"); err != nil {
		return nil, err
	}
	if c, ok := t.m.carts[cartID]; ok {
		return &c, nil
	}
	return nil, nil
}

func (t *memTx) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	if err := t.m.check("ListCartItems"); err != nil {
		return nil, err
	}
	return t.m.listCartItems(cartID), nil
}

func (t *memTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if err := t.m.check("InsertOrder"); err != nil {
		return err
	}
	order.ID = t.m.id()
	order.CreatedAt = t.m.tick()
	order.UpdatedAt = order.CreatedAt

	stored := *order
	stored.Items = nil
	t.m.orders[order.ID] = stored
	return nil
}

func (t *memTx) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	if err := t.m.check("InsertOrderItem"); err != nil {
		return err
	}
	item.ID = t.m.id()

	stored := *item
	stored.Product = nil
	t.m.orderItems = append(t.m.orderItems, stored)
	return nil
}

func (t *memTx) UpdateCartStatus(ctx context.Context, cartID int64, status string) error {
	if err := t.m.check("UpdateCartStatus"); err != nil {
		return err
	}
	c, ok := t.m.carts[cartID]
	if !ok {
		return fmt.Errorf("cart %d not found", cartID)
	}
	c.Status = status
	c.UpdatedAt = t.m.tick()
	t.m.carts[cartID] = c
	return nil
}

func (m *Memory) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("GetOrderByID"); err != nil {
		return nil, err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	o.Items = m.itemsOf(o.ID)
	return &o, nil
}

func (m *Memory) ListOrdersByUser(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListOrdersByUser"); err != nil {
		return nil, err
	}
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID != nil && *o.UserID == userID {
			o.Items = m.itemsOf(o.ID)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// itemsOf joins order lines with the product, category and brand
func (m *Memory) itemsOf(orderID int64) []models.OrderItem {
	items := []models.OrderItem{}
	for _, item := range m.orderItems {
		if item.OrderID != orderID {
			continue
		}
		p := m.products[item.ProductID]
		c, b := m.categories[p.CategoryID], m.brands[p.BrandID]
		p.Category, p.Brand = &c, &b
		item.Product = &p
		items = append(items, item)
	}
	return items
}

package lunch

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var defaultPrices = map[string]decimal.Decimal{
	"FRIED_CHICKEN_WITH_YOGURT_SOUS": decimal.RequireFromString("4.50"),
	"BAKED_FISH_WITH_VEGETABLES":     decimal.RequireFromString("5.20"),
	"BEAN_WITH_SALAD":                decimal.RequireFromString("3.80"),
	"BACKED_TURKEY_WITH_PATATOES":    decimal.RequireFromString("4.90"),
	"MEAT_BOLLS_WITH_TOMATOES_SOUS":  decimal.RequireFromString("4.60"),
}

// Memory is an in-process stand-in for the lunch service used by tests and
// local development. Deleted orders stay listed, marked deleted and CANCELLED.
type Memory struct {
	mu       sync.Mutex
	orders   map[string][]Order
	prices   map[string]decimal.Decimal
	failures map[string][]error
	now      func() time.Time
}

// NewMemory builds an empty in-memory lunch service.
func NewMemory() *Memory {
	prices := make(map[string]decimal.Decimal, len(defaultPrices))
	for k, v := range defaultPrices {
		prices[k] = v
	}
	return &Memory{
		orders:   make(map[string][]Order),
		prices:   prices,
		failures: make(map[string][]error),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetPrice overrides the unit price of a meal.
func (m *Memory) SetPrice(meal string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[meal] = price
}

// Seed stores an order as if it had been placed earlier.
func (m *Memory) Seed(order Order) Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedOn.IsZero() {
		order.CreatedOn = m.now()
	}
	m.orders[order.ChildID] = append(m.orders[order.ChildID], order)
	return order
}

// FailNext queues errors returned by the next calls of method
// ("list_orders", "create_order" or "delete_order").
func (m *Memory) FailNext(method string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = append(m.failures[method], errs...)
}

func (m *Memory) injected(method string) error {
	queue := m.failures[method]
	if len(queue) == 0 {
		return nil
	}
	m.failures[method] = queue[1:]
	return queue[0]
}

// Order returns a stored order by id.
func (m *Memory) Order(childID, orderID string) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders[childID] {
		if o.ID == orderID {
			return o, true
		}
	}
	return Order{}, false
}

// ListOrders returns a copy of the child's orders, deleted ones included.
func (m *Memory) ListOrders(_ context.Context, childID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("list_orders"); err != nil {
		return nil, err
	}
	out := make([]Order, len(m.orders[childID]))
	copy(out, m.orders[childID])
	return out, nil
}

// CreateOrder validates and stores a PAID order priced from the menu.
func (m *Memory) CreateOrder(_ context.Context, childID string, req OrderRequest) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := lunchesPath(childID)
	if err := m.injected("create_order"); err != nil {
		return Order{}, err
	}

	price, ok := m.prices[req.Meal]
	if !ok {
		return Order{}, &StatusError{Method: http.MethodPost, Path: path, Code: http.StatusBadRequest, Body: "unknown meal"}
	}
	day, ok := NormalizeDay(req.DayOfWeek)
	if !ok {
		return Order{}, &StatusError{Method: http.MethodPost, Path: path, Code: http.StatusBadRequest, Body: "invalid day of week"}
	}
	if req.Quantity < 1 {
		return Order{}, &StatusError{Method: http.MethodPost, Path: path, Code: http.StatusBadRequest, Body: "quantity must be positive"}
	}

	order := Order{
		ID:        uuid.NewString(),
		ParentID:  req.ParentID,
		ChildID:   childID,
		WalletID:  req.WalletID,
		Meal:      req.Meal,
		Quantity:  req.Quantity,
		DayOfWeek: day,
		UnitPrice: price,
		Total:     price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:    StatusPaid,
		CreatedOn: m.now(),
	}
	m.orders[childID] = append(m.orders[childID], order)
	return order, nil
}

// DeleteOrder soft-deletes the order. Unknown or already deleted orders answer 404.
func (m *Memory) DeleteOrder(_ context.Context, childID, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("delete_order"); err != nil {
		return err
	}
	orders := m.orders[childID]
	for i := range orders {
		if orders[i].ID == orderID && !orders[i].Deleted {
			orders[i].Deleted = true
			orders[i].Status = StatusCancelled
			return nil
		}
	}
	return &StatusError{Method: http.MethodDelete, Path: lunchesPath(childID) + "/" + orderID, Code: http.StatusNotFound, Body: "lunch not found"}
}

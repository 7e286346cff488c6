package lunch

import "context"

// Gateway is the contract the wallet core needs from the lunch service.
type Gateway interface {
	// ListOrders returns every order of the child, soft-deleted ones included.
	ListOrders(ctx context.Context, childID string) ([]Order, error)
	CreateOrder(ctx context.Context, childID string, req OrderRequest) (Order, error)
	DeleteOrder(ctx context.Context, childID, orderID string) error
}

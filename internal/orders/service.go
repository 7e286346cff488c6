// Package orders ties lunch orders on the remote service to wallet payments
// and refunds.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/schoollunch/lunchwallet/internal/children"
	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/logging"
	"github.com/schoollunch/lunchwallet/internal/lunch"
	"github.com/schoollunch/lunchwallet/internal/notification"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

var (
	// ErrPaymentRejected is returned when the wallet cannot cover an order.
	ErrPaymentRejected = errors.New("not enough balance in wallet to pay for this lunch")
	// ErrOrderNotFound is returned when the order is not among the child's orders.
	ErrOrderNotFound = errors.New("lunch order not found")
	// ErrInvalidOrder rejects malformed order requests.
	ErrInvalidOrder = errors.New("invalid lunch order")
)

// Wallets is the slice of the wallet service used for order payments and refunds.
type Wallets interface {
	Get(ctx context.Context, walletID string) (wallet.Wallet, error)
	GetWalletByParentID(ctx context.Context, parentID string) (wallet.Wallet, bool, error)
	GetOrCreateWallet(ctx context.Context, parentID string) (wallet.Wallet, error)
	Payment(ctx context.Context, walletID string, amount decimal.Decimal, description string) (ledger.Entry, error)
	Deposit(ctx context.Context, walletID string, amount decimal.Decimal, description string) (ledger.Entry, error)
}

// Children resolves a child on behalf of its parent.
type Children interface {
	EnsureOwnership(ctx context.Context, parentID, childID string) (children.Child, error)
}

// Service orchestrates order placement, deletion and listing.
type Service struct {
	lunches  lunch.Gateway
	wallets  Wallets
	children Children
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs an order service.
func NewService(lunches lunch.Gateway, wallets Wallets, kids Children, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		lunches:  lunches,
		wallets:  wallets,
		children: kids,
		notifier: notifier,
		logger:   logging.Component(logger, "orders"),
	}
}

// PlaceInput captures an order request from the portal.
type PlaceInput struct {
	ParentID  string
	ChildID   string
	Meal      string
	Quantity  int
	DayOfWeek string
}

// Placed is a paid order together with its payment entry.
type Placed struct {
	Order   lunch.Order
	Payment ledger.Entry
}

// PaymentDescription tags an order payment so history views can trace it back.
func PaymentDescription(orderID string) string {
	return "Payment for lunch order #" + orderID
}

// RefundDescription tags an order refund.
func RefundDescription(orderID string) string {
	return "Refund for lunch order #" + orderID
}

// PlaceOrder creates the order on the lunch service and pays for it from the
// parent's wallet. When the wallet cannot cover the total the remote order is
// deleted again and ErrPaymentRejected is returned.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceInput) (Placed, error) {
	if _, err := s.children.EnsureOwnership(ctx, in.ParentID, in.ChildID); err != nil {
		return Placed{}, err
	}
	req, err := validate(in)
	if err != nil {
		return Placed{}, err
	}

	w, ok, err := s.wallets.GetWalletByParentID(ctx, in.ParentID)
	if err != nil {
		return Placed{}, err
	}
	if !ok {
		return Placed{}, wallet.ErrNotFound
	}
	req.WalletID = w.ID

	order, err := s.lunches.CreateOrder(ctx, in.ChildID, req)
	if err != nil {
		return Placed{}, err
	}
	if !order.Total.IsPositive() {
		s.rollback(ctx, order)
		return Placed{}, fmt.Errorf("%w: lunch service returned total %s", ErrInvalidOrder, order.Total)
	}

	current, err := s.wallets.Get(ctx, w.ID)
	if err != nil {
		s.rollback(ctx, order)
		return Placed{}, err
	}
	if current.CurrentBalance().LessThan(order.Total) {
		s.rollback(ctx, order)
		s.rejected(ctx, in.ParentID, order)
		return Placed{}, ErrPaymentRejected
	}

	entry, err := s.wallets.Payment(ctx, w.ID, order.Total, PaymentDescription(order.ID))
	if err != nil {
		s.rollback(ctx, order)
		return Placed{}, err
	}
	if !entry.Successful() {
		// Another payment drained the wallet between the check and the debit.
		s.rollback(ctx, order)
		s.rejected(ctx, in.ParentID, order)
		return Placed{}, ErrPaymentRejected
	}

	s.logger.Info("lunch order paid",
		slog.String("order_id", order.ID),
		slog.String("child_id", in.ChildID),
		slog.String("wallet_id", w.ID),
		slog.String("amount", order.Total.String()),
	)
	return Placed{Order: order, Payment: entry}, nil
}

// DeleteOrder deletes the order on the lunch service and refunds its total
// when it was still PAID. The returned entry is nil when nothing was refunded.
func (s *Service) DeleteOrder(ctx context.Context, parentID, childID, orderID string) (*ledger.Entry, error) {
	if _, err := s.children.EnsureOwnership(ctx, parentID, childID); err != nil {
		return nil, err
	}

	all, err := s.lunches.ListOrders(ctx, childID)
	if err != nil {
		return nil, err
	}
	var (
		order lunch.Order
		found bool
	)
	for _, o := range all {
		if o.ID == orderID && !o.Deleted {
			order, found = o, true
			break
		}
	}
	if !found {
		return nil, ErrOrderNotFound
	}

	if err := s.lunches.DeleteOrder(ctx, childID, orderID); err != nil {
		return nil, err
	}

	if !order.Paid() || !order.Total.IsPositive() {
		s.logger.Info("lunch order deleted without refund", slog.String("order_id", orderID), slog.String("status", string(order.Status)))
		return nil, nil
	}

	w, err := s.wallets.GetOrCreateWallet(ctx, parentID)
	if err != nil {
		return nil, err
	}
	entry, err := s.wallets.Deposit(ctx, w.ID, order.Total, RefundDescription(orderID))
	if err != nil {
		s.logger.Error("refund failed after order deletion",
			slog.String("order_id", orderID),
			slog.String("amount", order.Total.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.notify(ctx, notification.Message{
		Kind:     notification.KindOrderRefund,
		ParentID: parentID,
		Body:     fmt.Sprintf("%s refunded for lunch order %s", order.Total.StringFixed(2), orderID),
	})
	s.logger.Info("lunch order refunded", slog.String("order_id", orderID), slog.String("amount", order.Total.String()))
	return &entry, nil
}

// ListOrders returns the child's active orders.
func (s *Service) ListOrders(ctx context.Context, parentID, childID string) ([]lunch.Order, error) {
	if _, err := s.children.EnsureOwnership(ctx, parentID, childID); err != nil {
		return nil, err
	}
	all, err := s.lunches.ListOrders(ctx, childID)
	if err != nil {
		return nil, err
	}
	active := make([]lunch.Order, 0, len(all))
	for _, o := range all {
		if !o.Deleted {
			active = append(active, o)
		}
	}
	return active, nil
}

func validate(in PlaceInput) (lunch.OrderRequest, error) {
	meal := strings.ToUpper(strings.TrimSpace(in.Meal))
	if !lunch.ValidMeal(meal) {
		return lunch.OrderRequest{}, fmt.Errorf("%w: unknown meal %q", ErrInvalidOrder, in.Meal)
	}
	if in.Quantity < 1 {
		return lunch.OrderRequest{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOrder)
	}
	day, ok := lunch.NormalizeDay(in.DayOfWeek)
	if !ok {
		return lunch.OrderRequest{}, fmt.Errorf("%w: day must be a school day", ErrInvalidOrder)
	}
	return lunch.OrderRequest{
		ParentID:  in.ParentID,
		ChildID:   in.ChildID,
		Meal:      meal,
		Quantity:  in.Quantity,
		DayOfWeek: day,
	}, nil
}

// rollback deletes an unpaid order. Failures are logged and swallowed so the
// caller still sees the primary error.
func (s *Service) rollback(ctx context.Context, order lunch.Order) {
	if err := s.lunches.DeleteOrder(ctx, order.ChildID, order.ID); err != nil {
		s.logger.Error("rollback of unpaid lunch order failed",
			slog.String("order_id", order.ID),
			slog.String("child_id", order.ChildID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) rejected(ctx context.Context, parentID string, order lunch.Order) {
	s.logger.Warn("lunch order payment rejected",
		slog.String("order_id", order.ID),
		slog.String("amount", order.Total.String()),
	)
	s.notify(ctx, notification.Message{
		Kind:     notification.KindPaymentRejected,
		ParentID: parentID,
		Body:     fmt.Sprintf("lunch order of %s could not be paid", order.Total.StringFixed(2)),
	})
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

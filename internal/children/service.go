package children

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/logging"
	"github.com/schoollunch/lunchwallet/internal/lunch"
	"github.com/schoollunch/lunchwallet/internal/notification"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

// Wallets is the slice of the wallet service needed to refund a deleted child.
type Wallets interface {
	GetOrCreateWallet(ctx context.Context, parentID string) (wallet.Wallet, error)
	Deposit(ctx context.Context, walletID string, amount decimal.Decimal, description string) (ledger.Entry, error)
}

// Service manages child records and the refund that accompanies deletion.
type Service struct {
	repo     Repository
	lunches  lunch.Gateway
	wallets  Wallets
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the child service.
func NewService(repo Repository, lunches lunch.Gateway, wallets Wallets, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		lunches:  lunches,
		wallets:  wallets,
		notifier: notifier,
		logger:   logging.Component(logger, "children"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register stores a new child for the parent.
func (s *Service) Register(ctx context.Context, parentID string, details Details) (Child, error) {
	if _, err := uuid.Parse(parentID); err != nil {
		return Child{}, fmt.Errorf("%w: invalid parent id", ErrInvalidChild)
	}
	d, err := details.normalize()
	if err != nil {
		return Child{}, err
	}

	child := Child{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		School:    d.School,
		Grade:     d.Grade,
		Gender:    d.Gender,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, child); err != nil {
		return Child{}, err
	}
	s.logger.Info("child registered", slog.String("child_id", child.ID), slog.String("parent_id", parentID))
	return child, nil
}

// ListByParent returns every child of the parent.
func (s *Service) ListByParent(ctx context.Context, parentID string) ([]Child, error) {
	return s.repo.ListByParent(ctx, parentID)
}

// Get returns a child by id.
func (s *Service) Get(ctx context.Context, childID string) (Child, error) {
	return s.repo.Get(ctx, childID)
}

// EnsureOwnership returns the child when it belongs to the parent.
func (s *Service) EnsureOwnership(ctx context.Context, parentID, childID string) (Child, error) {
	child, err := s.repo.Get(ctx, childID)
	if err != nil {
		return Child{}, err
	}
	if child.ParentID != parentID {
		return Child{}, ErrNotOwner
	}
	return child, nil
}

// Update changes the child's school and grade.
func (s *Service) Update(ctx context.Context, parentID, childID, school string, grade int) (Child, error) {
	child, err := s.EnsureOwnership(ctx, parentID, childID)
	if err != nil {
		return Child{}, err
	}
	school = strings.TrimSpace(school)
	if school == "" {
		return Child{}, fmt.Errorf("%w: school is required", ErrInvalidChild)
	}
	if err := validGrade(grade); err != nil {
		return Child{}, err
	}

	child.School = school
	child.Grade = grade
	if err := s.repo.Update(ctx, child); err != nil {
		return Child{}, err
	}
	s.logger.Info("child updated", slog.String("child_id", childID))
	return child, nil
}

// Delete refunds every PAID order of the child into the parent's wallet and
// removes the child. Removing the record is the claim on the refund: of two
// concurrent deletes only the one whose repository delete succeeds deposits,
// the other gets ErrNotFound. A lunch service failure aborts before the claim;
// a failed deposit puts the record back.
func (s *Service) Delete(ctx context.Context, parentID, childID string) (decimal.Decimal, error) {
	child, err := s.EnsureOwnership(ctx, parentID, childID)
	if err != nil {
		return decimal.Zero, err
	}

	orders, err := s.lunches.ListOrders(ctx, childID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list orders for refund: %w", err)
	}

	refund := decimal.Zero
	for _, o := range orders {
		if strings.EqualFold(string(o.Status), string(lunch.StatusPaid)) {
			refund = refund.Add(o.Total)
		}
	}

	if err := s.repo.Delete(ctx, childID); err != nil {
		return decimal.Zero, err
	}

	if refund.IsPositive() {
		if err := s.refund(ctx, child, refund); err != nil {
			if restoreErr := s.repo.Create(ctx, child); restoreErr != nil {
				s.logger.Error("child restore failed after refund error",
					slog.String("child_id", childID),
					slog.String("refund", refund.String()),
					slog.Any("error", restoreErr),
				)
			}
			return decimal.Zero, err
		}
	}

	s.logger.Info("child deleted",
		slog.String("child_id", childID),
		slog.String("parent_id", child.ParentID),
		slog.String("refund", refund.String()),
	)
	return refund, nil
}

func (s *Service) refund(ctx context.Context, child Child, amount decimal.Decimal) error {
	w, err := s.wallets.GetOrCreateWallet(ctx, child.ParentID)
	if err != nil {
		return err
	}
	description := "Refund for deleted child: " + child.FullName()
	if _, err := s.wallets.Deposit(ctx, w.ID, amount, description); err != nil {
		return err
	}
	s.notify(ctx, notification.Message{
		Kind:     notification.KindChildRefund,
		ParentID: child.ParentID,
		Body:     fmt.Sprintf("%s refunded for %s", amount.StringFixed(2), child.FullName()),
	})
	return nil
}

func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

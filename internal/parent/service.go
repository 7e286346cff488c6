package parent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoollunch/lunchwallet/internal/logging"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

// Wallets is the slice of the wallet service tied to the parent lifecycle.
type Wallets interface {
	CreateWallet(ctx context.Context, ownerID string) (wallet.Wallet, error)
	GetWalletByParentID(ctx context.Context, parentID string) (wallet.Wallet, bool, error)
	DeleteWallet(ctx context.Context, walletID string) error
}

// Service manages parent accounts.
type Service struct {
	repo    Repository
	wallets Wallets
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a parent service.
func NewService(repo Repository, wallets Wallets, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		wallets: wallets,
		logger:  logging.Component(logger, "parent"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the parent and its wallet.
func (s *Service) Register(ctx context.Context, reg Registration) (Parent, wallet.Wallet, error) {
	reg.Username = strings.ToLower(strings.TrimSpace(reg.Username))
	reg.Email = strings.TrimSpace(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if err := validateRegistration(reg); err != nil {
		return Parent{}, wallet.Wallet{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return Parent{}, wallet.Wallet{}, err
	}

	now := s.now()
	p := Parent{
		ID:           uuid.NewString(),
		Username:     reg.Username,
		Email:        reg.Email,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Role:         RoleParent,
		PasswordHash: hash,
		Active:       true,
		CreatedOn:    now,
		UpdatedOn:    now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Parent{}, wallet.Wallet{}, err
	}

	w, err := s.wallets.CreateWallet(ctx, p.ID)
	if err != nil {
		if delErr := s.repo.Delete(ctx, p.ID); delErr != nil {
			s.logger.Error("cleanup after wallet creation failure", slog.String("parent_id", p.ID), slog.Any("error", delErr))
		}
		return Parent{}, wallet.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}

	s.logger.Info("parent registered", slog.String("parent_id", p.ID), slog.String("wallet_id", w.ID))
	return p, w, nil
}

// Authenticate verifies username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Parent, error) {
	p, err := s.repo.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if errors.Is(err, ErrNotFound) {
		return Parent{}, ErrInvalidCredentials
	}
	if err != nil {
		return Parent{}, err
	}
	if err := bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(password)); err != nil {
		return Parent{}, ErrInvalidCredentials
	}
	if !p.Active {
		return Parent{}, ErrInactive
	}
	return p, nil
}

// Get returns a parent by id.
func (s *Service) Get(ctx context.Context, id string) (Parent, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile changes email and, when non-empty, the password.
func (s *Service) UpdateProfile(ctx context.Context, id, email, password string) (Parent, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Parent{}, err
	}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Parent{}, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	p.Email = email

	if password != "" {
		if err := validatePassword(password); err != nil {
			return Parent{}, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return Parent{}, err
		}
		p.PasswordHash = hash
	}
	p.UpdatedOn = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Parent{}, err
	}
	if password != "" {
		// A new password logs out every existing session.
		if _, err := s.repo.IncrementTokenVersion(ctx, id); err != nil {
			return Parent{}, err
		}
	}
	return p, nil
}

// BumpTokenVersion revokes every token issued so far.
func (s *Service) BumpTokenVersion(ctx context.Context, id string) (int, error) {
	return s.repo.IncrementTokenVersion(ctx, id)
}

// Delete removes the parent's wallet with its ledger and then the parent.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	w, ok, err := s.wallets.GetWalletByParentID(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		if err := s.wallets.DeleteWallet(ctx, w.ID); err != nil {
			return fmt.Errorf("delete wallet: %w", err)
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("parent deleted", slog.String("parent_id", id))
	return nil
}

func validateRegistration(reg Registration) error {
	if n := len(reg.Username); n < 3 || n > 26 {
		return fmt.Errorf("%w: username must be 3 to 26 characters", ErrInvalidInput)
	}
	if err := validatePassword(reg.Password); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if n := len(reg.FirstName); n < 2 || n > 50 {
		return fmt.Errorf("%w: first name must be 2 to 50 characters", ErrInvalidInput)
	}
	if n := len(reg.LastName); n < 2 || n > 50 {
		return fmt.Errorf("%w: last name must be 2 to 50 characters", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if n := len(password); n < 4 || n > 16 {
		return fmt.Errorf("%w: password must be 4 to 16 characters", ErrInvalidInput)
	}
	return nil
}

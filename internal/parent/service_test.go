package parent

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/schoollunch/lunchwallet/internal/ledger"
	"github.com/schoollunch/lunchwallet/internal/logging"
	"github.com/schoollunch/lunchwallet/internal/wallet"
)

type fixture struct {
	svc     *Service
	repo    Repository
	wallets *wallet.Service
	store   ledger.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := ledger.NewInMemory()
	wallets := wallet.NewService(wallet.NewMemoryRepository(store), store)
	repo := NewMemoryRepository()
	return fixture{
		svc:     NewService(repo, wallets, logging.Discard()),
		repo:    repo,
		wallets: wallets,
		store:   store,
	}
}

func validRegistration() Registration {
	return Registration{
		Username:  "jdoe",
		Password:  "secret1",
		Email:     "jdoe@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
	}
}

func TestRegisterCreatesParentAndWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, w, err := f.svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.Role != RoleParent || !p.Active {
		t.Fatalf("unexpected role/active: %s %v", p.Role, p.Active)
	}
	if string(p.PasswordHash) == "secret1" {
		t.Fatalf("password stored in clear")
	}
	if w.OwnerID != p.ID {
		t.Fatalf("wallet owner = %s, want %s", w.OwnerID, p.ID)
	}
	if !w.CurrentBalance().Equal(decimal.Zero) {
		t.Fatalf("new wallet balance = %s", w.CurrentBalance())
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg := validRegistration()
	reg.Username = "JDoe"
	if _, _, err := f.svc.Register(ctx, reg); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	f := newFixture(t)
	cases := map[string]func(*Registration){
		"short username": func(r *Registration) { r.Username = "ab" },
		"long password":  func(r *Registration) { r.Password = "01234567890123456" },
		"bad email":      func(r *Registration) { r.Email = "not-an-email" },
		"short name":     func(r *Registration) { r.FirstName = "J" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			reg := validRegistration()
			mutate(&reg)
			if _, _, err := f.svc.Register(context.Background(), reg); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := f.svc.Authenticate(ctx, "JDOE", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != p.ID {
		t.Fatalf("authenticated %s, want %s", got.ID, p.ID)
	}

	if _, err := f.svc.Authenticate(ctx, "jdoe", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "nobody", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	p.Active = false
	if err := f.repo.Update(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "jdoe", "secret1"); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}

func TestUpdateProfileChangesPasswordAndRevokesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, _, err := f.svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := f.svc.UpdateProfile(ctx, p.ID, "new@example.com", "newpass")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Email != "new@example.com" {
		t.Fatalf("email = %s", updated.Email)
	}
	if _, err := f.svc.Authenticate(ctx, "jdoe", "newpass"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	stored, _ := f.repo.FindByID(ctx, p.ID)
	if stored.TokenVersion != 1 {
		t.Fatalf("token version = %d, want 1", stored.TokenVersion)
	}
}

func TestDeleteRemovesWalletLedgerAndParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, w, err := f.svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.wallets.Deposit(ctx, w.ID, decimal.RequireFromString("10.00"), "seed"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := f.svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected parent gone, got %v", err)
	}
	if _, ok, _ := f.wallets.GetWalletByParentID(ctx, p.ID); ok {
		t.Fatalf("wallet still present")
	}
	entries, err := f.store.Latest(ctx, w.ID, ledger.HistoryLimit)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ledger still holds %d entries", len(entries))
	}
	if err := f.svc.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

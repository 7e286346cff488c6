package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoollunch/lunchwallet/internal/ledger"
)

func newTestService(t *testing.T) (*Service, ledger.Store, Repository) {
	t.Helper()
	store := ledger.NewInMemory()
	repo := NewMemoryRepository(store)
	return NewService(repo, store), store, repo
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fundedWallet(t *testing.T, svc *Service, amount string) Wallet {
	t.Helper()
	ctx := context.Background()
	w, err := svc.CreateWallet(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if amount != "" {
		if _, err := svc.Deposit(ctx, w.ID, dec(amount), "seed"); err != nil {
			t.Fatalf("seed deposit: %v", err)
		}
	}
	return w
}

func balanceOf(t *testing.T, svc *Service, id string) decimal.Decimal {
	t.Helper()
	w, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.CurrentBalance()
}

func TestCreateWalletStartsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ownerID := uuid.NewString()

	w, err := svc.CreateWallet(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.OwnerID != ownerID || w.Currency != "EUR" {
		t.Fatalf("unexpected wallet %+v", w)
	}
	if !w.CurrentBalance().IsZero() {
		t.Fatalf("expected zero balance, got %s", w.CurrentBalance())
	}

	if _, err := svc.CreateWallet(context.Background(), ownerID); !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists for second wallet, got %v", err)
	}
}

func TestCreateWalletUsesConfiguredCurrency(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(store), store, WithCurrency("BGN"))

	w, err := svc.CreateWallet(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.Currency != "BGN" {
		t.Fatalf("expected BGN, got %s", w.Currency)
	}
}

func TestPaymentWithSufficientBalance(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := fundedWallet(t, svc, "200.00")

	entry, err := svc.Payment(context.Background(), w.ID, dec("100.00"), "x")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if entry.Status != ledger.StatusSuccessful || entry.Type != ledger.TypePayment {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if !entry.BalanceLeft.Equal(dec("100.00")) {
		t.Fatalf("expected balance left 100.00, got %s", entry.BalanceLeft)
	}
	if got := balanceOf(t, svc, w.ID); !got.Equal(dec("100.00")) {
		t.Fatalf("expected wallet balance 100.00, got %s", got)
	}
}

func TestPaymentWithInsufficientBalanceRecordsFailure(t *testing.T) {
	svc, store, _ := newTestService(t)
	w := fundedWallet(t, svc, "50.00")

	entry, err := svc.Payment(context.Background(), w.ID, dec("100.00"), "x")
	if err != nil {
		t.Fatalf("insufficient funds must not be an error: %v", err)
	}
	if entry.Status != ledger.StatusFailed {
		t.Fatalf("expected FAILED, got %s", entry.Status)
	}
	if entry.FailureReason == nil || *entry.FailureReason != "Not enough balance in wallet." {
		t.Fatalf("unexpected failure reason %v", entry.FailureReason)
	}
	if !entry.BalanceLeft.Equal(dec("50.00")) {
		t.Fatalf("expected balance left 50.00, got %s", entry.BalanceLeft)
	}
	if got := balanceOf(t, svc, w.ID); !got.Equal(dec("50.00")) {
		t.Fatalf("balance changed to %s", got)
	}
	if n, _ := store.Count(context.Background(), w.ID); n != 2 {
		t.Fatalf("expected seed deposit and failed payment, got %d entries", n)
	}
}

func TestPaymentOfExactBalanceEmptiesWallet(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := fundedWallet(t, svc, "100.00")

	entry, err := svc.Payment(context.Background(), w.ID, dec("100.00"), "x")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if !entry.Successful() {
		t.Fatalf("expected SUCCESSFUL, got %s", entry.Status)
	}
	if !entry.BalanceLeft.IsZero() || entry.BalanceLeft.IsNegative() {
		t.Fatalf("expected 0.00, got %s", entry.BalanceLeft)
	}
}

func TestDepositTreatsNullBalanceAsZero(t *testing.T) {
	store := ledger.NewInMemory()
	repo := NewMemoryRepository(store)
	svc := NewService(repo, store)

	w := Wallet{ID: uuid.NewString(), OwnerID: uuid.NewString(), Currency: "EUR"}
	if err := repo.Create(context.Background(), w); err != nil {
		t.Fatalf("create: %v", err)
	}

	entry, err := svc.Deposit(context.Background(), w.ID, dec("50.00"), "init")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !entry.BalanceLeft.Equal(dec("50.00")) {
		t.Fatalf("expected 50.00, got %s", entry.BalanceLeft)
	}
	if got := balanceOf(t, svc, w.ID); !got.Equal(dec("50.00")) {
		t.Fatalf("expected 50.00, got %s", got)
	}
}

func TestNonPositiveAmountsLeaveNoTrace(t *testing.T) {
	svc, store, _ := newTestService(t)
	w := fundedWallet(t, svc, "10.00")
	ctx := context.Background()

	for _, amount := range []decimal.Decimal{decimal.Zero, dec("-1.00"), {}} {
		if _, err := svc.Deposit(ctx, w.ID, amount, "bad"); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("deposit %s: expected ErrInvalidAmount, got %v", amount, err)
		}
		if _, err := svc.Payment(ctx, w.ID, amount, "bad"); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("payment %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if n, _ := store.Count(ctx, w.ID); n != 1 {
		t.Fatalf("expected only the seed entry, got %d", n)
	}
}

func TestSubCentAmountsAreRejected(t *testing.T) {
	svc, store, _ := newTestService(t)
	w := fundedWallet(t, svc, "10.00")
	ctx := context.Background()

	for _, amount := range []decimal.Decimal{dec("0.004"), dec("1.005")} {
		if _, err := svc.Deposit(ctx, w.ID, amount, "bad"); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("deposit %s: expected ErrInvalidAmount, got %v", amount, err)
		}
		if _, err := svc.Payment(ctx, w.ID, amount, "bad"); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("payment %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if n, _ := store.Count(ctx, w.ID); n != 1 {
		t.Fatalf("expected only the seed entry, got %d", n)
	}

	entry, err := svc.Deposit(ctx, w.ID, dec("1.100"), "trailing zero")
	if err != nil {
		t.Fatalf("deposit 1.100: %v", err)
	}
	if !entry.BalanceLeft.Equal(dec("11.10")) {
		t.Fatalf("balance = %s, want 11.10", entry.BalanceLeft)
	}
}

func TestMutationsOnMissingWallet(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Deposit(ctx, uuid.NewString(), dec("1"), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deposit: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Payment(ctx, uuid.NewString(), dec("1"), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("payment: expected ErrNotFound, got %v", err)
	}
}

func TestBalanceMatchesLedger(t *testing.T) {
	svc, store, _ := newTestService(t)
	w := fundedWallet(t, svc, "")
	ctx := context.Background()

	ops := []struct {
		deposit bool
		amount  string
	}{
		{true, "30.00"}, {false, "12.50"}, {false, "40.00"}, {true, "5.25"}, {false, "22.75"}, {false, "0.01"},
	}
	for _, op := range ops {
		var err error
		if op.deposit {
			_, err = svc.Deposit(ctx, w.ID, dec(op.amount), "d")
		} else {
			_, err = svc.Payment(ctx, w.ID, dec(op.amount), "p")
		}
		if err != nil {
			t.Fatalf("op %+v: %v", op, err)
		}
	}

	all, err := store.Latest(ctx, w.ID, 0)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	sum := decimal.Zero
	var lastSuccessful *ledger.Entry
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if !e.Successful() {
			continue
		}
		if e.Type == ledger.TypeDeposit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
		lastSuccessful = &all[i]
	}

	balance := balanceOf(t, svc, w.ID)
	if !balance.Equal(sum) {
		t.Fatalf("balance %s != ledger sum %s", balance, sum)
	}
	if lastSuccessful == nil || !lastSuccessful.BalanceLeft.Equal(balance) {
		t.Fatalf("latest successful entry does not carry the balance %s", balance)
	}
	if !balance.Equal(dec("0.00")) {
		t.Fatalf("expected 0.00, got %s", balance)
	}
}

func TestConcurrentPaymentsDoNotOverdraw(t *testing.T) {
	svc, store, _ := newTestService(t)
	w := fundedWallet(t, svc, "100.00")
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan ledger.Entry, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := svc.Payment(ctx, w.ID, dec("10.00"), "lunch")
			if err != nil {
				t.Errorf("payment: %v", err)
				return
			}
			results <- entry
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for e := range results {
		if e.Successful() {
			succeeded++
		}
	}
	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful payments, got %d", succeeded)
	}
	if got := balanceOf(t, svc, w.ID); !got.IsZero() {
		t.Fatalf("expected empty wallet, got %s", got)
	}
	if n, _ := store.Count(ctx, w.ID); n != workers+1 {
		t.Fatalf("expected %d entries, got %d", workers+1, n)
	}
}

func TestTransactionsAreLatestFiveNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	w := fundedWallet(t, svc, "")
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		if _, err := svc.Deposit(ctx, w.ID, decimal.NewFromInt(int64(i)), "d"); err != nil {
			t.Fatalf("deposit %d: %v", i, err)
		}
	}

	first, err := svc.GetTransactionsByWalletID(ctx, w.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(first))
	}
	if !first[0].Amount.Equal(decimal.NewFromInt(7)) || !first[4].Amount.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected order: first=%s last=%s", first[0].Amount, first[4].Amount)
	}

	second, err := svc.GetTransactionsByWalletID(ctx, w.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("reads differ at %d", i)
		}
	}
}

func TestDeleteWalletRemovesLedger(t *testing.T) {
	svc, store, _ := newTestService(t)
	w := fundedWallet(t, svc, "25.00")
	ctx := context.Background()
	if _, err := svc.Payment(ctx, w.ID, dec("5.00"), "x"); err != nil {
		t.Fatalf("payment: %v", err)
	}

	if err := svc.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := store.Count(ctx, w.ID); n != 0 {
		t.Fatalf("expected no entries, got %d", n)
	}
	if _, err := svc.Get(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok, _ := svc.GetWalletByParentID(ctx, w.OwnerID); ok {
		t.Fatalf("owner still resolves to a wallet")
	}
}

func TestMemoryLocksAreDroppedWithWallet(t *testing.T) {
	svc, _, repo := newTestService(t)
	mem := repo.(*memoryRepository)
	ctx := context.Background()
	w := fundedWallet(t, svc, "5.00")

	if _, err := svc.Deposit(ctx, uuid.NewString(), dec("1.00"), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deposit to unknown wallet: expected ErrNotFound, got %v", err)
	}
	if n := len(mem.locks); n != 1 {
		t.Fatalf("expected one lock for the live wallet, got %d", n)
	}
	if err := svc.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete wallet: %v", err)
	}
	if n := len(mem.locks); n != 0 {
		t.Fatalf("expected no locks after delete, got %d", n)
	}
}

func TestGetOrCreateWallet(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	parentID := uuid.NewString()

	if _, ok, err := svc.GetWalletByParentID(ctx, parentID); err != nil || ok {
		t.Fatalf("expected absent wallet, ok=%v err=%v", ok, err)
	}
	created, err := svc.GetOrCreateWallet(ctx, parentID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	again, err := svc.GetOrCreateWallet(ctx, parentID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if created.ID != again.ID {
		t.Fatalf("expected the same wallet, got %s and %s", created.ID, again.ID)
	}
}

type fakeCache struct {
	mu          sync.Mutex
	data        map[string][]ledger.Entry
	versions    map[string]int64
	invalidated int
	// beforeSet runs at the start of SetHistory, outside the lock.
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]ledger.Entry{}, versions: map[string]int64{}}
}

func (f *fakeCache) GetHistory(_ context.Context, walletID string) ([]ledger.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[walletID]
	return e, ok, nil
}

func (f *fakeCache) HistoryVersion(_ context.Context, walletID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versions[walletID], nil
}

func (f *fakeCache) SetHistory(_ context.Context, walletID string, version int64, entries []ledger.Entry) error {
	if hook := f.beforeSet; hook != nil {
		f.beforeSet = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.versions[walletID] != version {
		return nil
	}
	f.data[walletID] = entries
	return nil
}

func (f *fakeCache) InvalidateHistory(_ context.Context, walletID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, walletID)
	f.versions[walletID]++
	f.invalidated++
	return nil
}

func TestHistoryFillRacingAMutationIsNotCached(t *testing.T) {
	store := ledger.NewInMemory()
	cache := newFakeCache()
	svc := NewService(NewMemoryRepository(store), store, WithHistoryCache(cache))
	ctx := context.Background()
	w := fundedWallet(t, svc, "10.00")

	// The payment lands after the ledger read and before the cache fill.
	cache.beforeSet = func() {
		if _, err := svc.Payment(ctx, w.ID, dec("1.00"), "racing"); err != nil {
			t.Errorf("payment: %v", err)
		}
	}
	stale, err := svc.GetTransactionsByWalletID(ctx, w.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected the pre-payment view, got %d entries", len(stale))
	}
	if _, ok, _ := cache.GetHistory(ctx, w.ID); ok {
		t.Fatalf("stale history was cached")
	}

	fresh, err := svc.GetTransactionsByWalletID(ctx, w.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(fresh))
	}
}

func TestHistoryCacheIsInvalidatedByMutations(t *testing.T) {
	store := ledger.NewInMemory()
	cache := newFakeCache()
	svc := NewService(NewMemoryRepository(store), store, WithHistoryCache(cache))
	ctx := context.Background()
	w := fundedWallet(t, svc, "10.00")

	if _, err := svc.GetTransactionsByWalletID(ctx, w.ID); err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if _, ok, _ := cache.GetHistory(ctx, w.ID); !ok {
		t.Fatalf("expected history to be cached")
	}

	if _, err := svc.Payment(ctx, w.ID, dec("1.00"), "x"); err != nil {
		t.Fatalf("payment: %v", err)
	}
	if _, ok, _ := cache.GetHistory(ctx, w.ID); ok {
		t.Fatalf("expected history to be invalidated after payment")
	}

	entries, err := svc.GetTransactionsByWalletID(ctx, w.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after refill, got %d", len(entries))
	}
}

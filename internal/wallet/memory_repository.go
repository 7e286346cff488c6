package wallet

import (
	"context"
	"sync"

	"github.com/schoollunch/lunchwallet/internal/ledger"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Wallet
	byOwner map[string]string
	locks   map[string]*sync.Mutex
	ledger  ledger.Store
}

// NewMemoryRepository constructs an in-memory repository for tests and local
// development. Entries appended through WithLock go to the given store.
func NewMemoryRepository(store ledger.Store) Repository {
	return &memoryRepository{
		storage: make(map[string]Wallet),
		byOwner: make(map[string]string),
		locks:   make(map[string]*sync.Mutex),
		ledger:  store,
	}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[wallet.ID]; exists {
		return ErrWalletExists
	}
	if _, exists := r.byOwner[wallet.OwnerID]; exists {
		return ErrWalletExists
	}
	r.storage[wallet.ID] = wallet
	r.byOwner[wallet.OwnerID] = wallet.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByOwner(_ context.Context, ownerID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byOwner[ownerID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return r.storage[id], nil
}

// WithLock serialises mutations per wallet. Writes apply immediately, so fn
// must finish its fallible checks before writing.
func (r *memoryRepository) WithLock(ctx context.Context, id string, fn LockedFunc) error {
	lock, err := r.lockFor(id)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	wallet, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return fn(ctx, wallet, memoryTx{repo: r})
}

// lockFor hands out the wallet's mutex. Locks exist only for stored wallets
// and are dropped together with the wallet.
func (r *memoryRepository) lockFor(id string) (*sync.Mutex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return nil, ErrNotFound
	}
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock, nil
}

type memoryTx struct {
	repo *memoryRepository
}

func (t memoryTx) SaveWallet(_ context.Context, wallet Wallet) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if _, ok := t.repo.storage[wallet.ID]; !ok {
		return ErrNotFound
	}
	t.repo.storage[wallet.ID] = wallet
	return nil
}

func (t memoryTx) DeleteWallet(_ context.Context, id string) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	wallet, ok := t.repo.storage[id]
	if !ok {
		return ErrNotFound
	}
	delete(t.repo.storage, id)
	delete(t.repo.byOwner, wallet.OwnerID)
	delete(t.repo.locks, id)
	return nil
}

func (t memoryTx) Ledger() ledger.Store {
	return t.repo.ledger
}

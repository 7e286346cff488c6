package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoollunch/lunchwallet/internal/ledger"
)

func newHistory(t *testing.T) (*History, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewHistory(client, time.Minute), mr
}

func TestHistoryRoundTrip(t *testing.T) {
	h, _ := newHistory(t)
	ctx := context.Background()
	walletID := uuid.NewString()
	reason := ledger.ReasonInsufficientBalance

	entries := []ledger.Entry{{
		ID:            uuid.NewString(),
		WalletID:      walletID,
		Amount:        decimal.RequireFromString("12.50"),
		BalanceLeft:   decimal.RequireFromString("3.00"),
		Currency:      "EUR",
		Type:          ledger.TypePayment,
		Status:        ledger.StatusFailed,
		Description:   "Payment for lunch order #x",
		FailureReason: &reason,
		CreatedOn:     time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC),
	}}

	_, ok, err := h.GetHistory(ctx, walletID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.SetHistory(ctx, walletID, 0, entries))

	got, ok, err := h.GetHistory(ctx, walletID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, entries[0].ID, got[0].ID)
	assert.True(t, entries[0].Amount.Equal(got[0].Amount))
	assert.True(t, entries[0].BalanceLeft.Equal(got[0].BalanceLeft))
	assert.Equal(t, ledger.StatusFailed, got[0].Status)
	require.NotNil(t, got[0].FailureReason)
	assert.Equal(t, reason, *got[0].FailureReason)
	assert.True(t, entries[0].CreatedOn.Equal(got[0].CreatedOn))
}

func TestHistoryEmptyListIsAHit(t *testing.T) {
	h, _ := newHistory(t)
	ctx := context.Background()
	walletID := uuid.NewString()

	require.NoError(t, h.SetHistory(ctx, walletID, 0, nil))
	got, ok, err := h.GetHistory(ctx, walletID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestHistoryInvalidateAndExpiry(t *testing.T) {
	h, mr := newHistory(t)
	ctx := context.Background()
	walletID := uuid.NewString()

	require.NoError(t, h.SetHistory(ctx, walletID, 0, []ledger.Entry{}))
	require.NoError(t, h.InvalidateHistory(ctx, walletID))
	_, ok, err := h.GetHistory(ctx, walletID)
	require.NoError(t, err)
	assert.False(t, ok)

	version, err := h.HistoryVersion(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, h.SetHistory(ctx, walletID, version, []ledger.Entry{}))
	mr.FastForward(2 * time.Minute)
	_, ok, err = h.GetHistory(ctx, walletID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistoryFillAfterInvalidationIsDropped(t *testing.T) {
	h, _ := newHistory(t)
	ctx := context.Background()
	walletID := uuid.NewString()

	// A reader takes the generation and loads the ledger...
	version, err := h.HistoryVersion(ctx, walletID)
	require.NoError(t, err)
	stale := []ledger.Entry{{ID: uuid.NewString(), WalletID: walletID}}

	// ...a mutation invalidates before the reader stores its result.
	require.NoError(t, h.InvalidateHistory(ctx, walletID))
	require.NoError(t, h.SetHistory(ctx, walletID, version, stale))

	_, ok, err := h.GetHistory(ctx, walletID)
	require.NoError(t, err)
	assert.False(t, ok, "stale fill must not be cached")

	current, err := h.HistoryVersion(ctx, walletID)
	require.NoError(t, err)
	require.NoError(t, h.SetHistory(ctx, walletID, current, stale))
	_, ok, err = h.GetHistory(ctx, walletID)
	require.NoError(t, err)
	assert.True(t, ok)
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/schoollunch/lunchwallet/internal/ledger"
)

const (
	historyPrefix    = "lunchwallet:txhistory:"
	generationPrefix = "lunchwallet:txhistory-gen:"
	generationTTL    = 24 * time.Hour
)

// History caches the latest-transactions view of each wallet. Every
// invalidation bumps a per-wallet generation; a fill carries the generation
// read before loading the ledger and is dropped when it no longer matches.
type History struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistory builds a history cache. A non-positive ttl defaults to five minutes.
func NewHistory(client *redis.Client, ttl time.Duration) *History {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &History{client: client, ttl: ttl}
}

func historyKey(walletID string) string {
	return historyPrefix + walletID
}

func generationKey(walletID string) string {
	return generationPrefix + walletID
}

// GetHistory returns the cached entries for the wallet.
func (h *History) GetHistory(ctx context.Context, walletID string) ([]ledger.Entry, bool, error) {
	var entries []ledger.Entry
	ok, err := GetJSON(ctx, h.client, historyKey(walletID), &entries)
	if err != nil || !ok {
		return nil, false, err
	}
	return entries, true, nil
}

// HistoryVersion returns the wallet's current generation, zero when none was recorded.
func (h *History) HistoryVersion(ctx context.Context, walletID string) (int64, error) {
	return generation(ctx, h.client, walletID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, c getter, walletID string) (int64, error) {
	v, err := c.Get(ctx, generationKey(walletID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetHistory stores entries loaded at the given generation. The write is
// skipped when an invalidation happened since.
func (h *History) SetHistory(ctx context.Context, walletID string, version int64, entries []ledger.Entry) error {
	if entries == nil {
		entries = []ledger.Entry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	genKey := generationKey(walletID)
	err = h.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, walletID)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, historyKey(walletID), payload, h.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// The generation moved between WATCH and EXEC.
		return nil
	}
	return err
}

// InvalidateHistory drops the cached entries and bumps the generation.
func (h *History) InvalidateHistory(ctx context.Context, walletID string) error {
	genKey := generationKey(walletID)
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, historyKey(walletID))
		return nil
	})
	return err
}

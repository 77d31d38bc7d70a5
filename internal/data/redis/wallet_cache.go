// Package redis holds the wallet read cache. Entries are written after reads
// and dropped after every committed mutation, so a stale hit lives at most
// until the next write to the wallet or the TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/wallet-ledger/internal/domain/wallet"
)

const (
	walletKeyPrefix = "wallet:"
	userKeyPrefix   = "wallet:user:"
)

func walletKey(id uuid.UUID) string { return walletKeyPrefix + id.String() }
func userKey(userID string) string  { return userKeyPrefix + userID }

// WalletCache caches wallet snapshots by id and the user id to wallet id mapping.
// Cache failures are logged and reported as misses; they never fail a request.
type WalletCache struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewWalletCache creates a cache with the given entry TTL
func NewWalletCache(logger *slog.Logger, client goredis.Cmdable, ttl time.Duration) *WalletCache {
	return &WalletCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached wallet for id
func (c *WalletCache) Get(ctx context.Context, id uuid.UUID) (*wallet.Wallet, bool) {
	data, err := c.client.Get(ctx, walletKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("Failed to read wallet cache", "wallet_id", id.String(), "error", err)
		}
		return nil, false
	}

	var w wallet.Wallet
	if err := json.Unmarshal(data, &w); err != nil {
		c.logger.Warn("Failed to decode cached wallet", "wallet_id", id.String(), "error", err)
		return nil, false
	}
	return &w, true
}

// GetByUserID resolves the user mapping and then the wallet entry
func (c *WalletCache) GetByUserID(ctx context.Context, userID string) (*wallet.Wallet, bool) {
	raw, err := c.client.Get(ctx, userKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("Failed to read wallet user mapping", "user_id", userID, "error", err)
		}
		return nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		c.logger.Warn("Invalid cached wallet id", "user_id", userID, "value", raw)
		return nil, false
	}
	return c.Get(ctx, id)
}

// Set stores w under its id and maps its user id to it
func (c *WalletCache) Set(ctx context.Context, w *wallet.Wallet) {
	data, err := json.Marshal(w)
	if err != nil {
		c.logger.Warn("Failed to encode wallet for cache", "wallet_id", w.ID.String(), "error", err)
		return
	}

	if err := c.client.Set(ctx, walletKey(w.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write wallet cache", "wallet_id", w.ID.String(), "error", err)
		return
	}
	if err := c.client.Set(ctx, userKey(w.UserID), w.ID.String(), c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write wallet user mapping", "user_id", w.UserID, "error", err)
	}
}

// Invalidate drops both entries of w
func (c *WalletCache) Invalidate(ctx context.Context, w *wallet.Wallet) {
	if err := c.client.Del(ctx, walletKey(w.ID), userKey(w.UserID)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate wallet cache", "wallet_id", w.ID.String(), "error", err)
		return
	}
	c.logger.Debug("Invalidated wallet cache", "wallet_id", w.ID.String())
}

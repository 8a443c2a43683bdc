// Package cache implements the Cache Tier Adapter (SPEC_FULL.md §5): a
// Redis-backed hot store of recently produced transactions, guarded by a
// circuit breaker so a flapping Redis never blocks the cold-tier fallback
// path.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/xerrors"
)

// Coverage reports how a requested starting version relates to what the
// cache currently holds.
type Coverage int

const (
	// DataNotReady means startVersion is ahead of the cache's latest version.
	DataNotReady Coverage = iota
	// CacheHit means the cache holds startVersion and can serve it.
	CacheHit
	// CacheEvicted means startVersion is older than the cache's retained
	// window; the caller must fall back to the cold tier.
	CacheEvicted
)

func (c Coverage) String() string {
	switch c {
	case DataNotReady:
		return "data_not_ready"
	case CacheHit:
		return "cache_hit"
	case CacheEvicted:
		return "cache_evicted"
	default:
		return "unknown"
	}
}

const (
	chainIDKey    = "chain_id"
	latestKey     = "latest_version"
	oldestKey     = "oldest_version"
	versionPrefix = "txn:"
)

// Client is the Cache Tier Adapter. It wraps a redis client with a
// gobreaker.CircuitBreaker so repeated read failures fail fast instead of
// piling up latency on every subscriber.
type Client struct {
	rdb     redis.UniversalClient
	breaker *gobreaker.CircuitBreaker

	chainID      uint64
	chainIDKnown bool
}

// New builds a Client around an already-constructed redis client.
func New(rdb redis.UniversalClient) *Client {
	st := gobreaker.Settings{
		Name:        "cache-tier-adapter",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		rdb:     rdb,
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

// ChainID returns the chain the cache is serving, caching the result after
// the first successful lookup since it never changes for a deployment.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	if c.chainIDKnown {
		return c.chainID, nil
	}
	v, err := c.rdb.Get(ctx, chainIDKey).Uint64()
	if err != nil {
		return 0, xerrors.CacheError("read chain id", err)
	}
	c.chainID = v
	c.chainIDKnown = true
	return v, nil
}

// Coverage reports how startVersion relates to the cache's current window.
// It is not breaker-guarded: per spec.md §9, a failure here is treated as
// subscription-fatal rather than something to fall back from.
func (c *Client) Coverage(ctx context.Context, startVersion uint64) (Coverage, error) {
	latest, err := c.rdb.Get(ctx, latestKey).Uint64()
	if err != nil {
		return DataNotReady, xerrors.CoverageQueryError(err)
	}
	if startVersion > latest {
		return DataNotReady, nil
	}

	oldest, err := c.rdb.Get(ctx, oldestKey).Uint64()
	if err != nil {
		return DataNotReady, xerrors.CoverageQueryError(err)
	}
	if startVersion < oldest {
		return CacheEvicted, nil
	}
	return CacheHit, nil
}

// Read fetches up to maxCount transactions starting at startVersion. Read
// failures go through the circuit breaker: once it's open, callers should
// treat the result the same as CacheEvicted and fall back to cold storage.
func (c *Client) Read(ctx context.Context, startVersion, maxCount uint64) ([]*indexerv1.Transaction, time.Duration, time.Duration, error) {
	ioStart := time.Now()
	raw, err := c.breaker.Execute(func() (any, error) {
		keys := make([]string, maxCount)
		for i := uint64(0); i < maxCount; i++ {
			keys[i] = fmt.Sprintf("%s%d", versionPrefix, startVersion+i)
		}
		return c.rdb.MGet(ctx, keys...).Result()
	})
	ioDuration := time.Since(ioStart)
	if err != nil {
		return nil, ioDuration, 0, xerrors.CacheError("read transactions", err)
	}

	decodeStart := time.Now()
	values := raw.([]interface{})
	txns := make([]*indexerv1.Transaction, 0, len(values))
	for _, v := range values {
		if v == nil {
			break // first miss marks the end of contiguously cached data
		}
		s, ok := v.(string)
		if !ok {
			return nil, ioDuration, time.Since(decodeStart), xerrors.CacheError("decode transaction", fmt.Errorf("unexpected value type %T", v))
		}
		var txn indexerv1.Transaction
		if err := json.Unmarshal([]byte(s), &txn); err != nil {
			return nil, ioDuration, time.Since(decodeStart), xerrors.CacheError("decode transaction", err)
		}
		txns = append(txns, &txn)
	}
	return txns, ioDuration, time.Since(decodeStart), nil
}

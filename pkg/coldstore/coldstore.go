// Package coldstore implements the Cold Store Adapter (SPEC_FULL.md §5):
// reads of block-aligned, immutable transaction ranges from a durable
// object store, with bounded retry on transient failures. The original
// service's dynamic dispatch over a FileStoreOperator trait (see
// SPEC_FULL.md §5) is reproduced as the Store interface so the
// adapter can run against S3, local disk, or a test fake without branching
// on backend anywhere else in the codebase.
package coldstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/constants"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/xerrors"
)

// Metadata describes what the cold store currently holds.
type Metadata struct {
	ChainID      uint64
	LatestBlock  uint64 // highest block-aligned starting version fully written
}

// StorageBlock is one TRANSACTIONS_PER_STORAGE_BLOCK-sized immutable chunk.
type StorageBlock struct {
	StartVersion uint64
	Transactions []*indexerv1.Transaction
}

// Store abstracts the backing object store a block is read from/written to.
// S3Store, DiskStore and FakeStore all implement it.
type Store interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	GetBlock(ctx context.Context, startVersion uint64) ([]byte, error)
}

// Adapter is the Cold Store Adapter: a Store plus the retry policy around
// reading one block.
type Adapter struct {
	store      Store
	maxRetries int
}

// New builds an Adapter around a Store, making at most maxRetries attempts
// per block read (NumDataFetchRetries by default).
func New(store Store, maxRetries int) *Adapter {
	if maxRetries <= 0 {
		maxRetries = constants.NumDataFetchRetries
	}
	return &Adapter{store: store, maxRetries: maxRetries}
}

// Metadata returns the cold store's current chain id and latest fully
// written block, polling the underlying Store once.
func (a *Adapter) Metadata(ctx context.Context) (*Metadata, error) {
	md, err := a.store.GetMetadata(ctx)
	if err != nil {
		return nil, xerrors.ColdStoreError("read metadata", 0, err)
	}
	return md, nil
}

// ReadBlock reads the single block aligned at blockStartVersion (the caller
// is responsible for block alignment: blockStartVersion must be a multiple
// of TransactionsPerStorageBlock), retrying transient failures with
// exponential backoff before giving up.
func (a *Adapter) ReadBlock(ctx context.Context, blockStartVersion uint64) ([]*indexerv1.Transaction, time.Duration, time.Duration, error) {
	var (
		raw        []byte
		ioDuration time.Duration
	)

	operation := func() ([]byte, error) {
		start := time.Now()
		b, err := a.store.GetBlock(ctx, blockStartVersion)
		ioDuration += time.Since(start)
		if err != nil {
			if xerrors.IsRetryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return b, nil
	}

	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(a.maxRetries)),
	)
	if err != nil {
		return nil, ioDuration, 0, xerrors.ColdStoreError("read block", blockStartVersion, err)
	}

	decodeStart := time.Now()
	var block StorageBlock
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, ioDuration, time.Since(decodeStart), xerrors.ColdStoreError("decode block", blockStartVersion, err)
	}
	return block.Transactions, ioDuration, time.Since(decodeStart), nil
}

// AlignToBlock returns the start of the storage block containing version,
// i.e. floor(version / B) * B.
func AlignToBlock(version uint64) uint64 {
	return (version / constants.TransactionsPerStorageBlock) * constants.TransactionsPerStorageBlock
}

func blockKey(startVersion uint64) string {
	return fmt.Sprintf("blocks/%020d.json", startVersion)
}

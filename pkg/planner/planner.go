// Package planner implements the Fetch Planner (SPEC_FULL.md §5): given a
// requested starting version and count, decide whether to serve from the
// Cache Tier Adapter or fan out bounded-parallel reads across the Cold
// Store Adapter's block-aligned storage, then hand the resulting batches to
// the Sequencer.
package planner

import (
	"context"

	"golang.org/x/sync/errgroup"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/constants"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/metrics"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/cache"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/coldstore"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/sequencer"
)

// Outcome distinguishes the two terminal shapes a Plan call can produce,
// mirroring the decision table in SPEC_FULL.md §5. A Delivered result with
// no transactions is the no-results case.
type Outcome int

const (
	// Delivered means transactions were produced and should be sent.
	Delivered Outcome = iota
	// NotReady means startVersion is ahead of the cache head; the caller
	// should sleep AheadOfCacheRetrySleep and retry.
	NotReady
)

// Result is what Plan returns on the Delivered outcome.
type Result struct {
	Outcome      Outcome
	Transactions []*indexerv1.Transaction
}

// Planner fetches transaction ranges, preferring the Cache Tier Adapter and
// falling back to the Cold Store Adapter's block-aligned fan-out when the
// cache has evicted the range or its circuit breaker is tripped.
type Planner struct {
	cache     *cache.Client
	coldStore *coldstore.Adapter
	maxTasks  uint64
}

// New builds a Planner.
func New(c *cache.Client, cs *coldstore.Adapter) *Planner {
	return &Planner{cache: c, coldStore: cs, maxTasks: constants.MaxFetchTasksPerRequest}
}

// Plan fetches up to maxCount transactions starting at startVersion,
// following the adapter's decision table:
//   - DataNotReady -> Outcome: NotReady, caller retries after a short sleep.
//   - CacheHit, cache read succeeds -> serve straight from cache.
//   - CacheHit, cache read fails -> fall back to the cold-tier fan-out path
//     (the circuit breaker having tripped is exactly this case).
//   - CacheEvicted -> cold-tier fan-out path directly.
//
// remaining is the subscriber's true, uncapped count of transactions left
// to deliver (nil for an unbounded subscription); it sizes the cold-tier
// fan-out width and is independent of maxCount, which only bounds this one
// cache read/trim.
//
// Coverage-query failure is not handled here: per spec.md §9 it is
// subscription-fatal and propagates as an error for the caller to turn into
// a recovered-panic teardown.
func (p *Planner) Plan(ctx context.Context, serviceType string, startVersion, maxCount uint64, remaining *uint64) (Result, error) {
	coverage, err := p.cache.Coverage(ctx, startVersion)
	if err != nil {
		return Result{}, err
	}

	switch coverage {
	case cache.DataNotReady:
		return Result{Outcome: NotReady}, nil

	case cache.CacheHit:
		txns, _, _, err := p.cache.Read(ctx, startVersion, maxCount)
		if err == nil {
			return Result{Outcome: Delivered, Transactions: txns}, nil
		}
		// Cache read failed (breaker open or transient Redis error):
		// fall through to the cold tier exactly as if evicted.
		fallthrough

	case cache.CacheEvicted:
		txns, err := p.fetchFromColdStore(ctx, serviceType, startVersion, maxCount, remaining)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: Delivered, Transactions: txns}, nil
	}

	return Result{}, nil
}

// numFetchTasks mirrors the original service's data_fetch_from_filestore_in_tasks
// formula verbatim: an unbounded subscription always dispatches exactly
// MaxFetchTasksPerRequest tasks; a bounded one dispatches
// floor(remaining/B), floored up to MaxFetchTasksPerRequest when the
// division comes out smaller. Task count is never a ceiling on coverage —
// a small request still pays for at least MaxFetchTasksPerRequest parallel
// block reads.
func numFetchTasks(remaining *uint64) uint64 {
	if remaining == nil {
		return constants.MaxFetchTasksPerRequest
	}
	n := *remaining / constants.TransactionsPerStorageBlock
	if n < constants.MaxFetchTasksPerRequest {
		return constants.MaxFetchTasksPerRequest
	}
	return n
}

// fetchFromColdStore fans out bounded-parallel block reads across the cold
// tier and hands the results to the Sequencer.
//
// A single task's read failure (after the Cold Store Adapter's own retry
// budget is exhausted) is logged and counted, and that task's contribution
// is simply dropped — it does not fail the other tasks or the overall
// fetch, mirroring the original service's DataFetchSubTaskResult::NoResults
// per-task outcome. Only when every task fails is the whole fetch treated
// as NoResults (an empty, non-error result), letting the caller's existing
// transient-retry path handle it, since a JoinSet join error (an actual
// task crash) is the only case the original escalates to a fatal abort. An
// unaligned startVersion is floored to its containing block, which the
// first task fetches once; later tasks advance by exactly one block, and
// trimRange drops the versions before startVersion.
func (p *Planner) fetchFromColdStore(ctx context.Context, serviceType string, startVersion, maxCount uint64, remaining *uint64) ([]*indexerv1.Transaction, error) {
	numTasks := numFetchTasks(remaining)
	blockStart := coldstore.AlignToBlock(startVersion)

	g, gctx := errgroup.WithContext(ctx)
	batches := make([]sequencer.Batch, numTasks)
	succeeded := make([]bool, numTasks)
	for i := uint64(0); i < numTasks; i++ {
		i := i
		taskBlockStart := blockStart + i*constants.TransactionsPerStorageBlock
		g.Go(func() error {
			txns, _, _, err := p.coldStore.ReadBlock(gctx, taskBlockStart)
			if err != nil {
				metrics.RecordError("data_fetch_filestore_failed")
				return nil
			}
			batches[i] = sequencer.Batch{StartVersion: taskBlockStart, Transactions: txns}
			succeeded[i] = true
			return nil
		})
	}
	g.Wait() // no task returns a non-nil error; this only waits for completion

	anySucceeded := false
	for _, ok := range succeeded {
		if ok {
			anySucceeded = true
			break
		}
	}
	if !anySucceeded {
		return nil, nil
	}

	merged, err := sequencer.Merge(serviceType, batches)
	if err != nil {
		return nil, err
	}

	// Trim to [startVersion, startVersion+maxCount): the fan-out reads
	// whole blocks, which may start before startVersion or run past
	// maxCount.
	return trimRange(merged, startVersion, maxCount), nil
}

func trimRange(txns []*indexerv1.Transaction, startVersion, maxCount uint64) []*indexerv1.Transaction {
	end := startVersion + maxCount
	out := make([]*indexerv1.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Version >= startVersion && t.Version < end {
			out = append(out, t)
		}
	}
	return out
}

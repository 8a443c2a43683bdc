// Package worker implements the Subscription Worker (SPEC_FULL.md §5):
// one goroutine per GetTransactions RPC, driving Bootstrap -> Serving with
// the WaitRetry/Truncate/Done/Disconnected/Failed terminal states, pushing
// chunked TransactionsResponse messages onto a bounded response channel.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/constants"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/logging"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/metrics"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/ratewindow"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/telemetry"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/xerrors"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/cache"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/coldstore"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/planner"
)

// State names the Subscription Worker's state machine position.
type State int

const (
	StateInit State = iota
	StateBootstrap
	StateServing
	StateWaitRetry
	StateTruncate
	StateDone
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateBootstrap:
		return "bootstrap"
	case StateServing:
		return "serving"
	case StateWaitRetry:
		return "wait_retry"
	case StateTruncate:
		return "truncate"
	case StateDone:
		return "done"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Request captures one GetTransactions call's parameters plus the metadata
// the Stream Server extracted from the incoming context.
type Request struct {
	ConnectionID        string
	StartingVersion     uint64
	TransactionsCount   *uint64 // nil means unbounded (stream until disconnect)
	APIKeyName          string
	Email               string
	ProcessorName       string
	UserClassification  string
}

// Subscription drives one GetTransactions stream from Bootstrap through
// termination, writing TransactionsResponse chunks to Out until done, the
// client disconnects, or an unrecoverable error occurs.
type Subscription struct {
	req      Request
	planner  *planner.Planner
	cache    *cache.Client
	coldStore *coldstore.Adapter
	out      chan<- *indexerv1.TransactionsResponse

	state        State
	startedAt    time.Time
	chainID      uint64
	rate         *ratewindow.MovingAverage
	delivered    uint64
	log          *logrus.Entry
}

// New builds a Subscription. out is the bounded response channel the Stream
// Server drains and forwards to the gRPC stream.
func New(req Request, p *planner.Planner, c *cache.Client, cs *coldstore.Adapter, out chan<- *indexerv1.TransactionsResponse, log *logrus.Entry) *Subscription {
	return &Subscription{
		req:       req,
		planner:   p,
		cache:     c,
		coldStore: cs,
		out:       out,
		state:     StateInit,
		startedAt: time.Now(),
		rate:      ratewindow.New(constants.MovingAverageWindow),
		log:       log,
	}
}

// Run executes the state machine to completion. It recovers from panics
// raised deep in the fetch pipeline (cache-coverage-query failure,
// Sequencer gap) and converts them into a subscription-fatal error instead
// of letting them crash the process — isolating the failure to this one
// subscription, per spec.md §9.
func (s *Subscription) Run(ctx context.Context) (err error) {
	defer close(s.out)
	defer func() {
		if r := recover(); r != nil {
			s.state = StateFailed
			metrics.RecordError("subscription_panic_recovered")
			err = xerrors.FailedTo("serve subscription", toError(r))
		}
		s.recordShortConnectionIfNeeded()
	}()

	ctx, span := telemetry.StartSubscriptionSpan(ctx, s.req.ConnectionID)
	defer span.End()

	labels := metrics.RequestLabels{APIKeyName: s.req.APIKeyName, Email: s.req.Email, ProcessorName: s.req.ProcessorName}
	metrics.RecordConnection(labels)
	telemetry.LogStep(ctx, telemetry.Event{Step: telemetry.StepNewRequestReceived, ConnectionID: s.req.ConnectionID, ProcessorName: s.req.ProcessorName})

	if err := s.bootstrap(ctx); err != nil {
		s.state = StateFailed
		s.log.WithFields(logging.NewFields().Component("worker").Operation("bootstrap").Error(err).ToLogrus()).Warn("subscription bootstrap failed")
		return err
	}

	err = s.serve(ctx, labels)
	s.log.WithFields(logging.NewFields().Component("worker").Custom("state", s.state.String()).Custom("delivered", s.delivered).ToLogrus()).Info("subscription ended")
	return err
}

func (s *Subscription) bootstrap(ctx context.Context) error {
	s.state = StateBootstrap

	cacheChainID, err := s.cache.ChainID(ctx)
	if err != nil {
		return xerrors.CacheError("bootstrap chain id", err)
	}

	md, err := s.pollColdStoreMetadata(ctx)
	if err != nil {
		return err
	}
	if md.ChainID != cacheChainID {
		return &xerrors.ChainIDMismatchError{CacheChainID: cacheChainID, ColdStoreChainID: md.ChainID}
	}
	s.chainID = cacheChainID
	return nil
}

// pollColdStoreMetadata polls the Cold Store Adapter for its metadata every
// FileStoreMetadataWait until it succeeds or the subscriber disconnects,
// per spec.md §4.2/§4.5.
func (s *Subscription) pollColdStoreMetadata(ctx context.Context) (*coldstore.Metadata, error) {
	for {
		md, err := s.coldStore.Metadata(ctx)
		if err == nil {
			return md, nil
		}
		select {
		case <-time.After(constants.FileStoreMetadataWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (s *Subscription) serve(ctx context.Context, labels metrics.RequestLabels) error {
	s.state = StateServing
	version := s.req.StartingVersion

	for {
		select {
		case <-ctx.Done():
			s.state = StateDisconnected
			return nil
		default:
		}

		batchCount := s.remainingCount(version)
		if batchCount == 0 {
			s.state = StateTruncate
			s.state = StateDone
			return nil
		}

		res, err := s.planner.Plan(ctx, "data_service", version, batchCount, s.trueRemaining(version))
		if err != nil {
			// Coverage-query failure and Sequencer gaps arrive here as
			// plain errors; per spec.md §9 these are promoted to a panic
			// so the deferred recover() above applies one uniform
			// subscription-fatal teardown path regardless of which layer
			// detected the inconsistency.
			panic(err)
		}

		if res.Outcome == planner.NotReady {
			s.state = StateWaitRetry
			select {
			case <-time.After(constants.AheadOfCacheRetrySleep):
			case <-ctx.Done():
				s.state = StateDisconnected
				return nil
			}
			s.state = StateServing
			continue
		}

		if len(res.Transactions) == 0 {
			select {
			case <-time.After(constants.TransientDataErrorRetrySleep):
			case <-ctx.Done():
				s.state = StateDisconnected
				return nil
			}
			continue
		}

		telemetry.LogStep(ctx, telemetry.Event{Step: telemetry.StepTxnsDecoded, ConnectionID: s.req.ConnectionID})

		if err := s.deliver(ctx, res.Transactions, labels); err != nil {
			return err
		}

		version += uint64(len(res.Transactions))
	}
}

// remainingCount returns how many transactions this one Plan call may
// serve from version onward, capped to a single storage block — this
// bounds one cache read and one trim pass, not the cold-tier fan-out
// width (see trueRemaining for that).
func (s *Subscription) remainingCount(version uint64) uint64 {
	batchCap := constants.TransactionsPerStorageBlock
	if s.req.TransactionsCount == nil {
		return batchCap
	}
	end := s.req.StartingVersion + *s.req.TransactionsCount
	if version >= end {
		return 0
	}
	if end-version < batchCap {
		return end - version
	}
	return batchCap
}

// trueRemaining returns the subscription's real, uncapped count of
// transactions left to deliver from version onward (nil for an unbounded
// subscription), matching the original service's Option<u64>
// transactions_count threaded into its fan-out task-count formula.
func (s *Subscription) trueRemaining(version uint64) *uint64 {
	if s.req.TransactionsCount == nil {
		return nil
	}
	end := s.req.StartingVersion + *s.req.TransactionsCount
	var remaining uint64
	if version < end {
		remaining = end - version
	}
	return &remaining
}

// deliver chunks transactions to MessageSizeLimit and pushes each chunk to
// the response channel, bounded by ResponseChannelSendTimeout.
func (s *Subscription) deliver(ctx context.Context, txns []*indexerv1.Transaction, labels metrics.RequestLabels) error {
	for len(txns) > 0 {
		chunk, rest := chunkBySize(txns, constants.MessageSizeLimit)
		txns = rest

		resp := &indexerv1.TransactionsResponse{ChainId: s.chainID, Transactions: chunk}

		timer := time.NewTimer(constants.ResponseChannelSendTimeout)
		select {
		case s.out <- resp:
			timer.Stop()
		case <-timer.C:
			return xerrors.FailedTo("send response chunk", context.DeadlineExceeded)
		case <-ctx.Done():
			timer.Stop()
			s.state = StateDisconnected
			return nil
		}

		s.delivered += uint64(len(chunk))
		s.rate.TickNow(uint64(len(chunk)))
		metrics.SetTPS(s.req.ConnectionID, s.rate.RatePerSecond())

		endVersion := chunk[len(chunk)-1].Version
		var latency *float64
		if ts := chunk[len(chunk)-1].Timestamp; ts != nil {
			l := time.Since(time.Unix(ts.Seconds, int64(ts.Nanos))).Seconds()
			latency = &l
		}
		metrics.RecordBatchDelivered(labels, len(chunk), endVersion, resp.EncodedLen(), latency, s.req.UserClassification)
		telemetry.LogStep(ctx, telemetry.Event{Step: telemetry.StepChunkSent, ConnectionID: s.req.ConnectionID, EndVersion: int64Ptr(int64(endVersion))})
	}
	telemetry.LogStep(ctx, telemetry.Event{Step: telemetry.StepAllChunksSent, ConnectionID: s.req.ConnectionID})
	return nil
}

func (s *Subscription) recordShortConnectionIfNeeded() {
	if time.Since(s.startedAt) < constants.ShortConnectionDuration {
		metrics.RecordShortConnection(metrics.RequestLabels{
			APIKeyName:    s.req.APIKeyName,
			Email:         s.req.Email,
			ProcessorName: s.req.ProcessorName,
		})
	}
}

func chunkBySize(txns []*indexerv1.Transaction, limit int) (chunk, rest []*indexerv1.Transaction) {
	size := 0
	i := 0
	for i < len(txns) {
		l := txns[i].EncodedLen()
		if i > 0 && size+l > limit {
			break
		}
		size += l
		i++
	}
	if i == 0 && len(txns) > 0 {
		i = 1 // always make progress even if a single transaction exceeds limit
	}
	return txns[:i], txns[i:]
}

func int64Ptr(v int64) *int64 { return &v }

func toError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return xerrors.FailedTo("recover from panic", nil)
}

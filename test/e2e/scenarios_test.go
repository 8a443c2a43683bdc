package e2e

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/constants"
)

func uint64Ptr(v uint64) *uint64 { return &v }

func collect(stream *fakeStream, done <-chan error, timeout time.Duration) ([]*indexerv1.TransactionsResponse, error) {
	var responses []*indexerv1.TransactionsResponse
	deadline := time.After(timeout)
	for {
		select {
		case resp := <-stream.recvd:
			responses = append(responses, resp)
		case err := <-done:
			// Drain anything already queued before returning.
			for {
				select {
				case resp := <-stream.recvd:
					responses = append(responses, resp)
				default:
					return responses, err
				}
			}
		case <-deadline:
			return responses, nil
		}
	}
}

var _ = Describe("GetTransactions", func() {
	var h *testHarness

	AfterEach(func() {
		if h != nil {
			h.close()
		}
	})

	// Scenario 5: a bounded subscription (explicit transactions_count)
	// delivers exactly that many versions, in order, then ends cleanly.
	It("delivers a bounded subscription and terminates", func() {
		h = newTestHarness(4)
		h.setCacheWindow(0, 1000)
		for v := uint64(0); v < 10; v++ {
			h.seedCacheTxn(v)
		}

		req := &indexerv1.GetTransactionsRequest{StartingVersion: uint64Ptr(0), TransactionsCount: uint64Ptr(10)}
		stream := newFakeStream(context.Background())
		done := make(chan error, 1)
		go func() { done <- h.server.GetTransactions(req, stream) }()

		responses, err := collect(stream, done, 3*time.Second)
		Expect(err).NotTo(HaveOccurred())

		var versions []uint64
		for _, r := range responses {
			for _, t := range r.Transactions {
				versions = append(versions, t.Version)
			}
		}
		Expect(versions).To(HaveLen(10))
		for i, v := range versions {
			Expect(v).To(Equal(uint64(i)))
		}
	})

	// Scenario 6: the requested range has been evicted from the cache; the
	// planner must fall back to the cold tier and still deliver a
	// contiguous, correctly ordered run.
	It("falls back to cold storage once the cache window has evicted the range", func() {
		h = newTestHarness(4)
		h.setCacheWindow(5000, 6000) // cache only retains [5000,6000)
		for i := uint64(0); i < constants.MaxFetchTasksPerRequest; i++ {
			h.store.putBlock(i*constants.TransactionsPerStorageBlock, int(constants.TransactionsPerStorageBlock))
		}

		req := &indexerv1.GetTransactionsRequest{StartingVersion: uint64Ptr(10), TransactionsCount: uint64Ptr(25)}
		stream := newFakeStream(context.Background())
		done := make(chan error, 1)
		go func() { done <- h.server.GetTransactions(req, stream) }()

		responses, err := collect(stream, done, 3*time.Second)
		Expect(err).NotTo(HaveOccurred())

		var versions []uint64
		for _, r := range responses {
			for _, t := range r.Transactions {
				versions = append(versions, t.Version)
			}
		}
		Expect(versions).To(HaveLen(25))
		Expect(versions[0]).To(Equal(uint64(10)))
		Expect(versions[len(versions)-1]).To(Equal(uint64(34)))
	})

	// Scenario 7: the client requests a version ahead of the cache head;
	// the subscription must wait (DataNotReady) rather than error, and
	// deliver once the cache catches up.
	It("waits out a request ahead of the cache head instead of erroring", func() {
		h = newTestHarness(4)
		h.setCacheWindow(0, 50) // latest=50, request starts at 100: not ready yet

		req := &indexerv1.GetTransactionsRequest{StartingVersion: uint64Ptr(100), TransactionsCount: uint64Ptr(3)}
		stream := newFakeStream(context.Background())
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- h.server.GetTransactions(req, stream) }()

		// While the subscription is parked in WaitRetry, advance the cache
		// head and seed the requested versions.
		time.Sleep(120 * time.Millisecond)
		h.setCacheWindow(0, 200)
		for v := uint64(100); v < 103; v++ {
			h.seedCacheTxn(v)
		}

		responses, err := collect(stream, done, 2*time.Second)
		_ = ctx
		Expect(err).NotTo(HaveOccurred())

		var versions []uint64
		for _, r := range responses {
			for _, t := range r.Transactions {
				versions = append(versions, t.Version)
			}
		}
		Expect(versions).To(Equal([]uint64{100, 101, 102}))
	})

	// Scenario 8: a slow subscriber that never drains its stream should not
	// wedge the server forever; cancelling its context must unwind the
	// subscription as Disconnected rather than hang.
	It("unwinds a slow/abandoned subscriber on context cancellation", func() {
		h = newTestHarness(4)
		h.setCacheWindow(0, 100000)
		for v := uint64(0); v < 50; v++ {
			h.seedCacheTxn(v)
		}

		req := &indexerv1.GetTransactionsRequest{StartingVersion: uint64Ptr(0)}
		ctx, cancel := context.WithCancel(context.Background())
		stream := newFakeStream(ctx)
		done := make(chan error, 1)
		go func() { done <- h.server.GetTransactions(req, stream) }()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			Expect(err).NotTo(HaveOccurred())
		case <-time.After(2 * time.Second):
			Fail("subscription did not unwind after client cancellation")
		}
	})

	// Scenario 9: the cache and cold store disagree on which chain they
	// serve; Bootstrap must reject the subscription instead of mixing data
	// from two chains.
	It("rejects a subscription when cache and cold store disagree on chain id", func() {
		h = newTestHarness(4)
		h.store.metadata.ChainID = 7 // mismatched against the cache's chain_id=4
		h.setCacheWindow(0, 100)

		req := &indexerv1.GetTransactionsRequest{StartingVersion: uint64Ptr(0), TransactionsCount: uint64Ptr(1)}
		stream := newFakeStream(context.Background())

		err := h.server.GetTransactions(req, stream)
		Expect(err).To(HaveOccurred())
	})

	// Scenario 10: a request that omits starting_version entirely must be
	// rejected as ABORTED, distinct from a validator-rejected malformed
	// request (InvalidArgument) — the field's absence is structurally
	// different from an explicit, merely-out-of-range value.
	It("aborts a request that omits starting_version", func() {
		h = newTestHarness(4)
		h.setCacheWindow(0, 100)

		req := &indexerv1.GetTransactionsRequest{TransactionsCount: uint64Ptr(1)}
		stream := newFakeStream(context.Background())

		err := h.server.GetTransactions(req, stream)
		Expect(status.Code(err)).To(Equal(codes.Aborted))
	})
})

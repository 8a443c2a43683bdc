package e2e

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/metadata"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/constants"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/cache"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/coldstore"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/planner"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/streamserver"
)

// memStore is an in-memory coldstore.Store double shared across scenarios.
type memStore struct {
	metadata *coldstore.Metadata
	blocks   map[uint64][]byte
}

func newMemStore(chainID uint64) *memStore {
	return &memStore{metadata: &coldstore.Metadata{ChainID: chainID}, blocks: map[uint64][]byte{}}
}

func (m *memStore) putBlock(start uint64, count int) {
	txns := make([]*indexerv1.Transaction, count)
	for i := 0; i < count; i++ {
		txns[i] = &indexerv1.Transaction{Version: start + uint64(i)}
	}
	b, _ := json.Marshal(coldstore.StorageBlock{StartVersion: start, Transactions: txns})
	m.blocks[start] = b
}

func (m *memStore) GetMetadata(ctx context.Context) (*coldstore.Metadata, error) { return m.metadata, nil }
func (m *memStore) GetBlock(ctx context.Context, start uint64) ([]byte, error) {
	b, ok := m.blocks[start]
	if !ok {
		return nil, fmt.Errorf("block not found: %d", start)
	}
	return b, nil
}

type testHarness struct {
	mr     *miniredis.Miniredis
	cache  *cache.Client
	store  *memStore
	cold   *coldstore.Adapter
	server *streamserver.Server
}

func newTestHarness(chainID uint64) *testHarness {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	mr.Set("chain_id", itoa(chainID))
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.New(rdb)
	store := newMemStore(chainID)
	cs := coldstore.New(store, constants.NumDataFetchRetries)
	p := planner.New(c, cs)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel) // keep e2e output quiet
	return &testHarness{mr: mr, cache: c, store: store, cold: cs, server: streamserver.New(p, c, cs, log)}
}

func (h *testHarness) setCacheWindow(oldest, latest uint64) {
	h.mr.Set("oldest_version", itoa(oldest))
	h.mr.Set("latest_version", itoa(latest))
}

func (h *testHarness) seedCacheTxn(v uint64) {
	b, _ := json.Marshal(&indexerv1.Transaction{Version: v})
	h.mr.Set("txn:"+itoa(v), string(b))
}

func (h *testHarness) close() { h.mr.Close() }

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// fakeStream implements indexerv1.RawData_GetTransactionsServer backed by a
// Go channel, standing in for a real gRPC stream in these scenario tests.
type fakeStream struct {
	ctx     context.Context
	recvd   chan *indexerv1.TransactionsResponse
	headers metadata.MD
}

func newFakeStream(ctx context.Context) *fakeStream {
	return &fakeStream{ctx: ctx, recvd: make(chan *indexerv1.TransactionsResponse, 64)}
}

func (f *fakeStream) Send(m *indexerv1.TransactionsResponse) error {
	f.recvd <- m
	return nil
}
func (f *fakeStream) SetHeader(md metadata.MD) error  { return nil }
func (f *fakeStream) SendHeader(md metadata.MD) error { f.headers = md; return nil }
func (f *fakeStream) SetTrailer(md metadata.MD)       {}
func (f *fakeStream) Context() context.Context        { return f.ctx }
func (f *fakeStream) SendMsg(m interface{}) error      { return nil }
func (f *fakeStream) RecvMsg(m interface{}) error      { return nil }

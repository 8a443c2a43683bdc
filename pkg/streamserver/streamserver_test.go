package streamserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/cache"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/coldstore"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/planner"
)

type fakeStore struct {
	metadata *coldstore.Metadata
	blocks   map[uint64][]byte
}

func (f *fakeStore) GetMetadata(ctx context.Context) (*coldstore.Metadata, error) { return f.metadata, nil }
func (f *fakeStore) GetBlock(ctx context.Context, start uint64) ([]byte, error) {
	b, ok := f.blocks[start]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return b, nil
}

// fakeStream implements indexerv1.RawData_GetTransactionsServer without a
// real network connection, for exercising Server.GetTransactions directly.
type fakeStream struct {
	ctx     context.Context
	sent    []*indexerv1.TransactionsResponse
	headers metadata.MD
}

func (f *fakeStream) Send(m *indexerv1.TransactionsResponse) error {
	f.sent = append(f.sent, m)
	return nil
}
func (f *fakeStream) SetHeader(md metadata.MD) error  { return nil }
func (f *fakeStream) SendHeader(md metadata.MD) error { f.headers = md; return nil }
func (f *fakeStream) SetTrailer(md metadata.MD)       {}
func (f *fakeStream) Context() context.Context        { return f.ctx }
func (f *fakeStream) SendMsg(m interface{}) error      { return nil }
func (f *fakeStream) RecvMsg(m interface{}) error      { return nil }

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

func TestGetTransactions_DeliversBoundedStreamAndSendsConnectionHeader(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.Set("chain_id", "4")
	mr.Set("latest_version", "100")
	mr.Set("oldest_version", "0")
	for v := uint64(0); v < 3; v++ {
		b, _ := json.Marshal(&indexerv1.Transaction{Version: v})
		mr.Set("txn:"+itoa(v), string(b))
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.New(rdb)
	cs := coldstore.New(&fakeStore{metadata: &coldstore.Metadata{ChainID: 4}, blocks: map[uint64][]byte{}}, 1)
	p := planner.New(c, cs)

	srv := New(p, c, cs, logrus.New())

	count := uint64(3)
	startVersion := uint64(0)
	req := &indexerv1.GetTransactionsRequest{StartingVersion: &startVersion, TransactionsCount: &count}
	stream := &fakeStream{ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-aptos-processor-name", "test-processor"))}

	done := make(chan error, 1)
	go func() { done <- srv.GetTransactions(req, stream) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("GetTransactions() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("GetTransactions() did not complete in time")
	}

	if stream.headers.Get("x-aptos-connection-id") == nil {
		t.Error("GetTransactions() did not send a connection id header")
	}

	delivered := 0
	for _, resp := range stream.sent {
		delivered += len(resp.Transactions)
	}
	if delivered != 3 {
		t.Errorf("delivered = %d, want 3", delivered)
	}
}

func TestGetTransactions_RejectsInvalidRequest(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.New(rdb)
	cs := coldstore.New(&fakeStore{metadata: &coldstore.Metadata{}, blocks: map[uint64][]byte{}}, 1)
	p := planner.New(c, cs)
	srv := New(p, c, cs, logrus.New())

	stream := &fakeStream{ctx: context.Background()}
	// TransactionsCount carries `validate:"omitempty,gt=0"`; an explicit
	// zero count is nonsensical (the spec reserves it for "unbounded" via a
	// nil pointer) and must fail validation before any fetch work happens.
	zero := uint64(0)
	req := &indexerv1.GetTransactionsRequest{StartingVersion: &zero, TransactionsCount: &zero}
	err := srv.GetTransactions(req, stream)
	if err == nil {
		t.Fatal("GetTransactions() error = nil, want validation error")
	}
}

func TestGetTransactions_AbortsOnMissingStartingVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.New(rdb)
	cs := coldstore.New(&fakeStore{metadata: &coldstore.Metadata{}, blocks: map[uint64][]byte{}}, 1)
	p := planner.New(c, cs)
	srv := New(p, c, cs, logrus.New())

	stream := &fakeStream{ctx: context.Background()}
	req := &indexerv1.GetTransactionsRequest{}
	err := srv.GetTransactions(req, stream)
	if status.Code(err) != codes.Aborted {
		t.Fatalf("GetTransactions() code = %v, want Aborted", status.Code(err))
	}
}

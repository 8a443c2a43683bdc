// Package streamserver implements the Stream Server (SPEC_FULL.md §5):
// the GetTransactions RPC entrypoint. It validates the request, extracts
// request metadata, assigns a connection id, and spawns one Subscription
// Worker goroutine per call, forwarding its bounded response channel onto
// the gRPC stream.
package streamserver

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/constants"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/logging"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/xerrors"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/cache"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/coldstore"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/planner"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/worker"
)

// Request metadata header names, mirroring the original service's incoming
// gRPC metadata contract (SPEC_FULL.md §7). Each defaults to "unspecified"
// when the client omits it.
const (
	headerAPIKeyName         = "x-api-key-name"
	headerEmail               = "x-api-email"
	headerProcessorName       = "x-aptos-processor-name"
	headerUserClassification  = "x-user-classification"
	unspecified               = "unspecified"
)

var validate = validator.New()

// Server implements indexerv1.RawDataServer.
type Server struct {
	indexerv1.UnimplementedRawDataServer

	planner   *planner.Planner
	cache     *cache.Client
	coldStore *coldstore.Adapter
	log       *logrus.Logger
}

// New builds a Server.
func New(p *planner.Planner, c *cache.Client, cs *coldstore.Adapter, log *logrus.Logger) *Server {
	return &Server{planner: p, cache: c, coldStore: cs, log: log}
}

// GetTransactions serves one subscriber: validates the request, builds a
// Subscription Worker, and pumps its output onto stream until the
// subscription terminates.
func (s *Server) GetTransactions(req *indexerv1.GetTransactionsRequest, stream indexerv1.RawData_GetTransactionsServer) error {
	if req.StartingVersion == nil {
		return status.Error(codes.Aborted, "starting_version is required")
	}
	if err := validate.Struct(req); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	connectionID := uuid.New().String()
	meta := requestMetadataFromContext(stream.Context())

	if err := stream.SendHeader(metadata.Pairs("x-aptos-connection-id", connectionID)); err != nil {
		return status.Errorf(codes.Internal, "failed to send response header: %v", err)
	}

	out := make(chan *indexerv1.TransactionsResponse, constants.DefaultResponseChannelCapacity)
	log := s.log.WithFields(logging.RequestFields(meta.apiKeyName, meta.email, meta.processorName, connectionID, meta.userClassification).ToLogrus())

	sub := worker.New(worker.Request{
		ConnectionID:       connectionID,
		StartingVersion:    *req.StartingVersion,
		TransactionsCount:  req.GetTransactionsCount(),
		APIKeyName:         meta.apiKeyName,
		Email:              meta.email,
		ProcessorName:      meta.processorName,
		UserClassification: meta.userClassification,
	}, s.planner, s.cache, s.coldStore, out, log)

	ctx := stream.Context()
	runErr := make(chan error, 1)
	go func() { runErr <- sub.Run(ctx) }()

	for {
		select {
		case resp, ok := <-out:
			if !ok {
				return waitForRunErr(runErr)
			}
			if err := stream.Send(resp); err != nil {
				return status.Errorf(codes.Unavailable, "failed to send to subscriber: %v", err)
			}
		case err := <-runErr:
			drainRemaining(stream, out)
			return statusFromRunErr(err)
		}
	}
}

// statusFromRunErr classifies a Subscription's terminal error. Bootstrap-
// class failures (the cache and cold store disagreeing on chain id, or the
// cache itself being unreachable) are the subscriber's upstream dependency
// being unavailable, not a bug in this service, so they surface as
// codes.Unavailable; everything else falls back to codes.Internal.
func statusFromRunErr(err error) error {
	if err == nil {
		return nil
	}
	var chainIDErr *xerrors.ChainIDMismatchError
	if errors.As(err, &chainIDErr) {
		return status.Errorf(codes.Unavailable, "%v", err)
	}
	var opErr *xerrors.OperationError
	if errors.As(err, &opErr) && opErr.Component == "cache" {
		return status.Errorf(codes.Unavailable, "%v", err)
	}
	return status.Errorf(codes.Internal, "%v", err)
}

func drainRemaining(stream indexerv1.RawData_GetTransactionsServer, out chan *indexerv1.TransactionsResponse) {
	for {
		select {
		case resp, ok := <-out:
			if !ok {
				return
			}
			_ = stream.Send(resp)
		default:
			return
		}
	}
}

func waitForRunErr(runErr chan error) error {
	return statusFromRunErr(<-runErr)
}

type requestMetadata struct {
	apiKeyName          string
	email               string
	processorName       string
	userClassification  string
}

func requestMetadataFromContext(ctx context.Context) requestMetadata {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return requestMetadata{apiKeyName: unspecified, email: unspecified, processorName: unspecified, userClassification: unspecified}
	}
	return requestMetadata{
		apiKeyName:         firstOrDefault(md, headerAPIKeyName),
		email:              firstOrDefault(md, headerEmail),
		processorName:      firstOrDefault(md, headerProcessorName),
		userClassification: firstOrDefault(md, headerUserClassification),
	}
}

func firstOrDefault(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 || vals[0] == "" {
		return unspecified
	}
	return vals[0]
}

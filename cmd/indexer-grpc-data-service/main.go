// Command indexer-grpc-data-service runs the transaction-streaming data
// service: a gRPC RawData server backed by a Redis hot cache tier and an
// S3/disk cold storage tier.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"

	indexerv1 "github.com/aptos-labs/indexer-grpc-data-service/genproto/indexer/v1"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/config"
	"github.com/aptos-labs/indexer-grpc-data-service/internal/metrics"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/cache"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/coldstore"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/planner"
	"github.com/aptos-labs/indexer-grpc-data-service/pkg/streamserver"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service's YAML configuration file")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	cfgUpdates, stopConfigWatch, err := config.Watch(*configPath)
	if err != nil {
		log.WithError(err).Warn("failed to start config file watcher; hot reload disabled")
	} else {
		defer func() {
			if err := stopConfigWatch(); err != nil {
				log.WithError(err).Warn("failed to stop config file watcher")
			}
		}()
		go watchConfig(cfgUpdates, log)
	}

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("failed to shut down tracer provider")
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddress, PoolSize: cfg.Cache.PoolSize})
	cacheClient := cache.New(rdb)

	store, err := buildColdStore(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build cold store")
	}
	coldStoreAdapter := coldstore.New(store, cfg.Tunables.NumDataFetchRetries)

	p := planner.New(cacheClient, coldStoreAdapter)
	server := streamserver.New(p, cacheClient, coldStoreAdapter, log)

	grpcServer := grpc.NewServer(grpc.MaxSendMsgSize(cfg.Tunables.MessageSizeLimit))
	indexerv1.RegisterRawDataServer(grpcServer, server)

	adminServer := metrics.NewAdminServer(":"+cfg.Server.MetricsPort, func() bool { return true })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("admin server exited")
		}
	}()

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.WithError(err).Fatal("failed to bind gRPC listener")
	}
	go func() {
		log.WithField("port", cfg.Server.GRPCPort).Info("serving GetTransactions")
		if err := grpcServer.Serve(lis); err != nil {
			log.WithError(err).Error("gRPC server exited")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	grpcServer.GracefulStop()
	_ = adminServer.Shutdown(context.Background())
}

// watchConfig drains reloaded configs off the fsnotify-backed channel for
// the process lifetime. None of the running adapters hold a mutable
// config reference today (they capture their tunables once at
// construction), so a reload only takes effect on the next restart; this
// loop exists so an edit to the config file is at least visible in the
// logs rather than silently ignored.
func watchConfig(updates <-chan *config.Config, log *logrus.Logger) {
	for range updates {
		log.Info("configuration file changed; restart the process to pick up the new tunables")
	}
}

func buildColdStore(cfg *config.Config) (coldstore.Store, error) {
	switch cfg.ColdStore.Backend {
	case "disk":
		return coldstore.NewDiskStore(cfg.ColdStore.DiskRoot), nil
	default:
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.ColdStore.Region))
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.Region = cfg.ColdStore.Region })
		return coldstore.NewS3Store(client, cfg.ColdStore.BucketName, cfg.ColdStore.Prefix), nil
	}
}

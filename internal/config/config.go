// Package config loads the data service's YAML configuration file, in the
// teacher's internal/config.Load(path) idiom, and optionally watches it for
// changes via fsnotify. A reloaded Config is delivered to the caller; the
// running service only logs it, so new values take effect on restart.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/aptos-labs/indexer-grpc-data-service/internal/constants"
)

// CacheConfig configures the Cache Tier Adapter's Redis connection.
type CacheConfig struct {
	RedisAddress string `yaml:"redis_address"`
	PoolSize     int    `yaml:"pool_size"`
}

// ColdStoreConfig configures the Cold Store Adapter's backing object store.
type ColdStoreConfig struct {
	Backend    string `yaml:"backend"` // "s3" or "disk"
	BucketName string `yaml:"bucket_name"`
	Prefix     string `yaml:"prefix"`
	Region     string `yaml:"region"`
	DiskRoot   string `yaml:"disk_root"`
}

// ServerConfig configures the listeners.
type ServerConfig struct {
	GRPCPort    string `yaml:"grpc_port"`
	MetricsPort string `yaml:"metrics_port"`
}

// TunablesConfig mirrors the §6.5 constants table; zero values fall back
// to internal/constants defaults. The service reads only
// NumDataFetchRetries (the Cold Store Adapter's retry budget) and
// MessageSizeLimit (the gRPC server's send cap) from here; the planner,
// worker and stream server use the internal/constants values directly.
type TunablesConfig struct {
	AheadOfCacheRetrySleep       time.Duration `yaml:"ahead_of_cache_retry_sleep"`
	TransientDataErrorRetrySleep time.Duration `yaml:"transient_data_error_retry_sleep"`
	FileStoreMetadataWait        time.Duration `yaml:"file_store_metadata_wait"`
	ResponseChannelSendTimeout   time.Duration `yaml:"response_channel_send_timeout"`
	ShortConnectionDuration      time.Duration `yaml:"short_connection_duration"`
	MaxFetchTasksPerRequest      uint64        `yaml:"max_fetch_tasks_per_request"`
	TransactionsPerStorageBlock  uint64        `yaml:"transactions_per_storage_block"`
	NumDataFetchRetries          int           `yaml:"num_data_fetch_retries"`
	MessageSizeLimit             int           `yaml:"message_size_limit"`
	ResponseChannelCapacity      int           `yaml:"response_channel_capacity"`
}

// Config is the top-level data service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	ColdStore ColdStoreConfig `yaml:"cold_store"`
	Tunables  TunablesConfig  `yaml:"tunables"`
}

// Load reads and parses the YAML configuration file at path, then fills in
// any zero-valued tunable with its internal/constants default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Tunables.AheadOfCacheRetrySleep == 0 {
		c.Tunables.AheadOfCacheRetrySleep = constants.AheadOfCacheRetrySleep
	}
	if c.Tunables.TransientDataErrorRetrySleep == 0 {
		c.Tunables.TransientDataErrorRetrySleep = constants.TransientDataErrorRetrySleep
	}
	if c.Tunables.FileStoreMetadataWait == 0 {
		c.Tunables.FileStoreMetadataWait = constants.FileStoreMetadataWait
	}
	if c.Tunables.ResponseChannelSendTimeout == 0 {
		c.Tunables.ResponseChannelSendTimeout = constants.ResponseChannelSendTimeout
	}
	if c.Tunables.ShortConnectionDuration == 0 {
		c.Tunables.ShortConnectionDuration = constants.ShortConnectionDuration
	}
	if c.Tunables.MaxFetchTasksPerRequest == 0 {
		c.Tunables.MaxFetchTasksPerRequest = constants.MaxFetchTasksPerRequest
	}
	if c.Tunables.TransactionsPerStorageBlock == 0 {
		c.Tunables.TransactionsPerStorageBlock = constants.TransactionsPerStorageBlock
	}
	if c.Tunables.NumDataFetchRetries == 0 {
		c.Tunables.NumDataFetchRetries = constants.NumDataFetchRetries
	}
	if c.Tunables.MessageSizeLimit == 0 {
		c.Tunables.MessageSizeLimit = constants.MessageSizeLimit
	}
	if c.Tunables.ResponseChannelCapacity == 0 {
		c.Tunables.ResponseChannelCapacity = constants.DefaultResponseChannelCapacity
	}
	if c.Server.GRPCPort == "" {
		c.Server.GRPCPort = "50051"
	}
	if c.Server.MetricsPort == "" {
		c.Server.MetricsPort = "9102"
	}
}

// Watch reloads the config from path whenever the file changes on disk,
// pushing each successfully reloaded Config onto the returned channel
// (buffer of one; a reload is dropped if the previous one has not been
// read yet). The caller is responsible for draining the channel and
// stopping via the returned cancel func.
func Watch(path string) (<-chan *Config, func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start config watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return nil, nil, fmt.Errorf("failed to watch config file %s: %w", path, err)
	}

	out := make(chan *Config, 1)
	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					continue
				}
				select {
				case out <- cfg:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, watcher.Close, nil
}

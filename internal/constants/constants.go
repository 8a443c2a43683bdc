// Package constants holds the tunables from the design's §6.5 table. They
// are plain package-level defaults. internal/config can override
// NumDataFetchRetries and MessageSizeLimit at startup; the other components
// read these values directly, and a config file change takes effect only
// on restart.
package constants

import "time"

const (
	// AheadOfCacheRetrySleep is the delay applied when a request is ahead of
	// the current cache head (CacheCoverage == DataNotReady).
	AheadOfCacheRetrySleep = 50 * time.Millisecond

	// TransientDataErrorRetrySleep is the delay after a Fetch Planner error
	// that is treated as transient (e.g. all cold-tier fan-out tasks failed).
	TransientDataErrorRetrySleep = 1000 * time.Millisecond

	// FileStoreMetadataWait is the poll interval while waiting for the cold
	// store to report metadata during Bootstrap.
	FileStoreMetadataWait = 2000 * time.Millisecond

	// ResponseChannelSendTimeout bounds how long the Worker will block trying
	// to push a chunk to a slow subscriber before giving up.
	ResponseChannelSendTimeout = 120 * time.Second

	// ShortConnectionDuration is the wall-clock threshold below which a
	// terminated subscription counts toward the short-connection metric.
	ShortConnectionDuration = 10 * time.Second

	// MovingAverageWindow is the number of samples the TPS smoother keeps.
	MovingAverageWindow = 10_000

	// MaxFetchTasksPerRequest bounds cold-tier fan-out width.
	MaxFetchTasksPerRequest uint64 = 10

	// TransactionsPerStorageBlock (B) is the cold store's block size.
	TransactionsPerStorageBlock uint64 = 1000

	// NumDataFetchRetries bounds the Cold Store Adapter's per-block retry
	// budget.
	NumDataFetchRetries = 5

	// MessageSizeLimit bounds the encoded size of a single ResponseChunk.
	// 4MB mirrors the default gRPC/Aptos indexer message-size ceiling.
	MessageSizeLimit = 4 * 1024 * 1024

	// DefaultResponseChannelCapacity is the default bound on the per-
	// subscription response channel, i.e. how many ResponseChunks may be
	// in flight to a subscriber at once.
	DefaultResponseChannelCapacity = 5
)

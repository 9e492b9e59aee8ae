package consensusmanager

import (
	"runtime"
	"time"

	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/kaspanet/chainconsensus/domain/consensus/blockdownload"
	"github.com/kaspanet/chainconsensus/util/panics"
)

const (
	// MaxHeadersPerBatch is the largest number of headers a peer may
	// present at once.
	MaxHeadersPerBatch = 2000

	// MaxUnconnectedHeaderBatches is the number of consecutive batches
	// that don't connect to the header tree a peer may present before it
	// is banned.
	MaxUnconnectedHeaderBatches = 10

	// maxDownloadRetries is how many times a failed block download is
	// requested again before the block is given up on.
	maxDownloadRetries = 3
)

const (
	// DefaultMaxBlocksInFlight is the default for Config.MaxBlocksInFlight.
	DefaultMaxBlocksInFlight = 1024

	// DefaultMaxUnconsumedBytes is the default for Config.MaxUnconsumedBytes.
	DefaultMaxUnconsumedBytes = 512 * 1024 * 1024

	// DefaultBanDuration is the default for Config.BanDuration.
	DefaultBanDuration = 24 * time.Hour
)

// Config holds the parameters of a ConsensusManager.
type Config struct {
	Params *chainconfig.Params

	// MaxBlocksInFlight and MaxUnconsumedBytes are the download
	// coordinator's ceilings.
	MaxBlocksInFlight  uint64
	MaxUnconsumedBytes uint64

	// MaxConcurrentPartialValidations bounds the number of blocks that are
	// partially validated at the same time.
	MaxConcurrentPartialValidations int64

	BanDuration time.Duration

	// FatalErrorHandler is called once, with a *FatalError, when the
	// manager halts.
	FatalErrorHandler func(err error)

	// Metrics of the download coordinator. nil disables them.
	Metrics *blockdownload.Metrics
}

// DefaultConfig returns the default configuration for the given network.
func DefaultConfig(params *chainconfig.Params) *Config {
	return &Config{
		Params:                          params,
		MaxBlocksInFlight:               DefaultMaxBlocksInFlight,
		MaxUnconsumedBytes:              DefaultMaxUnconsumedBytes,
		MaxConcurrentPartialValidations: int64(runtime.NumCPU()),
		BanDuration:                     DefaultBanDuration,
		FatalErrorHandler: func(err error) {
			panics.Exit(log, err.Error())
		},
	}
}

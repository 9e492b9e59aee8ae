package testutils

import (
	"testing"

	"github.com/kaspanet/chainconsensus/domain/chainconfig"
)

// ForAllNets runs the passed testFunc with all available networks. Each
// network's params are cloned, so testFunc may modify them.
func ForAllNets(t *testing.T, testFunc func(*testing.T, *chainconfig.Params)) {
	allParams := []chainconfig.Params{
		chainconfig.MainnetParams,
		chainconfig.TestnetParams,
		chainconfig.SimnetParams,
	}

	for _, params := range allParams {
		params := params
		t.Run(params.Name, func(t *testing.T) {
			t.Parallel()
			testFunc(t, &params)
		})
	}
}

// SimnetParamsWithMaxReorgLength returns a clone of the simnet params with
// the given maximum reorg length.
func SimnetParamsWithMaxReorgLength(maxReorgLength uint64) *chainconfig.Params {
	params := chainconfig.SimnetParams
	params.MaxReorgLength = maxReorgLength
	return &params
}

package config

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/pkg/errors"
)

// NetworkFlags holds the network configuration, that is which network is selected.
type NetworkFlags struct {
	Testnet bool `long:"testnet" description:"Use the test network"`
	Simnet  bool `long:"simnet" description:"Use the simulation test network"`

	ActiveNetParams *chainconfig.Params
}

// ResolveNetwork parses the network command line argument and sets
// ActiveNetParams accordingly. It returns error if more than one network
// was selected, nil otherwise.
func (networkFlags *NetworkFlags) ResolveNetwork(parser *flags.Parser) error {
	// ActiveNetParams is a copy, so later overrides never touch the
	// package-level network definitions.
	params := chainconfig.MainnetParams
	numNets := 0
	if networkFlags.Testnet {
		numNets++
		params = chainconfig.TestnetParams
	}
	if networkFlags.Simnet {
		numNets++
		params = chainconfig.SimnetParams
	}
	if numNets > 1 {
		err := errors.New("Multiple networks parameters (testnet, simnet) cannot be used " +
			"together. Please choose only one network")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return err
	}

	networkFlags.ActiveNetParams = &params
	return nil
}

// NetParams returns the ActiveNetParams
func (networkFlags *NetworkFlags) NetParams() *chainconfig.Params {
	return networkFlags.ActiveNetParams
}

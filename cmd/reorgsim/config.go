package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/chainconsensus/infrastructure/config"
	"github.com/pkg/errors"
)

type simulationFlags struct {
	ChainALength      int  `long:"chainalength" default:"30" description:"Number of blocks in the chain announced first"`
	ForkHeight        int  `long:"forkheight" default:"20" description:"Height of the block the competing chain forks from"`
	ChainBLength      int  `long:"chainblength" default:"5" description:"Number of blocks in the competing, heavier chain"`
	InvalidBlock      int  `long:"invalidblock" description:"1-based position in the competing chain of a block that fails full validation -- 0 disables"`
	DisconnectFirst   bool `long:"disconnectfirst" description:"Disconnect the first peer before the competing chain is announced"`
	KeepDB            bool `long:"keepdb" description:"Keep the simulation database instead of deleting it on exit"`
	PrintBlockMetrics bool `long:"printmetrics" description:"Print the download coordinator metrics when done"`
}

type simulationConfig struct {
	*config.Config
	simulationFlags
}

func parseConfig(args []string) (*simulationConfig, error) {
	cfg, remainingArgs, err := config.LoadConfig(args)
	if err != nil {
		return nil, err
	}

	simFlags := simulationFlags{}
	parser := flags.NewParser(&simFlags, flags.HelpFlag)
	_, err = parser.ParseArgs(remainingArgs)
	if err != nil {
		return nil, err
	}

	simCfg := &simulationConfig{Config: cfg, simulationFlags: simFlags}
	err = simCfg.validate()
	if err != nil {
		return nil, err
	}
	return simCfg, nil
}

func (cfg *simulationConfig) validate() error {
	if cfg.ChainALength < 1 || cfg.ChainBLength < 1 {
		return errors.New("both chains must have at least one block")
	}
	if cfg.ForkHeight < 0 || cfg.ForkHeight > cfg.ChainALength {
		return errors.Errorf("--forkheight must be between 0 and --chainalength (%d)", cfg.ChainALength)
	}
	if cfg.InvalidBlock < 0 || cfg.InvalidBlock > cfg.ChainBLength {
		return errors.Errorf("--invalidblock must be between 0 and --chainblength (%d)", cfg.ChainBLength)
	}
	return nil
}

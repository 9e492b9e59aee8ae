package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/kaspanet/chainconsensus/domain/consensus/consensusmanager"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, _, err := LoadConfig([]string{"--appdir", t.TempDir()})
	if err != nil {
		t.Fatalf("TestLoadConfigDefaults: LoadConfig: %s", err)
	}
	if cfg.NetParams().Name != chainconfig.MainnetParams.Name {
		t.Fatalf("TestLoadConfigDefaults: expected mainnet, got %s", cfg.NetParams().Name)
	}
	if cfg.NetParams().MaxReorgLength != chainconfig.MainnetParams.MaxReorgLength {
		t.Fatalf("TestLoadConfigDefaults: expected the network's max reorg length, got %d",
			cfg.NetParams().MaxReorgLength)
	}
	if !strings.HasSuffix(cfg.DataDir, filepath.Join("data", "mainnet")) {
		t.Fatalf("TestLoadConfigDefaults: unexpected data dir %s", cfg.DataDir)
	}

	managerConfig := cfg.ConsensusManagerConfig(nil)
	if managerConfig.MaxBlocksInFlight != consensusmanager.DefaultMaxBlocksInFlight ||
		managerConfig.MaxUnconsumedBytes != consensusmanager.DefaultMaxUnconsumedBytes ||
		managerConfig.BanDuration != consensusmanager.DefaultBanDuration {
		t.Fatalf("TestLoadConfigDefaults: unexpected consensus manager config %+v", managerConfig)
	}
	if managerConfig.MaxConcurrentPartialValidations <= 0 {
		t.Fatalf("TestLoadConfigDefaults: expected a positive number of partial validations")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	checkpointHash := chainconfig.SimnetParams.GenesisHash.String()
	cfg, _, err := LoadConfig([]string{
		"--appdir", t.TempDir(),
		"--simnet",
		"--maxreorglength=5",
		"--assumevalid=none",
		"--addcheckpoint=7:" + checkpointHash,
		"--maxblocksinflight=16",
		"--maxunconsumedmb=2",
		"--maxpartialvalidations=3",
		"--banduration=1h",
	})
	if err != nil {
		t.Fatalf("TestLoadConfigOverrides: LoadConfig: %s", err)
	}

	params := cfg.NetParams()
	if params.Name != chainconfig.SimnetParams.Name || params.MaxReorgLength != 5 || params.AssumeValid != nil {
		t.Fatalf("TestLoadConfigOverrides: unexpected params %+v", params)
	}
	hash, ok := params.CheckpointAt(7)
	if !ok || hash.String() != checkpointHash {
		t.Fatalf("TestLoadConfigOverrides: expected a checkpoint at height 7")
	}
	if chainconfig.SimnetParams.MaxReorgLength == 5 || len(chainconfig.SimnetParams.Checkpoints) != 0 {
		t.Fatalf("TestLoadConfigOverrides: the network definition itself was modified")
	}

	managerConfig := cfg.ConsensusManagerConfig(nil)
	if managerConfig.Params != params {
		t.Fatalf("TestLoadConfigOverrides: the consensus manager didn't get the resolved params")
	}
	if managerConfig.MaxBlocksInFlight != 16 ||
		managerConfig.MaxUnconsumedBytes != 2*1024*1024 ||
		managerConfig.MaxConcurrentPartialValidations != 3 ||
		managerConfig.BanDuration != time.Hour {
		t.Fatalf("TestLoadConfigOverrides: unexpected consensus manager config %+v", managerConfig)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"two networks", []string{"--testnet", "--simnet"}},
		{"short ban", []string{"--banduration=10ms"}},
		{"negative reorg length", []string{"--maxreorglength=-2"}},
		{"zero blocks in flight", []string{"--maxblocksinflight=0"}},
		{"malformed assume valid", []string{"--assumevalid=xyz"}},
		{"malformed checkpoint", []string{"--addcheckpoint=abc"}},
	}
	for _, test := range tests {
		args := append([]string{"--appdir", t.TempDir()}, test.args...)
		_, _, err := LoadConfig(args)
		if err == nil {
			t.Errorf("TestLoadConfigErrors: %s: expected an error", test.name)
		}
	}
}

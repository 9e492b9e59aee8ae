package main

import (
	"testing"

	"github.com/kaspanet/chainconsensus/domain/consensus/blockdownload"
)

func simulationConfigForTest(t *testing.T, args ...string) *simulationConfig {
	args = append([]string{"--appdir", t.TempDir(), "--simnet"}, args...)
	cfg, err := parseConfig(args)
	if err != nil {
		t.Fatalf("parseConfig: %s", err)
	}
	return cfg
}

func TestSimulationReorgsToHeavierChain(t *testing.T) {
	cfg := simulationConfigForTest(t)
	result, err := runSimulation(cfg, t.TempDir(), blockdownload.NopMetrics())
	if err != nil {
		t.Fatalf("TestSimulationReorgsToHeavierChain: runSimulation: %+v", err)
	}
	err = result.verify()
	if err != nil {
		t.Fatalf("TestSimulationReorgsToHeavierChain: %s", err)
	}
	if result.tipHeight != uint64(cfg.ForkHeight+cfg.ChainBLength) {
		t.Fatalf("TestSimulationReorgsToHeavierChain: expected the tip at height %d, got %d",
			cfg.ForkHeight+cfg.ChainBLength, result.tipHeight)
	}
	if result.disconnected != cfg.ChainALength-cfg.ForkHeight {
		t.Fatalf("TestSimulationReorgsToHeavierChain: expected %d disconnected blocks, got %d",
			cfg.ChainALength-cfg.ForkHeight, result.disconnected)
	}
	if len(result.bannedPeers) != 0 {
		t.Fatalf("TestSimulationReorgsToHeavierChain: unexpected bans %v", result.bannedPeers)
	}
}

func TestSimulationWithInvalidBlock(t *testing.T) {
	cfg := simulationConfigForTest(t, "--invalidblock=3")
	result, err := runSimulation(cfg, t.TempDir(), blockdownload.NopMetrics())
	if err != nil {
		t.Fatalf("TestSimulationWithInvalidBlock: runSimulation: %+v", err)
	}
	err = result.verify()
	if err != nil {
		t.Fatalf("TestSimulationWithInvalidBlock: %s", err)
	}
}

func TestSimulationAfterDisconnect(t *testing.T) {
	cfg := simulationConfigForTest(t, "--disconnectfirst", "--chainalength=12", "--forkheight=4")
	result, err := runSimulation(cfg, t.TempDir(), blockdownload.NopMetrics())
	if err != nil {
		t.Fatalf("TestSimulationAfterDisconnect: runSimulation: %+v", err)
	}
	err = result.verify()
	if err != nil {
		t.Fatalf("TestSimulationAfterDisconnect: %s", err)
	}
}

func TestParseConfigValidation(t *testing.T) {
	tests := [][]string{
		{"--forkheight=40"},
		{"--chainblength=0"},
		{"--invalidblock=9"},
	}
	for _, args := range tests {
		_, err := parseConfig(append([]string{"--appdir", t.TempDir(), "--simnet"}, args...))
		if err == nil {
			t.Errorf("TestParseConfigValidation: expected an error for %v", args)
		}
	}
}

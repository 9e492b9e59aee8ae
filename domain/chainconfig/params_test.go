package chainconfig

import (
	"testing"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/hashes"
)

func TestGenesisBlocks(t *testing.T) {
	allParams := []*Params{&MainnetParams, &TestnetParams, &SimnetParams}
	seen := make(map[externalapi.DomainHash]string)
	for _, params := range allParams {
		genesis := params.GenesisBlock
		if !consensushashing.BlockHash(genesis).Equal(params.GenesisHash) {
			t.Errorf("TestGenesisBlocks: %s: genesis hash doesn't match the genesis block", params.Name)
		}
		if !hashes.PayloadHash(genesis.Payload).Equal(&genesis.Header.PayloadHash) {
			t.Errorf("TestGenesisBlocks: %s: genesis payload hash mismatch", params.Name)
		}
		if !genesis.Header.PrevBlockHash.Equal(&externalapi.ZeroHash) {
			t.Errorf("TestGenesisBlocks: %s: genesis must not have a previous block", params.Name)
		}
		if other, ok := seen[*params.GenesisHash]; ok {
			t.Errorf("TestGenesisBlocks: %s and %s share a genesis hash", params.Name, other)
		}
		seen[*params.GenesisHash] = params.Name
	}
}

func TestCheckpoints(t *testing.T) {
	first := externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{1})
	second := externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{2})
	replacement := externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{3})

	params := SimnetParams.AddCheckpoints(
		Checkpoint{Height: 20, Hash: second},
		Checkpoint{Height: 10, Hash: first},
	)
	if len(SimnetParams.Checkpoints) != 0 {
		t.Fatalf("TestCheckpoints: AddCheckpoints modified the original params")
	}
	if params.LastCheckpoint().Height != 20 {
		t.Fatalf("TestCheckpoints: expected last checkpoint at height 20, got %d", params.LastCheckpoint().Height)
	}

	hash, ok := params.CheckpointAt(10)
	if !ok || !hash.Equal(first) {
		t.Fatalf("TestCheckpoints: expected checkpoint %s at height 10", first)
	}
	if _, ok := params.CheckpointAt(15); ok {
		t.Fatalf("TestCheckpoints: unexpected checkpoint at height 15")
	}

	params = params.AddCheckpoints(Checkpoint{Height: 10, Hash: replacement})
	hash, _ = params.CheckpointAt(10)
	if len(params.Checkpoints) != 2 || !hash.Equal(replacement) {
		t.Fatalf("TestCheckpoints: expected the checkpoint at height 10 to be replaced")
	}
}

func TestParseCheckpoint(t *testing.T) {
	hashString := "0100000000000000000000000000000000000000000000000000000000000000"
	checkpoint, err := ParseCheckpoint("1234:" + hashString)
	if err != nil {
		t.Fatalf("TestParseCheckpoint: %+v", err)
	}
	if checkpoint.Height != 1234 || checkpoint.Hash.String() != hashString {
		t.Fatalf("TestParseCheckpoint: unexpected checkpoint %d:%s", checkpoint.Height, checkpoint.Hash)
	}

	for _, malformed := range []string{"", "1234", "12a4:" + hashString, "1234:nothex", ":" + hashString[:10]} {
		_, err := ParseCheckpoint(malformed)
		if err == nil {
			t.Errorf("TestParseCheckpoint: expected an error for %q", malformed)
		}
	}
}

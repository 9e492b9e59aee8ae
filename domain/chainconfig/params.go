package chainconfig

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

var (
	// bigOne is 1 represented as a big.Int. It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowMax is the highest proof of work value a block can have for
	// the main network. It is the value 2^255 - 1.
	mainPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	// testnetPowMax is the highest proof of work value a block can have
	// for the test network. It is the value 2^239 - 1.
	testnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 239), bigOne)

	// simnetPowMax is the highest proof of work value a block can have
	// for the simulation test network. It is the value 2^255 - 1.
	simnetPowMax = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

// Checkpoint identifies a known good block.
type Checkpoint struct {
	Height uint64
	Hash   *externalapi.DomainHash
}

// Params defines a network by its parameters.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *externalapi.DomainBlock

	// GenesisHash is the starting block hash.
	GenesisHash *externalapi.DomainHash

	// PowMax defines the highest allowed proof of work value for a block
	// as a uint256.
	PowMax *big.Int

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration

	// MaxReorgLength is the deepest fork, counted in blocks behind the
	// consensus tip, that the node accepts. Blocks deeper than that are
	// final. Zero disables the limit.
	MaxReorgLength uint64

	// Checkpoints are ordered from oldest to newest.
	Checkpoints []Checkpoint

	// AssumeValid is the hash of a block whose ancestors are not fully
	// script-validated during initial sync. nil disables it.
	AssumeValid *externalapi.DomainHash
}

// CheckpointAt returns the checkpointed hash at the given height, if any.
func (p *Params) CheckpointAt(height uint64) (*externalapi.DomainHash, bool) {
	i := sort.Search(len(p.Checkpoints), func(i int) bool {
		return p.Checkpoints[i].Height >= height
	})
	if i < len(p.Checkpoints) && p.Checkpoints[i].Height == height {
		return p.Checkpoints[i].Hash, true
	}
	return nil, false
}

// LastCheckpoint returns the newest checkpoint, or nil if there are none.
func (p *Params) LastCheckpoint() *Checkpoint {
	if len(p.Checkpoints) == 0 {
		return nil
	}
	return &p.Checkpoints[len(p.Checkpoints)-1]
}

// AddCheckpoints returns a copy of p with the given checkpoints merged in.
// A checkpoint at a height that already has one replaces it.
func (p *Params) AddCheckpoints(checkpoints ...Checkpoint) *Params {
	byHeight := make(map[uint64]Checkpoint, len(p.Checkpoints)+len(checkpoints))
	for _, checkpoint := range p.Checkpoints {
		byHeight[checkpoint.Height] = checkpoint
	}
	for _, checkpoint := range checkpoints {
		byHeight[checkpoint.Height] = checkpoint
	}

	merged := make([]Checkpoint, 0, len(byHeight))
	for _, checkpoint := range byHeight {
		merged = append(merged, checkpoint)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Height < merged[j].Height
	})

	clone := *p
	clone.Checkpoints = merged
	return &clone
}

// ParseCheckpoint parses a checkpoint in the form <height>:<hash>.
func ParseCheckpoint(checkpointString string) (Checkpoint, error) {
	parts := strings.SplitN(checkpointString, ":", 2)
	if len(parts) != 2 {
		return Checkpoint{}, errors.Errorf("checkpoint %q is not in the form <height>:<hash>", checkpointString)
	}
	height, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Checkpoint{}, errors.Wrapf(err, "checkpoint %q has a malformed height", checkpointString)
	}
	hash, err := externalapi.NewDomainHashFromString(parts[1])
	if err != nil {
		return Checkpoint{}, errors.Wrapf(err, "checkpoint %q has a malformed hash", checkpointString)
	}
	return Checkpoint{Height: height, Hash: hash}, nil
}

// MainnetParams defines the network parameters for the main network.
var MainnetParams = Params{
	Name:               "mainnet",
	GenesisBlock:       &genesisBlock,
	GenesisHash:        genesisHash,
	PowMax:             mainPowMax,
	TargetTimePerBlock: time.Minute,
	MaxReorgLength:     1000,
}

// TestnetParams defines the network parameters for the test network.
var TestnetParams = Params{
	Name:               "testnet",
	GenesisBlock:       &testnetGenesisBlock,
	GenesisHash:        testnetGenesisHash,
	PowMax:             testnetPowMax,
	TargetTimePerBlock: time.Minute,
	MaxReorgLength:     100,
}

// SimnetParams defines the network parameters for the simulation test network.
// This network is similar to the normal test network except it is intended
// for private use within a group of individuals doing simulation testing.
var SimnetParams = Params{
	Name:               "simnet",
	GenesisBlock:       &simnetGenesisBlock,
	GenesisHash:        simnetGenesisHash,
	PowMax:             simnetPowMax,
	TargetTimePerBlock: time.Second,
	MaxReorgLength:     20,
}

package main

import (
	"sync"

	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/hashes"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/math"
	"github.com/pkg/errors"
)

const maxPayloadSize = 1024 * 1024

// simRuleEngine checks proof of work bounds and payload commitments, and
// keeps the chain state as the list of connected hashes.
type simRuleEngine struct {
	mutex        sync.Mutex
	params       *chainconfig.Params
	state        []*externalapi.DomainHash
	invalidBlock *externalapi.DomainHash
}

func newSimRuleEngine(params *chainconfig.Params) *simRuleEngine {
	return &simRuleEngine{
		params: params,
		state:  []*externalapi.DomainHash{params.GenesisHash},
	}
}

// setInvalidBlock makes full validation of blockHash fail.
func (sre *simRuleEngine) setInvalidBlock(blockHash *externalapi.DomainHash) {
	sre.mutex.Lock()
	defer sre.mutex.Unlock()
	sre.invalidBlock = blockHash
}

func (sre *simRuleEngine) ValidateHeader(header *externalapi.DomainBlockHeader, height uint64) error {
	target := math.CompactToBig(header.Bits)
	if target.Sign() <= 0 || target.Cmp(sre.params.PowMax) > 0 {
		return errors.Wrapf(ruleerrors.ErrInvalidHeader, "header at height %d has a target of %x "+
			"which is out of range", height, target)
	}
	return nil
}

func (sre *simRuleEngine) VerifyIntegrity(block *externalapi.DomainBlock, header *externalapi.DomainBlockHeader) error {
	if !hashes.PayloadHash(block.Payload).Equal(&header.PayloadHash) {
		return errors.Wrapf(ruleerrors.ErrBlockIntegrity, "payload of block %s doesn't match its header",
			consensushashing.HeaderHash(header))
	}
	return nil
}

func (sre *simRuleEngine) PartialValidate(block *externalapi.DomainBlock, height uint64) error {
	if len(block.Payload) == 0 || len(block.Payload) > maxPayloadSize {
		return errors.Wrapf(ruleerrors.ErrInvalidBlock, "block at height %d has a payload of %d bytes",
			height, len(block.Payload))
	}
	return nil
}

func (sre *simRuleEngine) FullValidate(block *externalapi.DomainBlock, height uint64, assumedValid bool) error {
	sre.mutex.Lock()
	defer sre.mutex.Unlock()

	blockHash := consensushashing.BlockHash(block)
	stateTip := sre.state[len(sre.state)-1]
	if !block.Header.PrevBlockHash.Equal(stateTip) {
		return errors.Errorf("block %s doesn't extend the state tip %s", blockHash, stateTip)
	}
	if uint64(len(sre.state)) != height {
		return errors.Errorf("block %s is connected at height %d while the state has %d blocks",
			blockHash, height, len(sre.state))
	}
	if !assumedValid && sre.invalidBlock != nil && blockHash.Equal(sre.invalidBlock) {
		return errors.Wrapf(ruleerrors.ErrInvalidBlock, "block %s was set to be invalid", blockHash)
	}
	sre.state = append(sre.state, blockHash)
	return nil
}

func (sre *simRuleEngine) Rewind() (*externalapi.DomainHash, error) {
	sre.mutex.Lock()
	defer sre.mutex.Unlock()

	if len(sre.state) == 1 {
		return nil, errors.New("can't rewind genesis")
	}
	sre.state = sre.state[:len(sre.state)-1]
	return sre.state[len(sre.state)-1], nil
}

func (sre *simRuleEngine) CurrentStateHash() (*externalapi.DomainHash, error) {
	sre.mutex.Lock()
	defer sre.mutex.Unlock()
	return sre.state[len(sre.state)-1], nil
}

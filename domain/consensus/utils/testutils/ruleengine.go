package testutils

import (
	"sync"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
)

// FakeRuleEngine is an in-memory rule engine whose chain state is the list
// of connected block hashes. Blocks and headers can be marked invalid, and
// system failures can be injected.
type FakeRuleEngine struct {
	mutex sync.Mutex

	state []externalapi.DomainHash

	invalidHeaders        map[externalapi.DomainHash]struct{}
	invalidPartial        map[externalapi.DomainHash]struct{}
	invalidFull           map[externalapi.DomainHash]struct{}
	failingFull           map[externalapi.DomainHash]error
	rewindError           error
	partialValidateCalls  []externalapi.DomainHash
	fullValidateCalls     []externalapi.DomainHash
	assumedValidFullCalls int
	rewindCalls           int

	// PartialValidateHook is called, without the engine's lock held, at
	// the start of every PartialValidate call.
	PartialValidateHook func(blockHash *externalapi.DomainHash)
}

// NewFakeRuleEngine returns a FakeRuleEngine whose state holds only genesis.
func NewFakeRuleEngine(genesisHash *externalapi.DomainHash) *FakeRuleEngine {
	return &FakeRuleEngine{
		state:          []externalapi.DomainHash{*genesisHash},
		invalidHeaders: make(map[externalapi.DomainHash]struct{}),
		invalidPartial: make(map[externalapi.DomainHash]struct{}),
		invalidFull:    make(map[externalapi.DomainHash]struct{}),
		failingFull:    make(map[externalapi.DomainHash]error),
	}
}

// SetInvalidHeader makes ValidateHeader reject the given header.
func (fre *FakeRuleEngine) SetInvalidHeader(hash *externalapi.DomainHash) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	fre.invalidHeaders[*hash] = struct{}{}
}

// SetInvalidPartial makes PartialValidate reject the given block.
func (fre *FakeRuleEngine) SetInvalidPartial(hash *externalapi.DomainHash) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	fre.invalidPartial[*hash] = struct{}{}
}

// SetInvalidFull makes FullValidate reject the given block.
func (fre *FakeRuleEngine) SetInvalidFull(hash *externalapi.DomainHash) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	fre.invalidFull[*hash] = struct{}{}
}

// SetFullValidateSystemError makes FullValidate of the given block fail
// with err, which is not a rule error.
func (fre *FakeRuleEngine) SetFullValidateSystemError(hash *externalapi.DomainHash, err error) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	fre.failingFull[*hash] = err
}

// SetRewindError makes every later Rewind call fail with err.
func (fre *FakeRuleEngine) SetRewindError(err error) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	fre.rewindError = err
}

// ClearFailures removes every injected failure.
func (fre *FakeRuleEngine) ClearFailures() {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	fre.invalidHeaders = make(map[externalapi.DomainHash]struct{})
	fre.invalidPartial = make(map[externalapi.DomainHash]struct{})
	fre.invalidFull = make(map[externalapi.DomainHash]struct{})
	fre.failingFull = make(map[externalapi.DomainHash]error)
	fre.rewindError = nil
}

// ValidateHeader implements model.RuleEngine.
func (fre *FakeRuleEngine) ValidateHeader(header *externalapi.DomainBlockHeader, height uint64) error {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	hash := consensushashing.HeaderHash(header)
	if _, ok := fre.invalidHeaders[*hash]; ok {
		return errors.Wrapf(ruleerrors.ErrInvalidHeader, "header %s at height %d is marked invalid", hash, height)
	}
	return nil
}

// VerifyIntegrity implements model.RuleEngine.
func (fre *FakeRuleEngine) VerifyIntegrity(block *externalapi.DomainBlock, header *externalapi.DomainBlockHeader) error {
	if !block.Header.Equal(header) {
		return errors.Wrapf(ruleerrors.ErrBlockIntegrity, "block header doesn't match %s",
			consensushashing.HeaderHash(header))
	}
	if !hashes.PayloadHash(block.Payload).Equal(&header.PayloadHash) {
		return errors.Wrapf(ruleerrors.ErrBlockIntegrity, "payload of %s doesn't match its header",
			consensushashing.HeaderHash(header))
	}
	return nil
}

// PartialValidate implements model.RuleEngine.
func (fre *FakeRuleEngine) PartialValidate(block *externalapi.DomainBlock, height uint64) error {
	hash := consensushashing.BlockHash(block)
	if fre.PartialValidateHook != nil {
		fre.PartialValidateHook(hash)
	}

	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	fre.partialValidateCalls = append(fre.partialValidateCalls, *hash)
	if _, ok := fre.invalidPartial[*hash]; ok {
		return errors.Wrapf(ruleerrors.ErrInvalidBlock, "block %s at height %d is marked invalid", hash, height)
	}
	return nil
}

// FullValidate implements model.RuleEngine.
func (fre *FakeRuleEngine) FullValidate(block *externalapi.DomainBlock, height uint64, assumedValid bool) error {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()

	hash := consensushashing.BlockHash(block)
	fre.fullValidateCalls = append(fre.fullValidateCalls, *hash)
	if assumedValid {
		fre.assumedValidFullCalls++
	}

	if err, ok := fre.failingFull[*hash]; ok {
		return err
	}
	stateTip := fre.state[len(fre.state)-1]
	if block.Header.PrevBlockHash != stateTip {
		return errors.Errorf("block %s doesn't extend the state tip %s", hash, stateTip)
	}
	if uint64(len(fre.state)) != height {
		return errors.Errorf("block %s is connected at height %d, but the state has %d blocks",
			hash, height, len(fre.state))
	}
	if _, ok := fre.invalidFull[*hash]; ok {
		return errors.Wrapf(ruleerrors.ErrInvalidBlock, "block %s is marked invalid", hash)
	}
	fre.state = append(fre.state, *hash)
	return nil
}

// Rewind implements model.RuleEngine.
func (fre *FakeRuleEngine) Rewind() (*externalapi.DomainHash, error) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()

	fre.rewindCalls++
	if fre.rewindError != nil {
		return nil, fre.rewindError
	}
	if len(fre.state) == 1 {
		return nil, errors.New("cannot rewind genesis")
	}
	fre.state = fre.state[:len(fre.state)-1]
	tip := fre.state[len(fre.state)-1]
	return &tip, nil
}

// CurrentStateHash implements model.RuleEngine.
func (fre *FakeRuleEngine) CurrentStateHash() (*externalapi.DomainHash, error) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	tip := fre.state[len(fre.state)-1]
	return &tip, nil
}

// StateChain returns the connected hashes, genesis first.
func (fre *FakeRuleEngine) StateChain() []*externalapi.DomainHash {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	chain := make([]*externalapi.DomainHash, len(fre.state))
	for i := range fre.state {
		hash := fre.state[i]
		chain[i] = &hash
	}
	return chain
}

// ConnectDirectly appends hashes to the state without validation, to set
// up a persisted chain.
func (fre *FakeRuleEngine) ConnectDirectly(blockHashes []*externalapi.DomainHash) {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	for _, hash := range blockHashes {
		fre.state = append(fre.state, *hash)
	}
}

// RewindCalls returns the number of Rewind calls so far.
func (fre *FakeRuleEngine) RewindCalls() int {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	return fre.rewindCalls
}

// FullValidateCalls returns the hashes passed to FullValidate, in order.
func (fre *FakeRuleEngine) FullValidateCalls() []externalapi.DomainHash {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	return append([]externalapi.DomainHash{}, fre.fullValidateCalls...)
}

// AssumedValidFullValidateCalls returns how many FullValidate calls were
// made with assumedValid set.
func (fre *FakeRuleEngine) AssumedValidFullValidateCalls() int {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	return fre.assumedValidFullCalls
}

// PartialValidateCalls returns the hashes passed to PartialValidate, in order.
func (fre *FakeRuleEngine) PartialValidateCalls() []externalapi.DomainHash {
	fre.mutex.Lock()
	defer fre.mutex.Unlock()
	return append([]externalapi.DomainHash{}, fre.partialValidateCalls...)
}

package headertree

import (
	"fmt"
	"math/big"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
)

// ChainedHeader is a header positioned in the header tree. Hash, Header,
// Height and ChainWork never change once the node is created. Everything
// else is guarded by the lock that guards the tree.
type ChainedHeader struct {
	Hash      *externalapi.DomainHash
	Header    *externalapi.DomainBlockHeader
	Height    uint64
	ChainWork *big.Int

	// previousHash is resolved through the tree's registry. nil for the root.
	previousHash *externalapi.DomainHash
	next         []*ChainedHeader

	validationState    externalapi.ValidationState
	availability       externalapi.BlockDataAvailabilityState
	partialStagePassed bool

	block     *externalapi.DomainBlock
	blockSize uint64
}

// PreviousHash returns the hash of the node's parent, or nil for the root.
func (node *ChainedHeader) PreviousHash() *externalapi.DomainHash {
	return node.previousHash
}

// ValidationState returns how far the node's block got through validation.
func (node *ChainedHeader) ValidationState() externalapi.ValidationState {
	return node.validationState
}

// Availability returns where the node's block data is.
func (node *ChainedHeader) Availability() externalapi.BlockDataAvailabilityState {
	return node.availability
}

// Block returns the in-memory block, or nil if it was not downloaded yet or
// was already consumed.
func (node *ChainedHeader) Block() *externalapi.DomainBlock {
	return node.block
}

// IsReadyForFullValidation returns whether the node's block is available
// and passed the partial stage, and the same holds for all of its
// ancestors.
func (node *ChainedHeader) IsReadyForFullValidation() bool {
	return node.partialStagePassed
}

func (node *ChainedHeader) hasBlockData() bool {
	return node.availability == externalapi.AvailabilityBlockAvailable ||
		node.availability == externalapi.AvailabilityConsumed
}

func (node *ChainedHeader) removeChild(child *ChainedHeader) {
	for i, candidate := range node.next {
		if candidate == child {
			node.next = append(node.next[:i], node.next[i+1:]...)
			return
		}
	}
}

func (node *ChainedHeader) String() string {
	return fmt.Sprintf("%s (height %d)", node.Hash, node.Height)
}

package model

import "github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"

// FinalizedBlockStore persists the deepest block the node will never
// rewind past.
type FinalizedBlockStore interface {
	// FinalizedBlock returns found=false if no block was finalized yet.
	FinalizedBlock() (blockHash *externalapi.DomainHash, height uint64, found bool, err error)
	SaveFinalizedBlock(blockHash *externalapi.DomainHash, height uint64) error
}

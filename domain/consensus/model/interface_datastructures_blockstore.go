package model

import "github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"

// BlockStore persists consumed blocks so that they can be reloaded when
// a reorg needs to reconnect them.
type BlockStore interface {
	// GetBlock returns the block with the given hash, or nil if it isn't
	// stored.
	GetBlock(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error)
	PutBlock(blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) error
}

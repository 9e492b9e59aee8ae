package model

import "github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"

// ConsensusListener is notified about changes to the connected chain. The
// notifications are delivered in order while the reorg lock is held, so
// implementations must not call back into the consensus manager.
type ConsensusListener interface {
	BlockConnected(block *externalapi.DomainBlock, blockHash *externalapi.DomainHash, height uint64)
	BlockDisconnected(blockHash *externalapi.DomainHash, height uint64)
}

package model

import "github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"

// BlockPuller fetches block data from the network. Requested blocks arrive
// asynchronously through ConsensusManager.BlockDownloaded.
type BlockPuller interface {
	// RequestBlocksDownload requests the given run of consecutive blocks,
	// the first of which is at firstHeight.
	RequestBlocksDownload(hashes []*externalapi.DomainHash, firstHeight uint64)

	// AverageBlockSizeBytes returns the running average size of
	// downloaded blocks.
	AverageBlockSizeBytes() uint64

	// NewPeerTipClaimed informs the puller which peers can serve blocks up
	// to tipHash.
	NewPeerTipClaimed(peerID externalapi.PeerID, tipHash *externalapi.DomainHash, tipHeight uint64)

	// PeerDisconnected informs the puller that requests in flight to
	// peerID will never be answered.
	PeerDisconnected(peerID externalapi.PeerID)
}

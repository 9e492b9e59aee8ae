package testutils

import (
	"sync"
	"time"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// DownloadRequest is a request recorded by FakeBlockPuller.
type DownloadRequest struct {
	Hashes      []*externalapi.DomainHash
	FirstHeight uint64
}

// FakeBlockPuller records download requests. Tests deliver the blocks
// themselves.
type FakeBlockPuller struct {
	mutex             sync.Mutex
	averageBlockSize  uint64
	requests          []DownloadRequest
	peerTips          map[externalapi.PeerID]externalapi.DomainHash
	disconnectedPeers []externalapi.PeerID
}

// NewFakeBlockPuller returns a FakeBlockPuller reporting the given average
// block size.
func NewFakeBlockPuller(averageBlockSize uint64) *FakeBlockPuller {
	return &FakeBlockPuller{
		averageBlockSize: averageBlockSize,
		peerTips:         make(map[externalapi.PeerID]externalapi.DomainHash),
	}
}

// RequestBlocksDownload implements model.BlockPuller.
func (fbp *FakeBlockPuller) RequestBlocksDownload(hashes []*externalapi.DomainHash, firstHeight uint64) {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	fbp.requests = append(fbp.requests, DownloadRequest{
		Hashes:      append([]*externalapi.DomainHash{}, hashes...),
		FirstHeight: firstHeight,
	})
}

// AverageBlockSizeBytes implements model.BlockPuller.
func (fbp *FakeBlockPuller) AverageBlockSizeBytes() uint64 {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	return fbp.averageBlockSize
}

// SetAverageBlockSizeBytes changes the reported average block size.
func (fbp *FakeBlockPuller) SetAverageBlockSizeBytes(size uint64) {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	fbp.averageBlockSize = size
}

// NewPeerTipClaimed implements model.BlockPuller.
func (fbp *FakeBlockPuller) NewPeerTipClaimed(peerID externalapi.PeerID, tipHash *externalapi.DomainHash, tipHeight uint64) {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	fbp.peerTips[peerID] = *tipHash
}

// PeerDisconnected implements model.BlockPuller.
func (fbp *FakeBlockPuller) PeerDisconnected(peerID externalapi.PeerID) {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	delete(fbp.peerTips, peerID)
	fbp.disconnectedPeers = append(fbp.disconnectedPeers, peerID)
}

// Requests returns the requests made so far.
func (fbp *FakeBlockPuller) Requests() []DownloadRequest {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	return append([]DownloadRequest{}, fbp.requests...)
}

// RequestedHashes returns every requested hash, in request order.
func (fbp *FakeBlockPuller) RequestedHashes() []*externalapi.DomainHash {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	var requested []*externalapi.DomainHash
	for _, request := range fbp.requests {
		requested = append(requested, request.Hashes...)
	}
	return requested
}

// PeerTip returns the last tip the given peer claimed.
func (fbp *FakeBlockPuller) PeerTip(peerID externalapi.PeerID) (*externalapi.DomainHash, bool) {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	tip, ok := fbp.peerTips[peerID]
	return &tip, ok
}

// DisconnectedPeers returns the peers PeerDisconnected was called with.
func (fbp *FakeBlockPuller) DisconnectedPeers() []externalapi.PeerID {
	fbp.mutex.Lock()
	defer fbp.mutex.Unlock()
	return append([]externalapi.PeerID{}, fbp.disconnectedPeers...)
}

// Ban is a ban recorded by FakePeerManager.
type Ban struct {
	PeerID   externalapi.PeerID
	Duration time.Duration
	Reason   string
}

// FakePeerManager records bans and resync requests.
type FakePeerManager struct {
	mutex   sync.Mutex
	bans    []Ban
	resyncs []externalapi.PeerID
}

// BanAndDisconnect implements model.PeerManager.
func (fpm *FakePeerManager) BanAndDisconnect(peerID externalapi.PeerID, duration time.Duration, reason string) {
	fpm.mutex.Lock()
	defer fpm.mutex.Unlock()
	fpm.bans = append(fpm.bans, Ban{PeerID: peerID, Duration: duration, Reason: reason})
}

// ResyncPeer implements model.PeerManager.
func (fpm *FakePeerManager) ResyncPeer(peerID externalapi.PeerID) {
	fpm.mutex.Lock()
	defer fpm.mutex.Unlock()
	fpm.resyncs = append(fpm.resyncs, peerID)
}

// Bans returns the recorded bans.
func (fpm *FakePeerManager) Bans() []Ban {
	fpm.mutex.Lock()
	defer fpm.mutex.Unlock()
	return append([]Ban{}, fpm.bans...)
}

// IsBanned returns whether peerID was banned.
func (fpm *FakePeerManager) IsBanned(peerID externalapi.PeerID) bool {
	fpm.mutex.Lock()
	defer fpm.mutex.Unlock()
	for _, ban := range fpm.bans {
		if ban.PeerID == peerID {
			return true
		}
	}
	return false
}

// Resyncs returns the peers asked to resync.
func (fpm *FakePeerManager) Resyncs() []externalapi.PeerID {
	fpm.mutex.Lock()
	defer fpm.mutex.Unlock()
	return append([]externalapi.PeerID{}, fpm.resyncs...)
}

// FakeConsensusListener records chain notifications.
type FakeConsensusListener struct {
	mutex        sync.Mutex
	connected    []externalapi.DomainHash
	disconnected []externalapi.DomainHash
}

// BlockConnected implements model.ConsensusListener.
func (fcl *FakeConsensusListener) BlockConnected(block *externalapi.DomainBlock, blockHash *externalapi.DomainHash, height uint64) {
	fcl.mutex.Lock()
	defer fcl.mutex.Unlock()
	fcl.connected = append(fcl.connected, *blockHash)
}

// BlockDisconnected implements model.ConsensusListener.
func (fcl *FakeConsensusListener) BlockDisconnected(blockHash *externalapi.DomainHash, height uint64) {
	fcl.mutex.Lock()
	defer fcl.mutex.Unlock()
	fcl.disconnected = append(fcl.disconnected, *blockHash)
}

// Connected returns the connected hashes in notification order.
func (fcl *FakeConsensusListener) Connected() []externalapi.DomainHash {
	fcl.mutex.Lock()
	defer fcl.mutex.Unlock()
	return append([]externalapi.DomainHash{}, fcl.connected...)
}

// Disconnected returns the disconnected hashes in notification order.
func (fcl *FakeConsensusListener) Disconnected() []externalapi.DomainHash {
	fcl.mutex.Lock()
	defer fcl.mutex.Unlock()
	return append([]externalapi.DomainHash{}, fcl.disconnected...)
}

// MemoryBlockStore is an in-memory model.BlockStore and
// model.FinalizedBlockStore.
type MemoryBlockStore struct {
	mutex           sync.Mutex
	blocks          map[externalapi.DomainHash]*externalapi.DomainBlock
	finalizedHash   *externalapi.DomainHash
	finalizedHeight uint64
	putError        error
}

// NewMemoryBlockStore returns an empty MemoryBlockStore.
func NewMemoryBlockStore() *MemoryBlockStore {
	return &MemoryBlockStore{blocks: make(map[externalapi.DomainHash]*externalapi.DomainBlock)}
}

// GetBlock implements model.BlockStore.
func (mbs *MemoryBlockStore) GetBlock(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	mbs.mutex.Lock()
	defer mbs.mutex.Unlock()
	return mbs.blocks[*blockHash], nil
}

// PutBlock implements model.BlockStore.
func (mbs *MemoryBlockStore) PutBlock(blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) error {
	mbs.mutex.Lock()
	defer mbs.mutex.Unlock()
	if mbs.putError != nil {
		return mbs.putError
	}
	mbs.blocks[*blockHash] = block
	return nil
}

// SetPutError makes later PutBlock calls fail with err.
func (mbs *MemoryBlockStore) SetPutError(err error) {
	mbs.mutex.Lock()
	defer mbs.mutex.Unlock()
	mbs.putError = err
}

// Delete removes a block, to simulate a store that lost data.
func (mbs *MemoryBlockStore) Delete(blockHash *externalapi.DomainHash) {
	mbs.mutex.Lock()
	defer mbs.mutex.Unlock()
	delete(mbs.blocks, *blockHash)
}

// FinalizedBlock implements model.FinalizedBlockStore.
func (mbs *MemoryBlockStore) FinalizedBlock() (*externalapi.DomainHash, uint64, bool, error) {
	mbs.mutex.Lock()
	defer mbs.mutex.Unlock()
	if mbs.finalizedHash == nil {
		return nil, 0, false, nil
	}
	return mbs.finalizedHash, mbs.finalizedHeight, true, nil
}

// SaveFinalizedBlock implements model.FinalizedBlockStore.
func (mbs *MemoryBlockStore) SaveFinalizedBlock(blockHash *externalapi.DomainHash, height uint64) error {
	mbs.mutex.Lock()
	defer mbs.mutex.Unlock()
	if mbs.finalizedHash != nil && height < mbs.finalizedHeight {
		return errors.Errorf("finalized height can't go back from %d to %d", mbs.finalizedHeight, height)
	}
	mbs.finalizedHash = blockHash
	mbs.finalizedHeight = height
	return nil
}

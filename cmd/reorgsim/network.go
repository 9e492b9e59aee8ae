package main

import (
	"sync"
	"time"

	"github.com/kaspanet/chainconsensus/domain/consensus/consensusmanager"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/serialization"
	"github.com/pkg/errors"
)

const validationTimeout = time.Minute

// simPeer serves the blocks of a single chain.
type simPeer struct {
	id     externalapi.PeerID
	chain  []*externalapi.DomainBlock
	blocks map[externalapi.DomainHash]*externalapi.DomainBlock
}

func newSimPeer(id externalapi.PeerID, chain []*externalapi.DomainBlock) *simPeer {
	blocks := make(map[externalapi.DomainHash]*externalapi.DomainBlock, len(chain))
	for _, block := range chain {
		blocks[*consensushashing.BlockHash(block)] = block
	}
	return &simPeer{id: id, chain: chain, blocks: blocks}
}

func (sp *simPeer) headers() []*externalapi.DomainBlockHeader {
	headers := make([]*externalapi.DomainBlockHeader, len(sp.chain))
	for i, block := range sp.chain {
		headers[i] = block.Header
	}
	return headers
}

// simNetwork plays both the block puller and the peer manager. Download
// requests are queued and served by deliverPending, so the simulation runs
// deterministically on the calling goroutine.
type simNetwork struct {
	mutex            sync.Mutex
	peers            map[externalapi.PeerID]*simPeer
	pending          [][]*externalapi.DomainHash
	averageBlockSize uint64
	bannedPeers      []externalapi.PeerID
	resyncedPeers    []externalapi.PeerID
}

func newSimNetwork(averageBlockSize uint64) *simNetwork {
	return &simNetwork{
		peers:            make(map[externalapi.PeerID]*simPeer),
		averageBlockSize: averageBlockSize,
	}
}

func (sn *simNetwork) addPeer(peer *simPeer) {
	sn.mutex.Lock()
	defer sn.mutex.Unlock()
	sn.peers[peer.id] = peer
}

func (sn *simNetwork) removePeer(peerID externalapi.PeerID) {
	sn.mutex.Lock()
	defer sn.mutex.Unlock()
	delete(sn.peers, peerID)
}

func (sn *simNetwork) RequestBlocksDownload(hashes []*externalapi.DomainHash, firstHeight uint64) {
	sn.mutex.Lock()
	defer sn.mutex.Unlock()
	log.Debugf("Requested %d blocks starting at height %d", len(hashes), firstHeight)
	sn.pending = append(sn.pending, append([]*externalapi.DomainHash{}, hashes...))
}

func (sn *simNetwork) AverageBlockSizeBytes() uint64 {
	return sn.averageBlockSize
}

func (sn *simNetwork) NewPeerTipClaimed(peerID externalapi.PeerID, tipHash *externalapi.DomainHash, tipHeight uint64) {
	log.Debugf("Peer %s claims tip %s at height %d", peerID, tipHash, tipHeight)
}

func (sn *simNetwork) PeerDisconnected(peerID externalapi.PeerID) {
	log.Debugf("Peer %s disconnected", peerID)
}

func (sn *simNetwork) BanAndDisconnect(peerID externalapi.PeerID, duration time.Duration, reason string) {
	sn.mutex.Lock()
	defer sn.mutex.Unlock()
	log.Warnf("Banning peer %s for %s: %s", peerID, duration, reason)
	delete(sn.peers, peerID)
	sn.bannedPeers = append(sn.bannedPeers, peerID)
}

func (sn *simNetwork) ResyncPeer(peerID externalapi.PeerID) {
	sn.mutex.Lock()
	defer sn.mutex.Unlock()
	log.Debugf("Resyncing peer %s", peerID)
	sn.resyncedPeers = append(sn.resyncedPeers, peerID)
}

// takePending returns the queued requests and clears the queue.
func (sn *simNetwork) takePending() [][]*externalapi.DomainHash {
	sn.mutex.Lock()
	defer sn.mutex.Unlock()
	pending := sn.pending
	sn.pending = nil
	return pending
}

// findBlock returns a connected peer that has blockHash, and the block.
func (sn *simNetwork) findBlock(blockHash *externalapi.DomainHash) (externalapi.PeerID, *externalapi.DomainBlock) {
	sn.mutex.Lock()
	defer sn.mutex.Unlock()
	for peerID, peer := range sn.peers {
		if block, ok := peer.blocks[*blockHash]; ok {
			return peerID, block
		}
	}
	return 0, nil
}

// deliverPending serves download requests until none are left. A block no
// connected peer has is reported as a failed download.
func (sn *simNetwork) deliverPending(manager *consensusmanager.ConsensusManager) error {
	for {
		if !manager.WaitForPendingValidationsWithTimeout(validationTimeout) {
			return errors.Errorf("partial validations didn't finish within %s", validationTimeout)
		}
		pending := sn.takePending()
		if len(pending) == 0 {
			return nil
		}
		for _, request := range pending {
			for _, blockHash := range request {
				peerID, block := sn.findBlock(blockHash)
				err := manager.BlockDownloaded(peerID, blockHash, block)
				if err != nil {
					return err
				}
			}
		}
	}
}

func blockSize(block *externalapi.DomainBlock) uint64 {
	return serialization.BlockSize(block)
}

package consensusmanager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kaspanet/chainconsensus/domain/consensus/blockdownload"
	"github.com/kaspanet/chainconsensus/domain/consensus/headertree"
	"github.com/kaspanet/chainconsensus/domain/consensus/model"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/util/locks"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// ConsensusManager decides which chain is the consensus chain. It collects
// headers from peers into a header tree, downloads the blocks of chains
// that have more work than the consensus tip, validates them and reorgs to
// them.
//
// Two locks are used, always in this order: reorgLock serializes reorgs
// end to end, including the calls to the rule engine. peerLock guards the
// header tree and the download coordinator and is never held while a
// collaborator is called.
type ConsensusManager struct {
	config *Config

	ruleEngine          model.RuleEngine
	blockPuller         model.BlockPuller
	blockStore          model.BlockStore
	finalizedBlockStore model.FinalizedBlockStore
	peerManager         model.PeerManager
	listener            model.ConsensusListener

	reorgLock sync.Mutex

	peerLock           sync.Mutex
	headerTree         *headertree.HeaderTree
	coordinator        *blockdownload.Coordinator
	tip                *headertree.ChainedHeader
	finalizedHash      *externalapi.DomainHash
	finalizedHeight    uint64
	unconnectedBatches map[externalapi.PeerID]int
	downloadRetries    map[externalapi.DomainHash]int

	partialValidationSemaphore *semaphore.Weighted
	pendingValidations         *locks.WaitGroup

	fatalError atomic.Pointer[FatalError]
}

// New creates a ConsensusManager whose chain holds only genesis. Call
// Initialize to load the persisted chain.
func New(config *Config, ruleEngine model.RuleEngine, blockPuller model.BlockPuller, blockStore model.BlockStore,
	finalizedBlockStore model.FinalizedBlockStore, peerManager model.PeerManager,
	listener model.ConsensusListener) *ConsensusManager {

	maxConcurrentPartialValidations := config.MaxConcurrentPartialValidations
	if maxConcurrentPartialValidations < 1 {
		maxConcurrentPartialValidations = 1
	}

	headerTree := headertree.New(config.Params, ruleEngine)
	return &ConsensusManager{
		config:              config,
		ruleEngine:          ruleEngine,
		blockPuller:         blockPuller,
		blockStore:          blockStore,
		finalizedBlockStore: finalizedBlockStore,
		peerManager:         peerManager,
		listener:            listener,

		headerTree: headerTree,
		coordinator: blockdownload.New(blockdownload.Config{
			MaxBlocksInFlight:  config.MaxBlocksInFlight,
			MaxUnconsumedBytes: config.MaxUnconsumedBytes,
		}, config.Metrics),
		tip:                headerTree.ConsensusTip(),
		finalizedHash:      config.Params.GenesisHash,
		unconnectedBatches: make(map[externalapi.PeerID]int),
		downloadRetries:    make(map[externalapi.DomainHash]int),

		partialValidationSemaphore: semaphore.NewWeighted(maxConcurrentPartialValidations),
		pendingValidations:         locks.NewWaitGroup(),
	}
}

// Initialize loads the chain the rule engine's state is at, walking the
// block store back from the state hash to genesis, and the finalized block.
func (m *ConsensusManager) Initialize() error {
	m.reorgLock.Lock()
	defer m.reorgLock.Unlock()

	stateHash, err := m.ruleEngine.CurrentStateHash()
	if err != nil {
		return err
	}

	var chain []*externalapi.DomainBlockHeader
	for current := stateHash; !current.Equal(m.config.Params.GenesisHash); {
		block, err := m.blockStore.GetBlock(current)
		if err != nil {
			return err
		}
		if block == nil {
			return errors.Errorf("block %s of the persisted chain is missing from the block store", current)
		}
		chain = append(chain, block.Header)
		current = &block.Header.PrevBlockHash
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	finalizedHash, finalizedHeight, found, err := m.finalizedBlockStore.FinalizedBlock()
	if err != nil {
		return err
	}

	m.peerLock.Lock()
	defer m.peerLock.Unlock()

	err = m.headerTree.Initialize(chain)
	if err != nil {
		return err
	}
	m.tip = m.headerTree.ConsensusTip()

	if found {
		if finalizedHeight > m.tip.Height {
			return errors.Errorf("finalized block %s at height %d is above the tip %s",
				finalizedHash, finalizedHeight, m.tip)
		}
		onChain := m.headerTree.AncestorAt(m.tip, finalizedHeight)
		if !onChain.Hash.Equal(finalizedHash) {
			return errors.Errorf("finalized block %s is not on the persisted chain, which has %s at height %d",
				finalizedHash, onChain.Hash, finalizedHeight)
		}
		m.finalizedHash = finalizedHash
		m.finalizedHeight = finalizedHeight
	}

	log.Infof("Consensus initialized at tip %s, finalized height %d", m.tip, m.finalizedHeight)
	return nil
}

// Tip returns the block the persisted chain state is at.
func (m *ConsensusManager) Tip() *headertree.ChainedHeader {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	return m.tip
}

// FinalizedBlock returns the deepest block that can no longer be reorged.
func (m *ConsensusManager) FinalizedBlock() (*externalapi.DomainHash, uint64) {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	return m.finalizedHash, m.finalizedHeight
}

// Node returns the header tree node with the given hash.
func (m *ConsensusManager) Node(blockHash *externalapi.DomainHash) (*headertree.ChainedHeader, bool) {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	return m.headerTree.Node(blockHash)
}

// NodeCount returns the number of nodes in the header tree.
func (m *ConsensusManager) NodeCount() int {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	return m.headerTree.NodeCount()
}

// Claimants returns the peers claiming the given block as their tip.
func (m *ConsensusManager) Claimants(blockHash *externalapi.DomainHash) []externalapi.PeerID {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	return m.headerTree.Claimants(blockHash)
}

// UnconsumedBlocksDataBytes returns the size of the downloaded blocks that
// weren't persisted yet.
func (m *ConsensusManager) UnconsumedBlocksDataBytes() uint64 {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	return m.headerTree.UnconsumedBlocksDataBytes()
}

// BlocksInFlight returns the number of blocks requested and not delivered.
func (m *ConsensusManager) BlocksInFlight() uint64 {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()
	return m.coordinator.BlocksInFlight()
}

// WaitForPendingValidations blocks until no partial validation, or work
// triggered by one, is running.
func (m *ConsensusManager) WaitForPendingValidations() {
	m.pendingValidations.Wait()
}

// WaitForPendingValidationsWithTimeout is like WaitForPendingValidations
// but gives up after timeout. It returns false if validations were still
// running.
func (m *ConsensusManager) WaitForPendingValidationsWithTimeout(timeout time.Duration) bool {
	return m.pendingValidations.WaitWithTimeout(timeout)
}

// PeerDisconnected drops the peer's claim, pruning the headers only it
// presented.
func (m *ConsensusManager) PeerDisconnected(peerID externalapi.PeerID) {
	m.peerLock.Lock()
	m.headerTree.ReleasePeer(peerID)
	delete(m.unconnectedBatches, peerID)
	m.peerLock.Unlock()

	log.Debugf("Peer %s disconnected", peerID)
	m.blockPuller.PeerDisconnected(peerID)
	m.requestDownloads()
}

func (m *ConsensusManager) banPeer(peerID externalapi.PeerID, reason string) {
	m.banPeers([]externalapi.PeerID{peerID}, reason, m.config.BanDuration)
}

func (m *ConsensusManager) banPeers(peerIDs []externalapi.PeerID, reason string, duration time.Duration) {
	if len(peerIDs) == 0 {
		return
	}

	m.peerLock.Lock()
	for _, peerID := range peerIDs {
		m.headerTree.ReleasePeer(peerID)
		delete(m.unconnectedBatches, peerID)
	}
	m.peerLock.Unlock()

	for _, peerID := range peerIDs {
		if !peerID.IsRemote() {
			continue
		}
		log.Warnf("Banning peer %s for %s: %s", peerID, duration, reason)
		m.peerManager.BanAndDisconnect(peerID, duration, reason)
		m.blockPuller.PeerDisconnected(peerID)
	}
}

package consensusmanager

import (
	"time"

	"github.com/kaspanet/chainconsensus/domain/consensus/headertree"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
	"github.com/pkg/errors"
)

// ReorgResult describes the outcome of FullyValidate.
type ReorgResult struct {
	// Succeeded is set if every block up to the requested tip was
	// connected.
	Succeeded bool

	// ConsensusTipChanged is set if the tip after the call differs from
	// the tip before it.
	ConsensusTipChanged bool

	// PeersToBan are the peers that presented the invalid chain, if a
	// block failed validation.
	PeersToBan  []externalapi.PeerID
	BanReason   string
	BanDuration time.Duration
}

// chainBlock is a node on a chain segment together with its block.
type chainBlock struct {
	node         *headertree.ChainedHeader
	block        *externalapi.DomainBlock
	assumedValid bool
}

// FullyValidate moves the consensus chain to newTip. Blocks of the current
// chain above the fork point are rewound and the blocks of the new chain are
// connected one by one. If one of them is invalid, the original chain is
// restored.
//
// The returned error is set only if the manager halted.
func (m *ConsensusManager) FullyValidate(newTip *headertree.ChainedHeader) (*ReorgResult, error) {
	m.reorgLock.Lock()
	defer m.reorgLock.Unlock()

	return m.fullyValidate(newTip)
}

// fullyValidate is FullyValidate without taking the reorg lock. This
// function MUST be called with the reorg lock held.
func (m *ConsensusManager) fullyValidate(newTip *headertree.ChainedHeader) (*ReorgResult, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "fullyValidate")
	defer onEnd()

	err := m.checkHalted()
	if err != nil {
		return nil, err
	}

	m.peerLock.Lock()
	originalTip := m.headerTree.ConsensusTip()
	// Candidates are computed outside the reorg lock, so newTip may already
	// be the tip or one of its ancestors. Those aren't heavier than the tip.
	if node, ok := m.headerTree.Node(newTip.Hash); !ok || node != newTip ||
		newTip.ChainWork.Cmp(originalTip.ChainWork) <= 0 {

		m.peerLock.Unlock()
		log.Debugf("Skipping full validation of %s, it isn't heavier than the tip %s", newTip, originalTip)
		return &ReorgResult{}, nil
	}
	fork := m.headerTree.FindFork(originalTip, newTip)
	if fork.Height < m.finalizedHeight {
		m.peerLock.Unlock()
		return nil, m.fail(errors.Errorf("reorg to %s forks at height %d, below the finalized height %d",
			newTip, fork.Height, m.finalizedHeight))
	}
	m.headerTree.ClaimReorgTarget(newTip)
	newChain := m.chainBlocks(m.headerTree.ChainBetween(fork, newTip))
	originalChain := m.chainBlocks(m.headerTree.ChainBetween(fork, originalTip))
	m.peerLock.Unlock()

	defer func() {
		m.peerLock.Lock()
		defer m.peerLock.Unlock()
		m.headerTree.ReleaseReorgTarget()
	}()

	isReorg := fork != originalTip
	if isReorg {
		log.Infof("Reorganizing from %s to %s, fork at %s", originalTip, newTip, fork)
		err := m.rewind(originalChain, fork)
		if err != nil {
			return nil, err
		}
	}

	err = m.loadMissingBlocks(newChain)
	if err != nil {
		return nil, err
	}

	connected, validationErr, err := m.connectChain(newChain)
	if err != nil {
		return nil, err
	}
	if validationErr == nil {
		err = m.advanceFinalizedBlock(newTip)
		if err != nil {
			return nil, err
		}

		m.peerLock.Lock()
		peersToResync := m.headerTree.ConsensusTipChanged(newTip)
		m.peerLock.Unlock()

		for _, peerID := range peersToResync {
			m.peerManager.ResyncPeer(peerID)
		}
		log.Infof("New consensus tip %s", newTip)
		return &ReorgResult{Succeeded: true, ConsensusTipChanged: true}, nil
	}

	invalidNode := newChain[connected].node
	log.Warnf("Full validation of block %s failed: %s", invalidNode, validationErr)

	m.peerLock.Lock()
	peersToBan := m.headerTree.PartialOrFullValidationFailed(invalidNode)
	m.peerLock.Unlock()

	err = m.rewind(newChain[:connected], fork)
	if err != nil {
		return nil, err
	}

	if isReorg {
		err = m.loadMissingBlocks(originalChain)
		if err != nil {
			return nil, err
		}
		_, reconnectErr, err := m.connectChain(originalChain)
		if err != nil {
			return nil, err
		}
		if reconnectErr != nil {
			return nil, m.fail(errors.Wrapf(reconnectErr, "reconnecting the original chain up to %s", originalTip))
		}
	}

	return &ReorgResult{
		PeersToBan:  peersToBan,
		BanReason:   validationErr.Error(),
		BanDuration: m.config.BanDuration,
	}, nil
}

// chainBlocks pairs every node with the block held in memory for it, if
// any. This function MUST be called with the peer lock held.
func (m *ConsensusManager) chainBlocks(nodes []*headertree.ChainedHeader) []*chainBlock {
	chain := make([]*chainBlock, len(nodes))
	for i, node := range nodes {
		chain[i] = &chainBlock{
			node:         node,
			block:        node.Block(),
			assumedValid: node.ValidationState() == externalapi.StatusAssumedValid,
		}
	}
	return chain
}

// loadMissingBlocks reads the blocks that aren't in memory from the block
// store. A missing block is fatal: nodes are connected only once all their
// blocks were downloaded.
func (m *ConsensusManager) loadMissingBlocks(chain []*chainBlock) error {
	for _, item := range chain {
		if item.block != nil {
			continue
		}
		block, err := m.blockStore.GetBlock(item.node.Hash)
		if err != nil {
			return m.fail(errors.Wrapf(err, "reading block %s", item.node))
		}
		if block == nil {
			return m.fail(errors.Errorf("block %s is neither in memory nor in the block store", item.node))
		}
		item.block = block
	}
	return nil
}

// connectChain fully validates the blocks of chain in order. It returns
// the number of blocks connected and, if a block is invalid, the
// validation error. Any other error is fatal. The finalized block is left
// untouched.
func (m *ConsensusManager) connectChain(chain []*chainBlock) (connected int, validationErr error, err error) {
	for i, item := range chain {
		node := item.node
		err := m.ruleEngine.FullValidate(item.block, node.Height, item.assumedValid)
		if err != nil {
			if !ruleerrors.IsRuleError(err) {
				return i, nil, m.fail(errors.Wrapf(err, "full validation of block %s", node))
			}
			return i, err, nil
		}

		err = m.blockStore.PutBlock(node.Hash, item.block)
		if err != nil {
			return i, nil, m.fail(errors.Wrapf(err, "storing block %s", node))
		}

		m.peerLock.Lock()
		m.headerTree.FullValidationSucceeded(node)
		m.headerTree.BlockDataConsumed(node)
		m.tip = node
		m.peerLock.Unlock()

		log.Debugf("Connected block %s", node)
		m.listener.BlockConnected(item.block, node.Hash, node.Height)
	}
	return len(chain), nil, nil
}

// rewind disconnects the blocks of chain, last first, down to fork. The
// rule engine must land on each block's parent. Nodes of chain may already
// be pruned from the header tree.
func (m *ConsensusManager) rewind(chain []*chainBlock, fork *headertree.ChainedHeader) error {
	for i := len(chain) - 1; i >= 0; i-- {
		node := chain[i].node
		parent := fork
		if i > 0 {
			parent = chain[i-1].node
		}

		stateHash, err := m.ruleEngine.Rewind()
		if err != nil {
			return m.fail(errors.Wrapf(err, "rewinding block %s", node))
		}
		if !stateHash.Equal(parent.Hash) {
			return m.fail(errors.Errorf("rewinding block %s landed on %s instead of its parent %s",
				node, stateHash, parent))
		}

		m.peerLock.Lock()
		m.tip = parent
		m.peerLock.Unlock()

		log.Debugf("Disconnected block %s", node)
		m.listener.BlockDisconnected(node.Hash, node.Height)
	}
	return nil
}

// advanceFinalizedBlock finalizes the block MaxReorgLength below tip once
// tip is more than MaxReorgLength above the finalized block. It is called
// only after the whole segment up to tip connected, so a segment that fails
// part-way never finalizes blocks it rewinds.
func (m *ConsensusManager) advanceFinalizedBlock(tip *headertree.ChainedHeader) error {
	maxReorgLength := m.config.Params.MaxReorgLength
	if maxReorgLength == 0 || tip.Height <= maxReorgLength {
		return nil
	}
	finalizedHeight := tip.Height - maxReorgLength

	m.peerLock.Lock()
	if finalizedHeight <= m.finalizedHeight {
		m.peerLock.Unlock()
		return nil
	}
	finalized := m.headerTree.AncestorAt(tip, finalizedHeight)
	m.peerLock.Unlock()

	err := m.finalizedBlockStore.SaveFinalizedBlock(finalized.Hash, finalized.Height)
	if err != nil {
		return m.fail(errors.Wrapf(err, "saving finalized block %s", finalized))
	}

	m.peerLock.Lock()
	m.finalizedHash = finalized.Hash
	m.finalizedHeight = finalized.Height
	m.peerLock.Unlock()
	return nil
}

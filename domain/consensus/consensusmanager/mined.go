package consensusmanager

import (
	"github.com/kaspanet/chainconsensus/domain/consensus/headertree"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

// BlockMined validates and connects a block built by the local miner. The
// block must extend the consensus tip. Unlike blocks from peers, a rejected
// mined block is reported to the caller.
func (m *ConsensusManager) BlockMined(block *externalapi.DomainBlock) error {
	m.reorgLock.Lock()
	defer m.reorgLock.Unlock()

	err := m.checkHalted()
	if err != nil {
		return err
	}
	blockHash := consensushashing.BlockHash(block)

	m.peerLock.Lock()
	tip := m.tip
	if !block.Header.PrevBlockHash.Equal(tip.Hash) {
		m.peerLock.Unlock()
		return errors.Wrapf(ruleerrors.ErrBlockDoesNotExtendTip,
			"mined block %s points to %s instead of the tip %s", blockHash, block.Header.PrevBlockHash, tip)
	}
	// Claimed as the reorg target so that the tip keeps the local claim
	// if the block turns out invalid.
	_, err = m.headerTree.ConnectHeaders(headertree.ReorgTargetPeerID, []*externalapi.DomainBlockHeader{block.Header})
	if err != nil {
		m.headerTree.ReleaseReorgTarget()
		m.peerLock.Unlock()
		return err
	}
	node, _ := m.headerTree.Node(blockHash)
	_, ok := m.headerTree.BlockDataDownloaded(blockHash, block)
	m.peerLock.Unlock()
	if !ok {
		m.peerLock.Lock()
		m.headerTree.ReleaseReorgTarget()
		m.peerLock.Unlock()
		return errors.Errorf("mined block %s was already processed", blockHash)
	}

	err = m.ruleEngine.PartialValidate(block, node.Height)
	if err != nil {
		m.peerLock.Lock()
		m.headerTree.PartialOrFullValidationFailed(node)
		m.peerLock.Unlock()
		if !ruleerrors.IsRuleError(err) {
			return m.fail(errors.Wrapf(err, "partial validation of mined block %s", node))
		}
		return errors.Wrapf(err, "mined block %s", node)
	}

	m.peerLock.Lock()
	m.headerTree.PartialValidationSucceeded(node)
	m.peerLock.Unlock()

	result, err := m.fullyValidate(node)
	if err != nil {
		return err
	}
	if !result.Succeeded {
		return errors.Wrapf(ruleerrors.ErrInvalidBlock, "mined block %s: %s", node, result.BanReason)
	}
	log.Infof("Connected mined block %s", node)
	return nil
}

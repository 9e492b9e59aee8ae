package consensusmanager

import (
	"context"

	"github.com/kaspanet/chainconsensus/domain/consensus/headertree"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// BlockDownloaded handles a block sent by peerID, or a nil block if the
// download of blockHash failed. A block that doesn't match its header gets
// the peer banned and is requested again.
func (m *ConsensusManager) BlockDownloaded(peerID externalapi.PeerID, blockHash *externalapi.DomainHash,
	block *externalapi.DomainBlock) error {

	err := m.checkHalted()
	if err != nil {
		return err
	}

	m.peerLock.Lock()
	callbacks := m.coordinator.BlockDelivered(blockHash)
	node, nodeExists := m.headerTree.Node(blockHash)
	m.peerLock.Unlock()

	if len(callbacks) == 0 {
		log.Debugf("Ignoring unrequested block %s from peer %s", blockHash, peerID)
		return nil
	}

	if block != nil && nodeExists {
		err := m.ruleEngine.VerifyIntegrity(block, node.Header)
		if err != nil {
			if !ruleerrors.IsRuleError(err) {
				return err
			}
			m.banPeer(peerID, err.Error())
			block = nil
		}
	}

	for _, callback := range callbacks {
		callback(blockHash, block)
	}
	m.requestDownloads()
	return m.checkHalted()
}

func (m *ConsensusManager) onBlockDownloaded(blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) error {
	if block == nil {
		m.onBlockDownloadFailed(blockHash)
		return nil
	}

	m.peerLock.Lock()
	delete(m.downloadRetries, *blockHash)
	progress, ok := m.headerTree.BlockDataDownloaded(blockHash, block)
	m.peerLock.Unlock()
	if !ok {
		return nil
	}
	return m.processValidationProgress(progress)
}

// onBlockDownloadFailed requests the block again, unless it isn't wanted
// anymore or it failed too many times already.
func (m *ConsensusManager) onBlockDownloadFailed(blockHash *externalapi.DomainHash) {
	m.peerLock.Lock()
	defer m.peerLock.Unlock()

	if m.coordinator.IsTracked(blockHash) {
		return
	}
	node, ok := m.headerTree.Node(blockHash)
	if !ok || !m.headerTree.IsBlockRequired(blockHash) {
		delete(m.downloadRetries, *blockHash)
		return
	}
	if m.downloadRetries[*blockHash] >= maxDownloadRetries {
		log.Warnf("Giving up on downloading block %s after %d retries", blockHash, maxDownloadRetries)
		delete(m.downloadRetries, *blockHash)
		m.headerTree.BlockDataDownloadFailed(blockHash)
		return
	}
	m.downloadRetries[*blockHash]++
	log.Debugf("Download of block %s failed, requesting it again", blockHash)
	m.coordinator.Enqueue([]*externalapi.DomainHash{blockHash}, node.Height, m.blockDownloadCallback())
}

// processValidationProgress starts the partial validations that became
// due and, if some chain became heavier than the tip, reorgs to it.
func (m *ConsensusManager) processValidationProgress(progress *headertree.ValidationProgress) error {
	for _, node := range progress.PartialValidationRequired {
		m.startPartialValidation(node)
	}
	if progress.FullValidationCandidate == nil {
		return nil
	}

	result, err := m.FullyValidate(progress.FullValidationCandidate)
	if err != nil {
		return err
	}
	m.banPeers(result.PeersToBan, result.BanReason, result.BanDuration)
	m.requestDownloads()
	return nil
}

func (m *ConsensusManager) startPartialValidation(node *headertree.ChainedHeader) {
	m.peerLock.Lock()
	block := node.Block()
	m.peerLock.Unlock()
	if block == nil {
		return
	}

	m.pendingValidations.Add()
	spawn("partialValidation", func() {
		defer m.pendingValidations.Done()

		err := m.partiallyValidate(node, block)
		if err != nil {
			log.Errorf("Partial validation of block %s failed: %s", node, err)
		}
	})
}

func (m *ConsensusManager) partiallyValidate(node *headertree.ChainedHeader, block *externalapi.DomainBlock) error {
	err := m.partialValidationSemaphore.Acquire(context.Background(), 1)
	if err != nil {
		return err
	}
	err = m.checkHalted()
	if err != nil {
		m.partialValidationSemaphore.Release(1)
		return err
	}
	err = m.ruleEngine.PartialValidate(block, node.Height)
	m.partialValidationSemaphore.Release(1)

	if err != nil {
		if !ruleerrors.IsRuleError(err) {
			return m.fail(errors.Wrapf(err, "partial validation of block %s", node))
		}
		m.peerLock.Lock()
		peerIDs := m.headerTree.PartialOrFullValidationFailed(node)
		m.peerLock.Unlock()
		m.banPeers(peerIDs, err.Error(), m.config.BanDuration)
		return nil
	}

	m.peerLock.Lock()
	progress := m.headerTree.PartialValidationSucceeded(node)
	m.peerLock.Unlock()
	return m.processValidationProgress(progress)
}

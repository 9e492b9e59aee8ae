package headertree

import (
	"sort"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/serialization"
)

// ValidationProgress describes the work that became due after a block
// arrived or passed partial validation.
type ValidationProgress struct {
	// PartialValidationRequired lists the nodes whose blocks should now be
	// partially validated.
	PartialValidationRequired []*ChainedHeader

	// FullValidationCandidate is the heaviest node that became ready for
	// full validation, provided it has more work than the consensus tip.
	FullValidationCandidate *ChainedHeader
}

// BlocksToDownload returns the nodes between from and to, both included,
// whose blocks are required and not downloaded yet.
func (ht *HeaderTree) BlocksToDownload(from, to *ChainedHeader) []*ChainedHeader {
	var fork *ChainedHeader
	if from.previousHash != nil {
		fork = ht.parent(from)
	}
	var chain []*ChainedHeader
	if fork == nil {
		chain = append([]*ChainedHeader{from}, ht.ChainBetween(from, to)...)
	} else {
		chain = ht.ChainBetween(fork, to)
	}

	required := make([]*ChainedHeader, 0, len(chain))
	for _, node := range chain {
		if node.availability == externalapi.AvailabilityBlockRequired {
			required = append(required, node)
		}
	}
	return required
}

// IsBlockRequired returns whether the block with the given hash is wanted
// and was not downloaded yet.
func (ht *HeaderTree) IsBlockRequired(hash *externalapi.DomainHash) bool {
	node, ok := ht.nodes[*hash]
	return ok && node.availability == externalapi.AvailabilityBlockRequired
}

// BlockDataDownloaded stores the block on its node. It returns false if the
// block isn't wanted anymore, in which case it is dropped.
func (ht *HeaderTree) BlockDataDownloaded(hash *externalapi.DomainHash, block *externalapi.DomainBlock) (*ValidationProgress, bool) {
	node, ok := ht.nodes[*hash]
	if !ok || node.availability != externalapi.AvailabilityBlockRequired {
		log.Debugf("Dropping unrequested block %s", hash)
		return nil, false
	}

	node.block = block
	node.blockSize = serialization.BlockSize(block)
	node.availability = externalapi.AvailabilityBlockAvailable
	ht.unconsumedBlocksDataBytes += node.blockSize

	progress := &ValidationProgress{}
	if ht.parent(node).partialStagePassed {
		ht.enterPartialStage(node, progress)
	}
	return progress, true
}

// BlockDataDownloadFailed marks the block as not requested anymore, so the
// next presentation of its header requests it again.
func (ht *HeaderTree) BlockDataDownloadFailed(hash *externalapi.DomainHash) {
	node, ok := ht.nodes[*hash]
	if !ok || node.availability != externalapi.AvailabilityBlockRequired {
		return
	}
	node.availability = externalapi.AvailabilityHeaderOnly
	ht.abandonedDownloads[*hash] = node
}

// PartialValidationSucceeded records that node's block passed partial
// validation and returns the work unblocked by it.
func (ht *HeaderTree) PartialValidationSucceeded(node *ChainedHeader) *ValidationProgress {
	progress := &ValidationProgress{}
	if ht.nodes[*node.Hash] != node {
		return progress
	}
	if node.validationState == externalapi.StatusHeaderValidated {
		node.validationState = externalapi.StatusPartiallyValidated
	}
	ht.passPartialStage(node, progress)
	return progress
}

func (ht *HeaderTree) enterPartialStage(node *ChainedHeader, progress *ValidationProgress) {
	switch node.validationState {
	case externalapi.StatusAssumedValid:
		ht.passPartialStage(node, progress)
	case externalapi.StatusHeaderValidated:
		progress.PartialValidationRequired = append(progress.PartialValidationRequired, node)
	}
}

// passPartialStage marks node as ready for full validation and carries the
// readiness over to descendants whose blocks were waiting on it. Assumed
// valid descendants pass right away; others need partial validation first.
func (ht *HeaderTree) passPartialStage(node *ChainedHeader, progress *ValidationProgress) {
	stack := []*ChainedHeader{node}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		current.partialStagePassed = true
		ht.considerFullValidation(current, progress)

		for _, child := range current.next {
			if child.partialStagePassed || !child.hasBlockData() {
				continue
			}
			if child.validationState == externalapi.StatusAssumedValid {
				stack = append(stack, child)
				continue
			}
			ht.enterPartialStage(child, progress)
		}
	}
}

func (ht *HeaderTree) considerFullValidation(node *ChainedHeader, progress *ValidationProgress) {
	if node.ChainWork.Cmp(ht.consensusTip.ChainWork) <= 0 {
		return
	}
	candidate := progress.FullValidationCandidate
	if candidate == nil || node.ChainWork.Cmp(candidate.ChainWork) > 0 {
		progress.FullValidationCandidate = node
	}
}

// FullValidationSucceeded records that node's block was connected.
func (ht *HeaderTree) FullValidationSucceeded(node *ChainedHeader) {
	node.validationState = externalapi.StatusFullyValidated
	node.partialStagePassed = true
}

// BlockDataConsumed drops the in-memory block of node once it was
// persisted.
func (ht *HeaderTree) BlockDataConsumed(node *ChainedHeader) {
	if node.availability != externalapi.AvailabilityBlockAvailable {
		return
	}
	if ht.nodes[*node.Hash] == node {
		ht.unconsumedBlocksDataBytes -= node.blockSize
	}
	node.block = nil
	node.availability = externalapi.AvailabilityConsumed
}

// PartialOrFullValidationFailed marks node and all its descendants invalid,
// removes them from the tree, and returns the remote peers that claimed any
// of them.
func (ht *HeaderTree) PartialOrFullValidationFailed(node *ChainedHeader) []externalapi.PeerID {
	if ht.nodes[*node.Hash] != node {
		return nil
	}

	parent := ht.parent(node)
	parent.removeChild(node)

	var peerIDs []externalapi.PeerID
	removed := 0
	stack := []*ChainedHeader{node}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, current.next...)

		for _, peerID := range ht.Claimants(current.Hash) {
			if peerID.IsRemote() {
				peerIDs = append(peerIDs, peerID)
			}
			ht.removeClaim(peerID, *current.Hash)
		}
		current.validationState = externalapi.StatusInvalid
		current.partialStagePassed = false
		ht.invalidHashes.Add(*current.Hash, struct{}{})
		ht.unregister(current)
		removed++
	}

	log.Warnf("Block %s is invalid, removed %d headers", node, removed)
	ht.pruneUpward(parent)

	sort.Slice(peerIDs, func(i, j int) bool { return peerIDs[i] < peerIDs[j] })
	return peerIDs
}

// ConsensusTipChanged moves the consensus tip to newTip and returns the
// remote peers whose claimed chain now forks deeper than the maximum reorg
// length. Their claims are released; they need to sync headers again.
func (ht *HeaderTree) ConsensusTipChanged(newTip *ChainedHeader) []externalapi.PeerID {
	ht.consensusTip = newTip
	ht.setClaim(LocalPeerID, newTip)

	maxReorgLength := ht.params.MaxReorgLength
	if maxReorgLength == 0 {
		return nil
	}

	var stalePeerIDs []externalapi.PeerID
	for peerID, tipHash := range ht.peerTipsByPeerID {
		if !peerID.IsRemote() {
			continue
		}
		peerTip := ht.nodes[tipHash]
		fork := ht.FindFork(peerTip, newTip)
		if fork != peerTip && newTip.Height-fork.Height > maxReorgLength {
			stalePeerIDs = append(stalePeerIDs, peerID)
		}
	}
	sort.Slice(stalePeerIDs, func(i, j int) bool { return stalePeerIDs[i] < stalePeerIDs[j] })

	for _, peerID := range stalePeerIDs {
		ht.ReleasePeer(peerID)
	}
	return stalePeerIDs
}

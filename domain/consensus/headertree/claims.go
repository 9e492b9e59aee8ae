package headertree

import (
	"sort"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
)

// PeerTip returns the node the given peer claims as its tip.
func (ht *HeaderTree) PeerTip(peerID externalapi.PeerID) (*ChainedHeader, bool) {
	tipHash, ok := ht.peerTipsByPeerID[peerID]
	if !ok {
		return nil, false
	}
	return ht.nodes[tipHash], true
}

// Claimants returns the ids of the peers that claim the given hash as
// their tip, sorted.
func (ht *HeaderTree) Claimants(hash *externalapi.DomainHash) []externalapi.PeerID {
	peerIDs := make([]externalapi.PeerID, 0, len(ht.peerIDsByTipHash[*hash]))
	for peerID := range ht.peerIDsByTipHash[*hash] {
		peerIDs = append(peerIDs, peerID)
	}
	sort.Slice(peerIDs, func(i, j int) bool { return peerIDs[i] < peerIDs[j] })
	return peerIDs
}

// ReleasePeer removes the peer's claim and prunes the branch it was the
// only reason to keep.
func (ht *HeaderTree) ReleasePeer(peerID externalapi.PeerID) {
	tipHash, ok := ht.peerTipsByPeerID[peerID]
	if !ok {
		return
	}
	ht.removeClaim(peerID, tipHash)
	if node, ok := ht.nodes[tipHash]; ok {
		ht.pruneUpward(node)
	}
}

// ClaimReorgTarget protects the branch leading to node for the duration
// of a reorg.
func (ht *HeaderTree) ClaimReorgTarget(node *ChainedHeader) {
	ht.setClaim(ReorgTargetPeerID, node)
}

// ReleaseReorgTarget drops the protection taken by ClaimReorgTarget.
func (ht *HeaderTree) ReleaseReorgTarget() {
	ht.ReleasePeer(ReorgTargetPeerID)
}

// setClaim moves the peer's claim to node. The new claim is registered
// before the old one is released so that a shared branch is never pruned
// in between.
func (ht *HeaderTree) setClaim(peerID externalapi.PeerID, node *ChainedHeader) {
	previousTipHash, hadClaim := ht.peerTipsByPeerID[peerID]
	if hadClaim && previousTipHash == *node.Hash {
		return
	}

	if hadClaim {
		ht.removeClaim(peerID, previousTipHash)
	}
	ht.addClaim(peerID, node)

	if hadClaim {
		if previousTip, ok := ht.nodes[previousTipHash]; ok {
			ht.pruneUpward(previousTip)
		}
	}
}

func (ht *HeaderTree) addClaim(peerID externalapi.PeerID, node *ChainedHeader) {
	ht.peerTipsByPeerID[peerID] = *node.Hash
	peerIDs, ok := ht.peerIDsByTipHash[*node.Hash]
	if !ok {
		peerIDs = make(map[externalapi.PeerID]struct{})
		ht.peerIDsByTipHash[*node.Hash] = peerIDs
	}
	peerIDs[peerID] = struct{}{}
}

func (ht *HeaderTree) removeClaim(peerID externalapi.PeerID, tipHash externalapi.DomainHash) {
	delete(ht.peerTipsByPeerID, peerID)
	peerIDs := ht.peerIDsByTipHash[tipHash]
	delete(peerIDs, peerID)
	if len(peerIDs) == 0 {
		delete(ht.peerIDsByTipHash, tipHash)
	}
}

func (ht *HeaderTree) isClaimed(node *ChainedHeader) bool {
	return len(ht.peerIDsByTipHash[*node.Hash]) > 0
}

// pruneUpward removes node and then its ancestors for as long as they have
// no children and nobody claims them.
func (ht *HeaderTree) pruneUpward(node *ChainedHeader) {
	pruned := 0
	for node != ht.root && len(node.next) == 0 && !ht.isClaimed(node) {
		parent := ht.parent(node)
		parent.removeChild(node)
		ht.unregister(node)
		pruned++
		node = parent
	}
	if pruned > 0 {
		log.Debugf("Pruned %d headers down to %s", pruned, node)
	}
}

func (ht *HeaderTree) unregister(node *ChainedHeader) {
	if node.availability == externalapi.AvailabilityBlockAvailable {
		ht.unconsumedBlocksDataBytes -= node.blockSize
	}
	node.block = nil
	delete(ht.nodes, *node.Hash)
	delete(ht.abandonedDownloads, *node.Hash)
}

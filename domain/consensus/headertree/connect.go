package headertree

import (
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

// ConnectResult describes the effect of a successful ConnectHeaders call.
type ConnectResult struct {
	// DownloadFrom and DownloadTo delimit the run of nodes whose blocks
	// became required. Both are nil if no block became required.
	DownloadFrom *ChainedHeader
	DownloadTo   *ChainedHeader

	// Consumed is the last header of the batch that was consumed. It is
	// the peer's new claim.
	Consumed *ChainedHeader

	// NewHeaders is the number of headers that were not known before.
	NewHeaders int
}

// ConnectHeaders attaches a batch of consecutive headers presented by
// peerID and moves the peer's claim to the last one consumed. Either all
// new headers are attached or, on error, none are.
//
// A returned ruleerrors.RuleError describes why the batch was rejected.
// Any other error comes from the header validator.
func (ht *HeaderTree) ConnectHeaders(peerID externalapi.PeerID, headers []*externalapi.DomainBlockHeader) (*ConnectResult, error) {
	if len(headers) == 0 {
		return nil, errors.New("no headers to connect")
	}

	newNodes, consumed, err := ht.validateBatch(headers)
	if err != nil {
		return nil, err
	}

	for _, node := range newNodes {
		ht.attach(node)
	}
	ht.setClaim(peerID, consumed)

	result := &ConnectResult{
		Consumed:   consumed,
		NewHeaders: len(newNodes),
	}
	ht.markRequiredBlocks(consumed, result)

	if len(newNodes) > 0 {
		log.Debugf("Peer %s connected %d new headers, tip %s", peerID, len(newNodes), consumed)
	}
	return result, nil
}

// validateBatch builds the nodes for the unknown headers of the batch
// without attaching them.
func (ht *HeaderTree) validateBatch(headers []*externalapi.DomainBlockHeader) (
	newNodes []*ChainedHeader, consumed *ChainedHeader, err error) {

	pending := make(map[externalapi.DomainHash]*ChainedHeader)
	lookup := func(hash *externalapi.DomainHash) (*ChainedHeader, bool) {
		if node, ok := ht.nodes[*hash]; ok {
			return node, true
		}
		node, ok := pending[*hash]
		return node, ok
	}

	lastCheckpoint := ht.params.LastCheckpoint()
	syncingToCheckpoint := lastCheckpoint != nil && ht.consensusTip.Height < lastCheckpoint.Height

	for _, header := range headers {
		hash := consensushashing.HeaderHash(header)
		if node, ok := lookup(hash); ok {
			if syncingToCheckpoint && node.Height > lastCheckpoint.Height {
				if consumed == nil {
					consumed, _ = lookup(node.previousHash)
				}
				break
			}
			consumed = node
			continue
		}

		if ht.invalidHashes.Contains(*hash) {
			return nil, nil, errors.Wrapf(ruleerrors.ErrKnownInvalid, "header %s previously failed validation", hash)
		}
		parent, ok := lookup(&header.PrevBlockHash)
		if !ok {
			if ht.invalidHashes.Contains(header.PrevBlockHash) {
				return nil, nil, errors.Wrapf(ruleerrors.ErrKnownInvalid,
					"header %s descends from invalid block %s", hash, header.PrevBlockHash)
			}
			return nil, nil, errors.Wrapf(ruleerrors.ErrHeaderDoesNotConnect,
				"previous block %s of header %s is unknown", header.PrevBlockHash, hash)
		}

		node := ht.newChainedHeader(hash, header, parent)
		if syncingToCheckpoint && node.Height > lastCheckpoint.Height {
			if consumed == nil {
				consumed = parent
			}
			break
		}

		if len(newNodes) == 0 {
			err := ht.checkMaxReorg(node, parent)
			if err != nil {
				return nil, nil, err
			}
		}

		err := ht.checkCheckpoint(node)
		if err != nil {
			return nil, nil, err
		}

		err = ht.headerValidator.ValidateHeader(header, node.Height)
		if err != nil {
			if !ruleerrors.IsRuleError(err) {
				return nil, nil, err
			}
			ht.invalidHashes.Add(*hash, struct{}{})
			return nil, nil, errors.Wrapf(ruleerrors.ErrInvalidHeader, "header %s: %s", hash, err)
		}

		pending[*hash] = node
		newNodes = append(newNodes, node)
		consumed = node
	}

	return newNodes, consumed, nil
}

func (ht *HeaderTree) checkMaxReorg(node *ChainedHeader, parent *ChainedHeader) error {
	maxReorgLength := ht.params.MaxReorgLength
	if maxReorgLength == 0 {
		return nil
	}
	fork := ht.FindFork(parent, ht.consensusTip)
	reorgLength := ht.consensusTip.Height - fork.Height
	if reorgLength > maxReorgLength {
		return errors.Wrapf(ruleerrors.ErrMaxReorgViolation,
			"header %s forks %d blocks behind the consensus tip %s at %s, more than the allowed %d",
			node.Hash, reorgLength, ht.consensusTip, fork, maxReorgLength)
	}
	return nil
}

func (ht *HeaderTree) checkCheckpoint(node *ChainedHeader) error {
	if checkpointHash, ok := ht.params.CheckpointAt(node.Height); ok && !checkpointHash.Equal(node.Hash) {
		return errors.Wrapf(ruleerrors.ErrCheckpointMismatch,
			"header %s at height %d doesn't match checkpoint %s", node.Hash, node.Height, checkpointHash)
	}

	lastCheckpoint := ht.params.LastCheckpoint()
	if lastCheckpoint != nil && node.Height <= lastCheckpoint.Height &&
		ht.consensusTip.Height >= lastCheckpoint.Height {

		return errors.Wrapf(ruleerrors.ErrCheckpointMismatch,
			"header %s at height %d forks before the last checkpoint at height %d",
			node.Hash, node.Height, lastCheckpoint.Height)
	}
	return nil
}

// markRequiredBlocks decides which blocks are worth downloading after
// consumed was connected. Blocks on the trusted chain (below the last
// checkpoint or up to the assumed valid block) are always wanted. Other
// blocks are wanted only if consumed has more work than the consensus tip.
func (ht *HeaderTree) markRequiredBlocks(consumed *ChainedHeader, result *ConnectResult) {
	if consumed.ChainWork.Cmp(ht.consensusTip.ChainWork) > 0 {
		ht.markRunRequired(consumed, result)
	}

	boundary := ht.trustedBoundary(consumed)
	if boundary == nil {
		return
	}
	for node := boundary; node.validationState == externalapi.StatusHeaderValidated; node = ht.parent(node) {
		node.validationState = externalapi.StatusAssumedValid
	}
	ht.markRunRequired(boundary, result)
}

// markRunRequired walks back from top while blocks are not wanted yet and
// marks them required, extending the result's download range. Abandoned
// downloads below top are required again as well.
func (ht *HeaderTree) markRunRequired(top *ChainedHeader, result *ConnectResult) {
	node := top
	for node.availability == externalapi.AvailabilityHeaderOnly {
		ht.markRequired(node, result)
		node = ht.parent(node)
	}

	for hash, abandoned := range ht.abandonedDownloads {
		if abandoned.availability != externalapi.AvailabilityHeaderOnly {
			delete(ht.abandonedDownloads, hash)
			continue
		}
		if !ht.IsAncestorOrSelf(abandoned, top) {
			continue
		}
		delete(ht.abandonedDownloads, hash)
		log.Debugf("Requiring abandoned block %s again", abandoned)
		ht.markRequired(abandoned, result)
	}
}

func (ht *HeaderTree) markRequired(node *ChainedHeader, result *ConnectResult) {
	node.availability = externalapi.AvailabilityBlockRequired
	if result.DownloadTo == nil || node.Height > result.DownloadTo.Height {
		result.DownloadTo = node
	}
	if result.DownloadFrom == nil || node.Height < result.DownloadFrom.Height {
		result.DownloadFrom = node
	}
}

// trustedBoundary returns the highest node on the chain ending at node
// that is covered by a checkpoint or the assumed valid block, if any.
func (ht *HeaderTree) trustedBoundary(node *ChainedHeader) *ChainedHeader {
	var boundary *ChainedHeader
	if lastCheckpoint := ht.params.LastCheckpoint(); lastCheckpoint != nil {
		if node.Height <= lastCheckpoint.Height {
			boundary = node
		} else {
			boundary = ht.AncestorAt(node, lastCheckpoint.Height)
		}
	}

	if ht.params.AssumeValid != nil {
		if assumeValidNode, ok := ht.nodes[*ht.params.AssumeValid]; ok {
			var candidate *ChainedHeader
			if ht.IsAncestorOrSelf(node, assumeValidNode) {
				candidate = node
			} else if ht.IsAncestorOrSelf(assumeValidNode, node) {
				candidate = assumeValidNode
			}
			if candidate != nil && (boundary == nil || candidate.Height > boundary.Height) {
				boundary = candidate
			}
		}
	}
	return boundary
}

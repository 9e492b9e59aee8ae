package consensusmanager

import (
	"github.com/davecgh/go-spew/spew"
	"github.com/kaspanet/chainconsensus/domain/consensus/blockdownload"
	"github.com/kaspanet/chainconsensus/domain/consensus/headertree"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
	"github.com/kaspanet/chainconsensus/protocol/protocolerrors"
	"github.com/pkg/errors"
)

// HeadersResult describes how a batch of headers presented by a peer was
// handled.
type HeadersResult struct {
	// Consumed is the last header of the batch the peer's claim moved to.
	Consumed *headertree.ChainedHeader

	// NewHeaders is the number of headers that weren't known before.
	NewHeaders int

	// DidNotConnect is set if the batch doesn't connect to any known
	// header. The peer was asked to resync.
	DidNotConnect bool

	// PeerBanned is set if the batch proved the peer misbehaves.
	PeerBanned bool
}

// HeadersPresented connects a batch of consecutive headers sent by peerID
// and requests the blocks of the chains that became worth downloading.
// Errors caused by the peer are handled by banning it and are reported in
// the result. The returned error is set only for local failures.
func (m *ConsensusManager) HeadersPresented(peerID externalapi.PeerID,
	headers []*externalapi.DomainBlockHeader) (*HeadersResult, error) {

	err := m.checkHalted()
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return &HeadersResult{}, nil
	}

	err = checkHeadersBatch(headers)
	if protocolerrors.ShouldBan(err) {
		log.Tracef("Malformed header batch from peer %s: %s", peerID, logger.NewLogClosure(func() string {
			return spew.Sdump(headers)
		}))
		m.banPeer(peerID, err.Error())
		return &HeadersResult{PeerBanned: true}, nil
	}

	m.peerLock.Lock()
	connectResult, err := m.headerTree.ConnectHeaders(peerID, headers)
	if err != nil {
		result, err := m.handleConnectError(peerID, err)
		m.peerLock.Unlock()
		if result != nil && result.PeerBanned {
			m.banPeer(peerID, err.Error())
			return result, nil
		}
		if result != nil && result.DidNotConnect {
			m.peerManager.ResyncPeer(peerID)
			return result, nil
		}
		return nil, err
	}
	delete(m.unconnectedBatches, peerID)
	if connectResult.DownloadFrom != nil {
		m.enqueueDownloads(m.headerTree.BlocksToDownload(connectResult.DownloadFrom, connectResult.DownloadTo))
	}
	m.peerLock.Unlock()

	consumed := connectResult.Consumed
	m.blockPuller.NewPeerTipClaimed(peerID, consumed.Hash, consumed.Height)
	m.requestDownloads()

	return &HeadersResult{
		Consumed:   consumed,
		NewHeaders: connectResult.NewHeaders,
	}, nil
}

// handleConnectError classifies an error returned by the header tree. It
// returns a nil result for errors that aren't the peer's fault. This
// function MUST be called with the peer lock held.
func (m *ConsensusManager) handleConnectError(peerID externalapi.PeerID, err error) (*HeadersResult, error) {
	if errors.Is(err, ruleerrors.ErrHeaderDoesNotConnect) {
		m.unconnectedBatches[peerID]++
		if m.unconnectedBatches[peerID] > MaxUnconnectedHeaderBatches {
			return &HeadersResult{PeerBanned: true}, protocolerrors.Wrapf(true, err,
				"peer sent %d consecutive header batches that don't connect", m.unconnectedBatches[peerID])
		}
		log.Debugf("Headers from peer %s don't connect: %s", peerID, err)
		return &HeadersResult{DidNotConnect: true}, err
	}
	if ruleerrors.IsBannable(err) {
		return &HeadersResult{PeerBanned: true}, err
	}
	return nil, err
}

// checkHeadersBatch enforces the batch shape every peer must respect.
func checkHeadersBatch(headers []*externalapi.DomainBlockHeader) error {
	if len(headers) > MaxHeadersPerBatch {
		return protocolerrors.Errorf(true, "got %d headers in a batch, while the maximum is %d",
			len(headers), MaxHeadersPerBatch)
	}
	previousHash := consensushashing.HeaderHash(headers[0])
	for i := 1; i < len(headers); i++ {
		if !headers[i].PrevBlockHash.Equal(previousHash) {
			return protocolerrors.Errorf(true, "header %d of the batch doesn't point to header %d", i, i-1)
		}
		previousHash = consensushashing.HeaderHash(headers[i])
	}
	return nil
}

// enqueueDownloads splits nodes into runs of consecutive heights and
// enqueues them. This function MUST be called with the peer lock held.
func (m *ConsensusManager) enqueueDownloads(nodes []*headertree.ChainedHeader) {
	var run []*externalapi.DomainHash
	var firstHeight uint64
	flush := func() {
		if len(run) > 0 {
			m.coordinator.Enqueue(run, firstHeight, m.blockDownloadCallback())
			run = nil
		}
	}
	for i, node := range nodes {
		if i > 0 && node.Height != nodes[i-1].Height+1 {
			flush()
		}
		if len(run) == 0 {
			firstHeight = node.Height
		}
		run = append(run, node.Hash)
	}
	flush()
}

func (m *ConsensusManager) blockDownloadCallback() blockdownload.Callback {
	return func(blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) {
		err := m.onBlockDownloaded(blockHash, block)
		if err != nil {
			log.Errorf("Processing block %s failed: %s", blockHash, err)
		}
	}
}

// requestDownloads hands the work the coordinator's ceilings allow to the
// block puller.
func (m *ConsensusManager) requestDownloads() {
	averageBlockSize := m.blockPuller.AverageBlockSizeBytes()

	m.peerLock.Lock()
	requests := m.coordinator.NextRequests(m.headerTree.UnconsumedBlocksDataBytes(), averageBlockSize)
	m.peerLock.Unlock()

	for _, request := range requests {
		m.blockPuller.RequestBlocksDownload(request.Hashes, request.FirstHeight)
	}
}

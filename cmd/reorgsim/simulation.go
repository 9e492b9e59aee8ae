package main

import (
	"github.com/kaspanet/chainconsensus/domain/consensus/blockdownload"
	"github.com/kaspanet/chainconsensus/domain/consensus/consensusmanager"
	"github.com/kaspanet/chainconsensus/domain/consensus/datastructures/blockstore"
	"github.com/kaspanet/chainconsensus/domain/consensus/datastructures/finalizedblockstore"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/infrastructure/db/database/ldb"
	"github.com/kaspanet/chainconsensus/infrastructure/logger"
	"github.com/pkg/errors"
)

const (
	firstPeerID  externalapi.PeerID = 1
	secondPeerID externalapi.PeerID = 2
)

type simulationResult struct {
	tipHash         *externalapi.DomainHash
	tipHeight       uint64
	finalizedHash   *externalapi.DomainHash
	finalizedHeight uint64
	// expectedTipHash is nil when the competing chain has an invalid
	// block. The tip must then avoid rejectedHashes.
	expectedTipHash *externalapi.DomainHash
	rejectedHashes  map[externalapi.DomainHash]struct{}
	connected       int
	disconnected    int
	bannedPeers     []externalapi.PeerID
}

// runSimulation announces a chain from one peer and then a competing,
// heavier chain from another, and returns where the consensus manager
// ended up.
func runSimulation(cfg *simulationConfig, dbPath string, metrics *blockdownload.Metrics) (*simulationResult, error) {
	defer logger.LogAndMeasureExecutionTime(log, "runSimulation")()

	db, err := ldb.NewLevelDB(dbPath, cfg.DBCacheSizeMiB)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	blockStore, err := blockstore.New(db, cfg.BlockCacheSize)
	if err != nil {
		return nil, err
	}
	finalizedBlockStore := finalizedblockstore.New(db)

	params := cfg.NetParams()
	chainA := buildChain(params.GenesisBlock, cfg.ChainALength, "a", params.GenesisBlock.Header.Bits)
	forkBlock := params.GenesisBlock
	if cfg.ForkHeight > 0 {
		forkBlock = chainA[cfg.ForkHeight-1]
	}
	chainB := buildChain(forkBlock, cfg.ChainBLength, "b", harderBits(params.GenesisBlock.Header.Bits))

	ruleEngine := newSimRuleEngine(params)
	expectedTipHash := consensushashing.BlockHash(chainB[len(chainB)-1])
	rejectedHashes := make(map[externalapi.DomainHash]struct{})
	if cfg.InvalidBlock > 0 {
		ruleEngine.setInvalidBlock(consensushashing.BlockHash(chainB[cfg.InvalidBlock-1]))
		expectedTipHash = nil
		for _, block := range chainB[cfg.InvalidBlock-1:] {
			rejectedHashes[*consensushashing.BlockHash(block)] = struct{}{}
		}
	}

	network := newSimNetwork(blockSize(chainA[0]))
	listener := &simListener{}
	manager := consensusmanager.New(cfg.ConsensusManagerConfig(metrics), ruleEngine, network,
		blockStore, finalizedBlockStore, network, listener)
	err = manager.Initialize()
	if err != nil {
		return nil, err
	}

	err = presentChain(manager, network, newSimPeer(firstPeerID, chainA))
	if err != nil {
		return nil, err
	}
	log.Infof("Synced the first chain, tip is %s", manager.Tip())

	if cfg.DisconnectFirst {
		network.removePeer(firstPeerID)
		manager.PeerDisconnected(firstPeerID)
	}
	err = presentChain(manager, network, newSimPeer(secondPeerID, chainB))
	if err != nil {
		return nil, err
	}

	tip := manager.Tip()
	finalizedHash, finalizedHeight := manager.FinalizedBlock()
	connected, disconnected := listener.counts()
	network.mutex.Lock()
	bannedPeers := append([]externalapi.PeerID{}, network.bannedPeers...)
	network.mutex.Unlock()

	return &simulationResult{
		tipHash:         tip.Hash,
		tipHeight:       tip.Height,
		finalizedHash:   finalizedHash,
		finalizedHeight: finalizedHeight,
		expectedTipHash: expectedTipHash,
		rejectedHashes:  rejectedHashes,
		connected:       connected,
		disconnected:    disconnected,
		bannedPeers:     bannedPeers,
	}, nil
}

// presentChain connects the peer and sends its headers in batches, then
// serves the blocks the manager asks for.
func presentChain(manager *consensusmanager.ConsensusManager, network *simNetwork, peer *simPeer) error {
	network.addPeer(peer)
	headers := peer.headers()
	for start := 0; start < len(headers); start += consensusmanager.MaxHeadersPerBatch {
		end := start + consensusmanager.MaxHeadersPerBatch
		if end > len(headers) {
			end = len(headers)
		}
		result, err := manager.HeadersPresented(peer.id, headers[start:end])
		if err != nil {
			return err
		}
		if result.PeerBanned {
			log.Warnf("Peer %s was banned while presenting headers", peer.id)
			break
		}
		if result.DidNotConnect {
			return errors.Errorf("headers of peer %s were rejected", peer.id)
		}
		log.Debugf("Peer %s presented %d new headers", peer.id, result.NewHeaders)
	}
	return network.deliverPending(manager)
}

// verify checks that the simulation ended where it should have.
func (result *simulationResult) verify() error {
	if result.expectedTipHash != nil {
		if !result.tipHash.Equal(result.expectedTipHash) {
			return errors.Errorf("the simulation ended at tip %s while %s was expected",
				result.tipHash, result.expectedTipHash)
		}
		return nil
	}

	if _, ok := result.rejectedHashes[*result.tipHash]; ok {
		return errors.Errorf("the simulation ended at the invalid tip %s", result.tipHash)
	}
	for _, peerID := range result.bannedPeers {
		if peerID == secondPeerID {
			return nil
		}
	}
	return errors.Errorf("peer %s sent an invalid block but wasn't banned", secondPeerID)
}

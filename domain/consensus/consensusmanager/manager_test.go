package consensusmanager

import (
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/kaspanet/chainconsensus/domain/consensus/headertree"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/ruleerrors"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/testutils"
	"github.com/pkg/errors"
)

const averageBlockSize = 1000

type testContext struct {
	t           *testing.T
	params      *chainconfig.Params
	manager     *ConsensusManager
	ruleEngine  *testutils.FakeRuleEngine
	puller      *testutils.FakeBlockPuller
	store       *testutils.MemoryBlockStore
	peerManager *testutils.FakePeerManager
	listener    *testutils.FakeConsensusListener

	blocks    map[externalapi.DomainHash]*externalapi.DomainBlock
	delivered int

	fatalLock   sync.Mutex
	fatalErrors []error
}

func newTestContext(t *testing.T, params *chainconfig.Params) *testContext {
	return newTestContextWithStore(t, params, testutils.NewMemoryBlockStore(), testutils.NewFakeRuleEngine(params.GenesisHash))
}

func newTestContextWithStore(t *testing.T, params *chainconfig.Params, store *testutils.MemoryBlockStore,
	ruleEngine *testutils.FakeRuleEngine) *testContext {

	tc := &testContext{
		t:           t,
		params:      params,
		ruleEngine:  ruleEngine,
		puller:      testutils.NewFakeBlockPuller(averageBlockSize),
		store:       store,
		peerManager: &testutils.FakePeerManager{},
		listener:    &testutils.FakeConsensusListener{},
		blocks:      make(map[externalapi.DomainHash]*externalapi.DomainBlock),
	}

	config := DefaultConfig(params)
	config.MaxConcurrentPartialValidations = 4
	config.FatalErrorHandler = func(err error) {
		tc.fatalLock.Lock()
		defer tc.fatalLock.Unlock()
		tc.fatalErrors = append(tc.fatalErrors, err)
	}
	tc.manager = New(config, tc.ruleEngine, tc.puller, tc.store, tc.store, tc.peerManager, tc.listener)
	return tc
}

func (tc *testContext) genesis() *externalapi.DomainBlock {
	return tc.params.GenesisBlock
}

func (tc *testContext) addBlocks(blocks []*externalapi.DomainBlock) {
	for _, block := range blocks {
		tc.blocks[*consensushashing.BlockHash(block)] = block
	}
}

func (tc *testContext) fatalErrorCount() int {
	tc.fatalLock.Lock()
	defer tc.fatalLock.Unlock()
	return len(tc.fatalErrors)
}

func (tc *testContext) presentHeaders(peerID externalapi.PeerID, blocks []*externalapi.DomainBlock) *HeadersResult {
	tc.addBlocks(blocks)
	result, err := tc.manager.HeadersPresented(peerID, testutils.Headers(blocks))
	if err != nil {
		tc.t.Fatalf("HeadersPresented: %+v", err)
	}
	return result
}

// deliverAll answers every download request as peerID until no request
// is left and every validation finished.
func (tc *testContext) deliverAll(peerID externalapi.PeerID) {
	for {
		tc.manager.WaitForPendingValidations()
		requested := tc.puller.RequestedHashes()
		if tc.delivered == len(requested) {
			return
		}
		for _, blockHash := range requested[tc.delivered:] {
			tc.delivered++
			block, ok := tc.blocks[*blockHash]
			if !ok {
				tc.t.Fatalf("block %s was requested but is unknown to the test", blockHash)
			}
			err := tc.manager.BlockDownloaded(peerID, blockHash, block)
			if err != nil {
				tc.t.Fatalf("BlockDownloaded: %+v", err)
			}
		}
	}
}

// prepareChain connects the headers of blocks on behalf of peerID and
// attaches their blocks, so that the last one is ready for full validation.
// Nothing is validated automatically.
func (tc *testContext) prepareChain(peerID externalapi.PeerID, blocks []*externalapi.DomainBlock) []*headertree.ChainedHeader {
	tc.addBlocks(blocks)

	m := tc.manager
	m.peerLock.Lock()
	defer m.peerLock.Unlock()

	_, err := m.headerTree.ConnectHeaders(peerID, testutils.Headers(blocks))
	if err != nil {
		tc.t.Fatalf("ConnectHeaders: %+v", err)
	}
	nodes := make([]*headertree.ChainedHeader, len(blocks))
	for i, block := range blocks {
		blockHash := consensushashing.BlockHash(block)
		progress, ok := m.headerTree.BlockDataDownloaded(blockHash, block)
		if !ok {
			tc.t.Fatalf("block %s is not required", blockHash)
		}
		for _, node := range progress.PartialValidationRequired {
			m.headerTree.PartialValidationSucceeded(node)
		}
		nodes[i], _ = m.headerTree.Node(blockHash)
	}
	return nodes
}

// connectChain prepares blocks and fully validates them.
func (tc *testContext) connectChain(peerID externalapi.PeerID, blocks []*externalapi.DomainBlock) []*headertree.ChainedHeader {
	nodes := tc.prepareChain(peerID, blocks)
	result, err := tc.manager.FullyValidate(nodes[len(nodes)-1])
	if err != nil {
		tc.t.Fatalf("FullyValidate: %+v", err)
	}
	if !result.Succeeded {
		tc.t.Fatalf("FullyValidate didn't connect the chain: %s", result.BanReason)
	}
	return nodes
}

func (tc *testContext) assertTip(testName string, block *externalapi.DomainBlock, height uint64) {
	tip := tc.manager.Tip()
	if !tip.Hash.Equal(consensushashing.BlockHash(block)) || tip.Height != height {
		tc.t.Fatalf("%s: expected the tip to be %s at height %d, got %s",
			testName, consensushashing.BlockHash(block), height, tip)
	}
	stateHash, _ := tc.ruleEngine.CurrentStateHash()
	if !stateHash.Equal(tip.Hash) {
		tc.t.Fatalf("%s: the rule engine's state %s doesn't match the tip %s", testName, stateHash, tip)
	}
}

func TestHeadersAndBlocksExtendTip(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 5, "a")

	result := tc.presentHeaders(1, chain)
	if result.NewHeaders != 5 || result.PeerBanned || result.DidNotConnect {
		t.Fatalf("TestHeadersAndBlocksExtendTip: unexpected result %+v", result)
	}
	if !externalapi.HashesEqual(tc.puller.RequestedHashes(), testutils.Hashes(chain)) {
		t.Fatalf("TestHeadersAndBlocksExtendTip: expected all 5 blocks to be requested")
	}
	peerTip, ok := tc.puller.PeerTip(1)
	if !ok || !peerTip.Equal(consensushashing.BlockHash(chain[4])) {
		t.Fatalf("TestHeadersAndBlocksExtendTip: the puller wasn't told about the peer's tip")
	}

	tc.deliverAll(1)

	tc.assertTip("TestHeadersAndBlocksExtendTip", chain[4], 5)
	if len(tc.listener.Connected()) != 5 {
		t.Fatalf("TestHeadersAndBlocksExtendTip: expected 5 connected blocks, got %d", len(tc.listener.Connected()))
	}
	for _, blockHash := range testutils.Hashes(chain) {
		block, _ := tc.store.GetBlock(blockHash)
		if block == nil {
			t.Fatalf("TestHeadersAndBlocksExtendTip: block %s wasn't stored", blockHash)
		}
	}
	if tc.manager.UnconsumedBlocksDataBytes() != 0 {
		t.Fatalf("TestHeadersAndBlocksExtendTip: expected every block to be consumed, %d bytes left",
			tc.manager.UnconsumedBlocksDataBytes())
	}
	if tc.manager.BlocksInFlight() != 0 {
		t.Fatalf("TestHeadersAndBlocksExtendTip: expected no blocks in flight")
	}
}

func TestSameHeaderFromTwoPeers(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 1, "a")

	tc.presentHeaders(1, chain)
	result := tc.presentHeaders(2, chain)
	if result.NewHeaders != 0 {
		t.Fatalf("TestSameHeaderFromTwoPeers: the second presentation created %d headers", result.NewHeaders)
	}
	if tc.manager.NodeCount() != 2 {
		t.Fatalf("TestSameHeaderFromTwoPeers: expected 2 nodes, got %d", tc.manager.NodeCount())
	}
	claimants := tc.manager.Claimants(consensushashing.BlockHash(chain[0]))
	if len(claimants) != 2 || claimants[0] != 1 || claimants[1] != 2 {
		t.Fatalf("TestSameHeaderFromTwoPeers: expected peers 1 and 2 to claim the header, got %v", claimants)
	}
	if len(tc.puller.RequestedHashes()) != 1 {
		t.Fatalf("TestSameHeaderFromTwoPeers: the block was requested %d times", len(tc.puller.RequestedHashes()))
	}
}

func TestReorgThroughPeers(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chainA := testutils.BuildChain(tc.genesis(), 10, "a")
	chainB := testutils.BuildChain(chainA[4], 7, "b")

	tc.presentHeaders(1, chainA)
	tc.deliverAll(1)
	tc.assertTip("TestReorgThroughPeers", chainA[9], 10)

	tc.presentHeaders(2, chainB)
	tc.deliverAll(2)
	tc.assertTip("TestReorgThroughPeers", chainB[6], 12)

	if len(tc.listener.Disconnected()) != 5 {
		t.Fatalf("TestReorgThroughPeers: expected 5 disconnected blocks, got %d", len(tc.listener.Disconnected()))
	}
	if _, ok := tc.manager.Node(consensushashing.BlockHash(chainA[9])); !ok {
		t.Fatalf("TestReorgThroughPeers: peer 1 still claims the old chain, it must be kept")
	}
	if len(tc.peerManager.Resyncs()) != 0 {
		t.Fatalf("TestReorgThroughPeers: a reorg within the max reorg length must not resync peers")
	}
}

func TestMaxReorgViolationBansPeer(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chainA := testutils.BuildChain(tc.genesis(), 25, "a")
	tc.connectChain(1, chainA)
	nodeCount := tc.manager.NodeCount()

	competing := testutils.BuildChainWithBits(chainA[1], 30, "b", testutils.HardBits)
	result := tc.presentHeaders(2, competing)
	if !result.PeerBanned {
		t.Fatalf("TestMaxReorgViolationBansPeer: expected the peer to be banned")
	}
	bans := tc.peerManager.Bans()
	if len(bans) != 1 || bans[0].PeerID != 2 || bans[0].Duration != DefaultBanDuration {
		t.Fatalf("TestMaxReorgViolationBansPeer: unexpected bans %s", spew.Sdump(bans))
	}
	tc.assertTip("TestMaxReorgViolationBansPeer", chainA[24], 25)
	if tc.manager.NodeCount() != nodeCount {
		t.Fatalf("TestMaxReorgViolationBansPeer: the tree changed from %d to %d nodes",
			nodeCount, tc.manager.NodeCount())
	}
}

func TestPeerDisconnectPrunesHeaders(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 5, "a")

	tc.presentHeaders(1, chain)
	if tc.manager.NodeCount() != 6 {
		t.Fatalf("TestPeerDisconnectPrunesHeaders: expected 6 nodes, got %d", tc.manager.NodeCount())
	}

	tc.manager.PeerDisconnected(1)
	if tc.manager.NodeCount() != 1 {
		t.Fatalf("TestPeerDisconnectPrunesHeaders: expected only genesis to be left, got %d nodes",
			tc.manager.NodeCount())
	}
	disconnected := tc.puller.DisconnectedPeers()
	if len(disconnected) != 1 || disconnected[0] != 1 {
		t.Fatalf("TestPeerDisconnectPrunesHeaders: the puller wasn't told about the disconnection")
	}

	// Blocks that were in flight are dropped when they arrive.
	tc.deliverAll(1)
	tc.assertTip("TestPeerDisconnectPrunesHeaders", tc.genesis(), 0)
}

func TestInvalidPartialBansPeer(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 5, "a")
	invalidHash := consensushashing.BlockHash(chain[2])
	tc.ruleEngine.SetInvalidPartial(invalidHash)

	tc.presentHeaders(1, chain)
	tc.deliverAll(1)

	if !tc.peerManager.IsBanned(1) {
		t.Fatalf("TestInvalidPartialBansPeer: expected the peer to be banned")
	}
	if _, ok := tc.manager.Node(invalidHash); ok {
		t.Fatalf("TestInvalidPartialBansPeer: the invalid block is still in the tree")
	}
	if tc.manager.Tip().Height > 2 {
		t.Fatalf("TestInvalidPartialBansPeer: the tip %s is above the invalid block", tc.manager.Tip())
	}
	if len(tc.ruleEngine.StateChain()) != int(tc.manager.Tip().Height)+1 {
		t.Fatalf("TestInvalidPartialBansPeer: the rule engine's state doesn't match the tip")
	}

	result := tc.presentHeaders(2, chain)
	if !result.PeerBanned {
		t.Fatalf("TestInvalidPartialBansPeer: presenting a known invalid header must get the peer banned")
	}
}

func TestIntegrityMismatchBansPeer(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 3, "a")
	tc.presentHeaders(1, chain)

	tampered := chain[0].Clone()
	tampered.Payload = []byte("tampered")
	firstHash := consensushashing.BlockHash(chain[0])
	err := tc.manager.BlockDownloaded(2, firstHash, tampered)
	if err != nil {
		t.Fatalf("TestIntegrityMismatchBansPeer: BlockDownloaded: %+v", err)
	}
	tc.delivered++

	if !tc.peerManager.IsBanned(2) {
		t.Fatalf("TestIntegrityMismatchBansPeer: expected the sender of the tampered block to be banned")
	}
	requestCount := 0
	for _, blockHash := range tc.puller.RequestedHashes() {
		if blockHash.Equal(firstHash) {
			requestCount++
		}
	}
	if requestCount != 2 {
		t.Fatalf("TestIntegrityMismatchBansPeer: expected the block to be requested again, got %d requests", requestCount)
	}

	tc.deliverAll(1)
	tc.assertTip("TestIntegrityMismatchBansPeer", chain[2], 3)
}

func TestDownloadFailureRetries(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 1, "a")
	blockHash := consensushashing.BlockHash(chain[0])
	tc.presentHeaders(1, chain)

	for i := 0; i <= maxDownloadRetries; i++ {
		err := tc.manager.BlockDownloaded(1, blockHash, nil)
		if err != nil {
			t.Fatalf("TestDownloadFailureRetries: BlockDownloaded: %+v", err)
		}
	}
	if len(tc.puller.RequestedHashes()) != maxDownloadRetries+1 {
		t.Fatalf("TestDownloadFailureRetries: expected %d requests, got %d",
			maxDownloadRetries+1, len(tc.puller.RequestedHashes()))
	}
	node, _ := tc.manager.Node(blockHash)
	if node.Availability() != externalapi.AvailabilityHeaderOnly {
		t.Fatalf("TestDownloadFailureRetries: expected the block to be given up on, got %s", node.Availability())
	}

	// Presenting the header again requests the block again.
	tc.presentHeaders(1, chain)
	tc.delivered = len(tc.puller.RequestedHashes()) - 1
	tc.deliverAll(1)
	tc.assertTip("TestDownloadFailureRetries", chain[0], 1)
}

func TestAbandonedBlockInsideChainIsRequestedAgain(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 5, "a")
	failingHash := consensushashing.BlockHash(chain[2])
	tc.presentHeaders(1, chain)

	for {
		tc.manager.WaitForPendingValidations()
		requested := tc.puller.RequestedHashes()
		if tc.delivered == len(requested) {
			break
		}
		for _, blockHash := range requested[tc.delivered:] {
			tc.delivered++
			block := tc.blocks[*blockHash]
			if blockHash.Equal(failingHash) {
				block = nil
			}
			err := tc.manager.BlockDownloaded(1, blockHash, block)
			if err != nil {
				t.Fatalf("TestAbandonedBlockInsideChainIsRequestedAgain: BlockDownloaded: %+v", err)
			}
		}
	}
	tc.assertTip("TestAbandonedBlockInsideChainIsRequestedAgain", chain[1], 2)
	node, _ := tc.manager.Node(failingHash)
	if node.Availability() != externalapi.AvailabilityHeaderOnly {
		t.Fatalf("TestAbandonedBlockInsideChainIsRequestedAgain: expected block 3 to be given up on, got %s",
			node.Availability())
	}

	requestsBefore := len(tc.puller.RequestedHashes())
	tc.presentHeaders(2, chain)
	requested := tc.puller.RequestedHashes()
	if len(requested) != requestsBefore+1 || !requested[len(requested)-1].Equal(failingHash) {
		t.Fatalf("TestAbandonedBlockInsideChainIsRequestedAgain: expected only block 3 to be requested again, "+
			"got %d new requests", len(requested)-requestsBefore)
	}

	tc.deliverAll(2)
	tc.assertTip("TestAbandonedBlockInsideChainIsRequestedAgain", chain[4], 5)
}

func TestProtocolViolations(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))

	oversized := testutils.BuildChain(tc.genesis(), MaxHeadersPerBatch+1, "a")
	result := tc.presentHeaders(1, oversized)
	if !result.PeerBanned || !tc.peerManager.IsBanned(1) {
		t.Fatalf("TestProtocolViolations: expected an oversized batch to get the peer banned")
	}

	chain := testutils.BuildChain(tc.genesis(), 3, "b")
	result = tc.presentHeaders(2, []*externalapi.DomainBlock{chain[0], chain[2]})
	if !result.PeerBanned || !tc.peerManager.IsBanned(2) {
		t.Fatalf("TestProtocolViolations: expected a non-consecutive batch to get the peer banned")
	}
	if tc.manager.NodeCount() != 1 {
		t.Fatalf("TestProtocolViolations: rejected batches must not change the tree")
	}
}

func TestUnconnectedHeaderBatches(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))
	chain := testutils.BuildChain(tc.genesis(), 3, "a")

	for i := 0; i < MaxUnconnectedHeaderBatches; i++ {
		result := tc.presentHeaders(1, chain[1:])
		if !result.DidNotConnect || result.PeerBanned {
			t.Fatalf("TestUnconnectedHeaderBatches: batch %d: unexpected result %+v", i, result)
		}
	}
	if len(tc.peerManager.Resyncs()) != MaxUnconnectedHeaderBatches {
		t.Fatalf("TestUnconnectedHeaderBatches: expected the peer to be asked to resync every time")
	}

	// A connecting batch resets the count.
	tc.presentHeaders(1, chain[:1])
	result := tc.presentHeaders(1, testutils.BuildChain(chain[2], 1, "b"))
	if result.PeerBanned {
		t.Fatalf("TestUnconnectedHeaderBatches: the count wasn't reset by a connecting batch")
	}

	for i := 0; i < MaxUnconnectedHeaderBatches; i++ {
		tc.presentHeaders(2, chain[2:])
	}
	result = tc.presentHeaders(2, chain[2:])
	if !result.PeerBanned || !tc.peerManager.IsBanned(2) {
		t.Fatalf("TestUnconnectedHeaderBatches: expected the peer to be banned after %d unconnected batches",
			MaxUnconnectedHeaderBatches+1)
	}
	if tc.peerManager.IsBanned(1) {
		t.Fatalf("TestUnconnectedHeaderBatches: peer 1 must not be banned")
	}
}

func TestBlockMined(t *testing.T) {
	tc := newTestContext(t, testutils.SimnetParamsWithMaxReorgLength(20))

	mined := testutils.BuildChain(tc.genesis(), 1, "mined")[0]
	err := tc.manager.BlockMined(mined)
	if err != nil {
		t.Fatalf("TestBlockMined: BlockMined: %+v", err)
	}
	tc.assertTip("TestBlockMined", mined, 1)
	if len(tc.ruleEngine.PartialValidateCalls()) != 1 {
		t.Fatalf("TestBlockMined: expected the block to be partially validated")
	}

	stale := testutils.BuildChain(tc.genesis(), 1, "stale")[0]
	err = tc.manager.BlockMined(stale)
	if !errors.Is(err, ruleerrors.ErrBlockDoesNotExtendTip) {
		t.Fatalf("TestBlockMined: expected ErrBlockDoesNotExtendTip, got %+v", err)
	}

	invalid := testutils.BuildChain(mined, 1, "invalid")[0]
	invalidHash := consensushashing.BlockHash(invalid)
	tc.ruleEngine.SetInvalidFull(invalidHash)
	err = tc.manager.BlockMined(invalid)
	if !errors.Is(err, ruleerrors.ErrInvalidBlock) {
		t.Fatalf("TestBlockMined: expected ErrInvalidBlock, got %+v", err)
	}
	tc.assertTip("TestBlockMined", mined, 1)
	if _, ok := tc.manager.Node(invalidHash); ok {
		t.Fatalf("TestBlockMined: the invalid block is still in the tree")
	}
	if tc.manager.NodeCount() != 2 {
		t.Fatalf("TestBlockMined: expected genesis and the mined block in the tree, got %d nodes",
			tc.manager.NodeCount())
	}
	if len(tc.peerManager.Bans()) != 0 {
		t.Fatalf("TestBlockMined: an invalid mined block must not ban anyone")
	}
	if tc.fatalErrorCount() != 0 {
		t.Fatalf("TestBlockMined: an invalid mined block is not fatal")
	}
}

func TestInitialize(t *testing.T) {
	params := testutils.SimnetParamsWithMaxReorgLength(20)
	chain := testutils.BuildChain(params.GenesisBlock, 30, "a")
	chainHashes := testutils.Hashes(chain)

	store := testutils.NewMemoryBlockStore()
	for i, block := range chain {
		err := store.PutBlock(chainHashes[i], block)
		if err != nil {
			t.Fatalf("TestInitialize: PutBlock: %+v", err)
		}
	}
	err := store.SaveFinalizedBlock(chainHashes[9], 10)
	if err != nil {
		t.Fatalf("TestInitialize: SaveFinalizedBlock: %+v", err)
	}
	ruleEngine := testutils.NewFakeRuleEngine(params.GenesisHash)
	ruleEngine.ConnectDirectly(chainHashes)

	tc := newTestContextWithStore(t, params, store, ruleEngine)
	err = tc.manager.Initialize()
	if err != nil {
		t.Fatalf("TestInitialize: Initialize: %+v", err)
	}
	tc.assertTip("TestInitialize", chain[29], 30)
	finalizedHash, finalizedHeight := tc.manager.FinalizedBlock()
	if !finalizedHash.Equal(chainHashes[9]) || finalizedHeight != 10 {
		t.Fatalf("TestInitialize: expected block 10 to be finalized, got %s at %d", finalizedHash, finalizedHeight)
	}
	if tc.manager.NodeCount() != 31 {
		t.Fatalf("TestInitialize: expected 31 nodes, got %d", tc.manager.NodeCount())
	}

	// The chain continues from the loaded tip.
	next := testutils.BuildChain(chain[29], 2, "b")
	tc.presentHeaders(1, next)
	tc.deliverAll(1)
	tc.assertTip("TestInitialize", next[1], 32)

	missing := testutils.NewMemoryBlockStore()
	missingEngine := testutils.NewFakeRuleEngine(params.GenesisHash)
	missingEngine.ConnectDirectly(chainHashes)
	tc = newTestContextWithStore(t, params, missing, missingEngine)
	err = tc.manager.Initialize()
	if err == nil {
		t.Fatalf("TestInitialize: expected an error when the persisted chain is missing from the store")
	}
}

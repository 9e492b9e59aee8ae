package headertree

import (
	"math/big"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/math"
	"github.com/pkg/errors"
)

const (
	// LocalPeerID claims the consensus tip.
	LocalPeerID externalapi.PeerID = -1

	// ReorgTargetPeerID claims the target of an in-progress reorg, so that
	// the branch leading to it can't be pruned while the reorg runs.
	ReorgTargetPeerID externalapi.PeerID = -2

	invalidHashesCacheSize = 10000
)

// HeaderValidator runs the header checks that don't depend on chain state.
type HeaderValidator interface {
	ValidateHeader(header *externalapi.DomainBlockHeader, height uint64) error
}

// HeaderTree is the tree of all candidate chains known to the node, rooted
// at genesis. Nodes are registered by hash; each node owns its children and
// refers to its parent by hash only.
//
// A node is kept only while it has children or is claimed by some peer.
// The consensus tip is claimed by LocalPeerID, which keeps the whole
// chain from genesis to the tip alive.
//
// HeaderTree is not safe for concurrent use. The consensus manager guards
// it with its peer lock.
type HeaderTree struct {
	params          *chainconfig.Params
	headerValidator HeaderValidator

	root         *ChainedHeader
	nodes        map[externalapi.DomainHash]*ChainedHeader
	consensusTip *ChainedHeader

	peerTipsByPeerID map[externalapi.PeerID]externalapi.DomainHash
	peerIDsByTipHash map[externalapi.DomainHash]map[externalapi.PeerID]struct{}

	invalidHashes *lru.Cache[externalapi.DomainHash, struct{}]

	// abandonedDownloads are nodes whose download was given up. They are
	// required again once a heavier chain through them is presented.
	abandonedDownloads map[externalapi.DomainHash]*ChainedHeader

	unconsumedBlocksDataBytes uint64
}

// New creates a header tree that holds only the genesis block of the given
// network, which is also the consensus tip.
func New(params *chainconfig.Params, headerValidator HeaderValidator) *HeaderTree {
	invalidHashes, err := lru.New[externalapi.DomainHash, struct{}](invalidHashesCacheSize)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. the invalid hashes cache size is positive"))
	}

	genesisHeader := params.GenesisBlock.Header
	root := &ChainedHeader{
		Hash:               params.GenesisHash,
		Header:             genesisHeader,
		Height:             0,
		ChainWork:          math.CalcWork(genesisHeader.Bits),
		validationState:    externalapi.StatusFullyValidated,
		availability:       externalapi.AvailabilityConsumed,
		partialStagePassed: true,
	}

	ht := &HeaderTree{
		params:           params,
		headerValidator:  headerValidator,
		root:             root,
		nodes:            map[externalapi.DomainHash]*ChainedHeader{*root.Hash: root},
		consensusTip:     root,
		peerTipsByPeerID: make(map[externalapi.PeerID]externalapi.DomainHash),
		peerIDsByTipHash: make(map[externalapi.DomainHash]map[externalapi.PeerID]struct{}),
		invalidHashes:    invalidHashes,

		abandonedDownloads: make(map[externalapi.DomainHash]*ChainedHeader),
	}
	ht.addClaim(LocalPeerID, root)
	return ht
}

// Initialize appends the persisted chain to the tree and makes its last
// header the consensus tip. chain starts right after genesis. It may only
// be called before any peer presented headers.
func (ht *HeaderTree) Initialize(chain []*externalapi.DomainBlockHeader) error {
	if ht.consensusTip != ht.root || len(ht.nodes) != 1 {
		return errors.New("the header tree was already initialized")
	}

	parent := ht.root
	for _, header := range chain {
		hash := consensushashing.HeaderHash(header)
		if !header.PrevBlockHash.Equal(parent.Hash) {
			return errors.Errorf("persisted header %s doesn't point to %s", hash, parent.Hash)
		}
		node := ht.newChainedHeader(hash, header, parent)
		node.validationState = externalapi.StatusFullyValidated
		node.availability = externalapi.AvailabilityConsumed
		node.partialStagePassed = true
		ht.attach(node)
		parent = node
	}

	ht.setClaim(LocalPeerID, parent)
	ht.consensusTip = parent
	log.Infof("Header tree initialized with tip %s", parent)
	return nil
}

func (ht *HeaderTree) newChainedHeader(hash *externalapi.DomainHash, header *externalapi.DomainBlockHeader,
	parent *ChainedHeader) *ChainedHeader {

	return &ChainedHeader{
		Hash:            hash,
		Header:          header,
		Height:          parent.Height + 1,
		ChainWork:       new(big.Int).Add(parent.ChainWork, math.CalcWork(header.Bits)),
		previousHash:    parent.Hash,
		validationState: externalapi.StatusHeaderValidated,
		availability:    externalapi.AvailabilityHeaderOnly,
	}
}

func (ht *HeaderTree) attach(node *ChainedHeader) {
	parent := ht.nodes[*node.previousHash]
	parent.next = append(parent.next, node)
	ht.nodes[*node.Hash] = node
}

func (ht *HeaderTree) parent(node *ChainedHeader) *ChainedHeader {
	if node.previousHash == nil {
		return nil
	}
	return ht.nodes[*node.previousHash]
}

// ConsensusTip returns the node at the tip of the connected chain.
func (ht *HeaderTree) ConsensusTip() *ChainedHeader {
	return ht.consensusTip
}

// Node returns the node with the given hash.
func (ht *HeaderTree) Node(hash *externalapi.DomainHash) (*ChainedHeader, bool) {
	node, ok := ht.nodes[*hash]
	return node, ok
}

// NodeCount returns the number of nodes in the tree, genesis included.
func (ht *HeaderTree) NodeCount() int {
	return len(ht.nodes)
}

// IsKnownInvalid returns whether the given hash recently failed validation.
func (ht *HeaderTree) IsKnownInvalid(hash *externalapi.DomainHash) bool {
	return ht.invalidHashes.Contains(*hash)
}

// UnconsumedBlocksDataBytes returns the total size of blocks held in
// memory that were not persisted yet.
func (ht *HeaderTree) UnconsumedBlocksDataBytes() uint64 {
	return ht.unconsumedBlocksDataBytes
}

package blockstore

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaspanet/chainconsensus/domain/consensus/model"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/serialization"
	"github.com/kaspanet/chainconsensus/infrastructure/db/database"
	"github.com/pkg/errors"
)

var bucket = database.MakeBucket([]byte("blocks"))

// blockStore represents a store of blocks
type blockStore struct {
	mutex sync.Mutex
	db    database.DataAccessor
	cache *lru.Cache[externalapi.DomainHash, *externalapi.DomainBlock]
}

// New instantiates a new BlockStore
func New(db database.DataAccessor, cacheSize int) (model.BlockStore, error) {
	cache, err := lru.New[externalapi.DomainHash, *externalapi.DomainBlock](cacheSize)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't create a block cache of size %d", cacheSize)
	}
	return &blockStore{
		db:    db,
		cache: cache,
	}, nil
}

// PutBlock writes the given block under blockHash. Blocks are never
// deleted, so blocks of rewound chains stay loadable.
func (bs *blockStore) PutBlock(blockHash *externalapi.DomainHash, block *externalapi.DomainBlock) error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	err := bs.db.Put(bs.hashAsKey(blockHash), serialization.BlockToBytes(block))
	if err != nil {
		return err
	}
	bs.cache.Add(*blockHash, block.Clone())
	log.Tracef("Stored block %s", blockHash)
	return nil
}

// GetBlock gets the block associated with the given blockHash, or nil if
// no such block was stored
func (bs *blockStore) GetBlock(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if block, ok := bs.cache.Get(*blockHash); ok {
		return block.Clone(), nil
	}

	blockBytes, err := bs.db.Get(bs.hashAsKey(blockHash))
	if err != nil {
		return nil, err
	}
	if blockBytes == nil {
		return nil, nil
	}
	block, err := serialization.BytesToBlock(blockBytes)
	if err != nil {
		return nil, errors.Wrapf(err, "block %s is corrupted in the database", blockHash)
	}
	bs.cache.Add(*blockHash, block)
	return block.Clone(), nil
}

func (bs *blockStore) hashAsKey(hash *externalapi.DomainHash) []byte {
	return bucket.Key(hash.ByteSlice())
}

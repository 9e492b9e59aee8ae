package finalizedblockstore

import (
	"encoding/binary"
	"sync"

	"github.com/kaspanet/chainconsensus/domain/consensus/model"
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/infrastructure/db/database"
	"github.com/pkg/errors"
)

var finalizedBlockKey = database.MakeBucket(nil).Key([]byte("finalized-block"))

const serializedFinalizedBlockSize = externalapi.DomainHashSize + 8

type finalizedBlockStore struct {
	mutex sync.Mutex
	db    database.DataAccessor

	cachedHash   *externalapi.DomainHash
	cachedHeight uint64
}

// New instantiates a new FinalizedBlockStore
func New(db database.DataAccessor) model.FinalizedBlockStore {
	return &finalizedBlockStore{db: db}
}

func (fbs *finalizedBlockStore) FinalizedBlock() (*externalapi.DomainHash, uint64, bool, error) {
	fbs.mutex.Lock()
	defer fbs.mutex.Unlock()

	if fbs.cachedHash != nil {
		return fbs.cachedHash, fbs.cachedHeight, true, nil
	}

	finalizedBlockBytes, err := fbs.db.Get(finalizedBlockKey)
	if err != nil {
		return nil, 0, false, err
	}
	if finalizedBlockBytes == nil {
		return nil, 0, false, nil
	}
	blockHash, height, err := deserializeFinalizedBlock(finalizedBlockBytes)
	if err != nil {
		return nil, 0, false, err
	}
	fbs.cachedHash = blockHash
	fbs.cachedHeight = height
	return blockHash, height, true, nil
}

// SaveFinalizedBlock fails if height is below the already saved finalized
// height, since the finalized block never moves back.
func (fbs *finalizedBlockStore) SaveFinalizedBlock(blockHash *externalapi.DomainHash, height uint64) error {
	fbs.mutex.Lock()
	defer fbs.mutex.Unlock()

	if fbs.cachedHash != nil && height < fbs.cachedHeight {
		return errors.Errorf("the finalized block can't move back from height %d to %d",
			fbs.cachedHeight, height)
	}
	err := fbs.db.Put(finalizedBlockKey, serializeFinalizedBlock(blockHash, height))
	if err != nil {
		return err
	}
	fbs.cachedHash = blockHash
	fbs.cachedHeight = height
	log.Debugf("Finalized block %s at height %d", blockHash, height)
	return nil
}

func serializeFinalizedBlock(blockHash *externalapi.DomainHash, height uint64) []byte {
	serialized := make([]byte, serializedFinalizedBlockSize)
	copy(serialized, blockHash.ByteSlice())
	binary.LittleEndian.PutUint64(serialized[externalapi.DomainHashSize:], height)
	return serialized
}

func deserializeFinalizedBlock(serialized []byte) (*externalapi.DomainHash, uint64, error) {
	if len(serialized) != serializedFinalizedBlockSize {
		return nil, 0, errors.Errorf("finalized block record has length %d while %d is expected",
			len(serialized), serializedFinalizedBlockSize)
	}
	blockHash, err := externalapi.NewDomainHashFromByteSlice(serialized[:externalapi.DomainHashSize])
	if err != nil {
		return nil, 0, err
	}
	height := binary.LittleEndian.Uint64(serialized[externalapi.DomainHashSize:])
	return blockHash, height, nil
}

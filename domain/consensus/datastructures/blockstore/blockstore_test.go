package blockstore

import (
	"testing"

	"github.com/kaspanet/chainconsensus/domain/chainconfig"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/testutils"
	"github.com/kaspanet/chainconsensus/infrastructure/db/database/ldb"
)

func TestBlockStore(t *testing.T) {
	db, err := ldb.NewLevelDB(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("TestBlockStore: NewLevelDB: %s", err)
	}
	defer db.Close()

	blocks := testutils.BuildChain(chainconfig.SimnetParams.GenesisBlock, 3, "store")
	store, err := New(db, 2)
	if err != nil {
		t.Fatalf("TestBlockStore: New: %s", err)
	}
	for _, block := range blocks {
		err := store.PutBlock(consensushashing.BlockHash(block), block)
		if err != nil {
			t.Fatalf("TestBlockStore: PutBlock: %s", err)
		}
	}

	// A fresh store has an empty cache, so every block is read from the database.
	reopened, err := New(db, 2)
	if err != nil {
		t.Fatalf("TestBlockStore: New: %s", err)
	}
	for i, block := range blocks {
		stored, err := reopened.GetBlock(consensushashing.BlockHash(block))
		if err != nil {
			t.Fatalf("TestBlockStore: GetBlock: %s", err)
		}
		if !stored.Equal(block) {
			t.Fatalf("TestBlockStore: block %d was not stored correctly", i)
		}
	}

	missing, err := store.GetBlock(chainconfig.MainnetParams.GenesisHash)
	if err != nil {
		t.Fatalf("TestBlockStore: GetBlock: %s", err)
	}
	if missing != nil {
		t.Fatalf("TestBlockStore: expected a missing block to be nil")
	}
}

func TestBlockStoreReturnsCopies(t *testing.T) {
	db, err := ldb.NewLevelDB(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("TestBlockStoreReturnsCopies: NewLevelDB: %s", err)
	}
	defer db.Close()

	store, err := New(db, 10)
	if err != nil {
		t.Fatalf("TestBlockStoreReturnsCopies: New: %s", err)
	}
	block := testutils.BuildChain(chainconfig.SimnetParams.GenesisBlock, 1, "copies")[0]
	blockHash := consensushashing.BlockHash(block)
	err = store.PutBlock(blockHash, block)
	if err != nil {
		t.Fatalf("TestBlockStoreReturnsCopies: PutBlock: %s", err)
	}

	stored, err := store.GetBlock(blockHash)
	if err != nil {
		t.Fatalf("TestBlockStoreReturnsCopies: GetBlock: %s", err)
	}
	stored.Payload[0] ^= 0xff
	stored, err = store.GetBlock(blockHash)
	if err != nil {
		t.Fatalf("TestBlockStoreReturnsCopies: GetBlock: %s", err)
	}
	if !stored.Equal(block) {
		t.Fatalf("TestBlockStoreReturnsCopies: modifying a returned block changed the stored one")
	}
}

func TestBlockStoreCorruptedData(t *testing.T) {
	db, err := ldb.NewLevelDB(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("TestBlockStoreCorruptedData: NewLevelDB: %s", err)
	}
	defer db.Close()

	store, err := New(db, 10)
	if err != nil {
		t.Fatalf("TestBlockStoreCorruptedData: New: %s", err)
	}
	blockHash := chainconfig.SimnetParams.GenesisHash
	err = db.Put(bucket.Key(blockHash.ByteSlice()), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("TestBlockStoreCorruptedData: Put: %s", err)
	}
	_, err = store.GetBlock(blockHash)
	if err == nil {
		t.Fatalf("TestBlockStoreCorruptedData: expected an error for a corrupted block")
	}
}

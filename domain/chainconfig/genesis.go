package chainconfig

import (
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/hashes"
)

func newGenesisBlock(payload []byte, timeInMilliseconds int64, bits uint32, nonce uint64) externalapi.DomainBlock {
	return externalapi.DomainBlock{
		Header: &externalapi.DomainBlockHeader{
			Version:            0,
			PrevBlockHash:      externalapi.ZeroHash,
			PayloadHash:        *hashes.PayloadHash(payload),
			TimeInMilliseconds: timeInMilliseconds,
			Bits:               bits,
			Nonce:              nonce,
		},
		Payload: payload,
	}
}

// genesisBlock defines the genesis block of the main network.
var genesisBlock = newGenesisBlock([]byte("chainconsensus mainnet genesis"), 0x177a5f1dd32, 0x207fffff, 0x4)

// genesisHash is the hash of the first block in the chain for the main
// network (genesis block).
var genesisHash = consensushashing.BlockHash(&genesisBlock)

var testnetGenesisBlock = newGenesisBlock([]byte("chainconsensus testnet genesis"), 0x177a5f1dd32, 0x1e7fffff, 0x14582)

var testnetGenesisHash = consensushashing.BlockHash(&testnetGenesisBlock)

var simnetGenesisBlock = newGenesisBlock([]byte("chainconsensus simnet genesis"), 0x177a5f1dd32, 0x207fffff, 0x1)

var simnetGenesisHash = consensushashing.BlockHash(&simnetGenesisBlock)

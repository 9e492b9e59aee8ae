package testutils

import (
	"fmt"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/hashes"
)

const (
	// EasyBits is the simnet difficulty. Every block carries 2 units of work.
	EasyBits = 0x207fffff

	// HardBits carries 512 units of work per block, so a short chain of
	// such blocks outweighs a longer chain of EasyBits blocks.
	HardBits = 0x1f7fffff
)

// BuildChain returns length blocks extending parent. Payloads are derived
// from tag, so chains built with different tags never share hashes.
func BuildChain(parent *externalapi.DomainBlock, length int, tag string) []*externalapi.DomainBlock {
	return BuildChainWithBits(parent, length, tag, EasyBits)
}

// BuildChainWithBits is like BuildChain with the given difficulty bits.
func BuildChainWithBits(parent *externalapi.DomainBlock, length int, tag string, bits uint32) []*externalapi.DomainBlock {
	blocks := make([]*externalapi.DomainBlock, 0, length)
	parentHash := consensushashing.BlockHash(parent)
	timestamp := parent.Header.TimeInMilliseconds
	for i := 0; i < length; i++ {
		timestamp += 1000
		payload := []byte(fmt.Sprintf("%s-%d", tag, i))
		block := &externalapi.DomainBlock{
			Header: &externalapi.DomainBlockHeader{
				Version:            1,
				PrevBlockHash:      *parentHash,
				PayloadHash:        *hashes.PayloadHash(payload),
				TimeInMilliseconds: timestamp,
				Bits:               bits,
			},
			Payload: payload,
		}
		blocks = append(blocks, block)
		parentHash = consensushashing.BlockHash(block)
	}
	return blocks
}

// Headers returns the headers of the given blocks.
func Headers(blocks []*externalapi.DomainBlock) []*externalapi.DomainBlockHeader {
	headers := make([]*externalapi.DomainBlockHeader, len(blocks))
	for i, block := range blocks {
		headers[i] = block.Header
	}
	return headers
}

// Hashes returns the hashes of the given blocks.
func Hashes(blocks []*externalapi.DomainBlock) []*externalapi.DomainHash {
	blockHashes := make([]*externalapi.DomainHash, len(blocks))
	for i, block := range blocks {
		blockHashes[i] = consensushashing.BlockHash(block)
	}
	return blockHashes
}

package main

import (
	"fmt"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/hashes"
	"github.com/kaspanet/chainconsensus/domain/consensus/utils/math"
)

// harderBits returns the compact target 256 times smaller than bits, so a
// block with it carries 256 times the work.
func harderBits(bits uint32) uint32 {
	target := math.CompactToBig(bits)
	target.Rsh(target, 8)
	return math.BigToCompact(target)
}

// buildChain returns length blocks extending parent.
func buildChain(parent *externalapi.DomainBlock, length int, tag string, bits uint32) []*externalapi.DomainBlock {
	blocks := make([]*externalapi.DomainBlock, 0, length)
	parentHash := consensushashing.BlockHash(parent)
	timestamp := parent.Header.TimeInMilliseconds
	for i := 0; i < length; i++ {
		timestamp += 1000
		payload := []byte(fmt.Sprintf("reorgsim %s block %d", tag, i))
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

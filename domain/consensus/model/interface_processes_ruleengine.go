package model

import "github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"

// RuleEngine validates headers and blocks and owns the chain state. Blocks
// are connected to the state one at a time by FullValidate and removed one
// at a time by Rewind. Validation failures are reported as
// ruleerrors.RuleError; any other error is a system failure.
type RuleEngine interface {
	// ValidateHeader runs the context-free header checks for a header
	// that would be at the given height.
	ValidateHeader(header *externalapi.DomainBlockHeader, height uint64) error

	// VerifyIntegrity checks that block is the data committed to by header.
	VerifyIntegrity(block *externalapi.DomainBlock, header *externalapi.DomainBlockHeader) error

	// PartialValidate runs the checks that don't require chain state.
	PartialValidate(block *externalapi.DomainBlock, height uint64) error

	// FullValidate validates block against the current state and, on
	// success, connects it. assumedValid allows skipping expensive checks.
	FullValidate(block *externalapi.DomainBlock, height uint64, assumedValid bool) error

	// Rewind disconnects the block at the state tip and returns the hash
	// of the new state tip.
	Rewind() (*externalapi.DomainHash, error)

	// CurrentStateHash returns the hash of the last connected block.
	CurrentStateHash() (*externalapi.DomainHash, error)
}

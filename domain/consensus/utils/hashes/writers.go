package hashes

import (
	"hash"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const (
	blockHashDomain   = "BlockHash"
	payloadHashDomain = "PayloadHash"
)

// HashWriter is used to incrementally hash data without concatenating all of the data to a single buffer
// it exposes an io.Writer api and a Finalize function to get the resulting hash.
// The used hash function is blake2b.
// This can only be created via one of the domain separated constructors
type HashWriter struct {
	hash.Hash
}

// NewBlockHashWriter returns a new HashWriter used for block hashes
func NewBlockHashWriter() HashWriter {
	return newKeyedWriter(blockHashDomain)
}

// NewPayloadHashWriter returns a new HashWriter used for block payload hashes
func NewPayloadHashWriter() HashWriter {
	return newKeyedWriter(payloadHashDomain)
}

func newKeyedWriter(domain string) HashWriter {
	blake, err := blake2b.New256([]byte(domain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", domain))
	}
	return HashWriter{blake}
}

// InfallibleWrite is just like write but doesn't return anything
func (h HashWriter) InfallibleWrite(p []byte) {
	// This write can never return an error, this is part of the hash.Hash interface contract.
	_, err := h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. hash.Hash interface promises to not return errors."))
	}
}

// Finalize returns the resulting hash
func (h HashWriter) Finalize() *externalapi.DomainHash {
	var sum [externalapi.DomainHashSize]byte
	copy(sum[:], h.Sum(nil))
	return externalapi.NewDomainHashFromByteArray(&sum)
}

// PayloadHash returns the hash committed to by a block header for the given payload.
func PayloadHash(payload []byte) *externalapi.DomainHash {
	writer := NewPayloadHashWriter()
	writer.InfallibleWrite(payload)
	return writer.Finalize()
}

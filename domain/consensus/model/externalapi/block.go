package externalapi

// DomainBlockHeader represents the header part of a block. The consensus
// core treats everything but PrevBlockHash and Bits as opaque; their meaning
// belongs to the rule engine.
type DomainBlockHeader struct {
	Version            uint16
	PrevBlockHash      DomainHash
	PayloadHash        DomainHash
	TimeInMilliseconds int64
	Bits               uint32
	Nonce              uint64
}

// Clone returns a clone of DomainBlockHeader
func (header *DomainBlockHeader) Clone() *DomainBlockHeader {
	clone := *header
	return &clone
}

// If this doesn't compile, it means the type definition has been changed, so it's
// an indication to update Equal and Clone accordingly.
var _ = DomainBlockHeader{0, DomainHash{}, DomainHash{}, 0, 0, 0}

// Equal returns whether header equals to other
func (header *DomainBlockHeader) Equal(other *DomainBlockHeader) bool {
	if header == nil || other == nil {
		return header == other
	}
	return *header == *other
}

// DomainBlock represents a block: a header and an opaque payload whose
// content is only interpreted by the rule engine.
type DomainBlock struct {
	Header  *DomainBlockHeader
	Payload []byte
}

// Clone returns a clone of DomainBlock
func (block *DomainBlock) Clone() *DomainBlock {
	payloadClone := make([]byte, len(block.Payload))
	copy(payloadClone, block.Payload)
	return &DomainBlock{
		Header:  block.Header.Clone(),
		Payload: payloadClone,
	}
}

// Equal returns whether block equals to other
func (block *DomainBlock) Equal(other *DomainBlock) bool {
	if block == nil || other == nil {
		return block == other
	}
	if !block.Header.Equal(other.Header) {
		return false
	}
	if len(block.Payload) != len(other.Payload) {
		return false
	}
	for i, b := range block.Payload {
		if b != other.Payload[i] {
			return false
		}
	}
	return true
}

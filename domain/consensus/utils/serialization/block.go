package serialization

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

const payloadLengthSize = 4

// BlockSize returns the number of bytes the serialized block takes. The
// download coordinator budgets memory by it.
func BlockSize(block *externalapi.DomainBlock) uint64 {
	return HeaderSize + payloadLengthSize + uint64(len(block.Payload))
}

// BlockToBytes serializes block as its header followed by the length
// prefixed payload.
func BlockToBytes(block *externalapi.DomainBlock) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockSize(block)))
	err := SerializeHeader(buf, block.Header)
	if err != nil {
		panic(err)
	}
	var lengthBytes [payloadLengthSize]byte
	binary.LittleEndian.PutUint32(lengthBytes[:], uint32(len(block.Payload)))
	buf.Write(lengthBytes[:])
	buf.Write(block.Payload)
	return buf.Bytes()
}

// BytesToBlock deserializes a block previously serialized by BlockToBytes.
func BytesToBlock(blockBytes []byte) (*externalapi.DomainBlock, error) {
	reader := bytes.NewReader(blockBytes)
	header, err := DeserializeHeader(reader)
	if err != nil {
		return nil, err
	}
	var lengthBytes [payloadLengthSize]byte
	_, err = io.ReadFull(reader, lengthBytes[:])
	if err != nil {
		return nil, errors.Wrapf(errMalformed, "couldn't read payload length: %s", err)
	}
	payloadLength := binary.LittleEndian.Uint32(lengthBytes[:])
	if uint64(reader.Len()) != uint64(payloadLength) {
		return nil, errors.Wrapf(errMalformed, "payload length is %d while %d bytes remain",
			payloadLength, reader.Len())
	}
	payload := make([]byte, payloadLength)
	_, _ = reader.Read(payload)
	return &externalapi.DomainBlock{Header: header, Payload: payload}, nil
}

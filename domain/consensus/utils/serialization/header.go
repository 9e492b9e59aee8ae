package serialization

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// HeaderSize is the number of bytes a serialized header takes:
// version 2 + prev hash 32 + payload hash 32 + timestamp 8 + bits 4 + nonce 8.
const HeaderSize = 2 + externalapi.DomainHashSize*2 + 8 + 4 + 8

var errMalformed = errors.New("malformed serialized data")

// SerializeHeader writes the little endian representation of header to w.
func SerializeHeader(w io.Writer, header *externalapi.DomainBlockHeader) error {
	var buf [HeaderSize]byte
	offset := 0
	binary.LittleEndian.PutUint16(buf[offset:], header.Version)
	offset += 2
	copy(buf[offset:], header.PrevBlockHash.ByteSlice())
	offset += externalapi.DomainHashSize
	copy(buf[offset:], header.PayloadHash.ByteSlice())
	offset += externalapi.DomainHashSize
	binary.LittleEndian.PutUint64(buf[offset:], uint64(header.TimeInMilliseconds))
	offset += 8
	binary.LittleEndian.PutUint32(buf[offset:], header.Bits)
	offset += 4
	binary.LittleEndian.PutUint64(buf[offset:], header.Nonce)

	_, err := w.Write(buf[:])
	return errors.WithStack(err)
}

// DeserializeHeader reads a header previously written by SerializeHeader.
func DeserializeHeader(r io.Reader) (*externalapi.DomainBlockHeader, error) {
	var buf [HeaderSize]byte
	_, err := io.ReadFull(r, buf[:])
	if err != nil {
		return nil, errors.Wrapf(errMalformed, "couldn't read header: %s", err)
	}

	header := &externalapi.DomainBlockHeader{}
	offset := 0
	header.Version = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	prevBlockHash, err := externalapi.NewDomainHashFromByteSlice(buf[offset : offset+externalapi.DomainHashSize])
	if err != nil {
		return nil, err
	}
	header.PrevBlockHash = *prevBlockHash
	offset += externalapi.DomainHashSize
	payloadHash, err := externalapi.NewDomainHashFromByteSlice(buf[offset : offset+externalapi.DomainHashSize])
	if err != nil {
		return nil, err
	}
	header.PayloadHash = *payloadHash
	offset += externalapi.DomainHashSize
	header.TimeInMilliseconds = int64(binary.LittleEndian.Uint64(buf[offset:]))
	offset += 8
	header.Bits = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	header.Nonce = binary.LittleEndian.Uint64(buf[offset:])
	return header, nil
}

// HeaderToBytes serializes header into a new byte slice
func HeaderToBytes(header *externalapi.DomainBlockHeader) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize))
	err := SerializeHeader(buf, header)
	if err != nil {
		// bytes.Buffer never fails writing
		panic(err)
	}
	return buf.Bytes()
}

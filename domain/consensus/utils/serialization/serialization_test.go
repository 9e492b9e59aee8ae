package serialization

import (
	"testing"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

func testBlock() *externalapi.DomainBlock {
	return &externalapi.DomainBlock{
		Header: &externalapi.DomainBlockHeader{
			Version:            1,
			PrevBlockHash:      *externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{1, 2, 3}),
			PayloadHash:        *externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{4, 5, 6}),
			TimeInMilliseconds: 1600000000000,
			Bits:               0x207fffff,
			Nonce:              42,
		},
		Payload: []byte("payload"),
	}
}

func TestBlockSerialization(t *testing.T) {
	block := testBlock()
	blockBytes := BlockToBytes(block)
	if uint64(len(blockBytes)) != BlockSize(block) {
		t.Fatalf("TestBlockSerialization: BlockSize is %d but %d bytes were written",
			BlockSize(block), len(blockBytes))
	}

	deserialized, err := BytesToBlock(blockBytes)
	if err != nil {
		t.Fatalf("TestBlockSerialization: BytesToBlock: %+v", err)
	}
	if !deserialized.Equal(block) {
		t.Fatalf("TestBlockSerialization: deserialized block is not equal to the original")
	}
}

func TestBytesToBlockMalformed(t *testing.T) {
	blockBytes := BlockToBytes(testBlock())

	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"truncated header", blockBytes[:HeaderSize-1]},
		{"missing payload length", blockBytes[:HeaderSize]},
		{"truncated payload", blockBytes[:len(blockBytes)-1]},
		{"trailing bytes", append(append([]byte{}, blockBytes...), 0)},
	}
	for _, test := range tests {
		_, err := BytesToBlock(test.input)
		if !errors.Is(err, errMalformed) {
			t.Errorf("TestBytesToBlockMalformed: %s: expected errMalformed, got %v", test.name, err)
		}
	}
}

package externalapi

import "strconv"

// PeerID identifies a connected peer. Negative ids are reserved for claims
// the node makes on its own behalf and never belong to a remote peer.
type PeerID int64

// IsRemote returns whether the id belongs to a remote peer.
func (id PeerID) IsRemote() bool {
	return id >= 0
}

func (id PeerID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

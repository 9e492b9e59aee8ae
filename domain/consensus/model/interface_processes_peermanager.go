package model

import (
	"time"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
)

// PeerManager acts on peers on behalf of the consensus manager.
type PeerManager interface {
	BanAndDisconnect(peerID externalapi.PeerID, duration time.Duration, reason string)

	// ResyncPeer asks peerID to resend its headers starting from the new
	// consensus tip.
	ResyncPeer(peerID externalapi.PeerID)
}

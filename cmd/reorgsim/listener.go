package main

import (
	"sync"

	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
)

type simListener struct {
	mutex        sync.Mutex
	connected    int
	disconnected int
}

func (sl *simListener) BlockConnected(block *externalapi.DomainBlock, blockHash *externalapi.DomainHash, height uint64) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.connected++
	log.Tracef("Connected block %s at height %d", blockHash, height)
}

func (sl *simListener) BlockDisconnected(blockHash *externalapi.DomainHash, height uint64) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	sl.disconnected++
	log.Tracef("Disconnected block %s at height %d", blockHash, height)
}

func (sl *simListener) counts() (connected int, disconnected int) {
	sl.mutex.Lock()
	defer sl.mutex.Unlock()
	return sl.connected, sl.disconnected
}

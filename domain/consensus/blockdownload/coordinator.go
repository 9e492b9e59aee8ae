package blockdownload

import (
	"github.com/kaspanet/chainconsensus/domain/consensus/model/externalapi"
)

// freeCapacityThresholdPercent is how much of a ceiling must be free before
// more blocks are requested.
const freeCapacityThresholdPercent = 10

// Callback receives a requested block, or nil if its download failed.
type Callback func(blockHash *externalapi.DomainHash, block *externalapi.DomainBlock)

// Request is a run of consecutive blocks to download, the first of which
// is at FirstHeight.
type Request struct {
	Hashes      []*externalapi.DomainHash
	FirstHeight uint64
}

// Config holds the coordinator's ceilings.
type Config struct {
	// MaxBlocksInFlight is the number of blocks that may be requested and
	// not delivered at once.
	MaxBlocksInFlight uint64

	// MaxUnconsumedBytes bounds the memory held by downloaded blocks that
	// were not persisted yet, together with the blocks in flight.
	MaxUnconsumedBytes uint64
}

type trackedBlock struct {
	callbacks    []Callback
	inFlight     bool
	expectedSize uint64
}

// Coordinator turns runs of blocks to download into throttled requests. It
// keeps one entry per block hash, so overlapping requests for the same
// block are merged and all of their callbacks receive the block.
//
// Coordinator is not safe for concurrent use, and never calls the block
// puller itself: the caller issues the requests NextRequests returns after
// releasing its lock.
type Coordinator struct {
	config  Config
	metrics *Metrics

	queue          []*Request
	queuedBlocks   uint64
	tracked        map[externalapi.DomainHash]*trackedBlock
	blocksInFlight uint64
	expectedBytes  uint64
}

// New creates a Coordinator.
func New(config Config, metrics *Metrics) *Coordinator {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Coordinator{
		config:  config,
		metrics: metrics,
		tracked: make(map[externalapi.DomainHash]*trackedBlock),
	}
}

// Enqueue adds a run of consecutive blocks to the end of the queue.
// Blocks that are already queued or in flight are not requested again;
// callback is added to their callbacks instead.
func (c *Coordinator) Enqueue(hashes []*externalapi.DomainHash, firstHeight uint64, callback Callback) {
	var run *Request
	flush := func() {
		if run != nil {
			c.queue = append(c.queue, run)
			c.queuedBlocks += uint64(len(run.Hashes))
			run = nil
		}
	}

	for i, hash := range hashes {
		if tracked, ok := c.tracked[*hash]; ok {
			tracked.callbacks = append(tracked.callbacks, callback)
			flush()
			continue
		}
		c.tracked[*hash] = &trackedBlock{callbacks: []Callback{callback}}
		if run == nil {
			run = &Request{FirstHeight: firstHeight + uint64(i)}
		}
		run.Hashes = append(run.Hashes, hash)
	}
	flush()
	c.updateGauges()
}

// NextRequests dequeues as many blocks as the ceilings allow, given the
// bytes currently held by unconsumed blocks and the average block size.
// Nothing is dequeued unless at least freeCapacityThresholdPercent of both
// ceilings is free.
func (c *Coordinator) NextRequests(unconsumedBytes uint64, averageBlockSize uint64) []*Request {
	allowed := c.allowedBlocks(unconsumedBytes, averageBlockSize)
	if allowed == 0 {
		return nil
	}
	if averageBlockSize == 0 {
		averageBlockSize = 1
	}

	var requests []*Request
	for allowed > 0 && len(c.queue) > 0 {
		front := c.queue[0]
		take := uint64(len(front.Hashes))
		if take > allowed {
			take = allowed
		}

		var current *Request
		for i := uint64(0); i < take; i++ {
			hash := front.Hashes[i]
			tracked, ok := c.tracked[*hash]
			if !ok || tracked.inFlight {
				// Delivered or failed while queued.
				if current != nil {
					requests = append(requests, current)
					current = nil
				}
				continue
			}
			tracked.inFlight = true
			tracked.expectedSize = averageBlockSize
			c.blocksInFlight++
			c.expectedBytes += averageBlockSize
			allowed--
			if current == nil {
				current = &Request{FirstHeight: front.FirstHeight + i}
			}
			current.Hashes = append(current.Hashes, hash)
		}
		if current != nil {
			requests = append(requests, current)
		}

		c.queuedBlocks -= take
		if take == uint64(len(front.Hashes)) {
			c.queue = c.queue[1:]
		} else {
			front.Hashes = front.Hashes[take:]
			front.FirstHeight += take
		}
	}

	requestedBlocks := 0
	for _, request := range requests {
		requestedBlocks += len(request.Hashes)
	}
	if requestedBlocks > 0 {
		log.Debugf("Requesting %d blocks in %d runs, %d blocks in flight, %d queued",
			requestedBlocks, len(requests), c.blocksInFlight, c.queuedBlocks)
		c.metrics.RequestedBlocks.Add(float64(requestedBlocks))
	}
	c.updateGauges()
	return requests
}

func (c *Coordinator) allowedBlocks(unconsumedBytes uint64, averageBlockSize uint64) uint64 {
	if c.queuedBlocks == 0 {
		return 0
	}

	var freeSlots uint64
	if c.blocksInFlight < c.config.MaxBlocksInFlight {
		freeSlots = c.config.MaxBlocksInFlight - c.blocksInFlight
	}
	if freeSlots*100 < c.config.MaxBlocksInFlight*freeCapacityThresholdPercent {
		return 0
	}

	usedBytes := unconsumedBytes + c.expectedBytes
	var freeBytes uint64
	if usedBytes < c.config.MaxUnconsumedBytes {
		freeBytes = c.config.MaxUnconsumedBytes - usedBytes
	}
	if freeBytes*100 < c.config.MaxUnconsumedBytes*freeCapacityThresholdPercent {
		return 0
	}

	byteSlots := freeBytes
	if averageBlockSize > 0 {
		byteSlots = freeBytes / averageBlockSize
	}
	allowed := freeSlots
	if byteSlots < allowed {
		allowed = byteSlots
	}

	// A block larger than the whole budget must still be fetched when
	// nothing else holds memory, or the download would stall forever.
	if allowed == 0 && c.blocksInFlight == 0 && unconsumedBytes == 0 {
		allowed = 1
	}
	return allowed
}

// BlockDelivered releases the capacity reserved for the block, whether it
// arrived or its download failed, and returns the callbacks waiting for it.
func (c *Coordinator) BlockDelivered(blockHash *externalapi.DomainHash) []Callback {
	tracked, ok := c.tracked[*blockHash]
	if !ok {
		return nil
	}
	delete(c.tracked, *blockHash)
	if tracked.inFlight {
		c.blocksInFlight--
		c.expectedBytes -= tracked.expectedSize
	}
	c.metrics.DeliveredBlocks.Add(1)
	c.updateGauges()
	return tracked.callbacks
}

// IsTracked returns whether the block is queued or in flight.
func (c *Coordinator) IsTracked(blockHash *externalapi.DomainHash) bool {
	_, ok := c.tracked[*blockHash]
	return ok
}

// BlocksInFlight returns the number of blocks requested and not delivered.
func (c *Coordinator) BlocksInFlight() uint64 {
	return c.blocksInFlight
}

// QueuedBlocks returns the number of queued blocks, including ones that
// were delivered before being requested.
func (c *Coordinator) QueuedBlocks() uint64 {
	return c.queuedBlocks
}

// ExpectedBytes returns the bytes reserved for blocks in flight.
func (c *Coordinator) ExpectedBytes() uint64 {
	return c.expectedBytes
}

func (c *Coordinator) updateGauges() {
	c.metrics.QueuedBlocks.Set(float64(c.queuedBlocks))
	c.metrics.BlocksInFlight.Set(float64(c.blocksInFlight))
	c.metrics.ExpectedBytes.Set(float64(c.expectedBytes))
}

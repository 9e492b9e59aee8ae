package locks

import (
	"sync"
	"time"
)

// WaitGroup is like sync.WaitGroup, except that Add may be called
// concurrently with Wait even while the counter is zero. Work that spawns
// more work (a validated block unblocking its children) needs that.
type WaitGroup struct {
	lock     sync.Mutex
	counter  int64
	waitCond *sync.Cond
}

// NewWaitGroup returns a new WaitGroup.
func NewWaitGroup() *WaitGroup {
	wg := &WaitGroup{}
	wg.waitCond = sync.NewCond(&wg.lock)
	return wg
}

// Add increments the counter by one.
func (wg *WaitGroup) Add() {
	wg.lock.Lock()
	defer wg.lock.Unlock()
	wg.counter++
}

// Done decrements the counter by one, releasing waiters once it drops to zero.
func (wg *WaitGroup) Done() {
	wg.lock.Lock()
	defer wg.lock.Unlock()

	wg.counter--
	if wg.counter < 0 {
		panic("negative values for wg.counter are not allowed. This was likely caused by calling Done() before Add()")
	}
	if wg.counter == 0 {
		wg.waitCond.Broadcast()
	}
}

// Wait blocks until the counter is zero.
func (wg *WaitGroup) Wait() {
	wg.lock.Lock()
	defer wg.lock.Unlock()
	for wg.counter != 0 {
		wg.waitCond.Wait()
	}
}

// WaitWithTimeout is like Wait but gives up after timeout. It returns false
// if the counter didn't reach zero in time.
func (wg *WaitGroup) WaitWithTimeout(timeout time.Duration) bool {
	select {
	case <-receiveFromChanWhenDone(wg.Wait):
		return true
	case <-time.After(timeout):
		return false
	}
}

// receiveFromChanWhenDone runs a blocking function on its own goroutine and
// returns a channel that is closed once the function returns.
func receiveFromChanWhenDone(callback func()) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		callback()
		close(ch)
	}()
	return ch
}

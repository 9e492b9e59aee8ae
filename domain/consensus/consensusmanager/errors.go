package consensusmanager

import (
	"github.com/pkg/errors"
)

// ErrConsensusHalted is returned by every call made after the manager
// halted on a fatal error.
var ErrConsensusHalted = errors.New("the consensus manager halted after a fatal error")

// FatalError means the persisted chain state can no longer be trusted to
// match any chain in the header tree. Once one occurs the manager stops
// processing.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return "fatal consensus error: " + e.Cause.Error()
}

// Unwrap satisfies the errors.Unwrap interface
func (e *FatalError) Unwrap() error {
	return e.Cause
}

// IsFatal returns whether err is or wraps a *FatalError.
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}

// fail halts the manager. Only the first fatal error reaches the
// FatalErrorHandler.
func (m *ConsensusManager) fail(cause error) error {
	fatalErr := &FatalError{Cause: cause}
	if !m.fatalError.CompareAndSwap(nil, fatalErr) {
		return fatalErr
	}
	log.Criticalf("Halting consensus: %+v", cause)
	if m.config.FatalErrorHandler != nil {
		m.config.FatalErrorHandler(fatalErr)
	}
	return fatalErr
}

func (m *ConsensusManager) checkHalted() error {
	if m.fatalError.Load() != nil {
		return ErrConsensusHalted
	}
	return nil
}

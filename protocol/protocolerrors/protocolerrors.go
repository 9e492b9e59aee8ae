package protocolerrors

import "github.com/pkg/errors"

// ProtocolError reports a peer that broke the header sync protocol, such
// as sending an oversized or non-consecutive header batch. It is separate
// from the consensus rule errors in ruleerrors.
type ProtocolError struct {
	ShouldBan bool
	Cause     error
}

func (e *ProtocolError) Error() string {
	return e.Cause.Error()
}

func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// Errorf returns a ProtocolError with a formatted message and a stack trace.
func Errorf(shouldBan bool, format string, args ...interface{}) error {
	return &ProtocolError{ShouldBan: shouldBan, Cause: errors.Errorf(format, args...)}
}

// Wrapf returns a ProtocolError annotating err.
func Wrapf(shouldBan bool, err error, format string, args ...interface{}) error {
	return &ProtocolError{ShouldBan: shouldBan, Cause: errors.Wrapf(err, format, args...)}
}

// ShouldBan returns whether err, or an error it wraps, is a ProtocolError
// whose sender must be banned.
func ShouldBan(err error) bool {
	var protocolErr *ProtocolError
	return errors.As(err, &protocolErr) && protocolErr.ShouldBan
}

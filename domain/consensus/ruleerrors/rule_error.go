package ruleerrors

import (
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrHeaderDoesNotConnect indicates that the first header of a batch
	// points to a block that is not in the header tree. Peers that are
	// ahead of us legitimately send such batches, so it's not a reason to
	// ban.
	ErrHeaderDoesNotConnect = newRuleError("ErrHeaderDoesNotConnect")

	// ErrInvalidHeader indicates that a header failed the rule engine's
	// header checks.
	ErrInvalidHeader = newRuleError("ErrInvalidHeader")

	// ErrCheckpointMismatch indicates that a header sits at a checkpointed
	// height but its hash is not the checkpointed one.
	ErrCheckpointMismatch = newRuleError("ErrCheckpointMismatch")

	// ErrMaxReorgViolation indicates that a header forks from the
	// consensus tip deeper than the maximum reorg length allows.
	ErrMaxReorgViolation = newRuleError("ErrMaxReorgViolation")

	// ErrKnownInvalid indicates that a header is, or descends from, a
	// block that previously failed validation.
	ErrKnownInvalid = newRuleError("ErrKnownInvalid")

	// ErrBlockIntegrity indicates that a block's data does not match the
	// header it was requested for.
	ErrBlockIntegrity = newRuleError("ErrBlockIntegrity")

	// ErrInvalidBlock indicates that a block failed partial or full
	// validation.
	ErrInvalidBlock = newRuleError("ErrInvalidBlock")

	// ErrBlockDoesNotExtendTip indicates that a locally mined block does
	// not build on the current consensus tip.
	ErrBlockDoesNotExtendTip = newRuleError("ErrBlockDoesNotExtendTip")
)

// nonBannable lists rule errors that may legitimately be caused by an
// honest peer.
var nonBannable = map[string]struct{}{
	ErrHeaderDoesNotConnect.message:  {},
	ErrBlockDoesNotExtendTip.message: {},
}

// RuleError identifies a rule violation. It is used to indicate that
// processing of a header or block failed due to one of the many validation
// rules. The caller can use errors.As to determine if a failure was
// specifically due to a rule violation.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// IsRuleError returns whether err is or wraps a RuleError.
func IsRuleError(err error) bool {
	return errors.As(err, &RuleError{})
}

// IsBannable returns whether err is a rule violation that proves the peer
// that sent the offending data is misbehaving.
func IsBannable(err error) bool {
	var ruleErr RuleError
	if !errors.As(err, &ruleErr) {
		return false
	}
	_, ok := nonBannable[ruleErr.message]
	return !ok
}

package ruleerrors

import (
	"testing"

	"github.com/pkg/errors"
)

func TestWrappedRuleError(t *testing.T) {
	wrapped := errors.Wrapf(ErrCheckpointMismatch, "header at height %d", 100)

	if !errors.Is(wrapped, ErrCheckpointMismatch) {
		t.Fatalf("TestWrappedRuleError: expected wrapped error to be ErrCheckpointMismatch")
	}
	if errors.Is(wrapped, ErrMaxReorgViolation) {
		t.Fatalf("TestWrappedRuleError: wrapped error unexpectedly matched ErrMaxReorgViolation")
	}
	if !IsRuleError(wrapped) {
		t.Fatalf("TestWrappedRuleError: expected IsRuleError to find the RuleError")
	}

	rule := &RuleError{}
	if !errors.As(wrapped, rule) {
		t.Fatal("TestWrappedRuleError: wrapped should contain RuleError in it")
	}
	if rule.message != "ErrCheckpointMismatch" {
		t.Fatalf("TestWrappedRuleError: Expected message = 'ErrCheckpointMismatch', found: '%s'", rule.message)
	}

	expected := "header at height 100: ErrCheckpointMismatch"
	if wrapped.Error() != expected {
		t.Fatalf("TestWrappedRuleError: Expected %s. found: %s", expected, wrapped.Error())
	}
}

func TestIsBannable(t *testing.T) {
	tests := []struct {
		err      error
		bannable bool
	}{
		{errors.Wrap(ErrHeaderDoesNotConnect, "batch"), false},
		{ErrBlockDoesNotExtendTip, false},
		{ErrInvalidHeader, true},
		{errors.Wrap(ErrCheckpointMismatch, "checkpoint"), true},
		{ErrMaxReorgViolation, true},
		{ErrKnownInvalid, true},
		{ErrBlockIntegrity, true},
		{ErrInvalidBlock, true},
		{errors.New("disk on fire"), false},
		{nil, false},
	}

	for i, test := range tests {
		if IsBannable(test.err) != test.bannable {
			t.Errorf("TestIsBannable: test #%d (%v): expected bannable=%t", i, test.err, test.bannable)
		}
	}
}

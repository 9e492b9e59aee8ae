package externalapi

// ValidationState is how far a block has progressed through validation.
// It only ever moves forward, except to StatusInvalid which is terminal.
type ValidationState byte

const (
	// StatusInvalid indicates that the block, or one of its ancestors,
	// failed validation.
	StatusInvalid ValidationState = iota

	// StatusHeaderValidated indicates that only the header passed validation.
	StatusHeaderValidated

	// StatusPartiallyValidated indicates that the block passed the
	// stateless checks.
	StatusPartiallyValidated

	// StatusAssumedValid indicates that the block is below a checkpoint or
	// is an ancestor of the assumed valid block, so parts of its
	// validation may be skipped.
	StatusAssumedValid

	// StatusFullyValidated indicates that the block was connected against
	// chain state.
	StatusFullyValidated
)

var validationStateStrings = map[ValidationState]string{
	StatusInvalid:            "Invalid",
	StatusHeaderValidated:    "HeaderValidated",
	StatusPartiallyValidated: "PartiallyValidated",
	StatusAssumedValid:       "AssumedValid",
	StatusFullyValidated:     "FullyValidated",
}

func (vs ValidationState) String() string {
	return validationStateStrings[vs]
}

// IsPartiallyValidatedOrBetter returns whether the block passed at least
// the stateless checks (or is trusted to pass them).
func (vs ValidationState) IsPartiallyValidatedOrBetter() bool {
	return vs == StatusPartiallyValidated || vs == StatusAssumedValid || vs == StatusFullyValidated
}

// BlockDataAvailabilityState tracks where a block's data is.
type BlockDataAvailabilityState byte

const (
	// AvailabilityHeaderOnly indicates that only the header is known and
	// its block is not wanted.
	AvailabilityHeaderOnly BlockDataAvailabilityState = iota

	// AvailabilityBlockRequired indicates that the block was requested.
	AvailabilityBlockRequired

	// AvailabilityBlockAvailable indicates that the block is held in memory.
	AvailabilityBlockAvailable

	// AvailabilityConsumed indicates that the block was persisted and
	// dropped from memory. It can be loaded from the block store.
	AvailabilityConsumed
)

var availabilityStrings = map[BlockDataAvailabilityState]string{
	AvailabilityHeaderOnly:     "HeaderOnly",
	AvailabilityBlockRequired:  "BlockRequired",
	AvailabilityBlockAvailable: "BlockAvailable",
	AvailabilityConsumed:       "Consumed",
}

func (as BlockDataAvailabilityState) String() string {
	return availabilityStrings[as]
}

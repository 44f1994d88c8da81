package allocator

import "errors"

var (
	// ErrInvalidConfig is returned when an AllocationConfig cannot be used for a run
	ErrInvalidConfig = errors.New("invalid allocation config")

	// ErrInvalidCondition is returned when a modifier condition cannot be parsed
	ErrInvalidCondition = errors.New("invalid modifier condition")

	// ErrInvalidModifier is returned when a modifier is missing a required value
	ErrInvalidModifier = errors.New("invalid modifier")
)

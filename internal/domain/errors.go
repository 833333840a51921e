package domain

import "errors"

// Sentinel errors shared by the engine. Callers match with errors.Is; the
// modules wrap them with fmt.Errorf("...: %w", err) to add context.
var (
	// ErrInsufficientBalance: a swap leg asked for more than the held quantity.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrMissingPrice: no price available for a symbol involved in a computation.
	ErrMissingPrice = errors.New("missing price")

	// ErrInvalidWeights: a target weight vector fails validation.
	ErrInvalidWeights = errors.New("invalid weights")

	// ErrInsufficientSample: too few data points for a statistical estimate.
	ErrInsufficientSample = errors.New("insufficient sample")

	// ErrDimensionMismatch: two series that must align have different lengths.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotFound: a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

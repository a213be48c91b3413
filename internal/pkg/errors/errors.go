package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidAction is returned when an interaction carries an action
	// type outside the closed action enum.
	ErrInvalidAction = errors.New("invalid action type")
	// ErrColdStart marks a user with no profile or interaction history.
	// Recoverable: the recommendation engine degrades to trending.
	ErrColdStart = errors.New("cold start")
	// ErrIndexUnavailable is returned when the vector index is not loaded
	// or holds no entries.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrDimensionMismatch is returned when an embedding's dimension does
	// not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrBadQueryImage is returned when a query image fails to decode or
	// preprocess.
	ErrBadQueryImage = errors.New("bad query image")
	// ErrUpstreamUnavailable is returned when a required external
	// collaborator (encoder, segmenter, retailer) failed or timed out.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

package repository

import "errors"

var (
	// ErrNotFound: no signal/portfolio with that id.
	ErrNotFound = errors.New("not found")
	// ErrConflict: conditional update lost; the signal left the expected
	// state between read and write.
	ErrConflict = errors.New("state conflict")
	// ErrAlreadyHandled: action against a signal already in a terminal or
	// incompatible state. Surfaced to the user, never mutates.
	ErrAlreadyHandled = errors.New("signal already handled")
	// ErrNoGateway: the portfolio has no live execution gateway connection.
	ErrNoGateway = errors.New("no execution gateway connected")
	// ErrDailyCapReached: the portfolio already holds today's maximum of
	// open signals; the whole proposal batch is rejected.
	ErrDailyCapReached = errors.New("daily signal cap reached")
)

package queue

import "errors"

// ErrQuotaExceeded is returned when a team has already created its full
// per-round item allowance.
var ErrQuotaExceeded = errors.New("team quota for this round exceeded")

// ErrRoundNotAccepting is returned when submitting to a round that is not
// active or whose remaining time has reached zero.
var ErrRoundNotAccepting = errors.New("round is not accepting items")

// ErrAlreadyEvaluated is returned when evaluating an item that already has a
// terminal verdict.
var ErrAlreadyEvaluated = errors.New("item already evaluated")

// ErrItemNotFound is returned when no item matches the given ID.
var ErrItemNotFound = errors.New("item not found")

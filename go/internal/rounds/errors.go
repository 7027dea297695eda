package rounds

import "errors"

// ErrRoundConflict is returned when creating a round while another round is
// still non-finished. Policy: at most one non-terminal round at a time.
var ErrRoundConflict = errors.New("a non-finished round already exists")

// ErrInvalidTransition is returned when a state machine operation is not legal
// from the round's current status.
var ErrInvalidTransition = errors.New("round transition not permitted")

// ErrRoundNotFound is returned when no round matches the given ID.
var ErrRoundNotFound = errors.New("round not found")

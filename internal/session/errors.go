package session

import "errors"

// ErrClosedEpisode marks a step or close against an episode that already
// reached a terminal state.
var ErrClosedEpisode = errors.New("episode is closed")

// ErrState marks an operation forbidden by the current lifecycle, e.g.
// stepping a stopped session or closing with a non-terminal state.
var ErrState = errors.New("operation not allowed in current state")

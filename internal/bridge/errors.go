package bridge

import "errors"

var (
	// ErrFetch aborts a poll cycle without touching the checkpoint.
	ErrFetch = errors.New("fetch messages")
	// ErrLookup aborts the relay of a single message whose node is unknown.
	ErrLookup = errors.New("node lookup")
	// ErrRelay aborts the relay of a single message at the join or send step.
	ErrRelay = errors.New("relay")
)

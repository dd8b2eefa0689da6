package domain

import "errors"

var (
	ErrHubStopped      = errors.New("hub stopped")
	ErrTooManyClients  = errors.New("too many clients")
	ErrCommandTimedOut = errors.New("hub command timed out")
)

package gateway

import "errors"

var (
	// ErrNotStarted is returned by operations that need Start to have run.
	ErrNotStarted = errors.New("gateway: not started")

	// ErrUnroutedTopic is returned for messages on a topic no device subscribed.
	ErrUnroutedTopic = errors.New("gateway: no device for topic")
)

package protocol

import "errors"

var (
	// ErrUnknownTopic is returned for topics outside the device command layout.
	ErrUnknownTopic = errors.New("protocol: unknown topic")

	// ErrUnknownKeyword is returned when a command payload is not a known keyword.
	ErrUnknownKeyword = errors.New("protocol: unknown keyword")

	// ErrNotEncodable is returned when a command has no topic representation.
	ErrNotEncodable = errors.New("protocol: command cannot be encoded")
)

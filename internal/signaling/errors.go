package signaling

import "errors"

var (
	ErrDuplicateConnection = errors.New("connection already registered")
	ErrUnknownConnection   = errors.New("unknown connection")
	ErrQueueFull           = errors.New("pending candidate queue full")
	ErrHubClosed           = errors.New("hub closed")
)

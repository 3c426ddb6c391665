package peer

import (
	"errors"
	"fmt"
)

var (
	ErrPartnerLeft      = errors.New("partner hung up")
	ErrSignalingError   = errors.New("signaling server error")
	ErrTimeout          = errors.New("timeout")
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrConnectionFailed = errors.New("connection failed")
	ErrConnectionClosed = errors.New("signaling connection closed")
	ErrChannelNotOpen   = errors.New("channel not open")
	ErrUnknownMessage   = errors.New("unknown data channel message")
)

type CallError struct {
	Op      string
	Err     error
	Details string
}

func (e *CallError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *CallError {
	return &CallError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *CallError {
	return &CallError{Op: op, Err: err, Details: details}
}

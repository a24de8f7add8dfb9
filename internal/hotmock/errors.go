package hotmock

import (
	"errors"
	"fmt"
)

var (
	// ErrInitialization wraps every failure of Client.Initialize.
	ErrInitialization = errors.New("hotmock: initialization failed")

	// ErrInvalidBoardType indicates a board variant without a connector table.
	ErrInvalidBoardType = errors.New("hotmock: invalid board type")

	// ErrNotConnected is returned by transport operations outside a session.
	ErrNotConnected = errors.New("hotmock: not connected")

	// ErrDisconnected means the peer closed the socket or the socket failed.
	// The session is unusable; the caller must finalize and may reinitialize.
	ErrDisconnected = errors.New("hotmock: disconnected")
)

// Send validation failures, reported inside a *ValidationError.
var (
	ErrInvalidConnectorType  = errors.New("invalid connector type")
	ErrConnectorOutOfRange   = errors.New("connector id out of range")
	ErrInvalidCommandForType = errors.New("invalid combination of command and connector type")
	ErrInvalidParameter      = errors.New("invalid parameter")
)

var (
	// ErrMalformedFrame marks an inbound frame that was discarded.
	ErrMalformedFrame = errors.New("hotmock: malformed frame")

	// ErrNoFrame is returned by Decoder.Next when no complete frame is buffered.
	ErrNoFrame = errors.New("hotmock: no complete frame")

	// ErrOutOfRange marks a buffer access with an ID outside the layout.
	ErrOutOfRange = errors.New("hotmock: connector id out of range")
)

// ValidationError reports why a command was rejected before transmission.
type ValidationError struct {
	Kind    error
	Command Command
	Type    ConnectorType
	ID      int
	Param   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("hotmock: %v: command=%s connector=%s%02d param=%d",
		e.Kind, e.Command, e.Type, e.ID, e.Param)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// FrameError describes a discarded inbound frame.
type FrameError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s (%q): %v", ErrMalformedFrame, e.Reason, e.Raw, e.Err)
	}
	return fmt.Sprintf("%v: %s (%q)", ErrMalformedFrame, e.Reason, e.Raw)
}

func (e *FrameError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedFrame, e.Err}
	}
	return []error{ErrMalformedFrame}
}

package idea

import (
	"errors"
	"fmt"
)

var (
	ErrNilTransport     = errors.New("idea: transport is nil")
	ErrInvalidParameter = errors.New("idea: invalid command parameter")
	ErrReplyTooLong     = errors.New("idea: reply exceeds maximum length")
	ErrInvalidPortName  = errors.New("idea: invalid port name")
	ErrPortClosed       = errors.New("idea: port closed")
)

// OpenError reports a failure to open or configure the serial device.
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("idea: open %s: %v", e.Port, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// WriteError reports a failed or short write of a command line.
type WriteError struct {
	Command string // wire line without the terminator
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("idea: write %q: %v", e.Command, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError reports a genuine read failure. A read timeout is never a ReadError.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("idea: read reply: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// EncodingError reports a command parameter rejected before transmission.
type EncodingError struct {
	Command Opcode
	Field   string
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("idea: encode %q: %v", string(e.Command), e.Err)
	}
	return fmt.Sprintf("idea: encode %q: field %s: %v", string(e.Command), e.Field, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is makes every EncodingError match ErrInvalidParameter.
func (e *EncodingError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// OverflowError is returned when a reply grows past the framing limit
// without a terminator. Partial holds the bytes accumulated so far.
type OverflowError struct {
	Limit   int
	Partial string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("idea: reply exceeds %d bytes without terminator", e.Limit)
}

func (e *OverflowError) Is(target error) bool {
	return target == ErrReplyTooLong
}

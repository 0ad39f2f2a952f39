package transport

import (
	"errors"
	"fmt"
)

// Modbus exception codes.
const (
	ExceptionIllegalFunction    = 1
	ExceptionIllegalDataAddress = 2
	ExceptionIllegalDataValue   = 3
	ExceptionServerFailure      = 4
)

var exceptionText = map[byte]string{
	ExceptionIllegalFunction:    "illegal function",
	ExceptionIllegalDataAddress: "illegal data address",
	ExceptionIllegalDataValue:   "illegal data value",
	ExceptionServerFailure:      "server device failure",
}

// Error wraps a transport failure (dial, write, read, framing) with the
// endpoint and operation that produced it.
type Error struct {
	Addr string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("modbus %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ExceptionError is a well-formed Modbus exception response. The connection
// stays healthy; only the addressed request failed.
type ExceptionError struct {
	Function byte // original function code
	Code     byte
}

func (e *ExceptionError) Error() string {
	name := exceptionText[e.Code]
	if name == "" {
		name = "unknown exception"
	}
	return fmt.Sprintf("modbus exception %d (%s) for function 0x%02X", e.Code, name, e.Function)
}

// IsIllegalAddress reports whether err is an exception response for an
// unmapped register range. Discovery treats this as "block not present"
// rather than a device fault.
func IsIllegalAddress(err error) bool {
	var ex *ExceptionError
	return errors.As(err, &ex) && ex.Code == ExceptionIllegalDataAddress
}

package wire

import "errors"

var (
	ErrInvalidHeader      = errors.New("wire: invalid header")
	ErrPayloadMalformed   = errors.New("wire: payload malformed")
	ErrPayloadLenMismatch = errors.New("wire: payload length mismatch")
	ErrUnknownOperation   = errors.New("wire: unknown operation")
)

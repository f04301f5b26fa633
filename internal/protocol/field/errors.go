package field

import "errors"

var (
	ErrTruncatedInput     = errors.New("field: truncated input")
	ErrUnknownTypeTag     = errors.New("field: unknown type tag")
	ErrMalformedContainer = errors.New("field: malformed container")
	ErrInvalidUTF8        = errors.New("field: invalid utf-8 string")
	ErrStringTooLong      = errors.New("field: string too long")
)

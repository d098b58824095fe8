package record

import "errors"

// Sentinel data errors for the value codec. These wrap per §7 of the spec:
// decoding failures are DataErrors and are surfaced unchanged to the caller.
var (
	ErrUnexpectedEof        = errors.New("record: unexpected eof")
	ErrUnknownTag           = errors.New("record: unknown tag")
	ErrInvalidLength        = errors.New("record: invalid length")
	ErrNonUtf8              = errors.New("record: non-utf8 string payload")
	ErrIntegerOutOfRange    = errors.New("record: integer outside safe range")
	ErrPointerOutOfRange    = errors.New("record: pointer outside safe range")
	ErrInvalidObjectId      = errors.New("record: objectid must be exactly 12 bytes")
	ErrInvalidTimestamp     = errors.New("record: malformed timestamp")
)

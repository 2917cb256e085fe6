package protocol

import "errors"

var (
	// ErrTooShort is returned when a buffer is shorter than the fixed header.
	ErrTooShort = errors.New("protocol: frame shorter than header")
	// ErrBadMagic is returned when the first header byte is not Magic.
	ErrBadMagic = errors.New("protocol: invalid magic byte")
	// ErrPayloadTruncated is returned when the buffer does not hold the full
	// payload_len bytes the header declares.
	ErrPayloadTruncated = errors.New("protocol: payload truncated")
	// ErrPayloadTooLarge is returned when encoding or decoding a payload
	// larger than MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds maximum size")
)

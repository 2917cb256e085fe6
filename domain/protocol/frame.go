package protocol

import (
	"encoding/binary"
	"fedrelay/domain/identity"
)

// HeaderSize is the fixed size in bytes of every frame header (§4.1).
const HeaderSize = 120

// MaxPayloadSize bounds payload_len. The spec leaves the maximum
// implementation-defined; 1MiB comfortably covers opaque client payloads
// without letting one frame monopolize a session's read buffer.
const MaxPayloadSize = 1 << 20

const (
	offMagic      = 0
	offVersion    = 1
	offType       = 2
	offFlags      = 3
	offPayloadLen = 4
	offMsgID      = 8
	offSenderID   = 24
	offSignature  = 56
	offPayload    = HeaderSize
)

// Frame is one fixed-header-plus-payload binary message (§4.1). Header and
// payload are delivered to higher layers as independent byte slices; Frame
// holds copies, never subslices of the decode buffer, so callers can mutate
// or reuse that buffer immediately after UnmarshalBinary returns.
type Frame struct {
	Type      Type
	SenderID  identity.PublicKey
	Signature identity.Signature
	Payload   []byte
}

// Signed reports whether the signature field is set, i.e. not the all-zero
// "not signed" sentinel.
func (f *Frame) Signed() bool {
	return !f.Signature.IsZero()
}

// Clone returns a deep copy of f — independent backing storage for payload,
// sender id and signature — as required for a pending-query table entry
// (§3 "Pending query"), so later mutation of the source frame or its buffer
// cannot affect the held copy.
func (f *Frame) Clone() *Frame {
	cp := &Frame{
		Type:      f.Type,
		SenderID:  f.SenderID,
		Signature: f.Signature,
	}
	if f.Payload != nil {
		cp.Payload = append([]byte(nil), f.Payload...)
	}
	return cp
}

// MarshalBinary encodes f as HeaderSize + len(Payload) bytes.
func (f *Frame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(f.Payload))
	buf[offMagic] = Magic
	buf[offVersion] = Version
	buf[offType] = byte(f.Type)
	buf[offFlags] = 0
	binary.BigEndian.PutUint32(buf[offPayloadLen:offPayloadLen+4], uint32(len(f.Payload)))
	// msg_id (16 bytes) left zero — reserved.
	copy(buf[offSenderID:offSenderID+identity.PublicKeySize], f.SenderID[:])
	copy(buf[offSignature:offSignature+identity.SignatureSize], f.Signature[:])
	copy(buf[offPayload:], f.Payload)
	return buf, nil
}

// UnmarshalBinary decodes a frame from data. Payload is copied out of data,
// not aliased, matching the "independent backing storage" guarantee Frame
// callers rely on (§3).
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrTooShort
	}
	if data[offMagic] != Magic {
		return ErrBadMagic
	}
	payloadLen := binary.BigEndian.Uint32(data[offPayloadLen : offPayloadLen+4])
	if payloadLen > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	if len(data) < HeaderSize+int(payloadLen) {
		return ErrPayloadTruncated
	}

	f.Type = Type(data[offType])
	copy(f.SenderID[:], data[offSenderID:offSenderID+identity.PublicKeySize])
	copy(f.Signature[:], data[offSignature:offSignature+identity.SignatureSize])
	if payloadLen == 0 {
		f.Payload = nil
	} else {
		f.Payload = append([]byte(nil), data[offPayload:offPayload+int(payloadLen)]...)
	}
	return nil
}

// Decode is a convenience constructor around UnmarshalBinary.
func Decode(data []byte) (*Frame, error) {
	f := &Frame{}
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return f, nil
}

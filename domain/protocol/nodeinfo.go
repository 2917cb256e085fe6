package protocol

import (
	"encoding/binary"

	"fedrelay/domain/identity"
)

// NodeInfoSubtype is the first payload byte of a NODE_INFO frame (§4.7).
type NodeInfoSubtype byte

const (
	SubtypeRequestClients  NodeInfoSubtype = 0 // reserved, unused
	SubtypeResponseClients NodeInfoSubtype = 1 // reserved, unused
	SubtypeRequestServers  NodeInfoSubtype = 2
	SubtypeResponseServers NodeInfoSubtype = 3
	SubtypeAddServer       NodeInfoSubtype = 4
	SubtypeQueryClient     NodeInfoSubtype = 5
	SubtypeQueryResponse   NodeInfoSubtype = 6
)

func (s NodeInfoSubtype) String() string {
	switch s {
	case SubtypeRequestClients:
		return "REQUEST_CLIENTS"
	case SubtypeResponseClients:
		return "RESPONSE_CLIENTS"
	case SubtypeRequestServers:
		return "REQUEST_SERVERS"
	case SubtypeResponseServers:
		return "RESPONSE_SERVERS"
	case SubtypeAddServer:
		return "ADD_SERVER"
	case SubtypeQueryClient:
		return "QUERY_CLIENT"
	case SubtypeQueryResponse:
		return "QUERY_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// QueryStatus is the one-byte status field of a QUERY_RESPONSE body.
type QueryStatus byte

const (
	QueryNotFound QueryStatus = 0
	QueryFound    QueryStatus = 1
)

// ServerAdvert is one (pubkey, address) entry of a RESPONSE_SERVERS body.
type ServerAdvert struct {
	PublicKey identity.PublicKey
	Address   string
}

// EncodeRequestServers returns the REQUEST_SERVERS payload: subtype byte only.
func EncodeRequestServers() []byte {
	return []byte{byte(SubtypeRequestServers)}
}

// EncodeResponseServers returns the RESPONSE_SERVERS payload: the subtype
// byte, then the body: u16 count then
// count * { 32-byte pubkey, u8 addr_len, addr_len bytes UTF-8 address }.
func EncodeResponseServers(adverts []ServerAdvert) []byte {
	size := 1 + 2
	for _, a := range adverts {
		size += identity.PublicKeySize + 1 + len(a.Address)
	}
	buf := make([]byte, size)
	buf[0] = byte(SubtypeResponseServers)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(adverts)))
	off := 3
	for _, a := range adverts {
		copy(buf[off:off+identity.PublicKeySize], a.PublicKey[:])
		off += identity.PublicKeySize
		buf[off] = byte(len(a.Address))
		off++
		copy(buf[off:off+len(a.Address)], a.Address)
		off += len(a.Address)
	}
	return buf
}

// DecodeResponseServers parses a RESPONSE_SERVERS body (payload[1:], the
// subtype byte already stripped).
func DecodeResponseServers(body []byte) ([]ServerAdvert, error) {
	if len(body) < 2 {
		return nil, ErrPayloadTruncated
	}
	count := binary.BigEndian.Uint16(body[0:2])
	off := 2
	out := make([]ServerAdvert, 0, count)
	for i := 0; i < int(count); i++ {
		if off+identity.PublicKeySize+1 > len(body) {
			return nil, ErrPayloadTruncated
		}
		var a ServerAdvert
		copy(a.PublicKey[:], body[off:off+identity.PublicKeySize])
		off += identity.PublicKeySize
		addrLen := int(body[off])
		off++
		if off+addrLen > len(body) {
			return nil, ErrPayloadTruncated
		}
		a.Address = string(body[off : off+addrLen])
		off += addrLen
		out = append(out, a)
	}
	return out, nil
}

// EncodeAddServer returns the ADD_SERVER payload: the subtype byte, then the
// body: u8 addr_len, addr_len bytes.
func EncodeAddServer(addr string) []byte {
	buf := make([]byte, 1+1+len(addr))
	buf[0] = byte(SubtypeAddServer)
	buf[1] = byte(len(addr))
	copy(buf[2:], addr)
	return buf
}

// DecodeAddServer parses an ADD_SERVER body (subtype byte already stripped).
func DecodeAddServer(body []byte) (string, error) {
	if len(body) < 1 {
		return "", ErrPayloadTruncated
	}
	addrLen := int(body[0])
	if len(body) < 1+addrLen {
		return "", ErrPayloadTruncated
	}
	return string(body[1 : 1+addrLen]), nil
}

// EncodeQueryClient returns the QUERY_CLIENT payload: the subtype byte, then
// the body: the 32-byte target key.
func EncodeQueryClient(target identity.PublicKey) []byte {
	buf := make([]byte, 1+identity.PublicKeySize)
	buf[0] = byte(SubtypeQueryClient)
	copy(buf[1:], target[:])
	return buf
}

// DecodeQueryClient parses a QUERY_CLIENT body (subtype byte already stripped).
func DecodeQueryClient(body []byte) (identity.PublicKey, error) {
	var target identity.PublicKey
	if len(body) < identity.PublicKeySize {
		return target, ErrPayloadTruncated
	}
	copy(target[:], body[:identity.PublicKeySize])
	return target, nil
}

// EncodeQueryResponse returns the QUERY_RESPONSE payload: the subtype byte,
// then the body: u8 status, 32-byte target, and (if status=found) a 32-byte
// owner.
func EncodeQueryResponse(status QueryStatus, target identity.PublicKey, owner *identity.PublicKey) []byte {
	size := 1 + 1 + identity.PublicKeySize
	if status == QueryFound && owner != nil {
		size += identity.PublicKeySize
	}
	buf := make([]byte, size)
	buf[0] = byte(SubtypeQueryResponse)
	buf[1] = byte(status)
	copy(buf[2:2+identity.PublicKeySize], target[:])
	if status == QueryFound && owner != nil {
		copy(buf[2+identity.PublicKeySize:], owner[:])
	}
	return buf
}

// QueryResponseBody is the decoded form of a QUERY_RESPONSE body.
type QueryResponseBody struct {
	Status QueryStatus
	Target identity.PublicKey
	Owner  identity.PublicKey // zero unless Status == QueryFound
}

// DecodeQueryResponse parses a QUERY_RESPONSE body (subtype byte already
// stripped).
func DecodeQueryResponse(body []byte) (QueryResponseBody, error) {
	var r QueryResponseBody
	if len(body) < 1+identity.PublicKeySize {
		return r, ErrPayloadTruncated
	}
	r.Status = QueryStatus(body[0])
	copy(r.Target[:], body[1:1+identity.PublicKeySize])
	if r.Status == QueryFound {
		off := 1 + identity.PublicKeySize
		if len(body) < off+identity.PublicKeySize {
			return r, ErrPayloadTruncated
		}
		copy(r.Owner[:], body[off:off+identity.PublicKeySize])
	}
	return r, nil
}

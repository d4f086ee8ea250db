package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrVersionMismatch = errors.New("protocol version mismatch")
	ErrPayloadTooLarge = errors.New("declared payload exceeds the sanity cap")
	ErrPayloadSize     = errors.New("payload has the wrong size for its code")
)

// Request is one client-to-server frame: a 23-byte header followed by the
// payload. All multi-byte integers on the wire are little-endian.
type Request struct {
	ClientID [ClientIDSize]byte
	Code     uint16
	Payload  []byte
}

// WriteRequest serializes the request into a single buffer and writes it in
// one call, so the header and payload reach the transport together.
func WriteRequest(w io.Writer, req *Request) error {
	buf := make([]byte, RequestHeaderSize+len(req.Payload))
	copy(buf[0:ClientIDSize], req.ClientID[:])
	buf[16] = Version
	binary.LittleEndian.PutUint16(buf[17:19], req.Code)
	binary.LittleEndian.PutUint32(buf[19:23], uint32(len(req.Payload)))
	copy(buf[RequestHeaderSize:], req.Payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write request %d: %w", req.Code, err)
	}
	return nil
}

// Response is one server-to-client frame.
type Response struct {
	Code    uint16
	Payload []byte
}

// ReadResponse reads a 7-byte response header, validates the version byte and
// the declared payload size, then reads the full payload. Short reads surface
// as errors from io.ReadFull.
func ReadResponse(r io.Reader) (*Response, error) {
	header := make([]byte, ResponseHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read response header: %w", err)
	}

	if header[0] != Version {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrVersionMismatch, header[0], Version)
	}

	code := binary.LittleEndian.Uint16(header[1:3])
	size := binary.LittleEndian.Uint32(header[3:7])
	if size > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read %d payload bytes: %w", size, err)
	}

	return &Response{Code: code, Payload: payload}, nil
}

// PadString copies at most len(dst)-1 bytes of s into dst and NUL-fills the
// remainder, so the field is always terminated.
func PadString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(s)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, s[:n])
}

// UnpadString returns the bytes of b up to the first NUL.
func UnpadString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

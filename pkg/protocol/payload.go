package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/rescp17/secureBackup/pkg/crypto"
)

// RegisterPayload builds the payload of a registration request: the username
// in a fixed 255-byte NUL-padded field.
func RegisterPayload(username string) []byte {
	buf := make([]byte, UsernameSize)
	PadString(buf, username)
	return buf
}

// ReconnectPayload has the same layout as RegisterPayload.
func ReconnectPayload(username string) []byte {
	return RegisterPayload(username)
}

// PublicKeyPayload builds the payload of a send-public-key request: the
// username field followed by the 160-byte public key encoding.
func PublicKeyPayload(username string, publicKey []byte) ([]byte, error) {
	if len(publicKey) != crypto.PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes, expected %d", ErrPayloadSize, len(publicKey), crypto.PublicKeySize)
	}

	buf := make([]byte, UsernameSize+crypto.PublicKeySize)
	PadString(buf[:UsernameSize], username)
	copy(buf[UsernameSize:], publicKey)
	return buf, nil
}

// FileRequest describes one send-file payload. The client always transfers
// the whole file in a single packet, so PacketNumber and TotalPackets are 1.
type FileRequest struct {
	ContentSize  uint32 // ciphertext length
	OrigFileSize uint32 // plaintext length
	PacketNumber uint16
	TotalPackets uint16
	Filename     string
	Content      []byte // ciphertext
}

// Marshal lays the file header and ciphertext out as one payload. The frame's
// payload_size covers both.
func (fr *FileRequest) Marshal() []byte {
	buf := make([]byte, FileHeaderSize+len(fr.Content))
	binary.LittleEndian.PutUint32(buf[0:4], fr.ContentSize)
	binary.LittleEndian.PutUint32(buf[4:8], fr.OrigFileSize)
	binary.LittleEndian.PutUint16(buf[8:10], fr.PacketNumber)
	binary.LittleEndian.PutUint16(buf[10:12], fr.TotalPackets)
	PadString(buf[12:12+FilenameSize], fr.Filename)
	copy(buf[FileHeaderSize:], fr.Content)
	return buf
}

// ClientIDFromPayload extracts the 16-byte client identifier that makes up
// the whole payload of a registration-success response.
func ClientIDFromPayload(payload []byte) ([ClientIDSize]byte, error) {
	var id [ClientIDSize]byte
	if len(payload) != ClientIDSize {
		return id, fmt.Errorf("%w: got %d bytes, expected %d", ErrPayloadSize, len(payload), ClientIDSize)
	}
	copy(id[:], payload)
	return id, nil
}

// KeyResponse is the payload of a key-exchange response (public key accepted
// or reconnect approved): the echoed client identifier followed by the
// session key encrypted under the client's public key.
type KeyResponse struct {
	ClientID     [ClientIDSize]byte
	EncryptedKey []byte
}

// ParseKeyResponse validates the payload layout of a key-exchange response.
func ParseKeyResponse(payload []byte) (*KeyResponse, error) {
	if len(payload) != ClientIDSize+crypto.EncryptedKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrPayloadSize, len(payload), ClientIDSize+crypto.EncryptedKeySize)
	}

	resp := &KeyResponse{EncryptedKey: make([]byte, crypto.EncryptedKeySize)}
	copy(resp.ClientID[:], payload[:ClientIDSize])
	copy(resp.EncryptedKey, payload[ClientIDSize:])
	return resp, nil
}

// FileReceived is the payload of a file-received response. The server echoes
// the identifier, the ciphertext size and the file name, and reports the
// checksum it computed over the decrypted content.
type FileReceived struct {
	ClientID    [ClientIDSize]byte
	ContentSize uint32
	Filename    string
	CRC         uint32
}

// ParseFileReceived validates and decodes a file-received payload.
func ParseFileReceived(payload []byte) (*FileReceived, error) {
	const want = ClientIDSize + 4 + FilenameSize + 4
	if len(payload) != want {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrPayloadSize, len(payload), want)
	}

	resp := &FileReceived{}
	copy(resp.ClientID[:], payload[:ClientIDSize])
	resp.ContentSize = binary.LittleEndian.Uint32(payload[ClientIDSize : ClientIDSize+4])
	resp.Filename = UnpadString(payload[ClientIDSize+4 : ClientIDSize+4+FilenameSize])
	resp.CRC = binary.LittleEndian.Uint32(payload[len(payload)-4:])
	return resp, nil
}

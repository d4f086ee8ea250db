package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/secureBackup/pkg/crypto"
)

func TestRegisterPayload(t *testing.T) {
	payload := RegisterPayload("alice")
	require.Len(t, payload, UsernameSize)
	assert.Equal(t, "alice", UnpadString(payload))
	assert.Equal(t, byte(0), payload[UsernameSize-1], "Last byte is reserved as a terminator")
}

func TestPublicKeyPayload(t *testing.T) {
	key := bytes.Repeat([]byte{0x30}, crypto.PublicKeySize)
	payload, err := PublicKeyPayload("bob", key)
	require.NoError(t, err)

	require.Len(t, payload, UsernameSize+crypto.PublicKeySize)
	assert.Equal(t, "bob", UnpadString(payload[:UsernameSize]))
	assert.Equal(t, key, payload[UsernameSize:])

	_, err = PublicKeyPayload("bob", key[:100])
	require.ErrorIs(t, err, ErrPayloadSize)
}

func TestFileRequestMarshal(t *testing.T) {
	content := []byte("encrypted bytes")
	fr := &FileRequest{
		ContentSize:  uint32(len(content)),
		OrigFileSize: 7,
		PacketNumber: 1,
		TotalPackets: 1,
		Filename:     "notes.txt",
		Content:      content,
	}

	payload := fr.Marshal()
	require.Len(t, payload, FileHeaderSize+len(content))

	assert.Equal(t, uint32(len(content)), binary.LittleEndian.Uint32(payload[0:4]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(payload[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(payload[8:10]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(payload[10:12]))
	assert.Equal(t, "notes.txt", UnpadString(payload[12:12+FilenameSize]))
	assert.Equal(t, content, payload[FileHeaderSize:])
}

func TestClientIDFromPayload(t *testing.T) {
	raw := bytes.Repeat([]byte{0x11}, ClientIDSize)
	id, err := ClientIDFromPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id[:])

	_, err = ClientIDFromPayload(raw[:15])
	require.ErrorIs(t, err, ErrPayloadSize)
	_, err = ClientIDFromPayload(append(raw, 0x22))
	require.ErrorIs(t, err, ErrPayloadSize)
}

func TestParseKeyResponse(t *testing.T) {
	id := bytes.Repeat([]byte{0xAB}, ClientIDSize)
	key := bytes.Repeat([]byte{0xCD}, crypto.EncryptedKeySize)

	resp, err := ParseKeyResponse(append(append([]byte{}, id...), key...))
	require.NoError(t, err)
	assert.Equal(t, id, resp.ClientID[:])
	assert.Equal(t, key, resp.EncryptedKey)

	_, err = ParseKeyResponse(id)
	require.ErrorIs(t, err, ErrPayloadSize)
}

func TestParseFileReceived(t *testing.T) {
	payload := make([]byte, ClientIDSize+4+FilenameSize+4)
	copy(payload, bytes.Repeat([]byte{0x77}, ClientIDSize))
	binary.LittleEndian.PutUint32(payload[ClientIDSize:], 4096)
	PadString(payload[ClientIDSize+4:ClientIDSize+4+FilenameSize], "backup.tar")
	binary.LittleEndian.PutUint32(payload[len(payload)-4:], 0xDEADBEEF)

	resp, err := ParseFileReceived(payload)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0x77}, ClientIDSize), resp.ClientID[:])
	assert.Equal(t, uint32(4096), resp.ContentSize)
	assert.Equal(t, "backup.tar", resp.Filename)
	assert.Equal(t, uint32(0xDEADBEEF), resp.CRC)

	_, err = ParseFileReceived(payload[:len(payload)-1])
	require.ErrorIs(t, err, ErrPayloadSize)
}

package fileInfo

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescp17/secureBackup/pkg/cksum"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	content := []byte("some file content to back up\n")
	path := filepath.Join(dir, "backup.txt")
	require.NoError(t, os.WriteFile(path, content, 0644))

	info, err := Load(path)
	require.NoError(t, err, "Failed to load file")

	assert.Equal(t, path, info.Path)
	assert.Equal(t, "backup.txt", info.Name)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, content, info.Data)
	assert.Equal(t, cksum.Sum(content), info.CRC)
	assert.Contains(t, info.MimeType, "text/plain")
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	info, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size)
	assert.Equal(t, uint32(0xFFFFFFFF), info.CRC, "Empty input checksum is the complement of zero")
}

func TestLoadBinaryContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	data := []byte{0x00, 0x01, 0xFF, 0xFE, 0x80}
	require.NoError(t, os.WriteFile(path, data, 0644))

	info, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, data, info.Data)
	assert.NotEmpty(t, info.MimeType)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.bin"))
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadRejectsOverlongName(t *testing.T) {
	dir := t.TempDir()
	name := strings.Repeat("x", 251) + ".bin"
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrNameTooLong)
}

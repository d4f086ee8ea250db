package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadWithPortFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, TransferInfoName, "backup.example.com\nalice\n/data/backup.tar\n")
	writeConfig(t, dir, PortInfoName, "4500\n")

	endpoint, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "backup.example.com", endpoint.Host)
	assert.Equal(t, uint16(4500), endpoint.Port)
	assert.Equal(t, "alice", endpoint.Username)
	assert.Equal(t, "/data/backup.tar", endpoint.FilePath)
	assert.Equal(t, "backup.example.com:4500", endpoint.Addr())
	assert.False(t, endpoint.Discover())
}

func TestLoadDefaultPort(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, TransferInfoName, "localhost\nbob\nfile.bin\n")

	endpoint, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, uint16(DefaultPort), endpoint.Port, "Missing port.info should fall back to the default")
}

func TestLoadUnparseablePortFile(t *testing.T) {
	tests := []string{"not-a-port\n", "70000\n", "0\n", "-1\n", ""}

	for _, content := range tests {
		dir := t.TempDir()
		writeConfig(t, dir, TransferInfoName, "localhost\nbob\nfile.bin\n")
		writeConfig(t, dir, PortInfoName, content)

		endpoint, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, uint16(DefaultPort), endpoint.Port, "Port file %q should fall back to the default", content)
	}
}

func TestLoadInlinePort(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, TransferInfoName, "backup.example.com:9000\nalice\nfile.bin\n")
	// An inline port wins over port.info.
	writeConfig(t, dir, PortInfoName, "4500\n")

	endpoint, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "backup.example.com", endpoint.Host)
	assert.Equal(t, uint16(9000), endpoint.Port)
}

func TestLoadSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, TransferInfoName, "\nlocalhost\n\r\ncarol\n\nfile.bin\n\n")

	endpoint, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "carol", endpoint.Username)
}

func TestLoadRejectsMalformedFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Too few lines", "localhost\nalice\n"},
		{"Too many lines", "localhost\nalice\nfile.bin\nextra\n"},
		{"Empty file", ""},
		{"Overlong username", "localhost\n" + strings.Repeat("x", 255) + "\nfile.bin\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, TransferInfoName, tt.content)

			_, err := Load(dir)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMissingTransferInfo(t *testing.T) {
	_, err := Load(t.TempDir())
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDiscoverHost(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, TransferInfoName, "auto\nalice\nfile.bin\n")

	endpoint, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, endpoint.Discover())
}

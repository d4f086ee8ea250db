package fileInfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rescp17/secureBackup/pkg/cksum"
	"github.com/rescp17/secureBackup/pkg/protocol"
)

var ErrNameTooLong = errors.New("file name does not fit the protocol field")

// FileInfo describes the file staged for upload: its full content, the base
// name sent on the wire, the detected media type and the plaintext checksum
// the server must reproduce.
type FileInfo struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
	Data     []byte
	CRC      uint32
}

// Load reads the whole file into memory and computes its checksum. The
// protocol carries a single packet, so the content must fit in memory anyway.
func Load(path string) (*FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}

	name := filepath.Base(path)
	if len(name) > protocol.FilenameSize-1 {
		return nil, fmt.Errorf("%w: %q is %d bytes, max %d", ErrNameTooLong, name, len(name), protocol.FilenameSize-1)
	}

	return &FileInfo{
		Path:     path,
		Name:     name,
		Size:     int64(len(data)),
		MimeType: mimetype.Detect(data).String(),
		Data:     data,
		CRC:      cksum.Sum(data),
	}, nil
}

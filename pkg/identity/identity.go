package identity

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rescp17/secureBackup/pkg/crypto"
)

const (
	// FileName holds the persisted identity: username, client identifier as
	// 32 lowercase hex characters, and the base-64 encoded private key.
	FileName = "me.info"

	tmpSuffix = ".tmp"
)

var ErrCorrupt = errors.New("identity file is corrupt")

// Identity is the long-lived client identity created by a successful
// registration. It is immutable once written; only deleting me.info resets
// the client to an unregistered state.
type Identity struct {
	Username string
	ClientID uuid.UUID
	Key      *crypto.KeyPair
}

// HexID returns the 32-character lowercase hex form of the identifier, the
// representation me.info stores.
func (id *Identity) HexID() string {
	return hex.EncodeToString(id.ClientID[:])
}

// Load reads me.info from dir. A missing file surfaces fs.ErrNotExist so the
// caller can fall back to registration; any malformed content is ErrCorrupt.
func Load(dir string) (*Identity, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 3 {
		return nil, fmt.Errorf("%w: expected 3 non-empty lines, got %d", ErrCorrupt, len(lines))
	}

	clientID, err := parseHexID(lines[1])
	if err != nil {
		return nil, err
	}

	der, err := base64.StdEncoding.DecodeString(lines[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad base-64 private key: %v", ErrCorrupt, err)
	}
	key, err := crypto.ImportPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return &Identity{
		Username: lines[0],
		ClientID: clientID,
		Key:      key,
	}, nil
}

// Save writes the identity atomically: the content goes to me.info.tmp, is
// synced to disk, and is then renamed over me.info. A crash mid-write leaves
// either the previous file or a stray tmp file that Load never looks at.
func Save(dir string, id *Identity) error {
	encodedKey := base64.StdEncoding.EncodeToString(id.Key.ExportPrivateKey())
	content := id.Username + "\n" + id.HexID() + "\n" + encodedKey + "\n"

	path := filepath.Join(dir, FileName)
	tmpPath := path + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(tmpPath), err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write identity: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync identity: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close identity file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", FileName, err)
	}
	return nil
}

func parseHexID(s string) (uuid.UUID, error) {
	var id uuid.UUID
	if len(s) != 2*len(id) || s != strings.ToLower(s) {
		return id, fmt.Errorf("%w: identifier must be %d lowercase hex characters", ErrCorrupt, 2*len(id))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("%w: identifier is not hex: %v", ErrCorrupt, err)
	}
	id, err = uuid.FromBytes(raw)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return id, nil
}

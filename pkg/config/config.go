package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rescp17/secureBackup/pkg/protocol"
)

const (
	TransferInfoName = "transfer.info"
	PortInfoName     = "port.info"

	// DefaultPort is used whenever port.info is absent or unparseable.
	DefaultPort = 1256

	// AutoHost makes the client discover the backup server on the local
	// network instead of dialing a fixed address.
	AutoHost = "auto"
)

var ErrInvalid = errors.New("invalid transfer.info")

// ServerEndpoint is the per-run configuration: where to connect, who to
// present as, and which file to upload. Read-only after Load.
type ServerEndpoint struct {
	Host     string
	Port     uint16
	Username string
	FilePath string
}

// Load reads transfer.info (three non-empty lines: host with optional inline
// port, username, file path) and port.info from dir. An inline port takes
// precedence over port.info.
func Load(dir string) (*ServerEndpoint, error) {
	lines, err := readLines(filepath.Join(dir, TransferInfoName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TransferInfoName, err)
	}
	if len(lines) != 3 {
		return nil, fmt.Errorf("%w: expected 3 non-empty lines, got %d", ErrInvalid, len(lines))
	}

	endpoint := &ServerEndpoint{
		Username: lines[1],
		FilePath: lines[2],
	}

	host, inlinePort, ok := splitHostPort(lines[0])
	endpoint.Host = host
	if ok {
		endpoint.Port = inlinePort
	} else {
		endpoint.Port = loadPort(filepath.Join(dir, PortInfoName))
	}

	if endpoint.Host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrInvalid)
	}
	if endpoint.Username == "" || len(endpoint.Username) > protocol.UsernameSize-1 {
		return nil, fmt.Errorf("%w: username must be 1-%d bytes", ErrInvalid, protocol.UsernameSize-1)
	}
	return endpoint, nil
}

// Addr formats the endpoint for net.Dial.
func (e *ServerEndpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// Discover reports whether the host requests mDNS discovery.
func (e *ServerEndpoint) Discover() bool {
	return strings.EqualFold(e.Host, AutoHost)
}

// splitHostPort accepts "host", "host:port" and "[v6]:port" first lines.
func splitHostPort(line string) (host string, port uint16, ok bool) {
	h, p, err := net.SplitHostPort(line)
	if err != nil {
		return line, 0, false
	}
	n, err := strconv.ParseUint(p, 10, 16)
	if err != nil || n == 0 {
		return line, 0, false
	}
	return h, uint16(n), true
}

func loadPort(path string) uint16 {
	lines, err := readLines(path)
	if err != nil || len(lines) == 0 {
		return DefaultPort
	}
	n, err := strconv.ParseUint(strings.TrimSpace(lines[0]), 10, 16)
	if err != nil || n == 0 {
		slog.Warn("unparseable port file, using default", "path", path, "default", DefaultPort)
		return DefaultPort
	}
	return uint16(n)
}

// readLines returns the non-empty lines of a text file, trimmed of trailing
// carriage returns.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

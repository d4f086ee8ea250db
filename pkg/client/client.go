package client

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	appevents "github.com/rescp17/secureBackup/internal/app_events"
	"github.com/rescp17/secureBackup/pkg/config"
	"github.com/rescp17/secureBackup/pkg/crypto"
	"github.com/rescp17/secureBackup/pkg/fileInfo"
	"github.com/rescp17/secureBackup/pkg/identity"
	"github.com/rescp17/secureBackup/pkg/protocol"
)

const (
	// MaxUploadAttempts bounds the checksum-mismatch retry loop.
	MaxUploadAttempts = 3

	// DefaultTimeout is the per-operation socket deadline.
	DefaultTimeout = 60 * time.Second

	// ackTimeout bounds the best-effort wait for the final acknowledgement.
	// The server is not required to send one, so this stays short.
	ackTimeout = 5 * time.Second
)

// Options configures one backup session.
type Options struct {
	Endpoint *config.ServerEndpoint
	Dir      string        // directory holding me.info
	Timeout  time.Duration // per-operation socket deadline; DefaultTimeout if zero
	Events   chan<- appevents.AppUIMessage
}

// Client drives a single backup session over one TCP connection: register or
// reconnect, exchange keys, upload with the checksum retry loop. It owns the
// connection, the session state and the cipher instances for the session's
// lifetime and is not safe for concurrent use.
type Client struct {
	opts     Options
	conn     net.Conn
	identity *identity.Identity
	clientID [protocol.ClientIDSize]byte
	key      *crypto.KeyPair
	session  *crypto.AESCipher
	file     *fileInfo.FileInfo
}

// New creates a client for one session.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{opts: opts}
}

// Run executes the whole session and returns nil only when the server
// confirmed the upload with a matching checksum.
func (c *Client) Run(ctx context.Context) error {
	if err := c.loadIdentity(); err != nil {
		return err
	}

	file, err := fileInfo.Load(c.opts.Endpoint.FilePath)
	if err != nil {
		return err
	}
	c.file = file
	slog.Info("upload file loaded",
		"name", file.Name, "size", file.Size, "mime", file.MimeType, "crc", fmt.Sprintf("%08x", file.CRC))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.opts.Endpoint.Addr())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.opts.Endpoint.Addr(), err)
	}
	c.conn = conn
	defer c.conn.Close()

	slog.Info("connected", "addr", c.opts.Endpoint.Addr())
	c.emit(appevents.ConnectedMsg{Addr: c.opts.Endpoint.Addr()})

	if c.identity == nil {
		if err := c.register(); err != nil {
			return err
		}
		if err := c.sendPublicKey(); err != nil {
			return err
		}
	} else {
		if err := c.reconnect(); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return c.upload()
}

// loadIdentity reads me.info if present. A corrupt file is fatal; an absent
// one selects the registration flow.
func (c *Client) loadIdentity() error {
	id, err := identity.Load(c.opts.Dir)
	switch {
	case err == nil:
		if id.Username != c.opts.Endpoint.Username {
			slog.Warn("transfer.info names a different user than me.info, using the stored identity",
				"configured", c.opts.Endpoint.Username, "stored", id.Username)
		}
		c.identity = id
		c.key = id.Key
		copy(c.clientID[:], id.ClientID[:])
		slog.Info("identity loaded", "username", id.Username, "client_id", id.HexID())
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("no identity file, registering as a new client", "username", c.opts.Endpoint.Username)
	default:
		return err
	}
	return nil
}

// register sends the registration request and persists the new identity
// before the public key goes out, so a crash between the two leaves a
// client that can reconnect.
func (c *Client) register() error {
	c.emit(appevents.StatusUpdateMsg{Message: "Registering new client"})

	req := &protocol.Request{
		Code:    protocol.CodeRegister,
		Payload: protocol.RegisterPayload(c.opts.Endpoint.Username),
	}
	resp, err := c.exchange(req)
	if err != nil {
		return err
	}

	switch resp.Code {
	case protocol.CodeRegisterOK:
	case protocol.CodeRegisterFailed:
		return fmt.Errorf("%w: username %q may already be taken", ErrRegistrationRejected, c.opts.Endpoint.Username)
	default:
		return fmt.Errorf("%w: %d during registration", ErrUnexpectedResponse, resp.Code)
	}

	c.clientID, err = protocol.ClientIDFromPayload(resp.Payload)
	if err != nil {
		return err
	}

	key, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	c.key = key

	c.identity = &identity.Identity{
		Username: c.opts.Endpoint.Username,
		ClientID: uuid.UUID(c.clientID),
		Key:      key,
	}
	if err := identity.Save(c.opts.Dir, c.identity); err != nil {
		return err
	}

	slog.Info("registered", "client_id", c.identity.HexID())
	c.emit(appevents.RegisteredMsg{ClientID: c.identity.HexID()})
	return nil
}

// sendPublicKey transmits the 160-byte public key; the response carries the
// session key encrypted under it.
func (c *Client) sendPublicKey() error {
	c.emit(appevents.StatusUpdateMsg{Message: "Sending public key"})

	publicKey, err := c.key.ExportPublicKey()
	if err != nil {
		return err
	}
	payload, err := protocol.PublicKeyPayload(c.identity.Username, publicKey)
	if err != nil {
		return err
	}

	resp, err := c.exchange(&protocol.Request{
		ClientID: c.clientID,
		Code:     protocol.CodeSendPublicKey,
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	if resp.Code != protocol.CodeKeyAccepted {
		return fmt.Errorf("%w: %d after sending the public key", ErrUnexpectedResponse, resp.Code)
	}

	return c.adoptSessionKey(resp.Payload)
}

// reconnect presents the stored identity; the response carries a fresh
// session key encrypted under the long-term public key.
func (c *Client) reconnect() error {
	c.emit(appevents.StatusUpdateMsg{Message: "Reconnecting as " + c.identity.Username})

	resp, err := c.exchange(&protocol.Request{
		ClientID: c.clientID,
		Code:     protocol.CodeReconnect,
		Payload:  protocol.ReconnectPayload(c.identity.Username),
	})
	if err != nil {
		return err
	}

	switch resp.Code {
	case protocol.CodeReconnectOK:
	case protocol.CodeReconnectDenied:
		return fmt.Errorf("%w: delete %s to register again", ErrReconnectDenied, identity.FileName)
	default:
		return fmt.Errorf("%w: %d during reconnection", ErrUnexpectedResponse, resp.Code)
	}

	if err := c.adoptSessionKey(resp.Payload); err != nil {
		return err
	}

	c.emit(appevents.ReconnectedMsg{ClientID: c.identity.HexID()})
	return nil
}

// adoptSessionKey validates a key-exchange payload, checks the echoed
// identifier and recovers the 32-byte session key with the private key.
func (c *Client) adoptSessionKey(payload []byte) error {
	keyResp, err := protocol.ParseKeyResponse(payload)
	if err != nil {
		return err
	}
	if keyResp.ClientID != c.clientID {
		return ErrClientIDMismatch
	}

	sessionKey, err := c.key.Decrypt(keyResp.EncryptedKey)
	if err != nil {
		return err
	}
	if len(sessionKey) != crypto.SessionKeySize {
		return fmt.Errorf("%w: got %d bytes", ErrSessionKeyLength, len(sessionKey))
	}

	cipher, err := crypto.NewAESCipher(sessionKey)
	if err != nil {
		return err
	}
	c.session = cipher

	slog.Info("session key established")
	c.emit(appevents.KeyExchangedMsg{})
	return nil
}

// upload encrypts the file and runs the send / verify-checksum loop. The
// zero-IV cipher makes every attempt byte-identical, so the ciphertext is
// built once.
func (c *Client) upload() error {
	ciphertext, err := c.session.Encrypt(c.file.Data)
	if err != nil {
		return err
	}

	fileReq := &protocol.FileRequest{
		ContentSize:  uint32(len(ciphertext)),
		OrigFileSize: uint32(len(c.file.Data)),
		PacketNumber: 1,
		TotalPackets: 1,
		Filename:     c.file.Name,
		Content:      ciphertext,
	}
	payload := fileReq.Marshal()

	for attempt := 1; attempt <= MaxUploadAttempts; attempt++ {
		c.emit(appevents.UploadAttemptMsg{
			Attempt:     attempt,
			MaxAttempts: MaxUploadAttempts,
			FileName:    c.file.Name,
			MimeType:    c.file.MimeType,
			Plaintext:   c.file.Size,
			Ciphertext:  int64(len(ciphertext)),
		})
		slog.Info("sending file", "attempt", attempt, "max_attempts", MaxUploadAttempts,
			"name", c.file.Name, "ciphertext_bytes", len(ciphertext))

		resp, err := c.exchange(&protocol.Request{
			ClientID: c.clientID,
			Code:     protocol.CodeSendFile,
			Payload:  payload,
		})
		if err != nil {
			return err
		}
		if resp.Code != protocol.CodeFileReceived {
			return fmt.Errorf("%w: %d after sending the file", ErrUnexpectedResponse, resp.Code)
		}

		received, err := protocol.ParseFileReceived(resp.Payload)
		if err != nil {
			return err
		}
		if received.ClientID != c.clientID {
			return ErrClientIDMismatch
		}

		match := received.CRC == c.file.CRC
		c.emit(appevents.ChecksumMsg{Local: c.file.CRC, Remote: received.CRC, Match: match})

		if match {
			if err := c.send(protocol.CodeCRCValid, nil); err != nil {
				return err
			}
			c.awaitAck()
			slog.Info("upload confirmed", "crc", fmt.Sprintf("%08x", c.file.CRC), "attempts", attempt)
			c.emit(appevents.SessionCompleteMsg{FileName: c.file.Name, Bytes: c.file.Size, Attempts: attempt})
			return nil
		}

		slog.Warn("checksum mismatch",
			"local", fmt.Sprintf("%08x", c.file.CRC), "remote", fmt.Sprintf("%08x", received.CRC), "attempt", attempt)

		if attempt < MaxUploadAttempts {
			if err := c.send(protocol.CodeCRCResend, nil); err != nil {
				return err
			}
			continue
		}
		if err := c.send(protocol.CodeCRCAbort, nil); err != nil {
			return err
		}
		return fmt.Errorf("%w after %d attempts", ErrChecksumMismatch, MaxUploadAttempts)
	}
	return fmt.Errorf("%w after %d attempts", ErrChecksumMismatch, MaxUploadAttempts)
}

// awaitAck performs one best-effort read for the acknowledgement some server
// versions emit after the final confirmation. Success never depends on it.
func (c *Client) awaitAck() {
	timeout := ackTimeout
	if c.opts.Timeout < timeout {
		timeout = c.opts.Timeout
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return
	}

	resp, err := protocol.ReadResponse(c.conn)
	if err != nil {
		slog.Debug("no acknowledgement before close", "error", err)
		return
	}
	if resp.Code == protocol.CodeAck {
		slog.Debug("server acknowledged the upload")
	} else {
		slog.Debug("unexpected frame after confirmation", "code", resp.Code)
	}
}

// send writes one request under the operation deadline.
func (c *Client) send(code uint16, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
		return fmt.Errorf("failed to arm write deadline: %w", err)
	}
	return protocol.WriteRequest(c.conn, &protocol.Request{
		ClientID: c.clientID,
		Code:     code,
		Payload:  payload,
	})
}

// exchange writes a request and reads the next response. A server-error
// response is fatal regardless of the current state.
func (c *Client) exchange(req *protocol.Request) (*protocol.Response, error) {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
		return nil, fmt.Errorf("failed to arm write deadline: %w", err)
	}
	if err := protocol.WriteRequest(c.conn, req); err != nil {
		return nil, err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.Timeout)); err != nil {
		return nil, fmt.Errorf("failed to arm read deadline: %w", err)
	}
	resp, err := protocol.ReadResponse(c.conn)
	if err != nil {
		return nil, err
	}
	if resp.Code == protocol.CodeServerError {
		return nil, ErrServerError
	}
	return resp, nil
}

// emit forwards a message to the UI channel when one is attached.
func (c *Client) emit(msg appevents.AppUIMessage) {
	if c.opts.Events != nil {
		c.opts.Events <- msg
	}
}

package client

import "errors"

// Fatal session errors. Only a checksum mismatch is retried, and only up to
// MaxUploadAttempts; everything else unwinds the session.
var (
	ErrRegistrationRejected = errors.New("server rejected the registration")
	ErrReconnectDenied      = errors.New("server denied the reconnection")
	ErrServerError          = errors.New("server reported an internal error")
	ErrUnexpectedResponse   = errors.New("unexpected response code")
	ErrChecksumMismatch     = errors.New("server checksum did not match")
	ErrSessionKeyLength     = errors.New("decrypted session key has the wrong length")
	ErrClientIDMismatch     = errors.New("server echoed a different client identifier")
)

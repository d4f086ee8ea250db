package appevents

// --- UI Messages (from the session controller to the TUI) ---

// StatusUpdateMsg is a free-form progress line.
type StatusUpdateMsg struct {
	UIMessage
	Message string
}

// DiscoveredMsg reports the server found via mDNS when the host is "auto".
type DiscoveredMsg struct {
	UIMessage
	Name string
	Addr string
}

// ConnectedMsg reports a successful TCP connect.
type ConnectedMsg struct {
	UIMessage
	Addr string
}

// RegisteredMsg reports a completed registration and the assigned identifier.
type RegisteredMsg struct {
	UIMessage
	ClientID string
}

// ReconnectedMsg reports a completed reconnection for a known identity.
type ReconnectedMsg struct {
	UIMessage
	ClientID string
}

// KeyExchangedMsg reports that the session key has been recovered.
type KeyExchangedMsg struct {
	UIMessage
}

// UploadAttemptMsg reports the start of one upload attempt.
type UploadAttemptMsg struct {
	UIMessage
	Attempt     int
	MaxAttempts int
	FileName    string
	MimeType    string
	Plaintext   int64
	Ciphertext  int64
}

// ChecksumMsg reports the server's checksum next to the local one.
type ChecksumMsg struct {
	UIMessage
	Local  uint32
	Remote uint32
	Match  bool
}

// SessionCompleteMsg ends the session successfully.
type SessionCompleteMsg struct {
	UIMessage
	FileName string
	Bytes    int64
	Attempts int
}

// SessionFailedMsg ends the session with a fatal error.
type SessionFailedMsg struct {
	UIMessage
	Err error
}

var (
	_ AppUIMessage = (*StatusUpdateMsg)(nil)
	_ AppUIMessage = (*SessionCompleteMsg)(nil)
	_ AppUIMessage = (*SessionFailedMsg)(nil)
)

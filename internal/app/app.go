package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/secureBackup/internal/app_events"
	"github.com/rescp17/secureBackup/pkg/client"
	"github.com/rescp17/secureBackup/pkg/concurrency"
	"github.com/rescp17/secureBackup/pkg/config"
	"github.com/rescp17/secureBackup/pkg/discovery"
	"github.com/rescp17/secureBackup/pkg/ui"
)

// discoveryTimeout bounds the mDNS browse when the host is "auto".
const discoveryTimeout = 5 * time.Second

// Options configures the application for one run.
type Options struct {
	Dir     string        // directory holding transfer.info, port.info, me.info
	Plain   bool          // log progress instead of rendering the TUI
	Timeout time.Duration // per-operation socket deadline
}

// App wires configuration, discovery, the protocol engine and the UI for a
// single backup session.
type App struct {
	opts       Options
	guard      *concurrency.ConcurrencyGuard
	discoverer discovery.Adapter
	uiMessages chan appevents.AppUIMessage
}

// New creates the application controller.
func New(opts Options) *App {
	return &App{
		opts:       opts,
		guard:      concurrency.NewConcurrencyGuard(),
		discoverer: &discovery.MDNSAdapter{},
		uiMessages: make(chan appevents.AppUIMessage, 10),
	}
}

// Run executes one backup session. It returns nil only when the server
// confirmed the upload checksum.
func (a *App) Run(ctx context.Context) error {
	return a.guard.Execute(func() error {
		return a.run(ctx)
	})
}

func (a *App) run(ctx context.Context) error {
	endpoint, err := config.Load(a.opts.Dir)
	if err != nil {
		return err
	}

	if endpoint.Discover() {
		endpoint, err = a.resolveEndpoint(ctx, endpoint)
		if err != nil {
			return err
		}
	}

	session := client.New(client.Options{
		Endpoint: endpoint,
		Dir:      a.opts.Dir,
		Timeout:  a.opts.Timeout,
		Events:   a.uiMessages,
	})

	if a.opts.Plain {
		return a.runPlain(ctx, session)
	}
	return a.runTUI(ctx, session)
}

// resolveEndpoint replaces the "auto" host with the first server discovered
// on the local network.
func (a *App) resolveEndpoint(ctx context.Context, endpoint *config.ServerEndpoint) (*config.ServerEndpoint, error) {
	slog.Info("discovering backup server", "service", discovery.DefaultServerType)

	service, err := discovery.FindServer(ctx, a.discoverer, discoveryTimeout)
	if err != nil {
		return nil, err
	}

	resolved := &config.ServerEndpoint{
		Host:     service.Addr.String(),
		Port:     uint16(service.Port),
		Username: endpoint.Username,
		FilePath: endpoint.FilePath,
	}
	slog.Info("server discovered", "name", service.Name, "addr", resolved.Addr())
	a.uiMessages <- appevents.DiscoveredMsg{Name: service.Name, Addr: resolved.Addr()}
	return resolved, nil
}

// runPlain consumes session events as log lines, for terminals and scripts
// that do not want the TUI.
func (a *App) runPlain(ctx context.Context, session *client.Client) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range a.uiMessages {
			logMessage(msg)
		}
	}()

	err := session.Run(ctx)
	close(a.uiMessages)
	<-done
	return err
}

// runTUI renders the session through the bubbletea progress view. The engine
// runs in its own goroutine and feeds the message channel the view drains.
func (a *App) runTUI(ctx context.Context, session *client.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		err := session.Run(ctx)
		if err != nil {
			a.uiMessages <- appevents.SessionFailedMsg{Err: err}
		}
		close(a.uiMessages)
		errCh <- err
	}()

	program := tea.NewProgram(ui.NewModel(a.uiMessages))
	final, uiErr := program.Run()

	// Unblock the engine if the view exited first, then drain what is left.
	cancel()
	for range a.uiMessages {
	}
	err := <-errCh

	if uiErr != nil {
		return fmt.Errorf("terminal UI failed: %w", uiErr)
	}
	if model, ok := final.(ui.Model); ok && model.Cancelled() {
		return context.Canceled
	}
	return err
}

func logMessage(msg appevents.AppUIMessage) {
	switch msg := msg.(type) {
	case appevents.StatusUpdateMsg:
		slog.Info(msg.Message)
	case appevents.DiscoveredMsg:
		slog.Info("server discovered", "name", msg.Name, "addr", msg.Addr)
	case appevents.ConnectedMsg:
		slog.Info("connected", "addr", msg.Addr)
	case appevents.RegisteredMsg:
		slog.Info("registered", "client_id", msg.ClientID)
	case appevents.ReconnectedMsg:
		slog.Info("reconnected", "client_id", msg.ClientID)
	case appevents.KeyExchangedMsg:
		slog.Info("session key established")
	case appevents.UploadAttemptMsg:
		slog.Info("uploading", "file", msg.FileName, "mime", msg.MimeType,
			"attempt", msg.Attempt, "max_attempts", msg.MaxAttempts,
			"plaintext_bytes", msg.Plaintext, "ciphertext_bytes", msg.Ciphertext)
	case appevents.ChecksumMsg:
		if msg.Match {
			slog.Info("checksum verified", "crc", fmt.Sprintf("%08x", msg.Local))
		} else {
			slog.Warn("checksum mismatch",
				"local", fmt.Sprintf("%08x", msg.Local), "remote", fmt.Sprintf("%08x", msg.Remote))
		}
	case appevents.SessionCompleteMsg:
		slog.Info("backup complete", "file", msg.FileName, "bytes", msg.Bytes, "attempts", msg.Attempts)
	case appevents.SessionFailedMsg:
		slog.Error("backup failed", "error", msg.Err)
	case appevents.Error:
		slog.Error("backup failed", "error", msg.Err)
	}
}

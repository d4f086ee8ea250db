package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/rescp17/secureBackup/internal/app"
	"github.com/rescp17/secureBackup/internal/util"
)

func main() {
	var (
		dir     string
		plain   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "securebackup",
		Short: "Encrypted single-file backup over the secure backup protocol",
	}

	cmd.PersistentFlags().StringVarP(&dir, "dir", "d", ".", "Directory holding transfer.info, port.info and me.info")
	cmd.PersistentFlags().BoolVar(&plain, "plain", false, "Log progress instead of rendering the terminal UI")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Per-operation socket deadline")

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Register or reconnect, then upload the configured file",
		RunE: func(cmd *cobra.Command, args []string) error {
			exists, isDir, err := util.CheckDirectory(dir)
			if err != nil {
				return err
			}
			if !exists || !isDir {
				return fmt.Errorf("%q is not a directory", dir)
			}

			if err := setupLogging(plain); err != nil {
				return err
			}

			return app.New(app.Options{Dir: dir, Plain: plain, Timeout: timeout}).Run(cmd.Context())
		},
	}
	sendCmd.SilenceUsage = true

	cmd.AddCommand(sendCmd)

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

// setupLogging keeps slog off the terminal while the TUI owns it.
func setupLogging(plain bool) error {
	if plain {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
		return nil
	}

	f, err := os.OpenFile("debug.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open debug.log: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, nil)))
	return nil
}

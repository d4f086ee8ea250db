package concurrency

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunsTask(t *testing.T) {
	g := NewConcurrencyGuard()

	ran := false
	err := g.Execute(func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestExecutePropagatesTaskError(t *testing.T) {
	g := NewConcurrencyGuard()
	taskErr := errors.New("session failed")

	err := g.Execute(func() error { return taskErr })
	require.ErrorIs(t, err, taskErr)
}

func TestExecuteRejectsConcurrentTask(t *testing.T) {
	g := NewConcurrencyGuard()

	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)

	go func() {
		firstDone <- g.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := g.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrBusy, "A second task must be rejected while the first runs")

	close(release)
	require.NoError(t, <-firstDone)

	// Once the first task finishes, the guard is free again.
	require.NoError(t, g.Execute(func() error { return nil }))
}

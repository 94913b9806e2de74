package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_RecomputesOnChange(t *testing.T) {
	dir := t.TempDir()
	book := writeFile(t, dir, "book.yaml", simpleWorkbook)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{"watch", book, "--debounce", "20ms"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "[pass 1]")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, stdout.String(), "Sheet1!C1 = 10")

	// A broken edit is reported and watching continues.
	require.NoError(t, os.WriteFile(book, []byte("sheets: [\n"), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Error [E004]")
	}, 5*time.Second, 10*time.Millisecond)

	updated := strings.Replace(simpleWorkbook, `A1: "2"`, `A1: "7"`, 1)
	require.NoError(t, os.WriteFile(book, []byte(updated), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "Sheet1!C1 = 20")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	book := writeFile(t, dir, "book.yaml", simpleWorkbook)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stdout := &syncBuffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{"watch", book, "--debounce", "10ms", "--values=false"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "[pass 1]")
	}, 5*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "other.yaml", simpleWorkbook)
	time.Sleep(200 * time.Millisecond)
	assert.NotContains(t, stdout.String(), "[pass 2]")

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_FirstPassMustSucceed(t *testing.T) {
	_, _, err := runCLI(t, "watch", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

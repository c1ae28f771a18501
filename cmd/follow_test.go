package cmd

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

	"watchparse/pkg/parser"
	"watchparse/pkg/watchlist"
)

// syncBuffer is a bytes.Buffer safe for the follower goroutine and the test
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

func newTestFollower(t *testing.T, content string) (*follower, *syncBuffer, *syncBuffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "value.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	reg, err := watchlist.New(4, parser.BackendGDB)
	require.NoError(t, err)

	out, errOut := &syncBuffer{}, &syncBuffer{}
	return &follower{
		path:     path,
		expr:     "v",
		registry: reg,
		out:      out,
		errOut:   errOut,
		debounce: 10 * time.Millisecond,
	}, out, errOut
}

func TestFollowerRefresh(t *testing.T) {
	f, out, errOut := newTestFollower(t, "$1 = {a = 1, b = 2}\n")

	require.NoError(t, f.refresh())
	assert.Contains(t, out.String(), "*   a = 1\n")

	require.NoError(t, os.WriteFile(f.path, []byte("$2 = {a = 1, b = 3}\n"), 0644))
	require.NoError(t, f.refresh())

	last := out.String()[strings.LastIndex(out.String(), "---"):]
	assert.Contains(t, last, "    a = 1\n")
	assert.Contains(t, last, "*   b = 3\n")
	assert.Empty(t, errOut.String())
}

func TestFollowerRefreshErrors(t *testing.T) {
	f, _, errOut := newTestFollower(t, "{, broken}")
	require.NoError(t, f.refresh())
	assert.Contains(t, errOut.String(), "Warning:")

	require.NoError(t, os.Remove(f.path))
	assert.Error(t, f.refresh())
}

func TestFollowerRun(t *testing.T) {
	f, out, _ := newTestFollower(t, "{a = 1}")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "a = 1")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(f.path, []byte("{a = 42}"), 0644))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "*   a = 42")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("follower did not stop after cancel")
	}
}

package drop

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTransport(t *testing.T) {
	withStore := ArtifactItem{
		Path:  "drop/a.bin",
		Kind:  ItemKindFile,
		Store: &StoreMetadata{ContentHash: "abc", Compression: CompressionNone},
	}
	withoutStore := ArtifactItem{Path: "drop/b.bin", Kind: ItemKindFile}

	tests := []struct {
		name         string
		item         ArtifactItem
		storeEnabled bool
		want         TransportKind
	}{
		{"store metadata and store enabled", withStore, true, TransportContentStore},
		{"store metadata but store disabled", withStore, false, TransportDirect},
		{"no store metadata", withoutStore, true, TransportDirect},
		{"no store metadata and store disabled", withoutStore, false, TransportDirect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectTransport(tt.item, tt.storeEnabled))
		})
	}
}

func TestIsIOError(t *testing.T) {
	assert.False(t, isIOError(nil))
	assert.False(t, isIOError(errors.New("logic error")))
	assert.False(t, isIOError(context.Canceled))
	assert.True(t, isIOError(io.ErrUnexpectedEOF))
	assert.True(t, isIOError(&net.OpError{Op: "read", Err: errors.New("reset")}))
	assert.True(t, isIOError(os.NewSyscallError("read", errors.New("bad fd"))))
}

func TestIsRetryableTransport(t *testing.T) {
	retryable := &TransportError{Op: "open", Path: "a", Err: errors.New("x"), Retryable: true}
	terminal := &TransportError{Op: "open", Path: "a", Err: errors.New("x"), Retryable: false}

	assert.True(t, IsRetryableTransport(retryable))
	assert.False(t, IsRetryableTransport(terminal))
	assert.False(t, IsRetryableTransport(errors.New("plain")))
	// Classification survives wrapping.
	assert.True(t, IsRetryableTransport(errors.Join(errors.New("ctx"), retryable)))
}

func TestWriteStreamToFile(t *testing.T) {
	t.Run("creates parent directories and truncates", func(t *testing.T) {
		dir := t.TempDir()
		target := dir + "/sub/deep/file.bin"

		n, err := writeStreamToFile(context.Background(), readerOf("hello"), target)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)

		// Re-writing the same path truncates the previous content.
		n, err = writeStreamToFile(context.Background(), readerOf("hi"), target)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Equal(t, "hi", string(data))
	})

	t.Run("observes cancellation at chunk boundaries", func(t *testing.T) {
		dir := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := writeStreamToFile(ctx, readerOf("data"), dir+"/file.bin")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func readerOf(s string) io.Reader { return strings.NewReader(s) }

// A failed compressed fetch must release the decompression pipe so the
// store's streaming goroutine terminates instead of blocking in the pipe
// write forever.
func TestTransferFromStoreReleasesPipeOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	occupied := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(occupied, []byte("x"), 0644))
	// The parent of the target is a regular file, so the file write fails
	// after the gzip stream has already been opened.
	target := filepath.Join(occupied, "file.bin")

	payload := make([]byte, 1<<20)
	_, err := rand.New(rand.NewSource(1)).Read(payload)
	require.NoError(t, err)

	store := &fakeStore{blobs: map[string][]byte{"hash-leak": gzipped(t, payload)}}
	item := ArtifactItem{
		Path:       "drop/file.bin",
		Kind:       ItemKindFile,
		ByteLength: int64(len(payload)),
		Store:      &StoreMetadata{ContentHash: "hash-leak", Compression: CompressionGZip},
	}

	before := runtime.NumGoroutine()

	_, err = transferFromStore(context.Background(), store, item, target)
	require.Error(t, err)

	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before,
		"streaming goroutine still blocked in pipe write")
}

package drop

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"
)

// TransportKind is the closed set of transfer strategies.
type TransportKind string

const (
	// TransportDirect streams the item from the listing service.
	TransportDirect TransportKind = "direct"
	// TransportContentStore fetches the item from the content-addressable
	// store, which may serve deduplicated bytes from an edge cache.
	TransportContentStore TransportKind = "content-store"
)

// SelectTransport picks the transfer strategy for one file item. The content
// store is preferred whenever the item carries store metadata and the store
// transport is enabled.
func SelectTransport(item ArtifactItem, storeEnabled bool) TransportKind {
	if storeEnabled && item.Store != nil {
		return TransportContentStore
	}

	return TransportDirect
}

// transferDirect copies the catalog's byte stream for the item into target,
// truncating any existing file.
func transferDirect(ctx context.Context, catalog ItemCatalog, ref ContainerReference, scope string, item ArtifactItem, target string) (int64, error) {
	rc, err := catalog.OpenReadStream(ctx, ref.ContainerID, item.Path, scope)
	if err != nil {
		return 0, asTransportError("open stream", item.Path, err)
	}
	defer rc.Close()

	n, err := writeStreamToFile(ctx, rc, target)
	if err != nil {
		return n, asTransportError("copy stream", item.Path, err)
	}

	return n, nil
}

// transferFromStore fetches the item's content-store blob into target,
// streaming through a gzip filter when the stored bytes are compressed.
func transferFromStore(ctx context.Context, store ContentStore, item ArtifactItem, target string) (int64, error) {
	id, err := store.ResolveIdentifier(ctx, item.Store.ContentHash)
	if err != nil {
		return 0, &TransportError{Op: "resolve identifier", Path: item.Path, Err: err, Retryable: true}
	}

	if item.Store.Compression == CompressionGZip {
		return fetchCompressed(ctx, store, id, item, target)
	}

	if err := ensureParentDir(target); err != nil {
		return 0, &TransportError{Op: "create directory", Path: item.Path, Err: err, Retryable: false}
	}

	stats, err := store.FetchToFile(ctx, id, target, CacheModeAllowEdge)
	if err != nil {
		return stats.Bytes, &TransportError{Op: "fetch to file", Path: item.Path, Err: err, Retryable: true}
	}

	return stats.Bytes, nil
}

func fetchCompressed(ctx context.Context, store ContentStore, id StoreID, item ArtifactItem, target string) (int64, error) {
	pr, pw := io.Pipe()
	go func() {
		_, err := store.FetchToStream(ctx, id, pw, CacheModeAllowEdge)
		pw.CloseWithError(err)
	}()
	// The read side must close on every exit, or a failed copy leaves the
	// fetch goroutine blocked in the pipe write.
	defer pr.Close()

	gz, err := gzip.NewReader(pr)
	if err != nil {
		return 0, &TransportError{Op: "open gzip stream", Path: item.Path, Err: err, Retryable: true}
	}
	defer gz.Close()

	n, err := writeStreamToFile(ctx, gz, target)
	if err != nil {
		return n, &TransportError{Op: "decompress stream", Path: item.Path, Err: err, Retryable: true}
	}

	return n, nil
}

// writeStreamToFile creates target (and its parent directory, defensively)
// and copies the stream into it, observing cancellation at chunk
// boundaries.
func writeStreamToFile(ctx context.Context, src io.Reader, target string) (int64, error) {
	if err := ensureParentDir(target); err != nil {
		return 0, err
	}

	f, err := os.Create(target)
	if err != nil {
		return 0, err
	}

	n, err := copyWithContext(ctx, f, src)
	if err != nil {
		f.Close()
		return n, err
	}

	return n, f.Close()
}

func ensureParentDir(target string) error {
	dir := filepath.Dir(target)
	if dir == "" || dir == "." {
		return nil
	}

	return os.MkdirAll(dir, 0755)
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			written += int64(nw)
			if ew != nil {
				return written, ew
			}
			if nw < nr {
				return written, io.ErrShortWrite
			}
		}
		if er == io.EOF {
			return written, nil
		}
		if er != nil {
			return written, er
		}
	}
}

// asTransportError wraps err for the direct transport, preserving an
// existing classification when the catalog already produced one.
func asTransportError(op, path string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}

	return &TransportError{Op: op, Path: path, Err: err, Retryable: isIOError(err)}
}

// isIOError reports whether err looks like a transient I/O failure worth
// redoing on the direct transport.
func isIOError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

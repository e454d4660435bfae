package drop

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidReferenceError indicates a malformed artifact resource descriptor.
// It is fatal and never retried.
type InvalidReferenceError struct {
	Raw    string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("drop: invalid artifact reference %q: %s", e.Raw, e.Reason)
}

// PathResolutionError indicates an item path that cannot be mapped onto the
// target directory, typically a data inconsistency between the artifact root
// name and the item path.
type PathResolutionError struct {
	ItemPath string
	RootName string
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("drop: item path %q cannot be resolved against root name %q", e.ItemPath, e.RootName)
}

// TransportError wraps a failed transfer attempt. Retryable marks failures
// the retry policy may redo; everything else is terminal for the item.
type TransportError struct {
	Op        string
	Path      string
	Err       error
	Retryable bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("drop: %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryableTransport reports whether err is a transport failure marked as
// retryable.
func IsRetryableTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable
}

// TransferFailure records the terminal failure of a single item. The
// scheduler collects these and raises them as one aggregate error once
// every item has finished.
type TransferFailure struct {
	Path  string
	Cause error
}

func (f *TransferFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Cause)
}

func (f *TransferFailure) Unwrap() error { return f.Cause }

// CorruptedArtifactError lists every file whose on-disk size disagrees with
// the byte length reported by the item catalog.
type CorruptedArtifactError struct {
	Paths []string
}

func (e *CorruptedArtifactError) Error() string {
	return fmt.Sprintf("drop: corrupted artifact, %d file(s) failed the size check: %s",
		len(e.Paths), strings.Join(e.Paths, ", "))
}

// ExtractionError indicates the archive post-processor failed. Partial
// extraction state is left in place for diagnosis.
type ExtractionError struct {
	Archive string
	Output  string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("drop: extracting %s failed: %s", e.Archive, e.Output)
	}
	return fmt.Sprintf("drop: extracting %s failed: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func transferFailureFormat(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = fmt.Sprintf("\t* %s", err)
	}

	return fmt.Sprintf("%d file transfer(s) failed:\n%s", len(errs), strings.Join(lines, "\n"))
}

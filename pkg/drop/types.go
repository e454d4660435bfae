package drop

import (
	"context"
	"io"
	"time"
)

// ItemKind distinguishes folder entries from file entries in a container.
type ItemKind string

const (
	ItemKindFolder ItemKind = "folder"
	ItemKindFile   ItemKind = "file"
)

// Compression identifies how content-store bytes are encoded at rest.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGZip Compression = "gzip"
)

// StoreMetadata carries the content-store coordinates of an item, when the
// listing service knows them.
type StoreMetadata struct {
	ContentHash string
	Compression Compression
}

// ArtifactItem is one entry of a container listing. Items are fetched fresh
// per download call and never mutated by the orchestrator.
type ArtifactItem struct {
	Path       string
	Kind       ItemKind
	ByteLength int64
	Store      *StoreMetadata
}

// IsFile reports whether the item is a file entry.
func (i ArtifactItem) IsFile() bool { return i.Kind == ItemKindFile }

// ListOptions controls a container listing query.
type ListOptions struct {
	Shallow              bool
	IncludeStoreMetadata bool
	RootFilter           string
}

// ItemCatalog is the external listing service: it enumerates the items of a
// container and serves raw byte streams for the direct transport.
type ItemCatalog interface {
	ListItems(ctx context.Context, containerID int64, scope string, opts ListOptions) ([]ArtifactItem, error)
	OpenReadStream(ctx context.Context, containerID int64, itemPath string, scope string) (io.ReadCloser, error)
}

// StoreID is a resolved content-store identifier.
type StoreID string

// CacheMode controls which cache layers a content-store fetch may consult.
type CacheMode string

// CacheModeAllowEdge permits serving from the edge cache. The orchestrator
// always fetches in this mode.
const CacheModeAllowEdge CacheMode = "allow-edge"

// FetchStats describes a completed content-store fetch.
type FetchStats struct {
	Bytes         int64
	FromEdgeCache bool
}

// ContentStore is the external content-addressable store client used by the
// content-store transport.
type ContentStore interface {
	ResolveIdentifier(ctx context.Context, contentHash string) (StoreID, error)
	FetchToFile(ctx context.Context, id StoreID, destination string, mode CacheMode) (FetchStats, error)
	FetchToStream(ctx context.Context, id StoreID, w io.Writer, mode CacheMode) (FetchStats, error)
}

// Extractor is the external archiving capability used by the archive
// post-processor. Output carries any diagnostic text the tool emitted; a
// non-empty output is treated as a failure even when err is nil.
type Extractor interface {
	Extract(archivePath string, destinationDir string) (output string, err error)
}

// TransferOutcome is the terminal state of one item after the retry policy
// has been exhausted.
type TransferOutcome struct {
	Path      string
	Target    string
	Transport TransportKind
	Attempts  int
	Bytes     int64
	Duration  time.Duration
	Err       error
}

// Succeeded reports whether the transfer reached a success terminal state.
func (o TransferOutcome) Succeeded() bool { return o.Err == nil }

// DownloadReport aggregates the outcome of one artifact download. It is
// created and returned by the orchestrator per artifact and never shared.
type DownloadReport struct {
	RootName          string
	Outcomes          []TransferOutcome
	CorruptedPaths    []string
	ExtractedArchives []string
	Duration          time.Duration
}

// FailedOutcomes returns the outcomes that ended in a terminal failure.
func (r *DownloadReport) FailedOutcomes() []TransferOutcome {
	var failed []TransferOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}

	return failed
}

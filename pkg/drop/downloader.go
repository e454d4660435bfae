package drop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dropkit/dropfetch/pkg/logging"
)

// Downloader materializes build artifacts from a remote container onto the
// local filesystem under bounded parallelism. One Downloader may serve many
// Download calls; no state persists across them.
type Downloader struct {
	config    *Config
	catalog   ItemCatalog
	store     ContentStore
	extractor Extractor
	logger    logging.Interface
	filters   []PathPredicate
	retryBase RetryConfig
}

// DownloaderOption customizes a Downloader beyond its configuration.
type DownloaderOption func(*Downloader)

// WithExtractor replaces the archiving capability used by the tar
// post-processor.
func WithExtractor(e Extractor) DownloaderOption {
	return func(d *Downloader) { d.extractor = e }
}

// WithRetryBackoff replaces the backoff parameters of the per-item retry
// policy. MaxRetries and the retryable classifier are still derived per
// transport.
func WithRetryBackoff(base RetryConfig) DownloaderOption {
	return func(d *Downloader) { d.retryBase = base }
}

// NewDownloader builds a Downloader for the given catalog and optional
// content store. A nil store disables the content-store transport.
func NewDownloader(config *Config, catalog ItemCatalog, store ContentStore, opts ...DownloaderOption) (*Downloader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, errors.New("drop: nil item catalog")
	}

	filters, err := CompileFilters(config.PathFilterPatterns, FilterOptions{IgnoreCase: config.FilterIgnoreCase})
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	d := &Downloader{
		config:    config,
		catalog:   catalog,
		store:     store,
		extractor: tarExtractor{},
		logger:    logger,
		filters:   filters,
		retryBase: DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// DownloadAll downloads several artifacts in sequence, stopping at the
// first artifact whose download fails.
func (d *Downloader) DownloadAll(ctx context.Context, refs []ContainerReference) ([]*DownloadReport, error) {
	reports := make([]*DownloadReport, 0, len(refs))
	for _, ref := range refs {
		report, err := d.Download(ctx, ref)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}

	return reports, nil
}

// Download materializes one artifact: list, filter, pre-create directories,
// transfer files under bounded parallelism, then optionally verify sizes
// and post-process tar archives.
func (d *Downloader) Download(ctx context.Context, ref ContainerReference) (*DownloadReport, error) {
	start := time.Now()
	log := d.logger.WithField("artifact", ref.RootName)
	report := &DownloadReport{RootName: ref.RootName}

	items, err := d.catalog.ListItems(ctx, ref.ContainerID, d.config.ProjectScope, ListOptions{
		IncludeStoreMetadata: true,
		RootFilter:           ref.RootName,
	})
	if err != nil {
		return report, fmt.Errorf("listing artifact %s: %w", ref.RootName, err)
	}

	items = filterItems(items, d.filters, log)

	resolve := func(itemPath string) (string, error) {
		return ResolveTargetPath(d.config.TargetDirectory, itemPath, ref.RootName, d.config.IncludeArtifactNameInPath)
	}

	var fileItems []ArtifactItem
	for _, item := range items {
		if item.IsFile() {
			fileItems = append(fileItems, item)
			continue
		}

		// Folder entries are materialized before any file transfer begins.
		target, err := resolve(item.Path)
		if err != nil {
			return report, err
		}
		if err := os.MkdirAll(target, 0755); err != nil {
			return report, fmt.Errorf("creating directory %s: %w", target, err)
		}
	}

	jobs := make([]transferJob, 0, len(fileItems))
	for _, item := range fileItems {
		target, err := resolve(item.Path)
		if err != nil {
			return report, err
		}
		jobs = append(jobs, transferJob{item: item, target: target})
	}

	log.WithField("files", len(jobs)).Info("starting artifact download")

	outcomes, err := scheduleTransfers(ctx, jobs, d.config.ParallelismLimit, func(ctx context.Context, job transferJob) TransferOutcome {
		return d.transferItem(ctx, ref, job)
	})
	report.Outcomes = outcomes
	report.Duration = time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return report, fmt.Errorf("artifact %s download cancelled: %w", ref.RootName, err)
		}
		return report, fmt.Errorf("artifact %s: %w", ref.RootName, err)
	}

	if d.config.CheckDownloadedFiles {
		corrupted, err := verifyDownloadedFiles(fileItems, resolve)
		report.CorruptedPaths = corrupted
		if err != nil {
			return report, err
		}
		log.Info("integrity check passed")
	}

	if d.config.ExtractTars {
		extracted, err := processTarArchives(fileItems, resolve, d.extractor,
			d.artifactRoot(ref), d.stagingRoot(ref), log)
		report.ExtractedArchives = extracted
		if err != nil {
			return report, err
		}
	}

	report.Duration = time.Since(start)
	log.WithField("duration", report.Duration.String()).Info("artifact download complete")

	return report, nil
}

func (d *Downloader) transferItem(ctx context.Context, ref ContainerReference, job transferJob) TransferOutcome {
	start := time.Now()
	kind := SelectTransport(job.item, d.storeEnabled())
	outcome := TransferOutcome{Path: job.item.Path, Target: job.target, Transport: kind}

	err := RetryOperation(ctx, d.retryConfigFor(kind), func() error {
		outcome.Attempts++

		var n int64
		var terr error
		switch kind {
		case TransportContentStore:
			n, terr = transferFromStore(ctx, d.store, job.item, job.target)
		default:
			n, terr = transferDirect(ctx, d.catalog, ref, d.config.ProjectScope, job.item, job.target)
		}
		outcome.Bytes = n

		return terr
	})
	outcome.Err = err
	outcome.Duration = time.Since(start)

	if err != nil {
		d.logger.WithField("path", job.item.Path).WithError(err).Warn("file transfer failed")
	} else {
		d.logger.WithField("path", job.item.Path).WithField("bytes", outcome.Bytes).Debug("file transferred")
	}

	return outcome
}

func (d *Downloader) storeEnabled() bool {
	return d.store != nil && !d.config.DisableContentStoreTransport
}

// retryConfigFor returns the retry policy of the given transport. The
// direct transport retries I/O-class failures up to the configured budget;
// the content-store transport retries everything but under a smaller cap,
// since its fetches are idempotent.
func (d *Downloader) retryConfigFor(kind TransportKind) RetryConfig {
	cfg := d.retryBase
	cfg.MaxRetries = d.config.RetryDownloadCount

	switch kind {
	case TransportContentStore:
		if cfg.MaxRetries > contentStoreRetryCap {
			cfg.MaxRetries = contentStoreRetryCap
		}
		cfg.RetryableError = func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
	default:
		cfg.RetryableError = IsRetryableTransport
	}

	return cfg
}

func (d *Downloader) artifactRoot(ref ContainerReference) string {
	if d.config.IncludeArtifactNameInPath {
		return filepath.Join(d.config.TargetDirectory, filepath.FromSlash(ref.RootName))
	}

	return d.config.TargetDirectory
}

func (d *Downloader) stagingRoot(ref ContainerReference) string {
	return filepath.Join(d.config.ExtractedTarsTempPath, filepath.FromSlash(ref.RootName))
}

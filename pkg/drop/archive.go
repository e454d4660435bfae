package drop

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cp "github.com/otiai10/copy"

	"github.com/dropkit/dropfetch/pkg/logging"
	"github.com/dropkit/dropfetch/pkg/tarball"
)

// tarExtractor is the default Extractor, backed by the tarball package.
type tarExtractor struct{}

func (tarExtractor) Extract(archivePath string, destinationDir string) (string, error) {
	return "", tarball.Extract(archivePath, destinationDir)
}

// processTarArchives extracts every downloaded ".tar" file into a staging
// directory scoped to the artifact root name, deletes the original
// archives, and then merges the staging directory's top-level entries into
// the artifact root. Name collisions during the merge fail the operation
// rather than overwriting. It returns the item paths of the processed
// archives.
func processTarArchives(items []ArtifactItem, resolve func(string) (string, error), extractor Extractor, artifactRoot, stagingRoot string, log logging.Interface) ([]string, error) {
	var extracted []string
	for _, item := range items {
		if !item.IsFile() {
			continue
		}

		target, err := resolve(item.Path)
		if err != nil {
			return nil, err
		}
		if !strings.HasSuffix(strings.ToLower(target), ".tar") {
			continue
		}

		if err := os.MkdirAll(stagingRoot, 0755); err != nil {
			return nil, &ExtractionError{Archive: target, Err: err}
		}

		log.WithField("archive", target).Info("extracting tar archive")
		output, err := extractor.Extract(target, stagingRoot)
		if err != nil || output != "" {
			return nil, &ExtractionError{Archive: target, Output: output, Err: err}
		}

		if err := os.Remove(target); err != nil {
			return nil, &ExtractionError{Archive: target, Err: err}
		}

		extracted = append(extracted, item.Path)
	}

	if len(extracted) == 0 {
		return nil, nil
	}

	if err := mergeExtracted(stagingRoot, artifactRoot); err != nil {
		return nil, err
	}

	return extracted, nil
}

// mergeExtracted moves every top-level entry of the staging directory into
// the artifact root and removes the then-empty staging directory.
func mergeExtracted(stagingRoot, artifactRoot string) error {
	entries, err := os.ReadDir(stagingRoot)
	if err != nil {
		return &ExtractionError{Archive: stagingRoot, Err: err}
	}

	if err := os.MkdirAll(artifactRoot, 0755); err != nil {
		return &ExtractionError{Archive: stagingRoot, Err: err}
	}

	for _, entry := range entries {
		src := filepath.Join(stagingRoot, entry.Name())
		dest := filepath.Join(artifactRoot, entry.Name())

		if _, err := os.Lstat(dest); err == nil {
			return &ExtractionError{
				Archive: src,
				Err:     fmt.Errorf("destination %s already exists", dest),
			}
		}

		if err := os.Rename(src, dest); err != nil {
			// Rename fails across devices; fall back to a copy.
			if cerr := cp.Copy(src, dest); cerr != nil {
				return &ExtractionError{Archive: src, Err: cerr}
			}
			if rerr := os.RemoveAll(src); rerr != nil {
				return &ExtractionError{Archive: src, Err: rerr}
			}
		}
	}

	return os.Remove(stagingRoot)
}

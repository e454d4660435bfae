package drop

import (
	"os"
)

// verifyDownloadedFiles compares the byte length the catalog reported for
// every file item against the actual size on disk. It runs strictly after
// all transfers have reached a terminal state. Any mismatch fails the whole
// operation with a CorruptedArtifactError naming every affected path.
func verifyDownloadedFiles(items []ArtifactItem, resolve func(string) (string, error)) ([]string, error) {
	var corrupted []string
	for _, item := range items {
		if !item.IsFile() {
			continue
		}

		target, err := resolve(item.Path)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(target)
		if err != nil || info.Size() != item.ByteLength {
			corrupted = append(corrupted, item.Path)
		}
	}

	if len(corrupted) > 0 {
		return corrupted, &CorruptedArtifactError{Paths: corrupted}
	}

	return nil, nil
}

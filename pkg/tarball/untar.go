package tarball

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract unpacks a tar archive into extractingDir, creating the directory
// if needed. Entry names are validated so an archive cannot write outside
// the extraction directory.
func Extract(tarFile string, extractingDir string) error {
	f, err := os.Open(tarFile)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(extractingDir, os.ModePerm); err != nil {
		return err
	}

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if err := extractEntry(tr, hdr, extractingDir); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, extractingDir string) error {
	path, err := sanitizePath(extractingDir, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(path, 0777)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			return err
		}

		out, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, hdr.FileInfo().Mode())
		if err != nil {
			return err
		}

		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}

		return out.Close()
	default:
		// Symlinks and special files are not part of build drops.
		return nil
	}
}

func sanitizePath(extractingDir, name string) (string, error) {
	if filepath.IsAbs(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("tarball: illegal entry path %q", name)
	}

	return filepath.Join(extractingDir, filepath.FromSlash(name)), nil
}

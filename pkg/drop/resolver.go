package drop

import (
	"path/filepath"
	"strings"
)

// ResolveTargetPath maps a remote item path onto the local target directory.
//
// With includeRootName set, the item path is joined verbatim under
// targetDir. Otherwise the artifact root name is stripped from the item path
// exactly once; the separator is appended to the prefix when the item path
// is strictly longer than the root name so a partial segment such as
// "dropped/..." never matches root name "drop". An item path shorter than
// the root name, or one that is not actually prefixed by it, fails rather
// than silently mis-resolving.
func ResolveTargetPath(targetDir, itemPath, rootName string, includeRootName bool) (string, error) {
	if includeRootName {
		return filepath.Join(targetDir, filepath.FromSlash(itemPath)), nil
	}

	if len(itemPath) < len(rootName) {
		return "", &PathResolutionError{ItemPath: itemPath, RootName: rootName}
	}
	if itemPath == rootName {
		return targetDir, nil
	}

	prefix := rootName + "/"
	if !strings.HasPrefix(itemPath, prefix) {
		return "", &PathResolutionError{ItemPath: itemPath, RootName: rootName}
	}

	return filepath.Join(targetDir, filepath.FromSlash(strings.TrimPrefix(itemPath, prefix))), nil
}

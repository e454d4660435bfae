package drop

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTargetPath(t *testing.T) {
	tests := []struct {
		name            string
		itemPath        string
		rootName        string
		includeRootName bool
		want            string
		wantErr         bool
	}{
		{
			name:            "include root name keeps item path verbatim",
			itemPath:        "drop/bin/app.exe",
			rootName:        "drop",
			includeRootName: true,
			want:            filepath.Join("target", "drop", "bin", "app.exe"),
		},
		{
			name:     "strip root name prefix",
			itemPath: "drop/bin/app.exe",
			rootName: "drop",
			want:     filepath.Join("target", "bin", "app.exe"),
		},
		{
			name:     "item path equals root name",
			itemPath: "drop",
			rootName: "drop",
			want:     "target",
		},
		{
			name:     "root name with slash",
			itemPath: "a/b/file.txt",
			rootName: "a/b",
			want:     filepath.Join("target", "file.txt"),
		},
		{
			name:     "partial segment does not match root name",
			itemPath: "dropped/file.txt",
			rootName: "drop",
			wantErr:  true,
		},
		{
			name:     "item path shorter than root name",
			itemPath: "dr",
			rootName: "drop",
			wantErr:  true,
		},
		{
			name:     "textually unrelated path",
			itemPath: "other/file.txt",
			rootName: "drop",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTargetPath("target", tt.itemPath, tt.rootName, tt.includeRootName)
			if tt.wantErr {
				require.Error(t, err)
				var resolutionErr *PathResolutionError
				require.True(t, errors.As(err, &resolutionErr))
				assert.Equal(t, tt.itemPath, resolutionErr.ItemPath)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Destination disjointness: distinct item paths of one artifact must never
// resolve to the same local path.
func TestResolveTargetPathDisjoint(t *testing.T) {
	paths := []string{"drop/a.txt", "drop/b.txt", "drop/sub/a.txt", "drop/sub/b.txt"}
	seen := map[string]string{}
	for _, p := range paths {
		got, err := ResolveTargetPath("target", p, "drop", false)
		require.NoError(t, err)
		prev, dup := seen[got]
		require.False(t, dup, "paths %q and %q collide on %q", prev, p, got)
		seen[got] = p
	}
}

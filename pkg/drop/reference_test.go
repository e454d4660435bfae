package drop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContainerReference(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantID       int64
		wantRootName string
		wantErr      bool
	}{
		{
			name:         "simple reference",
			raw:          "#/42/drop",
			wantID:       42,
			wantRootName: "drop",
		},
		{
			name:         "root name containing slash",
			raw:          "#/7/a/b",
			wantID:       7,
			wantRootName: "a/b",
		},
		{
			name:         "zero container id",
			raw:          "#/0/artifacts",
			wantID:       0,
			wantRootName: "artifacts",
		},
		{
			name:    "too few segments",
			raw:     "#/42",
			wantErr: true,
		},
		{
			name:    "missing hash prefix",
			raw:     "x/42/drop",
			wantErr: true,
		},
		{
			name:    "non-numeric container id",
			raw:     "#/abc/drop",
			wantErr: true,
		},
		{
			name:    "negative container id",
			raw:     "#/-1/drop",
			wantErr: true,
		},
		{
			name:    "empty root name",
			raw:     "#/42/",
			wantErr: true,
		},
		{
			name:    "empty descriptor",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseContainerReference(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var invalidRef *InvalidReferenceError
				require.True(t, errors.As(err, &invalidRef))
				assert.Equal(t, tt.raw, invalidRef.Raw)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ref.ContainerID)
			assert.Equal(t, tt.wantRootName, ref.RootName)
		})
	}
}

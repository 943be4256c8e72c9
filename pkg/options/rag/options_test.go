package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Empty(t, o.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{
			name:    "zero chunk size",
			mutate:  func(o *Options) { o.ChunkSize = 0 },
			wantErr: "chunk-size",
		},
		{
			name:    "overlap exceeds chunk size",
			mutate:  func(o *Options) { o.ChunkOverlap = 1000 },
			wantErr: "chunk-overlap",
		},
		{
			name:    "max below target",
			mutate:  func(o *Options) { o.MaxChunkSize = 800 },
			wantErr: "max-chunk-size",
		},
		{
			name:    "score floor above one",
			mutate:  func(o *Options) { o.ScoreFloor = 1.5 },
			wantErr: "score-floor",
		},
		{
			name:    "empty collection name",
			mutate:  func(o *Options) { o.ChunkCollection = "" },
			wantErr: "collection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			tt.mutate(o)

			errs := o.Validate()
			require.NotEmpty(t, errs)

			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.wantErr) {
					found = true
				}
			}
			assert.True(t, found, "expected an error mentioning %q, got %v", tt.wantErr, errs)
		})
	}
}

func TestCompleteClampsImageLimit(t *testing.T) {
	o := NewOptions()
	o.ImageLimit = -3
	require.NoError(t, o.Complete())
	assert.Equal(t, 0, o.ImageLimit)
}

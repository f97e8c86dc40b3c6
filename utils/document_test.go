package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDocument(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{
			name:    "abc",
			content: []byte("abc"),
			want:    "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
		{
			name:    "empty file",
			content: []byte{},
			want:    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.content, 0o600))

			got, err := HashDocument(path, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashDocument_Progress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deed.pdf")
	data := make([]byte, DefaultChunkSize*2+10)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	var updates []FileProgress
	_, err := HashDocument(path, func(p FileProgress) { updates = append(updates, p) })
	require.NoError(t, err)

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, int64(len(data)), last.Loaded)
	assert.Equal(t, 100, last.Percentage)
}

func TestHashDocument_Missing(t *testing.T) {
	_, err := HashDocument(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

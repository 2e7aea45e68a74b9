package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInputFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"chapter.pdf", true},
		{"page01.JPG", true},
		{"page.webp", true},
		{"notes.txt", false},
		{"noext", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInputFile(tt.path))
		})
	}
}

func TestFindLatestInput(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "old.png")
	fresh := filepath.Join(dir, "fresh.pdf")
	ignored := filepath.Join(dir, "newest.txt")
	for _, p := range []string{old, fresh, ignored} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}

	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(fresh, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(ignored, now, now))

	got, err := FindLatestInput(dir)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	_, err = FindLatestInput(t.TempDir())
	assert.Error(t, err)
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)
}

package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWorkersPositive(t *testing.T) {
	assert.Greater(t, DefaultWorkers(), 0)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{8 << 30, "8.0 GiB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.in))
		})
	}
}

func TestFindLatestFile(t *testing.T) {
	dir := t.TempDir()
	names := []string{"old.yaml", "new.YML", "newest.txt"}
	for i, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
	}

	latest, err := FindLatestFile(dir, ".yaml", ".yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "new.YML"), latest)

	_, err = FindLatestFile(dir, ".json")
	assert.Error(t, err)
}

func TestImagePoolReusesBySize(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 16, 9)

	img := pool.Get(rect)
	require.Equal(t, rect, img.Bounds())
	pool.Put(img)

	other := pool.Get(image.Rect(0, 0, 9, 16))
	assert.Equal(t, image.Rect(0, 0, 9, 16), other.Bounds())

	pool.Put(nil)
	pool.Put(image.NewRGBA(image.Rect(0, 0, 1, 1)))
}

func TestImagePoolBoundsSizes(t *testing.T) {
	pool := NewImagePool()
	for i := 1; i <= maxPooledSizes+10; i++ {
		img := pool.Get(image.Rect(0, 0, i, 1))
		assert.Equal(t, i, img.Bounds().Dx())
		pool.Put(img)
	}
	assert.Equal(t, maxPooledSizes, pool.Len())
}

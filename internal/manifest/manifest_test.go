package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/composer/internal/composition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() composition.Descriptor {
	return composition.MustNew("intro", 1920, 1080, 30, 150,
		composition.Props{"title": composition.String("Hello")},
		composition.Props{"title": composition.String("Hello"), "subtitle": composition.String("World")},
	)
}

func TestNewAssignsJobID(t *testing.T) {
	a := New(testDescriptor(), "out.mp4")
	b := New(testDescriptor(), "out.mp4")

	assert.Equal(t, Version, a.Version)
	assert.NotEmpty(t, a.JobID)
	assert.NotEqual(t, a.JobID, b.JobID)
	assert.NoError(t, a.Validate())
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			m := New(testDescriptor(), "renders/intro.mp4")
			path := filepath.Join(t.TempDir(), "nested", "job"+ext)

			require.NoError(t, Write(m, path))

			got, err := Read(path)
			require.NoError(t, err)
			assert.Equal(t, m.JobID, got.JobID)
			assert.Equal(t, m.Output, got.Output)
			assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
			assert.True(t, m.Composition.Equal(got.Composition))
		})
	}
}

func TestUnsupportedExtension(t *testing.T) {
	err := Write(New(testDescriptor(), ""), filepath.Join(t.TempDir(), "job.toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("job.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadRejectsInvalidManifest(t *testing.T) {
	dir := t.TempDir()

	noJob := filepath.Join(dir, "nojob.yaml")
	require.NoError(t, os.WriteFile(noJob, []byte(`version: "1.0"
composition:
  width: 10
  height: 10
  fps: 10
  durationInFrames: 10
  id: x
`), 0644))
	_, err := Read(noJob)
	assert.Error(t, err)

	badComp := filepath.Join(dir, "badcomp.json")
	require.NoError(t, os.WriteFile(badComp, []byte(`{"version":"1.0","jobId":"7f1c1a52-2f7e-4a49-9c55-4c8f3f0b8a10",
"composition":{"width":10,"height":10,"fps":10,"durationInFrames":10,"id":""}}`), 0644))
	_, err = Read(badComp)
	var verr *composition.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReadComposition(t *testing.T) {
	dir := t.TempDir()

	jobPath := filepath.Join(dir, "job.json")
	require.NoError(t, Write(New(testDescriptor(), ""), jobPath))
	d, err := ReadComposition(jobPath)
	require.NoError(t, err)
	assert.True(t, d.Equal(testDescriptor()))

	barePath := filepath.Join(dir, "bare.yaml")
	data, err := composition.EncodeYAML(testDescriptor())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(barePath, data, 0644))
	d, err = ReadComposition(barePath)
	require.NoError(t, err)
	assert.True(t, d.Equal(testDescriptor()))
}

func TestReadCompositionJSONDuplicateKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.json")
	data := []byte(`{"id":"a","id":"b","width":640,"height":360,"fps":24,"durationInFrames":48,"defaultProps":{},"props":{}}`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	want, err := composition.DecodeJSON(data)
	require.NoError(t, err)

	got, err := ReadComposition(path)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))
	assert.Equal(t, "b", got.ID())
}

func TestReadCompositionMalformed(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"broken.json": `{"id":`,
		"list.json":   `[1, 2]`,
		"broken.yaml": "id: [unclosed\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := ReadComposition(path)
			var serr *composition.SerializationError
			require.ErrorAs(t, err, &serr)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestGeneratePath(t *testing.T) {
	path := GeneratePath("manifests", "my intro")
	assert.True(t, strings.HasPrefix(path, filepath.Join("manifests", "my_intro_")), path)
	assert.Equal(t, ".yaml", filepath.Ext(path))
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	files := []string{"a.yaml", "b.json", "c.yml"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.txt"), []byte("x"), 0644))

	latest, err := FindLatest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "c.yml"), latest)

	paths, err := List(dir)
	require.NoError(t, err)
	assert.Len(t, paths, 3)

	_, err = FindLatest(t.TempDir())
	assert.Error(t, err)
}

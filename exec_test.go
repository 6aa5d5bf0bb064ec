package boxblur

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, makeStripes(width, height, 2)))
}

func TestExec_IsValidExtension(t *testing.T) {
	assert.True(t, isValidExtension(".png", validExtensions))
	assert.True(t, isValidExtension(".bmp", validExtensions))
	assert.False(t, isValidExtension(".tiff", validExtensions))
	assert.False(t, isValidExtension("", validExtensions))
}

func TestExec_WalkDirShouldFindImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)
	writePNG(t, filepath.Join(dir, "nested", "b.png"), 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	done := make(chan interface{})
	defer close(done)

	paths, errc := walkDir(done, dir, validExtensions)
	var found []string
	for p := range paths {
		found = append(found, filepath.Base(p))
	}
	require.NoError(t, <-errc)

	sort.Strings(found)
	assert.Equal(t, []string{"a.png", "b.png"}, found)
}

func TestExec_ProcessShouldWriteDestination(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writePNG(t, in, 10, 8)

	op := &Ops{PipeName: "-"}
	p := &Processor{BlurRadius: 1, DownscaleFactor: 1}
	require.NoError(t, op.process(p, nil, in, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(10, 8), img.Bounds().Size())
}

func TestExec_ProcessShouldRemoveDestinationOnError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(in, []byte("garbage"), 0644))

	op := &Ops{PipeName: "-"}
	assert.Error(t, op.process(NewProcessor(), nil, in, out))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
}

func TestExec_ProcessShouldFailOnMissingSource(t *testing.T) {
	dir := t.TempDir()
	op := &Ops{PipeName: "-"}
	err := op.process(NewProcessor(), nil, filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png"))
	assert.Error(t, err)
}

func TestExec_EveryAcceptedExtensionShouldEncode(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 6, 4)

	op := &Ops{PipeName: "-"}
	p := &Processor{BlurRadius: 1, DownscaleFactor: 1}
	for _, ext := range validExtensions {
		out := filepath.Join(dir, "out"+ext)
		require.NoError(t, op.process(p, nil, in, out), ext)

		f, err := os.Open(out)
		require.NoError(t, err)
		img, _, err := image.Decode(f)
		f.Close()
		require.NoError(t, err, ext)
		assert.Equal(t, image.Pt(6, 4), img.Bounds().Size(), ext)
	}
}

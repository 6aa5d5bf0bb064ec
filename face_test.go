package boxblur

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFace_ShouldRequireClassifier(t *testing.T) {
	p := &Processor{FaceDetect: true}

	_, err := p.loadFaceDetector()
	assert.ErrorIs(t, err, ErrNoClassifier)

	p.Classifier = filepath.Join(t.TempDir(), "missing")
	_, err = p.loadFaceDetector()
	assert.Error(t, err)
	assert.Nil(t, p.FaceDetector)
}

func TestFace_BlurRegionShouldOnlyTouchRegion(t *testing.T) {
	const width, height = 12, 10
	buf := randomBuffer(width, height, 21)
	orig := buf.Clone()

	r := image.Rect(3, 2, 9, 7)
	radii, err := ComputeBoxRadii(2)
	require.NoError(t, err)
	require.NoError(t, blurRegion(buf, width, r, radii, false, InPlace))

	changed := false
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * Channels
			inside := image.Pt(x, y).In(r)
			for c := 0; c < Channels; c++ {
				if !inside {
					assert.Equal(t, orig[i+c], buf[i+c], "x=%d y=%d", x, y)
				} else if orig[i+c] != buf[i+c] {
					changed = true
				}
			}
		}
	}
	assert.True(t, changed)
}

func TestFace_BlurRegionShouldMatchStandaloneBlur(t *testing.T) {
	const width, height = 8, 8
	buf := randomBuffer(width, height, 5)

	r := image.Rect(2, 2, 7, 6)
	radii := BoxRadii{1, 1, 1}

	// Cut the region by hand and blur it on its own.
	w, h := r.Dx(), r.Dy()
	want := make(PixelBuffer, 0, w*h*Channels)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := (y*width + r.Min.X) * Channels
		want = append(want, buf[i:i+w*Channels]...)
	}
	require.NoError(t, BlurPasses(want, w, h, radii, true, Buffered))

	require.NoError(t, blurRegion(buf, width, r, radii, true, Buffered))
	for y := 0; y < h; y++ {
		i := ((r.Min.Y+y)*width + r.Min.X) * Channels
		assert.Equal(t, want[y*w*Channels:(y+1)*w*Channels], buf[i:i+w*Channels])
	}
}

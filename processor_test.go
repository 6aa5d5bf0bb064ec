package boxblur

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/anthonynsimon/bild/blur"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeStripes returns an opaque image of vertical black and white bands.
func makeStripes(width, height, band int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var v uint8
			if (x/band)%2 == 1 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// meanAbsDiff compares the color channels of two images of the same size.
func meanAbsDiff(a, b image.Image) float64 {
	r := a.Bounds()
	var sum float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			ca := color.NRGBAModel.Convert(a.At(x, y)).(color.NRGBA)
			cb := color.NRGBAModel.Convert(b.At(x, y)).(color.NRGBA)
			sum += math.Abs(float64(ca.R) - float64(cb.R))
			sum += math.Abs(float64(ca.G) - float64(cb.G))
			sum += math.Abs(float64(ca.B) - float64(cb.B))
		}
	}
	return sum / float64(3*r.Dx()*r.Dy())
}

func TestProcessor_NilResourceShouldBeNoop(t *testing.T) {
	p := NewProcessor()
	buf, err := p.Blur(nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, buf)
}

func TestProcessor_ShouldDownscaleByDefault(t *testing.T) {
	img := NewImage(makeStripes(16, 10, 4))
	p := NewProcessor()

	buf, err := p.Blur(img, nil)
	require.NoError(t, err)

	assert.Equal(t, image.Pt(8, 5), img.Size())
	assert.Len(t, buf, 8*5*Channels)
}

func TestProcessor_ZeroStrengthShouldLeavePixelsUntouched(t *testing.T) {
	src := makeStripes(16, 10, 4)
	orig := append([]uint8(nil), src.Pix...)
	planner := NewPlanner(4)
	p := &Processor{BlurRadius: 0, DownscaleFactor: 1, Planner: planner}

	buf, err := p.Blur(NewImage(src), nil)
	require.NoError(t, err)
	require.Len(t, buf, 16*10*Channels)

	for i, v := range orig {
		assert.Equal(t, float64(v), buf[i])
	}
	assert.Equal(t, orig, src.Pix)
	assert.Equal(t, 0, planner.Len())
	assert.Equal(t, uint64(0), planner.Stats().Misses)
}

func TestProcessor_ZeroValueShouldStillDownscale(t *testing.T) {
	img := NewImage(makeStripes(16, 10, 4))

	_, err := (&Processor{}).Blur(img, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 5), img.Size())
}

func TestProcessor_NewProcessorDefaults(t *testing.T) {
	p := NewProcessor()
	assert.Equal(t, DefaultBlurRadius, p.BlurRadius)
	assert.Equal(t, DefaultDownscaleFactor, p.DownscaleFactor)
	assert.Equal(t, InPlace, p.Mode)
}

func TestProcessor_DownscaleShouldKeepAtLeastOnePixel(t *testing.T) {
	img := NewImage(makeStripes(3, 1, 1))
	p := &Processor{BlurRadius: 2, DownscaleFactor: 0.1}

	buf, err := p.Blur(img, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1, 1), img.Size())
	assert.Len(t, buf, Channels)
}

func TestProcessor_UnitFactorShouldKeepSize(t *testing.T) {
	src := makeStripes(16, 10, 4)
	img := NewImage(src)
	p := &Processor{BlurRadius: 2, DownscaleFactor: 1}

	buf, err := p.Blur(img, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(16, 10), img.Size())
	assert.Len(t, buf, 16*10*Channels)

	// The returned buffer is what has been written into the image.
	out, err := img.ReadPixels(image.Point{}, img.Size())
	require.NoError(t, err)
	for i := range buf {
		assert.InDelta(t, buf[i], out[i], 0.5)
	}
}

func TestProcessor_PixelDataShouldNotBeMutatedOrDownscaled(t *testing.T) {
	img := NewImage(makeStripes(16, 10, 4))
	pixelData, err := img.ReadPixels(image.Point{}, img.Size())
	require.NoError(t, err)
	orig := pixelData.Clone()

	p := NewProcessor()
	buf, err := p.Blur(img, pixelData)
	require.NoError(t, err)

	assert.Equal(t, orig, pixelData)
	assert.Equal(t, image.Pt(16, 10), img.Size())
	assert.Len(t, buf, len(pixelData))
	assert.NotEqual(t, orig, buf)
}

func TestProcessor_PixelDataShouldMatchResourceSize(t *testing.T) {
	img := NewImage(makeStripes(16, 10, 4))
	p := NewProcessor()

	_, err := p.Blur(img, make(PixelBuffer, 10))
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestProcessor_ShouldRejectInvalidOptions(t *testing.T) {
	src := makeStripes(16, 10, 4)
	orig := append([]uint8(nil), src.Pix...)
	img := NewImage(src)

	_, err := (&Processor{BlurRadius: -1}).Blur(img, nil)
	assert.ErrorIs(t, err, ErrInvalidStrength)

	_, err = (&Processor{DownscaleFactor: -0.5}).Blur(img, nil)
	assert.Error(t, err)

	_, err = (&Processor{FaceDetect: true}).Blur(img, nil)
	assert.ErrorIs(t, err, ErrNoClassifier)

	// Nothing has been touched.
	assert.Equal(t, image.Pt(16, 10), img.Size())
	assert.Equal(t, orig, img.NRGBA().Pix)
}

func TestProcessor_ShouldUseInjectedPlanner(t *testing.T) {
	planner := NewPlanner(2)
	p := &Processor{BlurRadius: 3, DownscaleFactor: 1, Planner: planner}

	for i := 0; i < 3; i++ {
		_, err := p.Blur(NewImage(makeStripes(8, 8, 2)), nil)
		require.NoError(t, err)
	}
	st := planner.Stats()
	assert.Equal(t, 1, st.Len)
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
}

func TestProcessor_ShouldApproximateGaussian(t *testing.T) {
	src := makeStripes(64, 32, 16)
	// Blur writes into the image it is given, so keep the source pristine.
	dst := image.NewNRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)

	img := NewImage(dst)
	p := &Processor{BlurRadius: 3, DownscaleFactor: 1, Mode: Buffered}
	_, err := p.Blur(img, nil)
	require.NoError(t, err)
	require.Equal(t, makeStripes(64, 32, 16).Pix, src.Pix)

	// bild weights its kernel by exp(-x²/4r) and cuts it at ±r; at r = 6 the
	// spread is close to the one of strength 3 (radii 2, 3, 3).
	reference := blur.Gaussian(src, 6)

	unblurred := meanAbsDiff(src, reference)
	blurred := meanAbsDiff(img.NRGBA(), reference)
	assert.Greater(t, unblurred, 0.0)
	assert.Less(t, blurred, unblurred/2)
}

func TestProcessor_InPlaceShouldStaySmooth(t *testing.T) {
	src := makeStripes(64, 32, 16)

	img := NewImage(src)
	p := &Processor{BlurRadius: 3, DownscaleFactor: 1}
	_, err := p.Blur(img, nil)
	require.NoError(t, err)

	// Every row is identical, so a column sweep must not introduce any vertical variation.
	out := img.NRGBA()
	for y := 1; y < 32; y++ {
		for x := 0; x < 64; x++ {
			assert.InDelta(t, out.NRGBAAt(x, 0).R, out.NRGBAAt(x, y).R, 1, "x=%d y=%d", x, y)
		}
	}
}

func TestProcessor_Process(t *testing.T) {
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, makeStripes(20, 12, 5)))

	var out bytes.Buffer
	p := NewProcessor()
	require.NoError(t, p.Process(&in, &out))

	dec, err := jpeg.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(10, 6), dec.Bounds().Size())
}

func TestProcessor_ProcessShouldFailOnGarbage(t *testing.T) {
	var out bytes.Buffer
	err := NewProcessor().Process(bytes.NewReader([]byte("not an image")), &out)
	assert.Error(t, err)
	assert.Zero(t, out.Len())
}

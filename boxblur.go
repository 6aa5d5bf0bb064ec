package boxblur

import (
	"errors"
	"fmt"

	"github.com/boatbomber/boxblur/utils"
)

// Channels is the number of samples per pixel (R, G, B, A).
const Channels = 4

// alphaChannel is the index of the alpha sample inside a pixel.
const alphaChannel = 3

var (
	// ErrInvalidDimensions is returned when the width, height or buffer length
	// do not describe a valid packed RGBA image.
	ErrInvalidDimensions = errors.New("invalid pixel buffer dimensions")

	// ErrInvalidRadius is returned for a negative box radius.
	ErrInvalidRadius = errors.New("box radius must not be negative")
)

// PixelBuffer is a packed, row-major RGBA image without padding.
// Samples are real valued; they are only rounded when written back to an image.
type PixelBuffer []float64

// Clone returns a copy of the buffer.
func (b PixelBuffer) Clone() PixelBuffer {
	if b == nil {
		return nil
	}
	dst := make(PixelBuffer, len(b))
	copy(dst, b)
	return dst
}

// Mode selects how a pass reads the samples it averages.
type Mode int

const (
	// InPlace reads from the buffer it writes to, so samples leaving the
	// sliding window may already hold this sweep's output. This is the default.
	InPlace Mode = iota
	// Buffered copies every line before sweeping it, so each output sample is
	// the exact box average of the pre-sweep samples.
	Buffered
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case InPlace:
		return "inplace"
	case Buffered:
		return "buffered"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "inplace", "in-place", "fast":
		return InPlace, nil
	case "buffered", "exact":
		return Buffered, nil
	}
	return InPlace, fmt.Errorf("unknown blur mode %q", s)
}

// linePolicy decides how a whole sweep treats its lines.
type linePolicy int

const (
	slideWindow linePolicy = iota
	lineMean               // the window covers the whole line
)

// policyFor is evaluated once per sweep, since every line of a sweep has the same length.
// The window covers the whole line when 2*radius+1 >= length, which is what the
// integer comparison below states.
func policyFor(length, radius int) linePolicy {
	if radius >= length/2 {
		return lineMean
	}
	return slideWindow
}

// validate checks the preconditions shared by every pass.
func validate(buf PixelBuffer, width, height, radius int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if len(buf) != width*height*Channels {
		return fmt.Errorf("%w: buffer holds %d samples, %dx%d needs %d",
			ErrInvalidDimensions, len(buf), width, height, width*height*Channels)
	}
	if radius < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	return nil
}

// BoxBlurPass runs one in-place box-blur pass of the given radius over buf:
// a horizontal sweep over every row followed by a vertical sweep over every
// column. Alpha is left untouched when skipAlpha is set.
func BoxBlurPass(buf PixelBuffer, width, height, radius int, skipAlpha bool) error {
	return BoxBlurPassMode(buf, width, height, radius, skipAlpha, InPlace)
}

// BoxBlurPassMode is BoxBlurPass with a selectable read strategy.
func BoxBlurPassMode(buf PixelBuffer, width, height, radius int, skipAlpha bool, mode Mode) error {
	if err := validate(buf, width, height, radius); err != nil {
		return err
	}
	if radius == 0 {
		return nil
	}

	channels := Channels
	if skipAlpha {
		channels = alphaChannel
	}

	var scratch []float64
	if mode == Buffered {
		scratch = make([]float64, utils.Max(width, height))
	}
	rowStride := width * Channels

	// Horizontal sweep: one line per row, neighbouring samples are one pixel apart.
	policy := policyFor(width, radius)
	for y := 0; y < height; y++ {
		for c := 0; c < channels; c++ {
			blurLine(buf, y*rowStride+c, Channels, width, radius, policy, scratch)
		}
	}

	// Vertical sweep: one line per column, neighbouring samples are one row apart.
	policy = policyFor(height, radius)
	for x := 0; x < width; x++ {
		for c := 0; c < channels; c++ {
			blurLine(buf, x*Channels+c, rowStride, height, radius, policy, scratch)
		}
	}
	return nil
}

// blurLine box-averages n samples of buf starting at start and stride apart.
// When scratch is non-nil the line is copied into it first and every read
// comes from the copy; otherwise reads alias the samples being written.
func blurLine(buf PixelBuffer, start, stride, n, radius int, policy linePolicy, scratch []float64) {
	if policy == lineMean {
		var sum float64
		for i, p := 0, start; i < n; i, p = i+1, p+stride {
			sum += buf[p]
		}
		mean := sum / float64(n)
		for i, p := 0, start; i < n; i, p = i+1, p+stride {
			buf[p] = mean
		}
		return
	}

	src := func(i int) float64 { return buf[start+i*stride] }
	if scratch != nil {
		line := scratch[:n]
		for i, p := 0, start; i < n; i, p = i+1, p+stride {
			line[i] = buf[p]
		}
		src = func(i int) float64 { return line[i] }
	}

	first, last := src(0), src(n-1)
	div := float64(2*radius + 1)

	// The window centred on sample 0 spans [-radius, radius]; everything left of
	// the line replicates the first sample. Sample radius enters in the first step.
	sum := float64(radius) * first
	for i := 0; i < radius; i++ {
		sum += src(i)
	}

	for i, p := 0, start; i < n; i, p = i+1, p+stride {
		if in := i + radius; in < n {
			sum += src(in)
		} else {
			sum += last
		}
		buf[p] = sum / div

		if out := i - radius; out >= 0 {
			sum -= src(out)
		} else {
			sum -= first
		}
	}
}

// BlurPasses runs one box-blur pass per radius, strictly in sequence.
// Inputs are validated once up front so a failing call leaves buf untouched.
func BlurPasses(buf PixelBuffer, width, height int, radii BoxRadii, skipAlpha bool, mode Mode) error {
	for _, r := range radii {
		if err := validate(buf, width, height, r); err != nil {
			return err
		}
	}
	for _, r := range radii {
		if err := BoxBlurPassMode(buf, width, height, r, skipAlpha, mode); err != nil {
			return err
		}
	}
	return nil
}

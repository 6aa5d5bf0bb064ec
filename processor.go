package boxblur

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/boatbomber/boxblur/utils"
	pigo "github.com/esimov/pigo/core"
)

// Default option values.
const (
	DefaultBlurRadius      = 2.0
	DefaultDownscaleFactor = 0.5
)

// Processor options
type Processor struct {
	// BlurRadius is the Gaussian-like strength, not a box radius in pixels.
	// Zero is the minimum strength and leaves the pixels as they are.
	// NewProcessor sets DefaultBlurRadius.
	BlurRadius float64
	// DownscaleFactor shrinks the image before it is read. 1 disables it,
	// zero selects DefaultDownscaleFactor. Never applied to caller supplied pixels.
	DownscaleFactor float64
	SkipAlpha       bool
	Mode            Mode
	// Planner memoizes box radii. Nil selects the process-wide DefaultPlanner.
	Planner *Planner

	// FaceDetect restricts the blur to the faces found by the Classifier cascade.
	FaceDetect   bool
	Classifier   string
	FaceAngle    float64
	FaceDetector *pigo.Pigo
}

// NewProcessor returns a Processor populated with the default options.
func NewProcessor() *Processor {
	return &Processor{
		BlurRadius:      DefaultBlurRadius,
		DownscaleFactor: DefaultDownscaleFactor,
		Mode:            InPlace,
	}
}

func (p *Processor) downscaleFactor() float64 {
	if p.DownscaleFactor == 0 {
		return DefaultDownscaleFactor
	}
	return p.DownscaleFactor
}

func (p *Processor) planner() *Planner {
	if p.Planner == nil {
		return DefaultPlanner()
	}
	return p.Planner
}

// Blur is the main entry point of the blur operation. It reads the pixels of
// res (or uses a copy of pixelData when given), blurs them with three box passes
// and writes the result back into res. The blurred buffer is also returned.
//
// A nil res is a no-op and yields (nil, nil). pixelData must match res.Size()
// and is never modified; it is also never downscaled.
func (p *Processor) Blur(res ImageResource, pixelData PixelBuffer) (PixelBuffer, error) {
	if res == nil {
		return nil, nil
	}
	log := Logger()

	// A zero strength runs no pass; every other value goes through the planner,
	// which rejects negative, NaN and infinite strengths.
	var (
		radii BoxRadii
		err   error
	)
	noop := p.BlurRadius == 0
	if !noop {
		if radii, err = p.planner().Radii(p.BlurRadius); err != nil {
			return nil, err
		}
	}
	if f := p.downscaleFactor(); !(f > 0) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("downscale factor must be a finite number greater than zero, got %v", f)
	}
	if p.FaceDetect {
		if _, err := p.loadFaceDetector(); err != nil {
			return nil, err
		}
	}

	var buf PixelBuffer
	if pixelData != nil {
		size := res.Size()
		if err := validate(pixelData, size.X, size.Y, 0); err != nil {
			return nil, err
		}
		buf = pixelData.Clone()
	} else {
		if err := p.downscale(res); err != nil {
			return nil, err
		}
		if buf, err = res.ReadPixels(image.Point{}, res.Size()); err != nil {
			return nil, fmt.Errorf("could not read the image pixels: %w", err)
		}
	}
	size := res.Size()

	start := time.Now()
	switch {
	case noop:
		log.Debug("zero blur strength, leaving the pixels untouched")
	case p.FaceDetect:
		err = p.blurFaces(buf, size, radii)
	default:
		err = BlurPasses(buf, size.X, size.Y, radii, p.SkipAlpha, p.Mode)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("blurred pixel buffer",
		slog.Int("width", size.X),
		slog.Int("height", size.Y),
		slog.Any("radii", radii),
		slog.String("mode", p.Mode.String()),
		slog.Duration("elapsed", time.Since(start)),
		slog.Any("planner", p.planner().Stats()),
	)

	if err := res.WritePixels(image.Point{}, size, buf); err != nil {
		return nil, fmt.Errorf("could not write the image pixels: %w", err)
	}
	return buf, nil
}

// downscale shrinks res by the configured factor, keeping every side at least one pixel.
func (p *Processor) downscale(res ImageResource) error {
	f := p.downscaleFactor()
	if f == 1 {
		return nil
	}
	size := res.Size()
	newSize := image.Point{
		X: utils.Max(1, int(math.Round(float64(size.X)*f))),
		Y: utils.Max(1, int(math.Round(float64(size.Y)*f))),
	}
	Logger().Info("downscaling image before blur",
		slog.Any("from", size), slog.Any("to", newSize), slog.Float64("factor", f))

	if err := res.Resize(newSize); err != nil {
		return fmt.Errorf("could not downscale the image: %w", err)
	}
	return nil
}

// Process decodes the image from r, blurs it and encodes the result into w.
// We are using the io package, since we can provide different input and output types,
// as long as they implement the io.Reader and io.Writer interface.
func (p *Processor) Process(r io.Reader, w io.Writer) error {
	src, _, err := image.Decode(r)
	if err != nil {
		return err
	}
	img := NewImage(src)

	if _, err := p.Blur(img, nil); err != nil {
		return err
	}
	return encodeImg(w, img.NRGBA())
}

package boxblur

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/boatbomber/boxblur/utils"
	pigo "github.com/esimov/pigo/core"
)

// ErrNoClassifier is returned when face detection is requested without a cascade.
var ErrNoClassifier = errors.New("face detection needs a classifier cascade file")

// Face detection parameters.
const (
	faceMinSize      = 20
	faceShiftFactor  = 0.1
	faceScaleFactor  = 1.1
	faceIoUThreshold = 0.2
	faceMinScore     = 5.0
)

// loadFaceDetector unpacks the classifier cascade once per Processor.
func (p *Processor) loadFaceDetector() (*pigo.Pigo, error) {
	if p.FaceDetector != nil {
		return p.FaceDetector, nil
	}
	if p.Classifier == "" {
		return nil, ErrNoClassifier
	}
	cascadeFile, err := os.ReadFile(p.Classifier)
	if err != nil {
		return nil, fmt.Errorf("could not read the cascade file: %w", err)
	}

	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	detector, err := pigo.NewPigo().Unpack(cascadeFile)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	p.FaceDetector = detector
	return detector, nil
}

// detectFaces returns the clipped bounding boxes of the faces found in buf.
func (p *Processor) detectFaces(buf PixelBuffer, size image.Point) ([]image.Rectangle, error) {
	detector, err := p.loadFaceDetector()
	if err != nil {
		return nil, err
	}

	cParams := pigo.CascadeParams{
		MinSize:     faceMinSize,
		MaxSize:     utils.Max(size.X, size.Y),
		ShiftFactor: faceShiftFactor,
		ScaleFactor: faceScaleFactor,

		ImageParams: pigo.ImageParams{
			Pixels: grayscale(buf, size.X, size.Y),
			Rows:   size.Y,
			Cols:   size.X,
			Dim:    size.X,
		},
	}

	// The result contains quadruplets representing the row, column, scale and detection score.
	faces := detector.RunCascade(cParams, p.FaceAngle)
	faces = detector.ClusterDetections(faces, faceIoUThreshold)

	bounds := image.Rectangle{Max: size}
	rects := make([]image.Rectangle, 0, len(faces))
	for _, face := range faces {
		if face.Q < faceMinScore {
			continue
		}
		half := face.Scale / 2
		r := image.Rect(face.Col-half, face.Row-half, face.Col+half, face.Row+half).Intersect(bounds)
		if !r.Empty() {
			rects = append(rects, r)
		}
	}
	return rects, nil
}

// blurFaces blurs only the detected face regions of buf.
func (p *Processor) blurFaces(buf PixelBuffer, size image.Point, radii BoxRadii) error {
	rects, err := p.detectFaces(buf, size)
	if err != nil {
		return err
	}
	if len(rects) == 0 {
		Logger().Warn("no faces detected, leaving the image untouched")
		return nil
	}

	for _, r := range rects {
		Logger().Info("blurring face region", slog.Any("rect", r))
		if err := blurRegion(buf, size.X, r, radii, p.SkipAlpha, p.Mode); err != nil {
			return err
		}
	}
	return nil
}

// blurRegion cuts r out of buf, blurs it on its own and pastes it back.
// Edges of the region replicate the region's own border samples.
func blurRegion(buf PixelBuffer, width int, r image.Rectangle, radii BoxRadii, skipAlpha bool, mode Mode) error {
	w, h := r.Dx(), r.Dy()
	rowSize := w * Channels
	region := make(PixelBuffer, h*rowSize)

	for y := 0; y < h; y++ {
		si := ((r.Min.Y+y)*width + r.Min.X) * Channels
		copy(region[y*rowSize:(y+1)*rowSize], buf[si:si+rowSize])
	}
	if err := BlurPasses(region, w, h, radii, skipAlpha, mode); err != nil {
		return err
	}
	for y := 0; y < h; y++ {
		di := ((r.Min.Y+y)*width + r.Min.X) * Channels
		copy(buf[di:di+rowSize], region[y*rowSize:(y+1)*rowSize])
	}
	return nil
}

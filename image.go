package boxblur

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/boatbomber/boxblur/utils"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
)

// ImageResource is a pixel addressable image the blur reads from and writes back to.
type ImageResource interface {
	// Size returns the current width and height.
	Size() image.Point
	// Resize rescales the image to the new size.
	Resize(size image.Point) error
	// ReadPixels returns the size.X*size.Y RGBA samples of the rectangle at origin.
	ReadPixels(origin, size image.Point) (PixelBuffer, error)
	// WritePixels replaces the rectangle at origin with buf.
	WritePixels(origin, size image.Point, buf PixelBuffer) error
}

// ErrOutOfBounds is returned when a pixel rectangle falls outside the image.
var ErrOutOfBounds = errors.New("pixel rectangle out of image bounds")

// Image is an ImageResource backed by a non-premultiplied *image.NRGBA.
type Image struct {
	img *image.NRGBA
}

var _ ImageResource = (*Image)(nil)

// NewImage wraps src. Images that are not *image.NRGBA anchored at (0, 0) are converted.
func NewImage(src image.Image) *Image {
	return &Image{img: imgToNRGBA(src)}
}

// NRGBA returns the underlying image.
func (i *Image) NRGBA() *image.NRGBA {
	return i.img
}

// Size implements ImageResource.
func (i *Image) Size() image.Point {
	return i.img.Bounds().Size()
}

// Resize implements ImageResource using Lanczos resampling.
func (i *Image) Resize(size image.Point) error {
	if size.X <= 0 || size.Y <= 0 {
		return fmt.Errorf("%w: cannot resize to %dx%d", ErrInvalidDimensions, size.X, size.Y)
	}
	if size == i.Size() {
		return nil
	}
	i.img = imaging.Resize(i.img, size.X, size.Y, imaging.Lanczos)
	return nil
}

func (i *Image) checkRect(origin, size image.Point) error {
	r := image.Rectangle{Min: origin, Max: origin.Add(size)}
	if size.X <= 0 || size.Y <= 0 || !r.In(i.img.Bounds()) {
		return fmt.Errorf("%w: %v not in %v", ErrOutOfBounds, r, i.img.Bounds())
	}
	return nil
}

// ReadPixels implements ImageResource.
func (i *Image) ReadPixels(origin, size image.Point) (PixelBuffer, error) {
	if err := i.checkRect(origin, size); err != nil {
		return nil, err
	}
	buf := make(PixelBuffer, size.X*size.Y*Channels)
	rowSize := size.X * Channels

	for y := 0; y < size.Y; y++ {
		si := i.img.PixOffset(origin.X, origin.Y+y)
		di := y * rowSize
		for x, v := range i.img.Pix[si : si+rowSize] {
			buf[di+x] = float64(v)
		}
	}
	return buf, nil
}

// WritePixels implements ImageResource. Samples are rounded and clamped to [0, 255].
func (i *Image) WritePixels(origin, size image.Point, buf PixelBuffer) error {
	if err := i.checkRect(origin, size); err != nil {
		return err
	}
	if len(buf) != size.X*size.Y*Channels {
		return fmt.Errorf("%w: buffer holds %d samples, %dx%d needs %d",
			ErrInvalidDimensions, len(buf), size.X, size.Y, size.X*size.Y*Channels)
	}
	rowSize := size.X * Channels

	for y := 0; y < size.Y; y++ {
		di := i.img.PixOffset(origin.X, origin.Y+y)
		si := y * rowSize
		for x, v := range buf[si : si+rowSize] {
			i.img.Pix[di+x] = toUint8(v)
		}
	}
	return nil
}

// toUint8 rounds a real valued sample to the nearest storable byte.
func toUint8(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(utils.Clamp(math.Round(v), 0, 255))
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
func imgToNRGBA(img image.Image) *image.NRGBA {
	srcBounds := img.Bounds()
	if srcBounds.Min.X == 0 && srcBounds.Min.Y == 0 {
		if src0, ok := img.(*image.NRGBA); ok {
			return src0
		}
	}
	srcMinX := srcBounds.Min.X
	srcMinY := srcBounds.Min.Y

	dstBounds := srcBounds.Sub(srcBounds.Min)
	dstW := dstBounds.Dx()
	dstH := dstBounds.Dy()
	dst := image.NewNRGBA(dstBounds)

	switch src := img.(type) {
	case *image.NRGBA:
		rowSize := srcBounds.Dx() * 4
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			si := src.PixOffset(srcMinX, srcMinY+dstY)
			copy(dst.Pix[di:di+rowSize], src.Pix[si:si+rowSize])
		}
	case *image.YCbCr:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				srcX := srcMinX + dstX
				srcY := srcMinY + dstY
				siy := src.YOffset(srcX, srcY)
				sic := src.COffset(srcX, srcY)
				r, g, b := color.YCbCrToRGB(src.Y[siy], src.Cb[sic], src.Cr[sic])
				dst.Pix[di+0] = r
				dst.Pix[di+1] = g
				dst.Pix[di+2] = b
				dst.Pix[di+3] = 0xff
				di += 4
			}
		}
	default:
		for dstY := 0; dstY < dstH; dstY++ {
			di := dst.PixOffset(0, dstY)
			for dstX := 0; dstX < dstW; dstX++ {
				c := color.NRGBAModel.Convert(img.At(srcMinX+dstX, srcMinY+dstY)).(color.NRGBA)
				dst.Pix[di+0] = c.R
				dst.Pix[di+1] = c.G
				dst.Pix[di+2] = c.B
				dst.Pix[di+3] = c.A
				di += 4
			}
		}
	}

	return dst
}

// encodeImg encodes an image to a destination of type io.Writer.
// Files are encoded by extension, every other writer receives a JPEG.
func encodeImg(w io.Writer, img image.Image) error {
	switch w := w.(type) {
	case *os.File:
		switch ext := filepath.Ext(w.Name()); ext {
		case "", ".jpg", ".jpeg":
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
		case ".png":
			return png.Encode(w, img)
		case ".bmp":
			return bmp.Encode(w, img)
		case ".gif":
			return gif.Encode(w, img, nil)
		default:
			return fmt.Errorf("unsupported image format: %q", ext)
		}
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
	}
}

// grayscale returns the luma of every pixel of buf as one byte per pixel.
func grayscale(buf PixelBuffer, width, height int) []uint8 {
	gray := make([]uint8, width*height)

	for i := range gray {
		p := i * Channels
		gray[i] = toUint8(0.299*buf[p] + 0.587*buf[p+1] + 0.114*buf[p+2])
	}
	return gray
}

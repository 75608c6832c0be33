// Package imageio reads and writes panorama files.
//
// JPEG and PNG use the standard library codecs; BMP and TIFF come from
// golang.org/x/image. TGA is decoded in this package and written back as
// PNG, since there is no TGA encoder.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/Faultbox/panobake/pkg/equirect"
)

var (
	ErrUnknownFormat = errors.New("unknown image format")
	ErrDecode        = errors.New("cannot decode image")
)

// Format identifies an image codec.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
	TGA  Format = "tga"
)

var extensions = map[string]Format{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".bmp":  BMP,
	".tif":  TIFF,
	".tiff": TIFF,
	".tga":  TGA,
}

// FormatOf picks the codec from the file extension.
func FormatOf(path string) (Format, error) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
	return f, nil
}

// CanEncode reports whether images can be written in f.
func (f Format) CanEncode() bool {
	return f != TGA
}

// OutputPath returns path with its extension replaced when the format
// cannot be written back.
func OutputPath(path string) string {
	f, err := FormatOf(path)
	if err != nil || f.CanEncode() {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
}

// Decode reads an image in format f.
func Decode(r io.Reader, f Format) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch f {
	case JPEG:
		img, err = jpeg.Decode(r)
	case PNG:
		img, err = png.Decode(r)
	case BMP:
		img, err = bmp.Decode(r)
	case TIFF:
		img, err = tiff.Decode(r)
	case TGA:
		var data []byte
		if data, err = io.ReadAll(r); err == nil {
			img, err = DecodeTGA(data)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, f, err)
	}
	return img, nil
}

// Encode writes img in format f. Quality applies to JPEG only.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	switch f {
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case PNG:
		return png.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: cannot encode %q", ErrUnknownFormat, f)
	}
}

// Read decodes the image file at path.
func Read(path string) (image.Image, Format, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, f, err
	}
	defer file.Close()

	img, err := Decode(bufio.NewReader(file), f)
	if err != nil {
		return nil, f, fmt.Errorf("%s: %w", path, err)
	}
	return img, f, nil
}

// Write encodes img to path, creating parent directories. The format comes
// from the extension.
func Write(path string, img image.Image, quality int) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	if err := Encode(w, img, f, quality); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ToPanorama converts a decoded image into a panorama buffer. Gray images
// keep one channel, opaque images get RGB and the rest RGBA.
func ToPanorama(img image.Image) (*equirect.Image, error) {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	channels := 4
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		channels = 1
	default:
		if nrgba.Opaque() {
			channels = 3
		}
	}
	return equirect.FromNRGBA(nrgba, channels)
}

// ReadPanorama reads the file at path into a panorama buffer.
func ReadPanorama(path string) (*equirect.Image, Format, error) {
	img, f, err := Read(path)
	if err != nil {
		return nil, f, err
	}
	p, err := ToPanorama(img)
	if err != nil {
		return nil, f, fmt.Errorf("%s: %w", path, err)
	}
	return p, f, nil
}

// WritePanorama writes p to path.
func WritePanorama(path string, p *equirect.Image, quality int) error {
	return Write(path, p.ToImage(), quality)
}

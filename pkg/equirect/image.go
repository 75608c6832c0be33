// Package equirect resamples 360 degree equirectangular panoramas under a
// rotation.
//
// Pixel (px, py) of a W x H panorama covers
//
//	lon = (px/W)*2pi - pi
//	lat = pi/2 - (py/H)*pi
//
// and points along the render-frame direction
//
//	(cos(lat)sin(lon), sin(lat), cos(lat)cos(lon))
//
// so the image centre looks down +Z and the top row is +Y.
package equirect

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Image errors.
var (
	ErrDimensionMismatch = errors.New("image dimension mismatch")
	ErrUnsupportedFormat = errors.New("unsupported channel layout")
)

// Image is a row-major 8-bit panorama with Channels bytes per pixel.
// Supported layouts are 1 (gray), 3 (RGB) and 4 (RGBA).
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// New allocates a zeroed image.
func New(width, height, channels int) (*Image, error) {
	im := &Image{Width: width, Height: height, Channels: channels}
	if err := im.checkLayout(); err != nil {
		return nil, err
	}
	im.Pix = make([]uint8, width*height*channels)
	return im, nil
}

// Validate checks the dimensions, channel layout and buffer size.
func (im *Image) Validate() error {
	if err := im.checkLayout(); err != nil {
		return err
	}
	if want := im.Width * im.Height * im.Channels; len(im.Pix) != want {
		return fmt.Errorf("%w: buffer has %d bytes, %dx%dx%d needs %d",
			ErrDimensionMismatch, len(im.Pix), im.Width, im.Height, im.Channels, want)
	}
	return nil
}

func (im *Image) checkLayout() error {
	switch im.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, im.Channels)
	}
	if im.Width <= 0 || im.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensionMismatch, im.Width, im.Height)
	}
	return nil
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (im *Image) PixOffset(x, y int) int {
	return (y*im.Width + x) * im.Channels
}

// At returns the channel values of pixel (x, y). The slice aliases Pix.
func (im *Image) At(x, y int) []uint8 {
	i := im.PixOffset(x, y)
	return im.Pix[i : i+im.Channels : i+im.Channels]
}

// Clone returns a deep copy.
func (im *Image) Clone() *Image {
	out := *im
	out.Pix = append([]uint8(nil), im.Pix...)
	return &out
}

// FromNRGBA copies an NRGBA image into a panorama with the given channel
// count. Alpha is dropped for 3 channels; 1 channel keeps luma.
func FromNRGBA(src *image.NRGBA, channels int) (*Image, error) {
	b := src.Bounds()
	im, err := New(b.Dx(), b.Dy(), channels)
	if err != nil {
		return nil, err
	}

	for y := 0; y < im.Height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+im.Width*4]
		out := im.Pix[y*im.Width*channels : (y+1)*im.Width*channels]
		for x := 0; x < im.Width; x++ {
			p := row[x*4 : x*4+4]
			switch channels {
			case 4:
				copy(out[x*4:x*4+4], p)
			case 3:
				copy(out[x*3:x*3+3], p[:3])
			case 1:
				out[x] = color.GrayModel.Convert(color.NRGBA{R: p[0], G: p[1], B: p[2], A: 255}).(color.Gray).Y
			}
		}
	}
	return im, nil
}

// ToImage returns the panorama as a standard library image: Gray for one
// channel, NRGBA otherwise.
func (im *Image) ToImage() image.Image {
	r := image.Rect(0, 0, im.Width, im.Height)
	if im.Channels == 1 {
		g := image.NewGray(r)
		copy(g.Pix, im.Pix)
		return g
	}

	out := image.NewNRGBA(r)
	for i, j := 0, 0; i < len(im.Pix); i, j = i+im.Channels, j+4 {
		out.Pix[j] = im.Pix[i]
		out.Pix[j+1] = im.Pix[i+1]
		out.Pix[j+2] = im.Pix[i+2]
		if im.Channels == 4 {
			out.Pix[j+3] = im.Pix[i+3]
		} else {
			out.Pix[j+3] = 0xff
		}
	}
	return out
}

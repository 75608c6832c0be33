package imageio

import (
	"errors"
	"fmt"
	"image"
)

// TGA image types.
const (
	tgaTypeUncompressed = 2
	tgaTypeRLE          = 10
)

var ErrInvalidTGA = errors.New("invalid TGA data")

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// data at 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (*image.NRGBA, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("%w: header too short", ErrInvalidTGA)
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped TGA not supported", ErrInvalidTGA)
	}
	if imageType != tgaTypeUncompressed && imageType != tgaTypeRLE {
		return nil, fmt.Errorf("%w: unsupported type %d", ErrInvalidTGA, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidTGA, bpp)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidTGA)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("%w: truncated id field", ErrInvalidTGA)
	}

	d := tgaDecoder{
		img:         image.NewNRGBA(image.Rect(0, 0, width, height)),
		src:         data[offset:],
		width:       width,
		height:      height,
		bpp:         bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}

	var err error
	if imageType == tgaTypeUncompressed {
		err = d.raw()
	} else {
		err = d.rle()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	img         *image.NRGBA
	src         []byte
	pos         int
	width       int
	height      int
	bpp         int
	topToBottom bool
}

// put stores pixel n (in file order) from BGR(A) bytes.
func (d *tgaDecoder) put(n int, px []byte) {
	x := n % d.width
	y := n / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	i := d.img.PixOffset(x, y)
	d.img.Pix[i] = px[2]
	d.img.Pix[i+1] = px[1]
	d.img.Pix[i+2] = px[0]
	if d.bpp == 4 {
		d.img.Pix[i+3] = px[3]
	} else {
		d.img.Pix[i+3] = 0xff
	}
}

func (d *tgaDecoder) next() ([]byte, error) {
	if d.pos+d.bpp > len(d.src) {
		return nil, fmt.Errorf("%w: pixel data truncated", ErrInvalidTGA)
	}
	px := d.src[d.pos : d.pos+d.bpp]
	d.pos += d.bpp
	return px, nil
}

func (d *tgaDecoder) raw() error {
	for n := 0; n < d.width*d.height; n++ {
		px, err := d.next()
		if err != nil {
			return err
		}
		d.put(n, px)
	}
	return nil
}

func (d *tgaDecoder) rle() error {
	total := d.width * d.height
	for n := 0; n < total; {
		if d.pos >= len(d.src) {
			return fmt.Errorf("%w: RLE data truncated", ErrInvalidTGA)
		}
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			// run of one repeated pixel
			px, err := d.next()
			if err != nil {
				return err
			}
			for i := 0; i < count && n < total; i++ {
				d.put(n, px)
				n++
			}
			continue
		}

		for i := 0; i < count && n < total; i++ {
			px, err := d.next()
			if err != nil {
				return err
			}
			d.put(n, px)
			n++
		}
	}
	return nil
}

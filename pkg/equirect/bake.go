package equirect

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/panobake/pkg/orient"
)

// Baker resamples panoramas so that the rotation becomes part of the
// pixels. Output pixel d samples the source at R^T d.
type Baker struct {
	// Workers bounds the number of goroutines; 0 means runtime.NumCPU.
	Workers int
}

// Bake rotates src by t using a default Baker.
func Bake(src *Image, t orient.Transform) (*Image, error) {
	return Baker{}.Bake(src, t)
}

// Bake returns a new image with the same size and channel layout as src.
// The output depends only on src and t, not on Workers.
func (b Baker) Bake(src *Image, t orient.Transform) (*Image, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	if t.IsIdentity(0) {
		return src.Clone(), nil
	}

	w, h, c := src.Width, src.Height, src.Channels
	dst := &Image{Width: w, Height: h, Channels: c, Pix: make([]uint8, len(src.Pix))}

	sinLon := make([]float64, w)
	cosLon := make([]float64, w)
	for px := 0; px < w; px++ {
		lon, _ := PixelToLonLat(float64(px), 0, w, h)
		sinLon[px], cosLon[px] = math.Sincos(lon)
	}

	workers := b.workers(h)
	band := (h + workers - 1) / workers
	rowlen := w * c

	var wg sync.WaitGroup
	for y0 := 0; y0 < h; y0 += band {
		y1 := min(y0+band, h)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for py := y0; py < y1; py++ {
				row := dst.Pix[py*rowlen : (py+1)*rowlen]
				_, lat := PixelToLonLat(0, float64(py), w, h)
				sinLat, cosLat := math.Sincos(lat)
				for px := 0; px < w; px++ {
					d := r3.Vec{X: cosLat * sinLon[px], Y: sinLat, Z: cosLat * cosLon[px]}
					lon, lat := LonLat(t.ApplyInverse(d))
					fx, fy := LonLatToPixel(lon, lat, w, h)
					src.sampleBilinear(fx, fy, row[px*c:(px+1)*c])
				}
			}
		}()
	}
	wg.Wait()

	return dst, nil
}

func (b Baker) workers(rows int) int {
	n := b.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, rows))
}

// sampleBilinear writes the interpolated value at (fx, fy) into out.
// Columns wrap around the seam; rows clamp at the poles. A non-finite
// coordinate samples pixel (0, 0).
//
// With 4 channels the color is weighted by alpha, so fully transparent
// neighbours do not bleed their color into the result.
func (im *Image) sampleBilinear(fx, fy float64, out []uint8) {
	w, h, c := im.Width, im.Height, im.Channels

	fx = math.Mod(fx, float64(w))
	if fx < 0 {
		fx += float64(w)
	}
	if math.IsNaN(fx) {
		fx = 0
	}
	if math.IsNaN(fy) {
		fy = 0
	}
	fy = clamp(fy, 0, float64(h-1))

	x0 := min(int(math.Floor(fx)), w-1)
	tx := fx - float64(x0)
	x1 := x0 + 1
	if x1 == w {
		x1 = 0
	}

	y0 := int(math.Floor(fy))
	ty := fy - float64(y0)
	y1 := min(y0+1, h-1)

	p00 := im.Pix[(y0*w+x0)*c:]
	p01 := im.Pix[(y0*w+x1)*c:]
	p10 := im.Pix[(y1*w+x0)*c:]
	p11 := im.Pix[(y1*w+x1)*c:]

	w00 := (1 - tx) * (1 - ty)
	w01 := tx * (1 - ty)
	w10 := (1 - tx) * ty
	w11 := tx * ty

	if c == 4 {
		a00 := w00 * float64(p00[3])
		a01 := w01 * float64(p01[3])
		a10 := w10 * float64(p10[3])
		a11 := w11 * float64(p11[3])
		if alpha := a00 + a01 + a10 + a11; alpha > 0 {
			for ch := 0; ch < 3; ch++ {
				v := (float64(p00[ch])*a00 + float64(p01[ch])*a01 +
					float64(p10[ch])*a10 + float64(p11[ch])*a11) / alpha
				out[ch] = uint8(clamp(math.Round(v), 0, 255))
			}
			out[3] = uint8(clamp(math.Round(alpha), 0, 255))
			return
		}
	}

	for ch := 0; ch < c; ch++ {
		v := float64(p00[ch])*w00 + float64(p01[ch])*w01 +
			float64(p10[ch])*w10 + float64(p11[ch])*w11
		out[ch] = uint8(clamp(math.Round(v), 0, 255))
	}
}

package equirect

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/panobake/pkg/orient"
)

// directionImage encodes the pixel direction in RGB so any resample can be
// checked against the analytic answer.
func directionImage(t *testing.T, w, h int) *Image {
	t.Helper()
	im, err := New(w, h, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			d := Direction(PixelToLonLat(float64(px), float64(py), w, h))
			copy(im.At(px, py), encodeDir(d))
		}
	}
	return im
}

func encodeDir(d r3.Vec) []uint8 {
	f := func(v float64) uint8 { return uint8(math.Round(127.5 + 120*v)) }
	return []uint8{f(d.X), f(d.Y), f(d.Z)}
}

func meanAbsDiff(a, b *Image) float64 {
	var sum float64
	for i := range a.Pix {
		sum += math.Abs(float64(a.Pix[i]) - float64(b.Pix[i]))
	}
	return sum / float64(len(a.Pix))
}

func TestBakeIdentityIsExact(t *testing.T) {
	src := directionImage(t, 96, 48)
	out, err := Bake(src, orient.Identity())
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Errorf("identity bake changed pixels (mean diff %.3f)", meanAbsDiff(out, src))
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Error("Bake must not alias the source buffer")
	}
}

func TestBakeMatchesAnalytic(t *testing.T) {
	const w, h = 256, 128
	src := directionImage(t, w, h)
	rot := orient.Reconstruct(orient.Angles{Yaw: 37, Pitch: -21, Roll: 64})

	out, err := Bake(src, rot)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	_, lastLat := PixelToLonLat(0, h-1, w, h)
	for py := 0; py < h; py += 5 {
		for px := 0; px < w; px += 7 {
			d := Direction(PixelToLonLat(float64(px), float64(py), w, h))
			s := rot.ApplyInverse(d)
			if _, lat := LonLat(s); lat < lastLat {
				continue // below the last row the sampler clamps
			}
			want := encodeDir(s)
			got := out.At(px, py)
			for ch := range want {
				if diff := math.Abs(float64(got[ch]) - float64(want[ch])); diff > 2 {
					t.Fatalf("pixel (%d,%d) ch %d = %d, want %d", px, py, ch, got[ch], want[ch])
				}
			}
		}
	}
}

func TestBakeInverseRestoresImage(t *testing.T) {
	src := directionImage(t, 128, 64)
	rot := orient.Reconstruct(orient.Angles{Yaw: -120, Pitch: 15, Roll: 8})

	fwd, err := Bake(src, rot)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	back, err := Bake(fwd, rot.Transpose())
	if err != nil {
		t.Fatalf("Bake inverse: %v", err)
	}

	if d := meanAbsDiff(back, src); d > 2 {
		t.Errorf("mean abs diff after inverse bake = %.3f, want < 2", d)
	}
}

func TestBakeYawIsHorizontalShift(t *testing.T) {
	const w, h = 64, 32
	src := directionImage(t, w, h)

	out, err := Bake(src, orient.Reconstruct(orient.Angles{Yaw: 90}))
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	// a quarter turn moves every column by w/4 and wraps across the seam
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			want := src.At((px-w/4+w)%w, py)
			got := out.At(px, py)
			for ch := range want {
				if diff := math.Abs(float64(got[ch]) - float64(want[ch])); diff > 1 {
					t.Fatalf("pixel (%d,%d) = %v, want %v", px, py, got, want)
				}
			}
		}
	}
}

// columnRamp is an image whose value depends only on the column, with the
// brightest column right before the seam.
func columnRamp(t *testing.T, w, h int) *Image {
	t.Helper()
	im, err := New(w, h, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			v := uint8(px * 255 / (w - 1))
			copy(im.At(px, py), []uint8{v, v, v})
		}
	}
	return im
}

func TestBakeSubPixelYawAcrossSeam(t *testing.T) {
	const w, h = 64, 32
	const yaw = 0.37
	src := columnRamp(t, w, h)

	out, err := Bake(src, orient.Reconstruct(orient.Angles{Yaw: yaw}))
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}

	shift := yaw / 360 * w
	for _, px := range []int{0, 1, w - 2, w - 1} {
		fx := math.Mod(float64(px)-shift+w, w)
		x0 := int(math.Floor(fx))
		f := fx - float64(x0)
		a := float64(src.At(x0, 0)[0])
		b := float64(src.At((x0+1)%w, 0)[0])
		want := (1-f)*a + f*b

		// row 0 is the pole, where longitude is undefined
		for py := 1; py < h; py++ {
			got := out.At(px, py)
			for ch := range got {
				if diff := math.Abs(float64(got[ch]) - want); diff > 1 {
					t.Fatalf("pixel (%d,%d) ch %d = %d, want %.2f", px, py, ch, got[ch], want)
				}
			}
		}
	}

	// column 0 blends the last and first source columns
	if got := out.At(0, h/2)[0]; got < 10 || got > 30 {
		t.Errorf("seam column = %d, want a blend of %d and %d", got, src.At(w-1, 0)[0], src.At(0, 0)[0])
	}
}

func TestBakeNonFiniteTransform(t *testing.T) {
	src := directionImage(t, 9, 5)
	nan := orient.FromBasis(orient.Basis{
		Right:   r3.Vec{X: math.NaN()},
		Up:      r3.Vec{Y: math.Inf(1)},
		Forward: r3.Vec{Z: 1},
	})

	out, err := Baker{Workers: 1}.Bake(src, nan)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if len(out.Pix) != len(src.Pix) {
		t.Fatalf("output has %d bytes, want %d", len(out.Pix), len(src.Pix))
	}
}

func TestBakeAlphaDoesNotBleed(t *testing.T) {
	const w, h = 4, 4
	src, err := New(w, h, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for py := 0; py < h; py++ {
		copy(src.At(0, py), []uint8{255, 0, 0, 0})
		for px := 1; px < w; px++ {
			copy(src.At(px, py), []uint8{0, 0, 255, 255})
		}
	}

	// half a pixel, so column 1 blends transparent red with opaque blue
	out, err := Bake(src, orient.Reconstruct(orient.Angles{Yaw: 0.5 * 360 / w}))
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	for py := 1; py < h; py++ {
		got := out.At(1, py)
		if got[0] != 0 || got[1] != 0 || got[2] != 255 {
			t.Errorf("row %d: color = %v, want pure blue", py, got[:3])
		}
		if diff := math.Abs(float64(got[3]) - 128); diff > 1 {
			t.Errorf("row %d: alpha = %d, want ~128", py, got[3])
		}
	}
}

func TestBakeWorkersDoNotChangeOutput(t *testing.T) {
	src := directionImage(t, 80, 40)
	rot := orient.Reconstruct(orient.Angles{Yaw: 10, Pitch: 50, Roll: -30})

	one, err := Baker{Workers: 1}.Bake(src, rot)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	many, err := Baker{Workers: 7}.Bake(src, rot)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if !bytes.Equal(one.Pix, many.Pix) {
		t.Error("output depends on worker count")
	}
}

func TestBakeChannels(t *testing.T) {
	for _, c := range []int{1, 3, 4} {
		src, err := New(16, 8, c)
		if err != nil {
			t.Fatalf("New(%d): %v", c, err)
		}
		for i := range src.Pix {
			src.Pix[i] = 200
		}
		out, err := Bake(src, orient.Reconstruct(orient.Angles{Yaw: 45, Pitch: 30}))
		if err != nil {
			t.Fatalf("Bake with %d channels: %v", c, err)
		}
		if out.Channels != c || len(out.Pix) != len(src.Pix) {
			t.Fatalf("layout changed: %dx%dx%d", out.Width, out.Height, out.Channels)
		}
		// a flat image stays flat under any rotation
		for i, v := range out.Pix {
			if v != 200 {
				t.Fatalf("channels %d: byte %d = %d", c, i, v)
			}
		}
	}
}

func TestBakeErrors(t *testing.T) {
	tests := []struct {
		name string
		im   *Image
		want error
	}{
		{"two channels", &Image{Width: 4, Height: 2, Channels: 2, Pix: make([]uint8, 16)}, ErrUnsupportedFormat},
		{"zero width", &Image{Width: 0, Height: 2, Channels: 3}, ErrDimensionMismatch},
		{"short buffer", &Image{Width: 4, Height: 2, Channels: 3, Pix: make([]uint8, 10)}, ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bake(tt.im, orient.Identity())
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

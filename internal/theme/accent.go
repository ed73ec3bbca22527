package theme

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
)

const (
	maxSampleSide = 192
	sampleStride  = 8
)

// HSL is a colour in whole degrees and percentages.
type HSL struct {
	H, S, L int
}

// String renders the CSS custom property form, e.g. "221 83% 53%".
func (c HSL) String() string {
	return fmt.Sprintf("%d %d%% %d%%", c.H, c.S, c.L)
}

// Palette is the pair of brand colours the stylesheet reads.
type Palette struct {
	Brand  HSL
	Brand2 HSL
}

// DefaultPalette matches the stylesheet defaults.
func DefaultPalette() Palette {
	return PaletteFromHSL(HSL{H: 221, S: 83, L: 53})
}

// Declarations renders the palette as inline CSS custom properties.
func (p Palette) Declarations() string {
	return fmt.Sprintf("--brand: %s; --brand-2: %s", p.Brand, p.Brand2)
}

// PaletteFromHSL clamps an extracted colour into a usable brand and derives its companion.
// The companion is computed from the unclamped saturation and lightness.
func PaletteFromHSL(c HSL) Palette {
	return Palette{
		Brand: HSL{H: c.H, S: clamp(c.S, 50, 90), L: clamp(c.L, 40, 60)},
		Brand2: HSL{
			H: (c.H + 40) % 360,
			S: min(95, c.S+10),
			L: min(70, c.L+10),
		},
	}
}

var errEmptyImage = errors.New("theme: image has no pixels")

// AverageColor scales img to at most 192x192, samples every 8th pixel in row-major order
// and averages the channels.
func AverageColor(img image.Image) (color.NRGBA, error) {
	if img == nil {
		return color.NRGBA{}, errEmptyImage
	}
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= 0 || srcH <= 0 {
		return color.NRGBA{}, errEmptyImage
	}
	w, h := min(maxSampleSide, srcW), min(maxSampleSide, srcH)

	var r, g, bl, count int
	for p := 0; p < w*h; p += sampleStride {
		x, y := p%w, p/w
		sx := b.Min.X + x*srcW/w
		sy := b.Min.Y + y*srcH/h
		c := color.NRGBAModel.Convert(img.At(sx, sy)).(color.NRGBA)
		r += int(c.R)
		g += int(c.G)
		bl += int(c.B)
		count++
	}
	return color.NRGBA{
		R: roundDiv(r, count),
		G: roundDiv(g, count),
		B: roundDiv(bl, count),
		A: 0xff,
	}, nil
}

// RGBToHSL converts 8-bit channels to rounded HSL.
func RGBToHSL(c color.NRGBA) HSL {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	maxC, minC := math.Max(r, math.Max(g, b)), math.Min(r, math.Min(g, b))
	l := (maxC + minC) / 2
	var h, s float64
	if maxC != minC {
		d := maxC - minC
		if l > 0.5 {
			s = d / (2 - maxC - minC)
		} else {
			s = d / (maxC + minC)
		}
		switch maxC {
		case r:
			h = (g - b) / d
			if g < b {
				h += 6
			}
		case g:
			h = (b-r)/d + 2
		default:
			h = (r-g)/d + 4
		}
		h /= 6
	}
	return HSL{H: roundHalfUp(h * 360), S: roundHalfUp(s * 100), L: roundHalfUp(l * 100)}
}

// Accent decodes a PNG or JPEG and derives a palette from its average colour.
func Accent(r io.Reader) (Palette, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Palette{}, fmt.Errorf("theme: decode accent image: %w", err)
	}
	avg, err := AverageColor(img)
	if err != nil {
		return Palette{}, err
	}
	return PaletteFromHSL(RGBToHSL(avg)), nil
}

// AccentFromFile is Accent over a file path.
func AccentFromFile(path string) (Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return Palette{}, fmt.Errorf("theme: open accent image: %w", err)
	}
	defer f.Close()
	return Accent(f)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func roundDiv(sum, n int) uint8 {
	return uint8(roundHalfUp(float64(sum) / float64(n)))
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

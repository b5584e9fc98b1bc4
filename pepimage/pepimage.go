/*
Package pepimage bridges the pep codec to the standard image package.

Decode and DecodeConfig read a serialized .pep frame into an image.Image;
Encode compresses any image.Image, quantising true-color input down to the
256 colors the format can hold. The format has no magic signature, so it
cannot be registered with image.RegisterFormat; callers pick this package
explicitly.
*/
package pepimage

import (
	"image"
	"image/color"

	"github.com/ENDESGA/pep"
)

// nrgbaPixel packs a straight-alpha color into the codec's RGBA lane
// order: red in the low byte, alpha in the high byte.
func nrgbaPixel(c color.NRGBA) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

func laneColor(p uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(p),
		G: uint8(p >> 8),
		B: uint8(p >> 16),
		A: uint8(p >> 24),
	}
}

// pixels flattens an image into the codec's pixel layout.
func pixels(m image.Image) []uint32 {
	b := m.Bounds()
	out := make([]uint32, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			out = append(out, nrgbaPixel(c))
		}
	}
	return out
}

func palette(m *pep.Image) color.Palette {
	n := m.PaletteSize
	if n == 0 {
		n = 256
	}
	p := make(color.Palette, n)
	for i := 0; i < n; i++ {
		p[i] = laneColor(m.Palette[i])
	}
	return p
}

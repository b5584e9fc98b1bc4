package pepimage

import (
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/ENDESGA/pep"
	"github.com/ericpauley/go-quantize/quantize"
)

const maxColors = 256

// Options configures Encode.
type Options struct {
	// ChannelBits quantises the serialized palette to 1, 2, 4 or 8 bits
	// per channel.
	ChannelBits pep.ChannelBits
}

func countColors(m image.Image) int {
	b := m.Bounds()
	colors := make(map[uint32]struct{})
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			colors[nrgbaPixel(c)] = struct{}{}
			if len(colors) > maxColors {
				return len(colors)
			}
		}
	}
	return len(colors)
}

// Encode compresses m and writes the serialized frame to w. Images with
// more than 256 distinct colors are first quantised with a median cut over
// the whole frame. A nil o means 8-bit channels.
func Encode(w io.Writer, m image.Image, o *Options) error {
	channelBits := pep.Channel8Bit
	if o != nil {
		channelBits = o.ChannelBits
	}

	b := m.Bounds()

	if pm, ok := m.(*image.Paletted); !ok || len(pm.Palette) > maxColors {
		if countColors(m) > maxColors {
			q := quantize.MedianCutQuantizer{}
			pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, maxColors), m))
			draw.Draw(pm, b, m, b.Min, draw.Src)
			m = pm
		}
	}

	c, err := pep.Compress(pixels(m), b.Dx(), b.Dy(), pep.RGBA, channelBits)
	if err != nil {
		return err
	}

	out, err := c.Serialize()
	if err != nil {
		return err
	}

	_, err = w.Write(out)
	return err
}

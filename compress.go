package pep

import "github.com/ENDESGA/pep/internal/ppm"

// Compress reduces pixels to a palette and codes the packed palette
// indices into an Image payload. The pixel byte order must match format;
// channelBits only takes effect later, when the image is serialized.
//
// Images with more than 256 distinct colors are not representable: excess
// colors collapse to palette entry 0. Quantize such images first (see the
// pepimage package).
func Compress(pixels []uint32, width, height int, format Format, channelBits ChannelBits) (*Image, error) {
	if pixels == nil {
		return nil, errNoPixels
	}
	if width <= 0 || height <= 0 {
		return nil, errZeroArea
	}
	if width > MaxDim || height > MaxDim {
		return nil, errTooLarge
	}
	area := width * height
	if len(pixels) < area {
		return nil, errNotEnough
	}

	m := &Image{
		Width:       width,
		Height:      height,
		Format:      format,
		ChannelBits: channelBits,
	}
	m.Palette, m.PaletteSize = buildPalette(pixels[:area])

	perIndex := bitsPerIndex(m.PaletteSize)
	perByte := 8 / perIndex

	enc := ppm.NewEncoder(m.PaletteSize, area/int(perByte)+1)

	var symbol byte
	var packed uint
	for i := 0; i < area; i++ {
		index := paletteIndex(&m.Palette, m.PaletteSize, pixels[i])
		symbol |= byte(index) << (packed * perIndex)
		packed++

		if packed >= perByte || i == area-1 {
			enc.Encode(symbol)
			symbol = 0
			packed = 0
		}
	}

	m.Payload = enc.Flush()
	return m, nil
}

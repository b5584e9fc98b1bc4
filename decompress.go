package pep

import "github.com/ENDESGA/pep/internal/ppm"

// Decompress decodes the payload back into a pixel buffer in the requested
// byte order. firstColorTransparent zeroes the alpha of palette entry 0
// before any pixel is produced; preMultiply scales each emitted pixel by
// its alpha.
//
// The decoder never reads past the payload: a truncated or corrupt payload
// yields a full width*height buffer that is simply wrong after the point
// of damage.
func (m *Image) Decompress(out Format, firstColorTransparent, preMultiply bool) ([]uint32, error) {
	if m == nil {
		return nil, errNoPixels
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, errZeroArea
	}
	if len(m.Payload) == 0 {
		return nil, errNoPayload
	}

	area := m.Width * m.Height

	palette := m.Palette
	if firstColorTransparent {
		if m.Format.alphaLast() {
			palette[0] &= 0x00ffffff
		} else {
			palette[0] &= 0xffffff00
		}
	}

	perIndex := bitsPerIndex(m.PaletteSize)
	perByte := int(8 / perIndex)
	mask := uint32(1)<<perIndex - 1
	packedLen := (area + perByte - 1) / perByte

	dec := ppm.NewDecoder(m.Payload, m.PaletteSize)
	pixels := make([]uint32, area)

	emit := func(pos int, entry uint32) {
		pixel := reformat(entry, m.Format, out)
		if preMultiply {
			pixel = preMultiplyAlpha(pixel, out)
		}
		pixels[pos] = pixel
	}

	pos := 0
	for b := 0; b < packedLen; b++ {
		symbol := uint32(dec.Decode())

		if perByte > 1 {
			for slot := 0; slot < perByte && pos < area; slot++ {
				index := symbol >> (uint(slot) * perIndex) & mask
				emit(pos, palette[index])
				pos++
			}
		} else if pos < area {
			emit(pos, palette[symbol])
			pos++
		}
	}

	return pixels, nil
}

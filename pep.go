/*
Package pep implements the .pep lossless image codec for indexed-palette
pixel art.

An image is reduced to a palette of up to 256 colors built in first-seen
order, its pixels are packed into palette indices just wide enough for the
palette (1 to 8 bits, as many whole indices per byte as fit), and the
resulting byte stream is squeezed through an adaptive arithmetic-coded
PPM order-2 model. Low-color images (16 colors or fewer) compress best.

The serialized container is a flags byte, the packed dimensions, a
variable-length payload size, the palette quantised to 1, 2, 4 or 8 bits per
channel and finally the raw coder output. Images whose palette is exactly
opaque black and opaque white skip the palette entirely.
*/
package pep

import "errors"

// Version of the format this package implements.
const (
	VersionMajor = 0
	VersionMinor = 5
	VersionPatch = 1

	Version = "0.5.1"
)

// Format selects the byte order of the 32-bit pixels handed to Compress and
// produced by Decompress. The value is stored in the serialized flags byte.
type Format uint8

const (
	RGBA Format = iota
	BGRA
	ABGR
	ARGB
)

func (f Format) String() string {
	switch f {
	case RGBA:
		return "RGBA"
	case BGRA:
		return "BGRA"
	case ABGR:
		return "ABGR"
	case ARGB:
		return "ARGB"
	}
	return "unknown"
}

// alphaLast reports whether the alpha channel sits in the top byte of the
// pixel, which is the case for RGBA and BGRA.
func (f Format) alphaLast() bool {
	return f <= BGRA
}

// ChannelBits restricts the palette to a maximum number of bits per channel
// during serialization. The default, Channel8Bit, keeps full 32-bit colors;
// the narrower widths shrink the palette bytes at the cost of color range.
type ChannelBits uint8

const (
	Channel1Bit ChannelBits = iota
	Channel2Bit
	Channel4Bit
	Channel8Bit
)

// Bits returns the number of bits stored per channel.
func (c ChannelBits) Bits() uint {
	return 1 << c
}

// MaxDim is the largest width or height a serialized image can describe.
const MaxDim = 4096

// Image is a compressed picture. Payload holds the arithmetic coder output;
// the palette keeps the colors in first-seen order in the Format byte order.
// PaletteSize is in 0..256 where 256 means a full palette.
type Image struct {
	Payload     []byte
	Width       int
	Height      int
	Format      Format
	Palette     [256]uint32
	PaletteSize int
	ChannelBits ChannelBits
}

var (
	errNoPixels  = errors.New("pep: no pixel data")
	errZeroArea  = errors.New("pep: zero width or height")
	errTooLarge  = errors.New("pep: dimensions exceed 4096")
	errNoPayload = errors.New("pep: image has no payload")
	errNotEnough = errors.New("pep: not enough data")
)

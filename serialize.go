package pep

const (
	flagSmall  = 1 << 4
	flagRGB    = 1 << 5
	flagBitmap = 1 << 6

	opaqueWhite = 0xffffffff
)

// maxPayload bounds the payload allocation while deserializing untrusted
// bytes. The packed indices never exceed one byte per pixel and the coder
// expands pathological input by well under 4x, so this is unreachable for
// any frame a real image produced.
const maxPayload = 4*MaxDim*MaxDim + 16

// opaqueBlack is fully opaque black with the alpha lane placed according
// to the channel order.
func opaqueBlack(f Format) uint32 {
	if f.alphaLast() {
		return 0xff000000
	}
	return 0x000000ff
}

// paletteCount widens the stored palette size: a size byte of zero means a
// full 256-entry palette.
func (m *Image) paletteCount() int {
	if m.PaletteSize == 0 {
		return 256
	}
	return m.PaletteSize
}

// isBitmap reports whether the palette is exactly opaque black and opaque
// white, in either order, letting the serializer omit it entirely.
func (m *Image) isBitmap() bool {
	if m.paletteCount() != 2 {
		return false
	}
	black := opaqueBlack(m.Format)
	return (m.Palette[0] == opaqueWhite && m.Palette[1] == black) ||
		(m.Palette[0] == black && m.Palette[1] == opaqueWhite)
}

// onlyRGB reports whether every palette entry carries 0xff in its top
// lane, letting the serializer drop the fourth channel.
func (m *Image) onlyRGB() bool {
	for i := 0; i < m.paletteCount(); i++ {
		if m.Palette[i]>>24 != 0xff {
			return false
		}
	}
	return true
}

func appendVarint(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// Serialize frames the image as flags, dimensions, payload size, palette
// and payload. The palette is quantised to ChannelBits bits per channel.
func (m *Image) Serialize() ([]byte, error) {
	if m == nil || len(m.Payload) == 0 {
		return nil, errNoPayload
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, errZeroArea
	}
	if m.Width > MaxDim || m.Height > MaxDim {
		return nil, errTooLarge
	}

	w := uint32(m.Width - 1)
	h := uint32(m.Height - 1)
	isSmall := w <= 0xff && h <= 0xff
	isBitmap := m.isBitmap()
	onlyRGB := !isBitmap && m.onlyRGB()

	count := m.paletteCount()
	channelBits := m.ChannelBits.Bits()
	channels := 4
	if onlyRGB {
		channels = 3
	}

	size := 1 + 3 + 5 + 1 + (int(channelBits)*channels*count+7)>>3 + len(m.Payload)
	out := make([]byte, 0, size)

	flags := byte(m.Format)&0x3 | byte(m.ChannelBits)&0x3<<2
	if isSmall {
		flags |= flagSmall
	}
	if onlyRGB {
		flags |= flagRGB
	}
	if isBitmap {
		flags |= flagBitmap
	}
	out = append(out, flags)

	if isSmall {
		out = append(out, byte(w), byte(h))
	} else {
		packed := (w&0xfff)<<12 | h&0xfff
		out = append(out, byte(packed>>16), byte(packed>>8), byte(packed))
	}

	out = appendVarint(out, uint32(len(m.Payload)))

	if !isBitmap {
		out = append(out, byte(count))

		if channelBits == 8 {
			for i := 0; i < count; i++ {
				c := m.Palette[i]
				out = append(out, byte(c), byte(c>>8), byte(c>>16))
				if !onlyRGB {
					out = append(out, byte(c>>24))
				}
			}
		} else {
			shift := 8 - channelBits
			mask := uint32(1)<<channelBits - 1

			var bitBuffer uint32
			var bitCount uint
			for i := 0; i < count; i++ {
				c := m.Palette[i]
				for lane := 0; lane < channels; lane++ {
					bitBuffer = bitBuffer<<channelBits | c>>(uint(lane)*8)>>shift&mask
					bitCount += channelBits
				}
				for bitCount >= 8 {
					bitCount -= 8
					out = append(out, byte(bitBuffer>>bitCount))
				}
			}
			if bitCount > 0 {
				out = append(out, byte(bitBuffer<<(8-bitCount)))
			}
		}
	}

	return append(out, m.Payload...), nil
}

// upsample widens an n-bit channel value to 8 bits by replicating its top
// bits downward, so zero stays zero and all-ones becomes 255.
func upsample(v uint32, channelBits uint) uint32 {
	v <<= 8 - channelBits
	for shift := channelBits; shift < 8; shift <<= 1 {
		v |= v >> shift
	}
	return v
}

// Deserialize parses a serialized frame back into an Image. A frame whose
// payload is shorter than its declared size still deserializes; the
// missing tail reads as zeros, matching the decoder's own end-of-data
// behaviour. Any other truncation is an error. Deserialize never reads
// past the supplied slice.
func Deserialize(b []byte) (*Image, error) {
	if b == nil {
		return nil, errNoPixels
	}

	r := byteCursor{data: b}
	m := &Image{}

	flags, err := r.next()
	if err != nil {
		return nil, err
	}
	m.Format = Format(flags & 0x3)
	m.ChannelBits = ChannelBits(flags >> 2 & 0x3)
	isSmall := flags&flagSmall != 0
	onlyRGB := flags&flagRGB != 0
	isBitmap := flags&flagBitmap != 0

	if isSmall {
		w, err := r.next()
		if err != nil {
			return nil, err
		}
		h, err := r.next()
		if err != nil {
			return nil, err
		}
		m.Width = int(w) + 1
		m.Height = int(h) + 1
	} else {
		var packed uint32
		for i := 0; i < 3; i++ {
			v, err := r.next()
			if err != nil {
				return nil, err
			}
			packed = packed<<8 | uint32(v)
		}
		m.Width = int(packed>>12&0xfff) + 1
		m.Height = int(packed&0xfff) + 1
	}

	payloadSize, err := r.varint()
	if err != nil {
		return nil, err
	}

	if isBitmap {
		m.PaletteSize = 2
		m.Palette[0] = opaqueBlack(m.Format)
		m.Palette[1] = opaqueWhite
	} else {
		sizeByte, err := r.next()
		if err != nil {
			return nil, err
		}
		m.PaletteSize = int(sizeByte)
		if m.PaletteSize == 0 {
			m.PaletteSize = 256
		}

		channelBits := m.ChannelBits.Bits()
		channels := 4
		if onlyRGB {
			channels = 3
		}

		var bitBuffer uint32
		var bitCount uint
		for i := 0; i < m.PaletteSize; i++ {
			lanes := [4]uint32{0, 0, 0, 0xff}
			for lane := 0; lane < channels; lane++ {
				if channelBits == 8 {
					bv, err := r.next()
					if err != nil {
						return nil, err
					}
					lanes[lane] = uint32(bv)
					continue
				}
				for bitCount < channelBits {
					bv, err := r.next()
					if err != nil {
						return nil, err
					}
					bitBuffer = bitBuffer<<8 | uint32(bv)
					bitCount += 8
				}
				bitCount -= channelBits
				lanes[lane] = upsample(bitBuffer>>bitCount&(1<<channelBits-1), channelBits)
			}
			m.Palette[i] = lanes[0] | lanes[1]<<8 | lanes[2]<<16 | lanes[3]<<24
		}
	}

	if payloadSize > maxPayload {
		return nil, errNotEnough
	}
	m.Payload = make([]byte, payloadSize)
	copy(m.Payload, r.rest())

	return m, nil
}

// byteCursor is a bounds-checked reader over the serialized frame.
type byteCursor struct {
	data []byte
	pos  int
}

func (r *byteCursor) next() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, errNotEnough
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteCursor) varint() (uint32, error) {
	var v uint32
	var shift uint
	for {
		b, err := r.next()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, errNotEnough
		}
	}
}

func (r *byteCursor) rest() []byte {
	return r.data[r.pos:]
}

package pep

// Pixels are uint32 values whose byte lanes follow the Format: lane 0 is
// the lowest 8 bits. RGBA therefore keeps red in the low byte and alpha in
// the high byte.

// reformat shuffles a pixel from one channel order to another. Every pair
// of orders reduces to one of five fixed shuffles.
func reformat(pixel uint32, in, out Format) uint32 {
	switch {
	case in == out:
		return pixel
	case in <= BGRA && out <= BGRA:
		// RGBA <-> BGRA: swap lanes 0 and 2
		return pixel&0xff00ff00 | pixel&0x000000ff<<16 | pixel&0x00ff0000>>16
	case in >= ABGR && out >= ABGR:
		// ABGR <-> ARGB: swap lanes 1 and 3
		return pixel&0x00ff00ff | pixel&0x0000ff00<<16 | pixel&0xff000000>>16
	case in^out == 2:
		// RGBA <-> ABGR, BGRA <-> ARGB: full lane reversal
		return pixel&0x000000ff<<24 | pixel&0x0000ff00<<8 | pixel&0x00ff0000>>8 | pixel&0xff000000>>24
	case in < out:
		// RGBA/BGRA -> ABGR/ARGB: rotate alpha to lane 0
		return pixel&0xff000000>>24 | pixel&0x00ffffff<<8
	default:
		// ABGR/ARGB -> RGBA/BGRA: rotate alpha to lane 3
		return pixel&0x000000ff<<24 | pixel&0xffffff00>>8
	}
}

// mulAlpha approximates round(c*a/255) without a division.
func mulAlpha(c, scaledAlpha uint32) uint32 {
	return (c*scaledAlpha + 32896) >> 16
}

// preMultiplyAlpha scales a pixel by its own alpha channel, reading the
// alpha lane according to the channel order.
func preMultiplyAlpha(pixel uint32, format Format) uint32 {
	if format.alphaLast() {
		a := (pixel >> 24 & 0xff) * 257
		return pixel&0x000000ff |
			mulAlpha(pixel>>8&0xff, a)<<8 |
			mulAlpha(pixel>>16&0xff, a)<<16 |
			mulAlpha(pixel>>24&0xff, a)<<24
	}
	a := (pixel & 0xff) * 257
	return pixel&0xff000000 |
		mulAlpha(pixel&0xff, a) |
		mulAlpha(pixel>>8&0xff, a)<<8 |
		mulAlpha(pixel>>16&0xff, a)<<16
}

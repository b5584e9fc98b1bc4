package pep

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	red    uint32 = 0xff0000ff
	green  uint32 = 0xff00ff00
	white  uint32 = 0xffffffff
	black  uint32 = 0xff000000
	teal   uint32 = 0xff332211 // #112233FF in RGBA lanes
	clear  uint32 = 0x00000000
	smokey uint32 = 0x80402010
)

func solid(color uint32, area int) []uint32 {
	px := make([]uint32, area)
	for i := range px {
		px[i] = color
	}
	return px
}

// noise returns a deterministic pixel buffer drawing from n distinct
// opaque colors.
func noise(seed int64, area, n int) []uint32 {
	r := rand.New(rand.NewSource(seed))
	colors := make([]uint32, n)
	for i := range colors {
		colors[i] = 0xff000000 | uint32(r.Intn(1<<24))
	}
	px := make([]uint32, area)
	for i := range px {
		px[i] = colors[r.Intn(n)]
	}
	return px
}

func compressRoundTrip(t *testing.T, pixels []uint32, w, h int, format Format) {
	t.Helper()

	m, err := Compress(pixels, w, h, format, Channel8Bit)
	require.NoError(t, err)

	got, err := m.Decompress(format, false, false)
	require.NoError(t, err)
	require.Equal(t, pixels, got)
}

func TestCompressRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		pixels []uint32
		w, h   int
	}{
		{"solid", solid(teal, 16), 4, 4},
		{"two-color-runs", append(solid(red, 96), solid(green, 96)...), 16, 12},
		{"noise-4", noise(1, 64*64, 4), 64, 64},
		{"noise-16", noise(2, 64*64, 16), 64, 64},
		{"noise-256", noise(3, 128*128, 256), 128, 128},
		{"alpha", []uint32{clear, smokey, red, clear, smokey, red}, 3, 2},
		{"single-pixel", []uint32{teal}, 1, 1},
		{"wide", noise(4, 1024, 7), 1024, 1},
		{"tall", noise(5, 1024, 7), 1, 1024},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, format := range []Format{RGBA, BGRA, ABGR, ARGB} {
				compressRoundTrip(t, tc.pixels, tc.w, tc.h, format)
			}
		})
	}
}

func TestCompressSolidColor(t *testing.T) {
	// One color packs eight 1-bit indices per byte: sixteen pixels make
	// exactly two all-zero symbols.
	m, err := Compress(solid(teal, 16), 4, 4, RGBA, Channel8Bit)
	require.NoError(t, err)

	require.Equal(t, 1, m.PaletteSize)
	require.Equal(t, teal, m.Palette[0])
	require.NotEmpty(t, m.Payload)

	got, err := m.Decompress(RGBA, false, false)
	require.NoError(t, err)
	require.Equal(t, solid(teal, 16), got)
}

func TestCompressTrailingPartialByte(t *testing.T) {
	// Three 1-bit indices leave a partial final symbol; exactly three
	// pixels must come back.
	pixels := []uint32{red, green, red}
	m, err := Compress(pixels, 3, 1, RGBA, Channel8Bit)
	require.NoError(t, err)
	require.Equal(t, 2, m.PaletteSize)

	got, err := m.Decompress(RGBA, false, false)
	require.NoError(t, err)
	require.Equal(t, pixels, got)
}

func TestCompressGradient256(t *testing.T) {
	// 256 distinct colors fill the palette completely: 8-bit indices,
	// one per symbol.
	pixels := make([]uint32, 256)
	for i := range pixels {
		pixels[i] = 0xff000000 | uint32(i)
	}

	m, err := Compress(pixels, 256, 1, RGBA, Channel8Bit)
	require.NoError(t, err)
	require.Equal(t, 256, m.PaletteSize)

	got, err := m.Decompress(RGBA, false, false)
	require.NoError(t, err)
	require.Equal(t, pixels, got)
}

func TestCompressPaletteSaturation(t *testing.T) {
	// Over 256 distinct colors: the excess collapses to palette entry 0.
	pixels := make([]uint32, 300)
	for i := range pixels {
		pixels[i] = 0xff000000 | uint32(i)
	}

	m, err := Compress(pixels, 300, 1, RGBA, Channel8Bit)
	require.NoError(t, err)
	require.Equal(t, 256, m.PaletteSize)

	got, err := m.Decompress(RGBA, false, false)
	require.NoError(t, err)
	require.Equal(t, pixels[:256], got[:256])
	for _, p := range got[256:] {
		require.Equal(t, pixels[0], p)
	}
}

func TestCompressFirstSeenOrder(t *testing.T) {
	pixels := []uint32{green, green, red, green, black, red}
	m, err := Compress(pixels, 6, 1, RGBA, Channel8Bit)
	require.NoError(t, err)

	require.Equal(t, 3, m.PaletteSize)
	require.Equal(t, uint32(green), m.Palette[0])
	require.Equal(t, uint32(red), m.Palette[1])
	require.Equal(t, uint32(black), m.Palette[2])
}

func TestCompressInvalid(t *testing.T) {
	_, err := Compress(nil, 4, 4, RGBA, Channel8Bit)
	require.Error(t, err)

	_, err = Compress([]uint32{}, 0, 4, RGBA, Channel8Bit)
	require.Error(t, err)

	_, err = Compress([]uint32{red}, 1, 0, RGBA, Channel8Bit)
	require.Error(t, err)

	_, err = Compress(solid(red, 16), MaxDim+1, 1, RGBA, Channel8Bit)
	require.Error(t, err)

	_, err = Compress(solid(red, 15), 4, 4, RGBA, Channel8Bit)
	require.Error(t, err)
}

func TestDecompressInvalid(t *testing.T) {
	var m *Image
	_, err := m.Decompress(RGBA, false, false)
	require.Error(t, err)

	_, err = (&Image{Width: 4, Height: 4}).Decompress(RGBA, false, false)
	require.Error(t, err)
}

func TestDecompressReformat(t *testing.T) {
	pixels := noise(6, 32*32, 12)
	m, err := Compress(pixels, 32, 32, RGBA, Channel8Bit)
	require.NoError(t, err)

	base, err := m.Decompress(RGBA, false, false)
	require.NoError(t, err)

	for _, out := range []Format{RGBA, BGRA, ABGR, ARGB} {
		got, err := m.Decompress(out, false, false)
		require.NoError(t, err)

		for i := range base {
			require.Equal(t, reformat(base[i], RGBA, out), got[i])
		}
	}
}

func TestDecompressFirstColorTransparent(t *testing.T) {
	pixels := []uint32{teal, red, teal, red}
	m, err := Compress(pixels, 4, 1, RGBA, Channel8Bit)
	require.NoError(t, err)

	got, err := m.Decompress(RGBA, true, false)
	require.NoError(t, err)

	require.Equal(t, teal&0x00ffffff, got[0])
	require.Equal(t, uint32(red), got[1])

	// Alpha-first orders mask the low lane instead.
	m.Format = ARGB
	got, err = m.Decompress(ARGB, true, false)
	require.NoError(t, err)
	require.Equal(t, teal&0xffffff00, got[0])
}

func TestDecompressPreMultiply(t *testing.T) {
	pixels := []uint32{0x80ffffff, red}
	m, err := Compress(pixels, 2, 1, RGBA, Channel8Bit)
	require.NoError(t, err)

	got, err := m.Decompress(RGBA, false, true)
	require.NoError(t, err)

	require.Equal(t, preMultiplyAlpha(0x80ffffff, RGBA), got[0])
	require.Equal(t, preMultiplyAlpha(red, RGBA), got[1])
}

func TestDecompressCorruptPayload(t *testing.T) {
	pixels := noise(7, 48*48, 16)
	m, err := Compress(pixels, 48, 48, RGBA, Channel8Bit)
	require.NoError(t, err)

	corrupt := append([]byte(nil), m.Payload...)
	corrupt[len(corrupt)/2] ^= 0xff
	m.Payload = corrupt

	// Still terminates with a full-size buffer.
	got, err := m.Decompress(RGBA, false, false)
	require.NoError(t, err)
	require.Len(t, got, 48*48)
}

func TestDecompressTruncatedPayload(t *testing.T) {
	pixels := noise(8, 48*48, 16)
	m, err := Compress(pixels, 48, 48, RGBA, Channel8Bit)
	require.NoError(t, err)

	for cut := 0; cut <= len(m.Payload); cut += 5 {
		short := &Image{
			Width:       m.Width,
			Height:      m.Height,
			Format:      m.Format,
			Palette:     m.Palette,
			PaletteSize: m.PaletteSize,
			ChannelBits: m.ChannelBits,
			Payload:     m.Payload[:cut],
		}
		if cut == 0 {
			_, err := short.Decompress(RGBA, false, false)
			require.Error(t, err)
			continue
		}
		got, err := short.Decompress(RGBA, false, false)
		require.NoError(t, err)
		require.Len(t, got, 48*48)
	}
}

func TestSaveLoad(t *testing.T) {
	path := t.TempDir() + "/image.pep"

	pixels := noise(9, 16*16, 5)
	m, err := Compress(pixels, 16, 16, RGBA, Channel8Bit)
	require.NoError(t, err)

	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, m, loaded)

	got, err := loaded.Decompress(RGBA, false, false)
	require.NoError(t, err)
	require.Equal(t, pixels, got)

	_, err = Load(t.TempDir() + "/missing.pep")
	require.Error(t, err)
}

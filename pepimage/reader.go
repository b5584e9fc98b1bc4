package pepimage

import (
	"image"
	"io"

	"github.com/ENDESGA/pep"
)

// Decode reads a serialized pep image from r and returns it as an
// image.Image backed by straight-alpha RGBA pixels.
func Decode(r io.Reader) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m, err := pep.Deserialize(b)
	if err != nil {
		return nil, err
	}

	px, err := m.Decompress(pep.RGBA, false, false)
	if err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, p := range px {
		img.Pix[i*4+0] = uint8(p)
		img.Pix[i*4+1] = uint8(p >> 8)
		img.Pix[i*4+2] = uint8(p >> 16)
		img.Pix[i*4+3] = uint8(p >> 24)
	}
	return img, nil
}

// DecodeConfig returns the color model and dimensions of a pep image
// without decompressing the pixel payload.
func DecodeConfig(r io.Reader) (image.Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}

	m, err := pep.Deserialize(b)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		ColorModel: palette(m),
		Width:      m.Width,
		Height:     m.Height,
	}, nil
}

package pep

import "os"

// Save serializes the image and writes it to path, conventionally ending
// in ".pep".
func (m *Image) Save(path string) error {
	b, err := m.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads a serialized image from path.
func Load(path string) (*Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Deserialize(b)
}

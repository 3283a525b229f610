package fontutils

import (
	"bytes"
	"fmt"
)

// Flavor identifies the container a font is packaged in. The zero value is
// FlavorNone, a bare SFNT with no wrapper.
type Flavor uint8

const (
	FlavorNone Flavor = iota
	FlavorWOFF
	FlavorWOFF2
)

func (f Flavor) String() string {
	switch f {
	case FlavorWOFF:
		return "woff"
	case FlavorWOFF2:
		return "woff2"
	default:
		return "none"
	}
}

var (
	magicWOFF  = []byte("wOFF")
	magicWOFF2 = []byte("wOF2")
	magicTTC   = []byte("ttcf")
)

var magicSFNT = [][]byte{
	{0x00, 0x01, 0x00, 0x00},
	[]byte("true"),
	[]byte("OTTO"),
}

func sniffFlavor(data []byte) (Flavor, error) {
	switch {
	case bytes.HasPrefix(data, magicWOFF2):
		return FlavorWOFF2, nil
	case bytes.HasPrefix(data, magicWOFF):
		return FlavorWOFF, nil
	case bytes.HasPrefix(data, magicTTC):
		return FlavorNone, ErrUnsupportedCollection
	}

	for _, magic := range magicSFNT {
		if bytes.HasPrefix(data, magic) {
			return FlavorNone, nil
		}
	}

	if len(data) < 4 {
		return FlavorNone, fmt.Errorf("%w: %d bytes", ErrInvalidFontData, len(data))
	}

	return FlavorNone, fmt.Errorf("%w: unrecognized magic %q", ErrInvalidFontData, data[:4])
}

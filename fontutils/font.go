// Package fontutils loads web-packaged fonts and writes them back out as
// plain SFNT files.
package fontutils

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/font"
	"github.com/unidoc/unitype"
)

var (
	ErrInvalidFontData       = errors.New("invalid font data")
	ErrUnsupportedCollection = errors.New("font collections are not supported")
	ErrUnsupportedFlavor     = errors.New("unsupported flavor")
)

// Font is a font loaded from a WOFF2, WOFF, or bare SFNT file. Tables are
// held as raw bytes, so everything in the source survives a rewrite,
// including tables this package knows nothing about.
type Font struct {
	flavor  Flavor
	version uint32
	tables  map[string][]byte
}

func LoadFont(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes font data into a Font. WOFF and WOFF2 containers are
// unpacked to their underlying SFNT; bare SFNT data is taken as-is.
func Parse(data []byte) (*Font, error) {
	flavor, err := sniffFlavor(data)
	if err != nil {
		return nil, err
	}

	sfnt, err := font.ToSFNT(data)
	if err != nil {
		return nil, err
	}

	version, tables, err := parseSFNT(sfnt)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("parsed %s font: sfntVersion=0x%08X, %d tables", flavor, version, len(tables))

	return &Font{
		flavor:  flavor,
		version: version,
		tables:  tables,
	}, nil
}

func (f *Font) Flavor() Flavor {
	return f.flavor
}

// SetFlavor selects the container format used when the font is written out.
// FlavorNone marks the font for bare SFNT (TTF) output.
func (f *Font) SetFlavor(flavor Flavor) {
	f.flavor = flavor
}

func (f *Font) Version() uint32 {
	return f.version
}

func (f *Font) NumTables() int {
	return len(f.tables)
}

// Tags returns the font's table tags in alphabetical order.
func (f *Font) Tags() []string {
	tags := make([]string, 0, len(f.tables))
	for tag := range f.tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return tags
}

func (f *Font) Table(tag string) ([]byte, bool) {
	data, ok := f.tables[tag]
	return data, ok
}

// Bytes serializes the font. Only FlavorNone output is supported; WOFF and
// WOFF2 flavors fail with ErrUnsupportedFlavor rather than silently writing
// the wrong container.
func (f *Font) Bytes() ([]byte, error) {
	if f.flavor != FlavorNone {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFlavor, f.flavor)
	}

	out, err := writeSFNT(f.version, f.tables)
	if err != nil {
		return nil, err
	}

	logrus.Debugf("serialized sfnt: %d tables, %d bytes", len(f.tables), len(out))

	return out, nil
}

// WriteFile serializes the font and writes it to path, replacing any
// existing file.
func (f *Font) WriteFile(path string) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate serializes the font and checks the result with unitype. Only
// TrueType-flavored fonts validate; unitype requires glyf and loca.
func (f *Font) Validate() error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}

	return unitype.ValidateBytes(data)
}

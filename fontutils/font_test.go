package fontutils

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mgmeyers/woff2ttf/internal/testfont"
	"github.com/stretchr/testify/require"
	"github.com/unidoc/unitype"
)

func tablesOf(t *testing.T, f *Font) map[string][]byte {
	t.Helper()

	tables := make(map[string][]byte, f.NumTables())
	for _, tag := range f.Tags() {
		data, ok := f.Table(tag)
		require.True(t, ok, "missing table %q", tag)
		tables[tag] = data
	}

	return tables
}

// normalized zeroes head.checkSumAdjustment, which decoders and encoders are
// free to recompute.
func normalized(tables map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(tables))
	for tag, data := range tables {
		if tag == "head" && len(data) >= headAdjustmentOffset+4 {
			cleared := make([]byte, len(data))
			copy(cleared, data)
			binary.BigEndian.PutUint32(cleared[headAdjustmentOffset:], 0)
			data = cleared
		}
		out[tag] = data
	}

	return out
}

func TestParseWOFF2(t *testing.T) {
	sfnt := testfont.TTF()

	fnt, err := Parse(testfont.WOFF2(sfnt))
	require.NoError(t, err)
	require.Equal(t, FlavorWOFF2, fnt.Flavor())
	require.Equal(t, uint32(0x00010000), fnt.Version())

	want, err := Parse(sfnt)
	require.NoError(t, err)

	if diff := cmp.Diff(normalized(tablesOf(t, want)), normalized(tablesOf(t, fnt))); diff != "" {
		t.Fatalf("tables differ from the bare sfnt (-want +got):\n%s", diff)
	}
}

func TestParseWOFF(t *testing.T) {
	sfnt := testfont.TTF()

	fnt, err := Parse(testfont.WOFF(sfnt))
	require.NoError(t, err)
	require.Equal(t, FlavorWOFF, fnt.Flavor())
	require.Equal(t, uint32(0x00010000), fnt.Version())

	want, err := Parse(sfnt)
	require.NoError(t, err)

	if diff := cmp.Diff(normalized(tablesOf(t, want)), normalized(tablesOf(t, fnt))); diff != "" {
		t.Fatalf("tables differ from the bare sfnt (-want +got):\n%s", diff)
	}
}

func TestParseTTF(t *testing.T) {
	fnt, err := Parse(testfont.TTF())
	require.NoError(t, err)
	require.Equal(t, FlavorNone, fnt.Flavor())
	require.Equal(t, uint32(0x00010000), fnt.Version())
	require.Equal(t, 9, fnt.NumTables())
	require.Equal(t, []string{"cmap", "glyf", "head", "hhea", "hmtx", "loca", "maxp", "name", "post"}, fnt.Tags())

	head, ok := fnt.Table("head")
	require.True(t, ok)
	require.Len(t, head, 54)

	_, ok = fnt.Table("BASE")
	require.False(t, ok)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("<!DOCTYPE html><html></html>"))
	require.ErrorIs(t, err, ErrInvalidFontData)

	collection := append([]byte("ttcf"), make([]byte, 32)...)
	_, err = Parse(collection)
	require.ErrorIs(t, err, ErrUnsupportedCollection)
}

func TestSetFlavor(t *testing.T) {
	fnt, err := Parse(testfont.WOFF2(testfont.TTF()))
	require.NoError(t, err)
	require.Equal(t, FlavorWOFF2, fnt.Flavor())

	fnt.SetFlavor(FlavorNone)
	require.Equal(t, FlavorNone, fnt.Flavor())
}

func TestBytesUnsupportedFlavor(t *testing.T) {
	fnt, err := Parse(testfont.WOFF2(testfont.TTF()))
	require.NoError(t, err)

	_, err = fnt.Bytes()
	require.ErrorIs(t, err, ErrUnsupportedFlavor)

	dst := filepath.Join(t.TempDir(), "out.ttf")
	require.ErrorIs(t, fnt.WriteFile(dst), ErrUnsupportedFlavor)

	_, err = os.Stat(dst)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.woff2")
	dst := filepath.Join(dir, "out.ttf")
	require.NoError(t, os.WriteFile(src, testfont.WOFF2(testfont.TTF()), 0644))

	fnt, err := LoadFont(src)
	require.NoError(t, err)

	fnt.SetFlavor(FlavorNone)
	require.NoError(t, fnt.WriteFile(dst))
	require.NoError(t, unitype.ValidateFile(dst))

	out, err := LoadFont(dst)
	require.NoError(t, err)
	require.Equal(t, FlavorNone, out.Flavor())
	require.Equal(t, fnt.Version(), out.Version())

	if diff := cmp.Diff(normalized(tablesOf(t, fnt)), normalized(tablesOf(t, out))); diff != "" {
		t.Fatalf("tables differ after rewrite (-want +got):\n%s", diff)
	}

	// Serialization is deterministic, so a second write is byte-identical.
	again := filepath.Join(dir, "again.ttf")
	require.NoError(t, fnt.WriteFile(again))

	first, err := os.ReadFile(dst)
	require.NoError(t, err)
	second, err := os.ReadFile(again)
	require.NoError(t, err)
	require.True(t, bytes.Equal(first, second))
}

func TestLoadFontMissing(t *testing.T) {
	_, err := LoadFont(filepath.Join(t.TempDir(), "missing.woff2"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	fnt, err := Parse(testfont.TTF())
	require.NoError(t, err)
	require.NoError(t, fnt.Validate())

	data, err := fnt.Bytes()
	require.NoError(t, err)

	parsed, err := unitype.Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, []unitype.GlyphIndex{1}, parsed.LookupRunes([]rune{'A'}))
}

// Package testfont builds small synthetic fonts for tests: a minimal
// TrueType font plus WOFF and WOFF2 wrappings of it.
package testfont

import (
	"bytes"
	"encoding/binary"

	"github.com/andybalholm/brotli"
)

type table struct {
	tag  string
	data []byte
}

// TTF returns a minimal TrueType font: two glyphs (an empty .notdef and a
// triangle mapped to 'A'), short loca offsets, and a format 4 cmap.
func TTF() []byte {
	glyf := buildGlyf()
	tables := []table{
		{"cmap", buildCmap()},
		{"glyf", glyf},
		{"head", buildHead()},
		{"hhea", buildHhea()},
		{"hmtx", buildHmtx()},
		{"loca", buildLoca(len(glyf))},
		{"maxp", buildMaxp()},
		{"name", buildName()},
		{"post", buildPost()},
	}

	return assembleSFNT(0x00010000, tables)
}

// WOFF wraps an SFNT into a WOFF1 container with stored (uncompressed)
// table data.
func WOFF(sfnt []byte) []byte {
	tables := sfntTables(sfnt)

	var total uint32
	for _, t := range tables {
		total += uint32(padded(len(t.data)))
	}

	w := newWriter()
	w.raw([]byte("wOFF"))
	w.u32(binary.BigEndian.Uint32(sfnt)) // flavor
	w.u32(uint32(44+20*len(tables)) + total)
	w.u16(uint16(len(tables)))
	w.u16(0) // reserved
	w.u32(uint32(12+16*len(tables)) + total) // totalSfntSize
	w.u16(1)
	w.u16(0) // version
	w.u32(0) // metaOffset
	w.u32(0) // metaLength
	w.u32(0) // metaOrigLength
	w.u32(0) // privOffset
	w.u32(0) // privLength

	offset := uint32(44 + 20*len(tables))
	for _, t := range tables {
		w.raw([]byte(t.tag))
		w.u32(offset)
		w.u32(uint32(len(t.data))) // compLength == origLength means stored
		w.u32(uint32(len(t.data)))
		w.u32(checksum(t.data))
		offset += uint32(padded(len(t.data)))
	}
	for _, t := range tables {
		w.raw(t.data)
		w.pad4()
	}

	return w.bytes()
}

// Table tag indices assigned by the WOFF2 format. Tags outside this set are
// spelled out after a 0x3F flags byte.
var woff2KnownTags = map[string]int{
	"cmap": 0, "head": 1, "hhea": 2, "hmtx": 3,
	"maxp": 4, "name": 5, "OS/2": 6, "post": 7,
	"cvt ": 8, "fpgm": 9, "glyf": 10, "loca": 11,
	"prep": 12,
}

// WOFF2 wraps an SFNT into a WOFF2 container: glyf and loca carry the null
// transform, everything else is untransformed, and all table data goes into
// a single brotli stream.
func WOFF2(sfnt []byte) []byte {
	tables := sfntTables(sfnt)

	// The loca directory entry must directly follow the glyf entry.
	ordered := make([]table, 0, len(tables))
	var glyfLoca []table
	for _, t := range tables {
		if t.tag == "glyf" || t.tag == "loca" {
			glyfLoca = append(glyfLoca, t)
			continue
		}
		ordered = append(ordered, t)
	}
	if len(glyfLoca) == 2 && glyfLoca[0].tag == "loca" {
		glyfLoca[0], glyfLoca[1] = glyfLoca[1], glyfLoca[0]
	}
	ordered = append(ordered, glyfLoca...)

	totalSfntSize := uint32(12 + 16*len(ordered))
	stream := &bytes.Buffer{}
	var dir []byte
	for _, t := range ordered {
		flags := byte(0x3F)
		if idx, ok := woff2KnownTags[t.tag]; ok {
			flags = byte(idx)
		}
		if t.tag == "glyf" || t.tag == "loca" {
			flags |= 0xC0 // transform version 3: null transform
		}
		dir = append(dir, flags)
		if flags&0x3F == 0x3F {
			dir = append(dir, t.tag...)
		}
		dir = appendBase128(dir, uint32(len(t.data)))

		totalSfntSize += uint32(padded(len(t.data)))
		stream.Write(t.data)
	}

	var compressed bytes.Buffer
	bw := brotli.NewWriter(&compressed)
	if _, err := bw.Write(stream.Bytes()); err != nil {
		panic(err)
	}
	if err := bw.Close(); err != nil {
		panic(err)
	}

	w := newWriter()
	w.raw([]byte("wOF2"))
	w.u32(binary.BigEndian.Uint32(sfnt)) // flavor
	w.u32(uint32(48 + len(dir) + compressed.Len()))
	w.u16(uint16(len(ordered)))
	w.u16(0) // reserved
	w.u32(totalSfntSize)
	w.u32(uint32(compressed.Len()))
	w.u16(1)
	w.u16(0) // version
	w.u32(0) // metaOffset
	w.u32(0) // metaLength
	w.u32(0) // metaOrigLength
	w.u32(0) // privOffset
	w.u32(0) // privLength
	w.raw(dir)
	w.raw(compressed.Bytes())

	return w.bytes()
}

func sfntTables(sfnt []byte) []table {
	numTables := int(binary.BigEndian.Uint16(sfnt[4:]))
	tables := make([]table, 0, numTables)
	for i := 0; i < numTables; i++ {
		rec := sfnt[12+i*16:]
		offset := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		tables = append(tables, table{
			tag:  string(rec[:4]),
			data: sfnt[offset : offset+length],
		})
	}
	return tables
}

func assembleSFNT(version uint32, tables []table) []byte {
	numTables := uint16(len(tables))

	var searchRange uint16 = 1
	var entrySelector uint16
	for searchRange*2 <= numTables {
		searchRange *= 2
		entrySelector++
	}
	searchRange *= 16

	w := newWriter()
	w.u32(version)
	w.u16(numTables)
	w.u16(searchRange)
	w.u16(entrySelector)
	w.u16(numTables*16 - searchRange)

	offset := uint32(12 + 16*int(numTables))
	for _, t := range tables {
		w.raw([]byte(t.tag))
		w.u32(checksum(t.data))
		w.u32(offset)
		w.u32(uint32(len(t.data)))
		offset += uint32(padded(len(t.data)))
	}
	for _, t := range tables {
		w.raw(t.data)
		w.pad4()
	}

	return w.bytes()
}

func buildHead() []byte {
	w := newWriter()
	w.u32(0x00010000) // version
	w.u32(0x00010000) // fontRevision
	w.u32(0)          // checkSumAdjustment
	w.u32(0x5F0F3CF5) // magicNumber
	w.u16(0x0803)     // flags: baseline at y=0, lsb at x=0, bit 11 (required by WOFF2)
	w.u16(1024)       // unitsPerEm
	w.u32(0)          // created
	w.u32(0)
	w.u32(0) // modified
	w.u32(0)
	w.i16(100) // xMin
	w.i16(0)   // yMin
	w.i16(500) // xMax
	w.i16(600) // yMax
	w.u16(0)   // macStyle
	w.u16(8)   // lowestRecPPEM
	w.i16(2)   // fontDirectionHint
	w.i16(0)   // indexToLocFormat: short
	w.i16(0)   // glyphDataFormat
	return w.bytes()
}

func buildHhea() []byte {
	w := newWriter()
	w.u32(0x00010000) // version
	w.i16(800)        // ascent
	w.i16(-200)       // descent
	w.i16(0)          // lineGap
	w.u16(600)        // advanceWidthMax
	w.i16(0)          // minLeftSideBearing
	w.i16(0)          // minRightSideBearing
	w.i16(500)        // xMaxExtent
	w.i16(1)          // caretSlopeRise
	w.i16(0)          // caretSlopeRun
	w.i16(0)          // caretOffset
	w.i16(0)          // reserved
	w.i16(0)
	w.i16(0)
	w.i16(0)
	w.i16(0) // metricDataFormat
	w.u16(2) // numberOfHMetrics
	return w.bytes()
}

func buildMaxp() []byte {
	w := newWriter()
	w.u32(0x00010000) // version
	w.u16(2)          // numGlyphs
	w.u16(3)          // maxPoints
	w.u16(1)          // maxContours
	w.u16(0)          // maxCompositePoints
	w.u16(0)          // maxCompositeContours
	w.u16(2)          // maxZones
	w.u16(0)          // maxTwilightPoints
	w.u16(0)          // maxStorage
	w.u16(0)          // maxFunctionDefs
	w.u16(0)          // maxInstructionDefs
	w.u16(0)          // maxStackElements
	w.u16(0)          // maxSizeOfInstructions
	w.u16(0)          // maxComponentElements
	w.u16(0)          // maxComponentDepth
	return w.bytes()
}

func buildHmtx() []byte {
	w := newWriter()
	w.u16(500) // advance width, glyph 0
	w.i16(0)   // left side bearing
	w.u16(600) // advance width, glyph 1
	w.i16(100)
	return w.bytes()
}

func buildCmap() []byte {
	w := newWriter()
	w.u16(0)  // version
	w.u16(1)  // number of encoding records
	w.u16(3)  // platform: windows
	w.u16(1)  // encoding: unicode BMP
	w.u32(12) // subtable offset

	// Format 4 subtable: one segment for 'A', one final 0xFFFF segment.
	w.u16(4)  // format
	w.u16(32) // length
	w.u16(0)  // language
	w.u16(4)  // segCountX2
	w.u16(4)  // searchRange
	w.u16(1)  // entrySelector
	w.u16(0)  // rangeShift
	w.u16('A')
	w.u16(0xFFFF) // endCode
	w.u16(0)      // reservedPad
	w.u16('A')
	w.u16(0xFFFF) // startCode
	w.i16(-64)    // idDelta: 'A' + delta = glyph 1
	w.i16(1)
	w.u16(0) // idRangeOffset
	w.u16(0)
	return w.bytes()
}

func buildGlyf() []byte {
	w := newWriter()
	w.i16(1)   // numberOfContours
	w.i16(100) // xMin
	w.i16(0)   // yMin
	w.i16(500) // xMax
	w.i16(600) // yMax
	w.u16(2)   // endPtsOfContours
	w.u16(0)   // instructionLength
	w.u8(0x01) // flags: three on-curve points
	w.u8(0x01)
	w.u8(0x01)
	w.i16(100) // x deltas
	w.i16(400)
	w.i16(-200)
	w.i16(0) // y deltas
	w.i16(0)
	w.i16(600)
	w.pad4()
	return w.bytes()
}

func buildLoca(glyfLen int) []byte {
	w := newWriter()
	w.u16(0) // glyph 0 is empty
	w.u16(0)
	w.u16(uint16(glyfLen / 2))
	return w.bytes()
}

func buildName() []byte {
	family := utf16be("Test")
	subfamily := utf16be("Regular")

	w := newWriter()
	w.u16(0)          // format
	w.u16(2)          // count
	w.u16(6 + 2*12)   // stringOffset
	w.u16(3)          // platform: windows
	w.u16(1)          // encoding: unicode BMP
	w.u16(0x0409)     // language: en-US
	w.u16(1)          // nameID: family
	w.u16(uint16(len(family)))
	w.u16(0)
	w.u16(3)
	w.u16(1)
	w.u16(0x0409)
	w.u16(2) // nameID: subfamily
	w.u16(uint16(len(subfamily)))
	w.u16(uint16(len(family)))
	w.raw(family)
	w.raw(subfamily)
	return w.bytes()
}

func buildPost() []byte {
	w := newWriter()
	w.u32(0x00030000) // version 3: no glyph names
	w.u32(0)          // italicAngle
	w.i16(-100)       // underlinePosition
	w.u16(50)         // underlineThickness
	w.u32(0)          // isFixedPitch
	w.u32(0)          // minMemType42
	w.u32(0)          // maxMemType42
	w.u32(0)          // minMemType1
	w.u32(0)          // maxMemType1
	return w.bytes()
}

type writer struct {
	buf bytes.Buffer
}

func newWriter() *writer {
	return &writer{}
}

func (w *writer) u8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) i16(v int16) {
	w.u16(uint16(v))
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) raw(b []byte) {
	w.buf.Write(b)
}

func (w *writer) pad4() {
	for w.buf.Len()%4 != 0 {
		w.buf.WriteByte(0)
	}
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func utf16be(s string) []byte {
	b := make([]byte, 0, 2*len(s))
	for _, r := range s {
		b = append(b, byte(r>>8), byte(r))
	}
	return b
}

func appendBase128(dst []byte, v uint32) []byte {
	if v == 0 {
		return append(dst, 0)
	}
	var tmp [5]byte
	n := 0
	for ; v > 0; v >>= 7 {
		tmp[n] = byte(v & 0x7F)
		n++
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, tmp[i]|0x80)
	}
	return append(dst, tmp[0])
}

func padded(n int) int {
	return (n + 3) &^ 3
}

func checksum(data []byte) uint32 {
	var sum uint32
	for len(data) >= 4 {
		sum += binary.BigEndian.Uint32(data)
		data = data[4:]
	}
	if len(data) > 0 {
		var tail [4]byte
		copy(tail[:], data)
		sum += binary.BigEndian.Uint32(tail[:])
	}
	return sum
}

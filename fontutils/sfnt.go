package fontutils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"

	"github.com/tdewolff/parse/v2"
)

const (
	offsetTableLen = 12
	tableRecordLen = 16

	headAdjustmentOffset = 8
	checksumMagic        = 0xB1B0AFBA
)

// Physical table layout recommended for TrueType fonts. Tags not listed
// here go after these, in alphabetical order.
// https://docs.microsoft.com/en-us/typography/opentype/spec/recom#optimized-table-ordering
var recommendedOrder = []string{
	"head", "hhea", "maxp", "OS/2", "hmtx", "LTSH", "VDMX", "hdmx", "cmap",
	"fpgm", "prep", "cvt ", "loca", "glyf", "kern", "name", "post", "gasp",
}

type offsetTable struct {
	SfntVersion   uint32
	NumTables     uint16
	SearchRange   uint16
	EntrySelector uint16
	RangeShift    uint16
}

type tableRecord struct {
	Tag      [4]byte
	CheckSum uint32
	Offset   uint32
	Length   uint32
}

func parseSFNT(data []byte) (uint32, map[string][]byte, error) {
	if len(data) < offsetTableLen {
		return 0, nil, fmt.Errorf("%w: truncated offset table", ErrInvalidFontData)
	}

	r := parse.NewBinaryReader(data)
	version := r.ReadUint32()
	numTables := int(r.ReadUint16())
	_ = r.ReadBytes(6) // searchRange, entrySelector, rangeShift

	if numTables == 0 {
		return 0, nil, fmt.Errorf("%w: no tables", ErrInvalidFontData)
	}
	if len(data) < offsetTableLen+numTables*tableRecordLen {
		return 0, nil, fmt.Errorf("%w: truncated table directory", ErrInvalidFontData)
	}

	tables := make(map[string][]byte, numTables)

	for i := 0; i < numTables; i++ {
		tag := r.ReadString(4)
		_ = r.ReadUint32() // checksum, recomputed on write
		offset := int(r.ReadUint32())
		length := int(r.ReadUint32())

		if offset < 0 || length < 0 || offset > len(data) || length > len(data)-offset {
			return 0, nil, fmt.Errorf("%w: table %q out of bounds", ErrInvalidFontData, tag)
		}

		tables[tag] = data[offset : offset+length]
	}

	return version, tables, nil
}

// physicalOrder returns the table tags of `tables` in output layout order.
func physicalOrder(tables map[string][]byte) []string {
	names := make([]string, 0, len(tables))
	seen := make(map[string]bool, len(tables))

	for _, name := range recommendedOrder {
		if _, ok := tables[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}

	var extra []string
	for name := range tables {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	return append(names, extra...)
}

// writeSFNT serializes the tables into a single SFNT stream: tables in the
// recommended physical order, directory sorted by tag so consumers can
// binary-search it, checksums recomputed, tables zero-padded to 4-byte
// boundaries, and head.checkSumAdjustment patched so the whole file sums to
// the checksum magic. Table contents are written as-is.
func writeSFNT(version uint32, tables map[string][]byte) ([]byte, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables", ErrInvalidFontData)
	}

	names := physicalOrder(tables)
	numTables := len(names)

	// The head checksum convention treats the adjustment field as zero, so
	// serialize a copy with the field cleared and patch the final bytes.
	if head, ok := tables["head"]; ok {
		if len(head) < headAdjustmentOffset+4 {
			return nil, fmt.Errorf("%w: head table too short", ErrInvalidFontData)
		}
		cleared := make([]byte, len(head))
		copy(cleared, head)
		binary.BigEndian.PutUint32(cleared[headAdjustmentOffset:], 0)
		tables = cloneWith(tables, "head", cleared)
	}

	sel := bits.Len(uint(numTables)) - 1
	header := offsetTable{
		SfntVersion:   version,
		NumTables:     uint16(numTables),
		SearchRange:   uint16(16 << sel),
		EntrySelector: uint16(sel),
		RangeShift:    uint16(16 * (numTables - 1<<sel)),
	}

	records := make([]tableRecord, numTables)
	offset := uint32(offsetTableLen + numTables*tableRecordLen)
	headOffset := -1

	for i, name := range names {
		data := tables[name]
		if name == "head" {
			headOffset = int(offset)
		}
		copy(records[i].Tag[:], name)
		records[i].CheckSum = checksum(data)
		records[i].Offset = offset
		records[i].Length = uint32(len(data))
		offset += uint32(padded(len(data)))
	}

	sort.Slice(records, func(i, j int) bool {
		return bytes.Compare(records[i].Tag[:], records[j].Tag[:]) < 0
	})

	buf := &bytes.Buffer{}
	buf.Grow(int(offset))

	if err := binary.Write(buf, binary.BigEndian, header); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, records); err != nil {
		return nil, err
	}

	for _, name := range names {
		data := tables[name]
		buf.Write(data)
		for k := padded(len(data)) - len(data); k > 0; k-- {
			buf.WriteByte(0)
		}
	}

	out := buf.Bytes()

	if headOffset >= 0 {
		adjustment := checksumMagic - checksum(out)
		binary.BigEndian.PutUint32(out[headOffset+headAdjustmentOffset:], adjustment)
	}

	return out, nil
}

func cloneWith(tables map[string][]byte, tag string, data []byte) map[string][]byte {
	clone := make(map[string][]byte, len(tables))
	for k, v := range tables {
		clone[k] = v
	}
	clone[tag] = data
	return clone
}

func padded(n int) int {
	return (n + 3) &^ 3
}

// checksum sums the data as big-endian uint32 words, zero-padding the tail.
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

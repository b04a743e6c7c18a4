package archive

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Pickle opcodes used by the archive index.
const (
	opProto      = 0x80
	opEmptyDict  = '}'
	opEmptyList  = ']'
	opMark       = '('
	opBinUnicode = 'X'
	opBinInt     = 'J'
	opLong1      = 0x8a
	opShortBytes = 'C'
	opTuple3     = 0x87
	opAppend     = 'a'
	opSetItems   = 'u'
	opStop       = '.'
)

// encodeIndex serializes the index as a protocol 3 pickle of
// {name: [(offset, length, b"")]}. Entries must be sorted by name.
func encodeIndex(entries []rpaEntry) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{opProto, 3, opEmptyDict})
	if len(entries) > 0 {
		buf.WriteByte(opMark)
		for _, e := range entries {
			pickleString(&buf, e.name)
			buf.WriteByte(opEmptyList)
			pickleInt(&buf, e.offset)
			pickleInt(&buf, e.length)
			buf.Write([]byte{opShortBytes, 0})
			buf.Write([]byte{opTuple3, opAppend})
		}
		buf.WriteByte(opSetItems)
	}
	buf.WriteByte(opStop)
	return buf.Bytes()
}

func pickleString(buf *bytes.Buffer, s string) {
	buf.WriteByte(opBinUnicode)
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(s))))
	buf.WriteString(s)
}

func pickleInt(buf *bytes.Buffer, v int64) {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		buf.WriteByte(opBinInt)
		buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(int32(v))))
		return
	}
	// LONG1: little endian two's complement, as short as the sign allows.
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], uint64(v))
	n := 8
	for n > 1 {
		top, next := raw[n-1], raw[n-2]
		if (top == 0 && next&0x80 == 0) || (top == 0xff && next&0x80 != 0) {
			n--
			continue
		}
		break
	}
	buf.Write([]byte{opLong1, byte(n)})
	buf.Write(raw[:n])
}

package ps

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/nickyhof/KivDB/core"
)

// Record layout: type u8 | key length u16 BE | key | value length u32 BE | value
const (
	typeSize        = 1
	keyLengthSize   = 2
	valueLengthSize = 4

	MaxKeySize   = math.MaxUint16
	MaxValueSize = math.MaxUint32
)

var (
	ErrCorrupt         = errors.New("corrupt data file")
	ErrKeyTooLarge     = errors.New("key exceeds 65535 bytes")
	ErrValueTooLarge   = errors.New("value exceeds 4294967295 bytes")
	ErrInvalidEncoding = errors.New("key and value must be valid UTF-8")
)

// CorruptionError reports a record that cannot be decoded. It matches
// ErrCorrupt with errors.Is.
type CorruptionError struct {
	Offset int64
	Reason string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt data file at offset %d: %s", e.Offset, e.Reason)
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorrupt
}

func entryLength(keyLen int, valueLen int) int64 {
	return int64(typeSize + keyLengthSize + keyLen + valueLengthSize + valueLen)
}

// encodeEntry serializes entry in the on-disk layout.
func encodeEntry(entry core.DataEntry) ([]byte, error) {
	if len(entry.Key) > MaxKeySize {
		return nil, ErrKeyTooLarge
	}
	if uint64(len(entry.Value)) > MaxValueSize {
		return nil, ErrValueTooLarge
	}
	if !utf8.ValidString(entry.Key) || !utf8.ValidString(entry.Value) {
		return nil, ErrInvalidEncoding
	}

	buf := make([]byte, 0, entryLength(len(entry.Key), len(entry.Value)))
	buf = append(buf, byte(entry.Type))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(entry.Key)))
	buf = append(buf, entry.Key...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entry.Value)))
	buf = append(buf, entry.Value...)
	return buf, nil
}

// record is one decoded entry and its position in the file. value is only
// populated when the reader was asked for it.
type record struct {
	offset   int64
	length   int64
	key      string
	value    string
	hasValue bool
}

// entryReader walks records sequentially from a position just after the
// header. end is the file size; no record may extend past it.
type entryReader struct {
	reader *bufio.Reader
	offset int64
	end    int64
}

func newEntryReader(r io.Reader, offset, end int64) *entryReader {
	return &entryReader{
		reader: bufio.NewReader(r),
		offset: offset,
		end:    end,
	}
}

// next decodes the following record. It returns io.EOF only on a clean
// record boundary. wantValue decides, per key, whether the value is read or
// skipped.
func (r *entryReader) next(wantValue func(key string) bool) (record, error) {
	start := r.offset

	entryType, err := r.reader.ReadByte()
	if err == io.EOF {
		return record{}, io.EOF
	}
	if err != nil {
		return record{}, err
	}
	if core.EntryType(entryType) != core.DataEntryType {
		return record{}, &CorruptionError{Offset: start, Reason: fmt.Sprintf("unknown entry type %d", entryType)}
	}

	var lengths [valueLengthSize]byte
	if err := r.readFull(lengths[:keyLengthSize], start, "key length"); err != nil {
		return record{}, err
	}
	keyLen := int(binary.BigEndian.Uint16(lengths[:keyLengthSize]))

	key := make([]byte, keyLen)
	if err := r.readFull(key, start, "key"); err != nil {
		return record{}, err
	}
	if !utf8.Valid(key) {
		return record{}, &CorruptionError{Offset: start, Reason: "key is not valid UTF-8"}
	}

	if err := r.readFull(lengths[:], start, "value length"); err != nil {
		return record{}, err
	}
	valueLen := int64(binary.BigEndian.Uint32(lengths[:]))

	rec := record{
		offset: start,
		length: entryLength(keyLen, 0) + valueLen,
		key:    string(key),
	}
	if start+rec.length > r.end {
		return record{}, &CorruptionError{Offset: start, Reason: "truncated value"}
	}

	if wantValue != nil && wantValue(rec.key) {
		value := make([]byte, valueLen)
		if err := r.readFull(value, start, "value"); err != nil {
			return record{}, err
		}
		if !utf8.Valid(value) {
			return record{}, &CorruptionError{Offset: start, Reason: "value is not valid UTF-8"}
		}
		rec.value = string(value)
		rec.hasValue = true
	} else {
		skipped, err := r.reader.Discard(int(valueLen))
		r.offset += int64(skipped)
		if err == io.EOF {
			return record{}, &CorruptionError{Offset: start, Reason: "truncated value"}
		}
		if err != nil {
			return record{}, err
		}
	}

	r.offset = start + rec.length
	return rec, nil
}

func (r *entryReader) readFull(buf []byte, start int64, field string) error {
	n, err := io.ReadFull(r.reader, buf)
	r.offset += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &CorruptionError{Offset: start, Reason: "truncated " + field}
	}
	return err
}

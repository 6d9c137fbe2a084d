package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"
)

// HeaderSize is the fixed size of a framed record header:
// CRC32(4) + KeySize(4) + ValueSize(4) + Timestamp(8).
const HeaderSize = 20

// MaxFieldSize bounds keys and values so a corrupted header cannot
// trigger a huge allocation while scanning a log.
const MaxFieldSize = 64 << 20

var (
	// ErrShortRecord is returned when a buffer cannot hold the declared record.
	ErrShortRecord = errors.New("codec: record truncated")
	// ErrChecksum is returned when a record fails CRC validation.
	ErrChecksum = errors.New("codec: checksum mismatch")
	// ErrFieldTooLarge is returned for keys or values over MaxFieldSize.
	ErrFieldTooLarge = errors.New("codec: field too large")
)

// Record is one framed entry of an append-only collection log.
// An empty Value marks a tombstone.
type Record struct {
	CRC32     uint32
	KeySize   uint32
	ValueSize uint32
	Timestamp uint64 // unix nanoseconds
	Key       []byte
	Value     []byte
}

// Header is the decoded fixed-size prefix of a framed record.
type Header struct {
	CRC32     uint32
	KeySize   uint32
	ValueSize uint32
	Timestamp uint64
}

// BodySize returns the number of key and value bytes following the header.
func (h Header) BodySize() int {
	return int(h.KeySize) + int(h.ValueSize)
}

// RecordCodec frames records for the collection logs.
// It holds no state and is safe for concurrent use.
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode frames a key/value pair stamped with the current time.
func (c *RecordCodec) Encode(key, value []byte) ([]byte, error) {
	return c.EncodeAt(key, value, uint64(time.Now().UnixNano()))
}

// EncodeAt frames a key/value pair with an explicit timestamp.
func (c *RecordCodec) EncodeAt(key, value []byte, ts uint64) ([]byte, error) {
	if len(key) > MaxFieldSize || len(value) > MaxFieldSize {
		return nil, ErrFieldTooLarge
	}
	r := &Record{
		KeySize:   uint32(len(key)),
		ValueSize: uint32(len(value)),
		Timestamp: ts,
		Key:       key,
		Value:     value,
	}
	r.CRC32 = r.checksum()

	buf := make([]byte, r.Size())
	binary.LittleEndian.PutUint32(buf[0:], r.CRC32)
	binary.LittleEndian.PutUint32(buf[4:], r.KeySize)
	binary.LittleEndian.PutUint32(buf[8:], r.ValueSize)
	binary.LittleEndian.PutUint64(buf[12:], r.Timestamp)
	copy(buf[HeaderSize:], key)
	copy(buf[HeaderSize+len(key):], value)
	return buf, nil
}

// DecodeHeader parses the fixed-size header at the start of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrShortRecord
	}
	h := Header{
		CRC32:     binary.LittleEndian.Uint32(data[0:4]),
		KeySize:   binary.LittleEndian.Uint32(data[4:8]),
		ValueSize: binary.LittleEndian.Uint32(data[8:12]),
		Timestamp: binary.LittleEndian.Uint64(data[12:20]),
	}
	if h.KeySize > MaxFieldSize || h.ValueSize > MaxFieldSize {
		return Header{}, ErrFieldTooLarge
	}
	return h, nil
}

// Decode parses a framed record. Key and Value alias data.
// Decode does not verify the checksum; call Validate for that.
func (c *RecordCodec) Decode(data []byte) (*Record, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	end := HeaderSize + h.BodySize()
	if len(data) < end {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortRecord, len(data), end)
	}
	keyEnd := HeaderSize + int(h.KeySize)
	return &Record{
		CRC32:     h.CRC32,
		KeySize:   h.KeySize,
		ValueSize: h.ValueSize,
		Timestamp: h.Timestamp,
		Key:       data[HeaderSize:keyEnd],
		Value:     data[keyEnd:end],
	}, nil
}

// Validate checks the record against its stored CRC32.
func (r *Record) Validate() error {
	if sum := r.checksum(); sum != r.CRC32 {
		return fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, r.CRC32, sum)
	}
	return nil
}

// IsTombstone reports whether the record marks a deletion.
func (r *Record) IsTombstone() bool {
	return len(r.Value) == 0
}

// Size returns the encoded size of the record.
func (r *Record) Size() int {
	return HeaderSize + len(r.Key) + len(r.Value)
}

// checksum covers everything but the CRC field itself.
func (r *Record) checksum() uint32 {
	var hdr [16]byte
	binary.LittleEndian.PutUint32(hdr[0:], r.KeySize)
	binary.LittleEndian.PutUint32(hdr[4:], r.ValueSize)
	binary.LittleEndian.PutUint64(hdr[8:], r.Timestamp)

	crc := crc32.NewIEEE()
	crc.Write(hdr[:])
	crc.Write(r.Key)
	crc.Write(r.Value)
	return crc.Sum32()
}

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestRecordCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewRecordCodec()

	testCases := []struct {
		name  string
		key   []byte
		value []byte
	}{
		{
			name:  "media record",
			key:   []byte("tt0111161"),
			value: []byte(`{"seq":1,"data":{"Title":"The Shawshank Redemption"}}`),
		},
		{
			name:  "tombstone",
			key:   []byte("tt0111161"),
			value: []byte{},
		},
		{
			name:  "binary data",
			key:   []byte{0x00, 0x01, 0x02, 0x03},
			value: []byte{0xFF, 0xFE, 0xFD, 0xFC},
		},
		{
			name:  "large value",
			key:   []byte("k"),
			value: bytes.Repeat([]byte("v"), 10240),
		},
		{
			name:  "unicode data",
			key:   []byte("Amélie"),
			value: []byte("Le Fabuleux Destin d'Amélie Poulain"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := codec.Encode(tc.key, tc.value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) != HeaderSize+len(tc.key)+len(tc.value) {
				t.Fatalf("encoded size = %d, want %d", len(encoded), HeaderSize+len(tc.key)+len(tc.value))
			}

			record, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if err := record.Validate(); err != nil {
				t.Fatalf("Record validation failed: %v", err)
			}

			if !bytes.Equal(record.Key, tc.key) {
				t.Errorf("Key mismatch: got %v, want %v", record.Key, tc.key)
			}
			if !bytes.Equal(record.Value, tc.value) {
				t.Errorf("Value mismatch: got %v, want %v", record.Value, tc.value)
			}
			if record.IsTombstone() != (len(tc.value) == 0) {
				t.Errorf("IsTombstone = %v for value of length %d", record.IsTombstone(), len(tc.value))
			}

			now := time.Now().UnixNano()
			if record.Timestamp > uint64(now) || record.Timestamp < uint64(now-int64(time.Minute)) {
				t.Errorf("Timestamp seems unreasonable: %d", record.Timestamp)
			}
		})
	}
}

func TestRecordCodec_EncodeAtIsDeterministic(t *testing.T) {
	codec := NewRecordCodec()

	a, err := codec.EncodeAt([]byte("key"), []byte("value"), 42)
	if err != nil {
		t.Fatalf("EncodeAt failed: %v", err)
	}
	b, err := codec.EncodeAt([]byte("key"), []byte("value"), 42)
	if err != nil {
		t.Fatalf("EncodeAt failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different frames")
	}

	rec, err := codec.Decode(a)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if rec.Timestamp != 42 {
		t.Errorf("Timestamp = %d, want 42", rec.Timestamp)
	}
}

func TestRecordCodec_CRCValidation(t *testing.T) {
	codec := NewRecordCodec()
	key := []byte("test key")
	value := []byte("test value")

	corruptions := []struct {
		name   string
		offset int
	}{
		{"crc field", 0},
		{"timestamp", 12},
		{"key data", HeaderSize},
		{"value data", HeaderSize + len(key)},
	}

	for _, c := range corruptions {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := codec.Encode(key, value)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			encoded[c.offset] ^= 0xFF

			record, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if err := record.Validate(); !errors.Is(err, ErrChecksum) {
				t.Errorf("Validate() = %v, want ErrChecksum", err)
			}
		})
	}
}

func TestRecordCodec_MalformedData(t *testing.T) {
	codec := NewRecordCodec()

	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "empty data",
			data: []byte{},
			want: ErrShortRecord,
		},
		{
			name: "too short for header",
			data: []byte{0x01, 0x02, 0x03},
			want: ErrShortRecord,
		},
		{
			name: "insufficient data for declared key size",
			data: func() []byte {
				buf := make([]byte, HeaderSize)
				binary.LittleEndian.PutUint32(buf[4:8], 100)
				return buf
			}(),
			want: ErrShortRecord,
		},
		{
			name: "insufficient data for declared value size",
			data: func() []byte {
				buf := make([]byte, HeaderSize+5)
				binary.LittleEndian.PutUint32(buf[4:8], 5)
				binary.LittleEndian.PutUint32(buf[8:12], 100)
				return buf
			}(),
			want: ErrShortRecord,
		},
		{
			name: "absurd value size",
			data: func() []byte {
				buf := make([]byte, HeaderSize)
				binary.LittleEndian.PutUint32(buf[8:12], MaxFieldSize+1)
				return buf
			}(),
			want: ErrFieldTooLarge,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(tc.data)
			if !errors.Is(err, tc.want) {
				t.Errorf("Decode() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecodeHeader(t *testing.T) {
	codec := NewRecordCodec()
	frame, err := codec.EncodeAt([]byte("abc"), []byte("defgh"), 7)
	if err != nil {
		t.Fatalf("EncodeAt failed: %v", err)
	}

	h, err := DecodeHeader(frame[:HeaderSize])
	if err != nil {
		t.Fatalf("DecodeHeader failed: %v", err)
	}
	if h.KeySize != 3 || h.ValueSize != 5 || h.Timestamp != 7 {
		t.Errorf("unexpected header %+v", h)
	}
	if h.BodySize() != 8 {
		t.Errorf("BodySize = %d, want 8", h.BodySize())
	}
}

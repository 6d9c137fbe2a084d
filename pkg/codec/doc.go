// Package codec provides record serialization for the MediaShelf collections.
//
// The package has three layers:
//
//   - RecordCodec frames key/value pairs for the append-only collection logs.
//   - Envelope wraps each stored media or review value with its insertion
//     sequence number.
//   - EncodeCollection and DecodeCollection read and write whole collections
//     as JSON arrays, used for snapshot import and export.
//
// # Record Format
//
// Records are serialized in a binary format with the following structure:
//
//	[CRC32(4)][KeySize(4)][ValueSize(4)][Timestamp(8)][Key][Value]
//
// All integers are little-endian. The CRC32 (IEEE) covers every field after
// the checksum itself, so a torn write anywhere in the frame is detected by
// Validate. A record with an empty value is a tombstone.
//
// # Usage
//
//	c := codec.NewRecordCodec()
//
//	frame, err := c.Encode([]byte("tt0111161"), value)
//	if err != nil {
//	    return err
//	}
//
//	rec, err := c.Decode(frame)
//	if err != nil {
//	    return err
//	}
//	if err := rec.Validate(); err != nil {
//	    return err // corrupted
//	}
//
// # Thread Safety
//
// RecordCodec instances are safe for concurrent use.
package codec

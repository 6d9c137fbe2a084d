package store

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/ssargent/mediashelf/pkg/codec"
)

// LogReader provides sequential and positional access to records in a log
// file. Sequential reads go through a buffered cursor; ReadAt uses pread and
// is safe to call concurrently with itself.
type LogReader struct {
	file   *os.File
	reader *bufio.Reader
	codec  *codec.RecordCodec
	offset int64
	config LogReaderConfig
}

// NewLogReader creates a new log reader for the specified file
func NewLogReader(config LogReaderConfig) (*LogReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, err
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	return &LogReader{
		file:   file,
		reader: bufio.NewReader(file),
		codec:  codec.NewRecordCodec(),
		offset: config.StartOffset,
		config: config,
	}, nil
}

// ReadNext reads the next record from the cursor. It returns io.EOF at a
// clean end of file and ErrCorruption for a torn or checksum-failing record.
func (r *LogReader) ReadNext() (*codec.Record, error) {
	header := make([]byte, codec.HeaderSize)
	n, err := io.ReadFull(r.reader, header)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	h, err := codec.DecodeHeader(header)
	if err != nil {
		return nil, ErrCorruption
	}

	frame := make([]byte, codec.HeaderSize+h.BodySize())
	copy(frame, header)
	m, err := io.ReadFull(r.reader, frame[codec.HeaderSize:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	record, err := r.decode(frame)
	if err != nil {
		return nil, err
	}
	r.offset += int64(n + m)
	return record, nil
}

// ReadAt reads the record starting at offset.
func (r *LogReader) ReadAt(offset int64) (*codec.Record, error) {
	header := make([]byte, codec.HeaderSize)
	if _, err := r.file.ReadAt(header, offset); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	h, err := codec.DecodeHeader(header)
	if err != nil {
		return nil, ErrCorruption
	}

	frame := make([]byte, codec.HeaderSize+h.BodySize())
	copy(frame, header)
	if _, err := r.file.ReadAt(frame[codec.HeaderSize:], offset+codec.HeaderSize); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrCorruption
		}
		return nil, err
	}

	return r.decode(frame)
}

func (r *LogReader) decode(frame []byte) (*codec.Record, error) {
	record, err := r.codec.Decode(frame)
	if err != nil {
		return nil, ErrCorruption
	}
	if err := record.Validate(); err != nil {
		return nil, ErrCorruption
	}
	return record, nil
}

// Seek sets the read offset
func (r *LogReader) Seek(offset int64) error {
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

// Offset returns the offset of the next record the cursor will read
func (r *LogReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator over the remaining records
func (r *LogReader) Iterator() RecordIterator {
	return &logRecordIterator{reader: r}
}

// Close closes the log reader
func (r *LogReader) Close() error {
	return r.file.Close()
}

type logRecordIterator struct {
	reader *LogReader
	record *codec.Record
	start  int64
	err    error
}

func (it *logRecordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.start = it.reader.Offset()
	it.record, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *logRecordIterator) Record() *codec.Record {
	return it.record
}

// Offset returns the starting offset of the current record.
func (it *logRecordIterator) Offset() int64 {
	return it.start
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (it *logRecordIterator) Err() error {
	if errors.Is(it.err, io.EOF) {
		return nil
	}
	return it.err
}

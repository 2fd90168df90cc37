package parser

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
)

// FormatErrorKind classifies log format problems.
type FormatErrorKind int

const (
	BadMagic FormatErrorKind = iota
	Truncated
)

// FormatError reports a log that does not follow the binary layout.
type FormatError struct {
	Kind  FormatErrorKind
	Magic uint32 // magic found, BadMagic only
	Size  int    // bytes available for the magic or the partial record
}

func (e *FormatError) Error() string {
	switch e.Kind {
	case BadMagic:
		if e.Size < constants.MagicSize {
			return fmt.Sprintf("bad magic: log holds %d bytes, need %d", e.Size, constants.MagicSize)
		}
		return fmt.Sprintf("bad magic: expected 0x%08x, found 0x%08x", constants.LogMagic, e.Magic)
	case Truncated:
		return fmt.Sprintf("truncated log: %d trailing bytes dropped", e.Size)
	default:
		return "log format error"
	}
}

// Is matches any FormatError of the same kind.
func (e *FormatError) Is(target error) bool {
	t, ok := target.(*FormatError)
	return ok && t.Kind == e.Kind
}

var (
	ErrBadMagic  = &FormatError{Kind: BadMagic}
	ErrTruncated = &FormatError{Kind: Truncated}
)

// Reader decodes records lazily in a single forward pass.
type Reader struct {
	r         *bufio.Reader
	buf       [constants.LogRecordSize]byte
	record    model.RawLogRecord
	count     int
	truncated int
	err       error
	done      bool
}

// NewReader consumes and checks the magic number. A mismatch fails before
// any record is produced.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var magic [constants.MagicSize]byte
	n, err := io.ReadFull(br, magic[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &FormatError{Kind: BadMagic, Size: n}
		}
		return nil, fmt.Errorf("failed to read log magic: %w", err)
	}

	if got := binary.BigEndian.Uint32(magic[:]); got != constants.LogMagic {
		return nil, &FormatError{Kind: BadMagic, Magic: got, Size: n}
	}

	return &Reader{r: br}, nil
}

// Next advances to the next record. It returns false at the end of the
// log, after a trailing partial record, or on a read error.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}

	n, err := io.ReadFull(r.r, r.buf[:])
	if err != nil {
		r.done = true
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			r.truncated = n
		case errors.Is(err, io.EOF):
		default:
			r.err = fmt.Errorf("failed to read record %d: %w", r.count, err)
		}
		return false
	}

	id, isEntry := model.SplitIDWord(binary.BigEndian.Uint32(r.buf[:constants.IDWordSize]))
	r.record = model.RawLogRecord{
		PerfID:       id,
		IsEntry:      isEntry,
		RawTimestamp: binary.BigEndian.Uint64(r.buf[constants.IDWordSize:]),
	}
	r.count++
	return true
}

// Record returns the record decoded by the last successful Next.
func (r *Reader) Record() model.RawLogRecord {
	return r.record
}

// Count returns the number of records decoded so far.
func (r *Reader) Count() int {
	return r.count
}

// TruncatedBytes returns the size of the dropped trailing partial record.
func (r *Reader) TruncatedBytes() int {
	return r.truncated
}

// Err returns the first I/O error. Truncation is not an error.
func (r *Reader) Err() error {
	return r.err
}

// ReadAll materializes every record from r.
func ReadAll(r io.Reader) ([]model.RawLogRecord, int, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, 0, err
	}

	records := make([]model.RawLogRecord, 0, 1024)
	for reader.Next() {
		records = append(records, reader.Record())
	}
	if err := reader.Err(); err != nil {
		return nil, 0, err
	}

	return records, reader.TruncatedBytes(), nil
}

// Decode decodes an in-memory log.
func Decode(data []byte) ([]model.RawLogRecord, error) {
	records, _, err := ReadAll(bytes.NewReader(data))
	return records, err
}

// Encode writes records in the binary log layout. Used by fixtures and
// by tools that trim logs.
func Encode(w io.Writer, records []model.RawLogRecord) error {
	var buf [constants.LogRecordSize]byte

	binary.BigEndian.PutUint32(buf[:constants.MagicSize], constants.LogMagic)
	if _, err := w.Write(buf[:constants.MagicSize]); err != nil {
		return err
	}

	for _, rec := range records {
		binary.BigEndian.PutUint32(buf[:constants.IDWordSize], rec.IDWord())
		binary.BigEndian.PutUint64(buf[constants.IDWordSize:], rec.RawTimestamp)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

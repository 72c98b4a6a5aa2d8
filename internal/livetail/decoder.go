package livetail

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/five82/tracetail/internal/traces"
)

// DefaultMaxLineSize bounds the carry buffer while waiting for a newline.
const DefaultMaxLineSize = 4 << 20

// Decoder splits a chunked byte stream into newline-delimited JSON records.
// A Decoder belongs to one connection and is not safe for concurrent use.
type Decoder struct {
	carry       []byte
	line        int
	maxLineSize int
	newID       func() string
}

// DecoderOption customizes a Decoder.
type DecoderOption func(*Decoder)

// WithMaxLineSize sets the largest unterminated line kept across chunks.
func WithMaxLineSize(n int) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.maxLineSize = n
		}
	}
}

// WithIDFunc overrides the generator of the internal record identifier.
func WithIDFunc(fn func() string) DecoderOption {
	return func(d *Decoder) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// NewDecoder returns an empty decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		maxLineSize: DefaultMaxLineSize,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed consumes one chunk and returns every record completed by it, in
// stream order. Bytes after the last newline are kept for the next call.
// Malformed lines are skipped; their *DecodeError values are joined into the
// returned error while the records decoded alongside them are still returned.
func (d *Decoder) Feed(chunk []byte) ([]traces.Record, error) {
	var (
		records []traces.Record
		errs    []error
	)

	data := chunk
	if len(d.carry) > 0 {
		d.carry = append(d.carry, chunk...)
		data = d.carry
	}

	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSuffix(data[:idx], []byte{'\r'})
		data = data[idx+1:]

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		d.line++
		rec, err := traces.ParseLine(line)
		if err != nil {
			errs = append(errs, &DecodeError{Line: d.line, Err: err})
			continue
		}
		records = append(records, rec.WithID(d.newID()))
	}

	if len(data) > d.maxLineSize {
		d.line++
		errs = append(errs, &DecodeError{
			Line: d.line,
			Err:  fmt.Errorf("line exceeds %d bytes", d.maxLineSize),
		})
		data = nil
	}
	// Copy the remainder: chunk belongs to the caller's read buffer.
	d.carry = append(d.carry[:0:0], data...)

	return records, errors.Join(errs...)
}

// Buffered returns the number of bytes waiting for a newline.
func (d *Decoder) Buffered() int {
	return len(d.carry)
}

// Flush discards any unterminated trailing bytes, as happens when the stream
// ends, and returns how many were dropped.
func (d *Decoder) Flush() int {
	n := len(d.carry)
	d.carry = nil
	return n
}

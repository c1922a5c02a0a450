// Package flatfile reads and writes the line-grouped record files used for bulk
// ingestion. Every record is a fixed number of consecutive lines; frames are a
// single comma separated line.
package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"market-ledger/internal/models"
)

var (
	// ErrTruncatedRecord is returned when the input ends inside a line group
	ErrTruncatedRecord = errors.New("truncated record")
	// ErrUnsupportedKind is returned for kinds without a record format
	ErrUnsupportedKind = errors.New("unsupported record kind")
)

// FieldCount returns the number of lines that make up one record of the kind
func FieldCount(kind models.Kind) (int, error) {
	switch kind {
	case models.KindProfile:
		return 6, nil
	case models.KindFrame:
		return 1, nil
	case models.KindCar, models.KindBike:
		return 12, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}

// RecordError locates a decoding failure within the input
type RecordError struct {
	Kind   models.Kind
	Record int
	Line   int
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record %d (line %d): %v", e.Kind, e.Record, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Reader yields one line group at a time
type Reader struct {
	kind    models.Kind
	size    int
	scanner *bufio.Scanner
	record  int
	line    int
}

// NewReader creates a record reader for the given kind
func NewReader(r io.Reader, kind models.Kind) (*Reader, error) {
	size, err := FieldCount(kind)
	if err != nil {
		return nil, err
	}
	return &Reader{kind: kind, size: size, scanner: bufio.NewScanner(r)}, nil
}

// Record returns the 1-based index of the last record returned by Next
func (r *Reader) Record() int {
	return r.record
}

// Next returns the lines of the next record, or io.EOF when the input ends
// cleanly between records.
func (r *Reader) Next() ([]string, error) {
	fields := make([]string, 0, r.size)
	for len(fields) < r.size {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, r.wrap(err)
			}
			if len(fields) == 0 {
				return nil, io.EOF
			}
			return nil, r.wrap(ErrTruncatedRecord)
		}
		r.line++
		text := strings.TrimRight(r.scanner.Text(), "\r")
		// blank separator lines between frame records carry no data
		if r.size == 1 && strings.TrimSpace(text) == "" {
			continue
		}
		fields = append(fields, text)
	}
	r.record++
	return fields, nil
}

func (r *Reader) wrap(err error) error {
	return &RecordError{Kind: r.kind, Record: r.record + 1, Line: r.line, Err: err}
}

// Writer writes records in the format Reader consumes
type Writer struct {
	w     *bufio.Writer
	count int
}

// NewWriter wraps w
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes one record, one field per line
func (w *Writer) Write(fields []string) error {
	for _, f := range fields {
		if strings.ContainsAny(f, "\r\n") {
			return &models.ValidationError{Field: "record", Message: "record fields cannot contain line breaks", Value: f}
		}
		if _, err := w.w.WriteString(f); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Flush flushes buffered output
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func parseInt(field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &models.ValidationError{Field: field, Message: fmt.Sprintf("%s must be an integer", field), Value: raw}
	}
	return v, nil
}

func parseID(field, raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, &models.ValidationError{Field: field, Message: fmt.Sprintf("%s must be a positive identifier", field), Value: raw}
	}
	return v, nil
}

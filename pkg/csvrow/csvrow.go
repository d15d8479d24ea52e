// Package csvrow holds the CSV plumbing shared by the partner file importers:
// BOM-tolerant readers, header-bound and positional decoding, date fields in
// dd/MM/yyyy and single row re-serialisation for the import ledger.
package csvrow

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
)

// DateLayout is the dd/MM/yyyy layout used by partner files.
const DateLayout = "02/01/2006"

var dateLayouts = []string{DateLayout, "2/1/2006", "02/01/2006 15:04:05"}

// ErrMissingHeader is returned when the input has no header line.
var ErrMissingHeader = errors.New("csv header missing")

// MissingColumnsError lists required headers absent from a file.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("csv header missing required columns: %s", strings.Join(e.Columns, ", "))
}

// NewReader returns a csv.Reader that strips a UTF-8 BOM and tolerates ragged rows.
func NewReader(r io.Reader) *csv.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

// HeaderDecoder binds rows to struct fields by their `csv` tag.
type HeaderDecoder struct {
	dec *csvutil.Decoder
}

// NewHeaderDecoder reads the header line and verifies every required column is present.
func NewHeaderDecoder(r io.Reader, required []string) (*HeaderDecoder, error) {
	dec, err := csvutil.NewDecoder(NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingHeader
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	present := make(map[string]struct{}, len(dec.Header()))
	for _, h := range dec.Header() {
		present[h] = struct{}{}
	}
	var missing []string
	for _, col := range required {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return &HeaderDecoder{dec: dec}, nil
}

// Decode fills v from the next row and returns io.EOF when the input is exhausted.
func (d *HeaderDecoder) Decode(v interface{}) error {
	return d.dec.Decode(v)
}

// Record returns the raw fields of the last decoded row.
func (d *HeaderDecoder) Record() []string {
	return d.dec.Record()
}

// Header returns the header line.
func (d *HeaderDecoder) Header() []string {
	return d.dec.Header()
}

// Field returns the trimmed value at index, or "" when the record is shorter.
func Field(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// Optional returns nil for blank values.
func Optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// Value dereferences an optional field.
func Value(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// ParseDate parses a dd/MM/yyyy value; blank or malformed input yields nil.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

// FormatDate renders t as dd/MM/yyyy, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// Encode renders a header line and one data line as CSV text.
func Encode(header, values []string) (string, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	if err := w.Write(values); err != nil {
		return "", fmt.Errorf("write csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// IsRowError reports whether err is confined to the current line, so reading
// may continue with the next one.
func IsRowError(err error) bool {
	var parseErr *csv.ParseError
	return errors.As(err, &parseErr) || errors.Is(err, csvutil.ErrFieldCount)
}

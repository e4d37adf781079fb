package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"smartspend/internal/logger"
)

// DefaultMaxBytes bounds a single CSV payload.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

var (
	// ErrMalformedInput is returned when the payload is not parseable CSV or
	// lacks a usable header row. It aborts the whole ingest call.
	ErrMalformedInput = errors.New("malformed CSV input")
	// ErrInputTooLarge is returned when the payload exceeds the size limit.
	ErrInputTooLarge = errors.New("CSV input exceeds size limit")
)

var requiredColumns = []string{"description", "amount", "type", "date"}

// Ingestor reads CSV payloads with the fixed transaction column schema.
type Ingestor struct {
	maxBytes int64
}

// NewIngestor creates an Ingestor. A non-positive maxBytes uses DefaultMaxBytes.
func NewIngestor(maxBytes int64) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Ingestor{maxBytes: maxBytes}
}

// IngestFile reads the CSV file at path and returns the valid drafts in order.
func (in *Ingestor) IngestFile(path string) ([]Draft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	report, err := in.IngestReader(f)
	if err != nil {
		return nil, err
	}
	return report.Drafts, nil
}

// IngestBytes parses an in-memory CSV payload and returns the valid drafts in order.
func (in *Ingestor) IngestBytes(data []byte) ([]Draft, error) {
	report, err := in.IngestReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return report.Drafts, nil
}

// IngestReader streams records from r. Invalid rows are logged and listed in
// the report's rejections; they never fail the call.
func (in *Ingestor) IngestReader(r io.Reader) (*Report, error) {
	reader := csv.NewReader(&limitedReader{r: r, remaining: in.maxBytes})
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMalformedInput)
		}
		return nil, classify(err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	log := logger.Get()
	report := &Report{Drafts: []Draft{}, Rejections: []Rejection{}}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classify(err)
		}
		report.RowsRead++
		line, _ := reader.FieldPos(0)

		result := Validate(columns.record(fields))
		if !result.OK() {
			log.Warnw("skipping CSV row", "line", line, "reason", result.Reason, "detail", result.Detail)
			report.Rejections = append(report.Rejections, Rejection{Line: line, Reason: result.Reason, Detail: result.Detail})
			continue
		}
		report.Drafts = append(report.Drafts, result.Draft)
	}

	return report, nil
}

func classify(err error) error {
	if errors.Is(err, ErrInputTooLarge) {
		return err
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: %v", ErrMalformedInput, parseErr)
	}
	return fmt.Errorf("read CSV: %w", err)
}

// columnIndex maps schema columns to positions in the file; -1 means absent.
type columnIndex map[string]int

func mapColumns(header []string) (columnIndex, error) {
	columns := columnIndex{}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: header is missing column(s) %s", ErrMalformedInput, strings.Join(missing, ", "))
	}
	return columns, nil
}

func (c columnIndex) field(fields []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func (c columnIndex) record(fields []string) RawRecord {
	return RawRecord{
		Description: c.field(fields, "description"),
		Amount:      c.field(fields, "amount"),
		Type:        c.field(fields, "type"),
		Date:        c.field(fields, "date"),
		Notes:       c.field(fields, "notes"),
		Category:    c.field(fields, "category"),
	}
}

// limitedReader fails with ErrInputTooLarge once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrInputTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrInputTooLarge
	}
	return n, err
}

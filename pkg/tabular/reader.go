// Package tabular reads header-first tables from CSV and XLSX uploads.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedType is returned for anything other than CSV or XLSX.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrTooLarge is returned when the payload exceeds the reader limit.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Table is a parsed upload. Every row carries every header; cells beyond
// the header width are dropped.
type Table struct {
	Headers []string
	Rows    []map[string]string
}

// Reader parses uploads up to MaxBytes (0 means unlimited).
type Reader struct {
	MaxBytes int64
}

// Read detects the format from the file name and content and parses it.
func (r Reader) Read(name string, src io.Reader) (*Table, error) {
	data, err := r.readAll(src)
	if err != nil {
		return nil, err
	}

	mime := mimetype.Detect(data)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		if !strings.HasPrefix(mime.String(), "text/") && len(data) > 0 {
			return nil, fmt.Errorf("%w: %s content is %s", ErrUnsupportedType, name, mime.String())
		}
		return ReadCSV(bytes.NewReader(data))
	case ".xlsx":
		if !mime.Is(xlsxMIME) && !mime.Is("application/zip") {
			return nil, fmt.Errorf("%w: %s content is %s", ErrUnsupportedType, name, mime.String())
		}
		return ReadXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
}

func (r Reader) readAll(src io.Reader) ([]byte, error) {
	if r.MaxBytes <= 0 {
		return io.ReadAll(src)
	}
	data, err := io.ReadAll(io.LimitReader(src, r.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// ReadCSV parses a comma separated table with a header row. Repeated header
// rows, which appear when files are concatenated, are skipped.
func ReadCSV(src io.Reader) (*Table, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records, true), nil
}

// ReadCSVVerbatim is ReadCSV without trimming cell values. Files the service
// wrote itself are read this way so stored text round-trips unchanged.
func ReadCSVVerbatim(src io.Reader) (*Table, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return fromRecords(records, false), nil
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(src io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRecords(rows, true), nil
}

func fromRecords(records [][]string, trim bool) *Table {
	if len(records) == 0 {
		return &Table{}
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := &Table{Headers: headers}
	for _, rec := range records[1:] {
		if isBlank(rec) || isHeader(rec, headers) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			switch {
			case i >= len(rec):
				row[h] = ""
			case trim:
				row[h] = strings.TrimSpace(rec[i])
			default:
				row[h] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Ensure adds every missing column to the table with empty values.
func (t *Table) Ensure(columns []string) {
	have := make(map[string]struct{}, len(t.Headers))
	for _, h := range t.Headers {
		have[h] = struct{}{}
	}
	for _, c := range columns {
		if _, ok := have[c]; ok {
			continue
		}
		t.Headers = append(t.Headers, c)
		for _, row := range t.Rows {
			row[c] = ""
		}
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isHeader(rec, headers []string) bool {
	if len(rec) == 0 || len(headers) == 0 {
		return false
	}
	return strings.TrimSpace(rec[0]) == headers[0]
}

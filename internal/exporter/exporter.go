// Package exporter writes inventory records as CSV, JSON or XLSX.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"github.com/cs121/verwaltung-db/pkg/types"
)

// Format names an export file format.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet written by the XLSX exporter.
const SheetName = "Inventar"

// ErrUnsupportedFormat is returned for unknown formats and extensions.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Columns is the header row of tabular exports, in order.
var Columns = []string{
	types.FieldID,
	types.FieldObjectType,
	types.FieldManufacturer,
	types.FieldModel,
	types.FieldSerialNumber,
	types.FieldPurchaseDate,
	types.FieldAssignmentDate,
	types.FieldCurrentHolder,
	types.FieldNotes,
	types.FieldDeactivated,
}

// FormatFor picks the format from the extension of path.
func FormatFor(path string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

func cells(r types.Record) []string {
	out := make([]string, 0, len(Columns))
	for _, c := range Columns {
		switch c {
		case types.FieldID:
			out = append(out, strconv.FormatInt(r.ID, 10))
		case types.FieldDeactivated:
			out = append(out, strconv.FormatBool(r.Deactivated))
		default:
			v, _ := r.Field(c)
			out = append(out, v)
		}
	}
	return out
}

// WriteCSV writes a header row and one row per record.
func WriteCSV(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(cells(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the records as an indented JSON array with null for
// absent fields, the item format of the flat-file store.
func WriteJSON(w io.Writer, records []types.Record) error {
	if records == nil {
		records = []types.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteXLSX writes a workbook with one sheet holding a header row and one
// row per record.
func WriteXLSX(w io.Writer, records []types.Record) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("adding sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}
	for _, r := range records {
		row := sheet.AddRow()
		for i, v := range cells(r) {
			cell := row.AddCell()
			switch Columns[i] {
			case types.FieldID:
				cell.SetInt64(r.ID)
			case types.FieldDeactivated:
				cell.SetBool(r.Deactivated)
			default:
				cell.SetString(v)
			}
		}
	}
	return wb.Write(w)
}

// Write dispatches to the writer for format.
func Write(w io.Writer, format Format, records []types.Record) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// WriteFile exports records to path in the format its extension names.
func WriteFile(path string, records []types.Record) (err error) {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, format, records)
}

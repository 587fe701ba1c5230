// Package importer reads inventory records from CSV and XLSX files.
//
// Column headers are matched through the same alias table as stored data,
// so German and English spellings both work. Rows are converted one by one:
// a bad row is reported in Result.Errors and the rest of the file still
// loads.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/zap"

	"github.com/cs121/verwaltung-db/internal/schema"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// Import errors that stop the whole file.
var (
	ErrUnsupportedFormat = errors.New("unsupported import format")
	ErrMissingColumn     = errors.New("required column missing")
	ErrNoSheet           = errors.New("workbook has no sheet")
)

// RowError reports a row that could not be converted. Row is the 1-based
// line or sheet row number, counting the header as row 1.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result is the outcome of reading one file.
type Result struct {
	// BatchID identifies the run in logs.
	BatchID string
	Records []types.Record
	Errors  []RowError
	// Skipped counts rows without any content.
	Skipped int
}

// requiredFields must be present as columns.
var requiredFields = []string{types.FieldObjectType}

var dateFields = map[string]bool{
	types.FieldPurchaseDate:   true,
	types.FieldAssignmentDate: true,
}

// ReadFile reads path, choosing the reader by file extension.
func ReadFile(path string) (Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return Result{}, err
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		data, err := os.ReadFile(path)
		if err != nil {
			return Result{}, err
		}
		return ReadXLSX(data)
	case ".xls":
		return Result{}, fmt.Errorf("%w: .xls (Excel 97-2003), save the sheet as .xlsx", ErrUnsupportedFormat)
	}
	return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
}

// ReadCSV reads a CSV table. The separator is ';' when the header line
// holds more semicolons than commas, ',' otherwise.
func ReadCSV(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("reading csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = separator(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	lines, err := cr.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("parsing csv: %w", err)
	}
	rows := make([][]any, len(lines))
	for i, line := range lines {
		row := make([]any, len(line))
		for j, v := range line {
			row[j] = v
		}
		rows[i] = row
	}
	return convert(rows)
}

func separator(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte(";")) > bytes.Count(header, []byte(",")) {
		return ';'
	}
	return ','
}

// ReadXLSX reads the first sheet of a workbook. Date-formatted cells are
// read as dates; everything else as displayed text.
func ReadXLSX(data []byte) (Result, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return Result{}, fmt.Errorf("opening workbook: %w", err)
	}
	if len(wb.Sheets) == 0 {
		return Result{}, ErrNoSheet
	}
	sheet := wb.Sheets[0]
	defer sheet.Close()

	rows := make([][]any, 0, sheet.MaxRow)
	for i := 0; i < sheet.MaxRow; i++ {
		row, err := sheet.Row(i)
		if err != nil {
			return Result{}, fmt.Errorf("reading sheet %q row %d: %w", sheet.Name, i+1, err)
		}
		values := make([]any, sheet.MaxCol)
		for j := range values {
			values[j] = cellValue(row.GetCell(j), wb.Date1904)
		}
		rows = append(rows, values)
	}
	return convert(rows)
}

func cellValue(cell *xlsx.Cell, date1904 bool) any {
	if cell == nil {
		return nil
	}
	if cell.IsTime() {
		if t, err := cell.GetTime(date1904); err == nil {
			return t
		}
	}
	return cell.String()
}

// convert maps a header row and data rows onto records.
func convert(rows [][]any) (Result, error) {
	res := Result{BatchID: newBatchID()}
	if len(rows) == 0 {
		return res, nil
	}

	columns := make(map[int]string)
	present := make(map[string]bool)
	for i, name := range rows[0] {
		field, ok := schema.FieldFor(schema.Text(name))
		if !ok || field == types.FieldID || present[field] {
			continue
		}
		columns[i] = field
		present[field] = true
	}
	for _, f := range requiredFields {
		if !present[f] {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingColumn, f)
		}
	}

	for i, row := range rows[1:] {
		fields := make(map[string]any, len(columns))
		for j, v := range row {
			if field, ok := columns[j]; ok {
				fields[field] = v
			}
		}
		r, ok, err := record(fields)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, RowError{Row: i + 2, Err: err})
		case !ok:
			res.Skipped++
		default:
			res.Records = append(res.Records, r)
		}
	}
	return res, nil
}

// record converts one row. It reports false for rows without content; a set
// deactivated flag counts as content.
func record(fields map[string]any) (types.Record, bool, error) {
	dates := make(map[string]string, len(dateFields))
	for field := range dateFields {
		d, err := schema.ParseDate(fields[field])
		if err != nil {
			return types.Record{}, false, fmt.Errorf("column %s: %w", field, err)
		}
		dates[field] = d
	}
	deactivated, err := schema.ParseBool(fields[types.FieldDeactivated])
	if err != nil {
		return types.Record{}, false, fmt.Errorf("column %s: %w", types.FieldDeactivated, err)
	}

	r := types.Record{
		ObjectType:     schema.Text(fields[types.FieldObjectType]),
		Manufacturer:   schema.Text(fields[types.FieldManufacturer]),
		Model:          schema.Text(fields[types.FieldModel]),
		SerialNumber:   schema.Text(fields[types.FieldSerialNumber]),
		PurchaseDate:   dates[types.FieldPurchaseDate],
		AssignmentDate: dates[types.FieldAssignmentDate],
		CurrentHolder:  schema.Text(fields[types.FieldCurrentHolder]),
		Notes:          schema.Text(fields[types.FieldNotes]),
		Deactivated:    deactivated,
	}
	if r.Deactivated {
		return r, true, nil
	}
	for _, f := range types.SearchableFields {
		if v, _ := r.Field(f); v != "" {
			return r, true, nil
		}
	}
	return types.Record{}, false, nil
}

func newBatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Import creates the records of res in repo and returns how many were
// stored. It stops at the first repository error.
func Import(repo types.Repository, res Result, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("batch", res.BatchID))
	for _, rowErr := range res.Errors {
		log.Warn("row skipped", zap.Int("row", rowErr.Row), zap.Error(rowErr.Err))
	}

	n := 0
	for _, r := range res.Records {
		if _, err := repo.Create(r); err != nil {
			return n, fmt.Errorf("importing record %d of %d: %w", n+1, len(res.Records), err)
		}
		n++
	}
	log.Info("import finished",
		zap.Int("imported", n),
		zap.Int("errors", len(res.Errors)),
		zap.Int("skipped", res.Skipped))
	return n, nil
}

// Package schema converts stored representations of inventory records,
// current or legacy, named or positional, into types.Record.
package schema

import (
	"errors"
	"fmt"
)

// Raw is a record as read from storage or an import source. It is either
// NamedFields or PositionalRow.
type Raw interface {
	raw()
}

// NamedFields is a record keyed by column or JSON field name. Legacy names
// are accepted; see Aliases.
type NamedFields map[string]any

func (NamedFields) raw() {}

// Layout identifies a positional column order.
type Layout int

const (
	// LayoutAuto detects the layout from the row length and anchor columns.
	LayoutAuto Layout = iota

	// LayoutPriced is the oldest table: id, asset number, object type,
	// manufacturer, model, serial number, purchase date, price, holder,
	// notes.
	LayoutPriced

	// LayoutAssigned dropped asset number and price and appended the
	// assignment date: id, object type, manufacturer, model, serial number,
	// purchase date, holder, notes, assignment date.
	LayoutAssigned

	// LayoutCurrent is the current column order: id, object type,
	// manufacturer, model, serial number, purchase date, assignment date,
	// holder, notes, deactivated.
	LayoutCurrent
)

func (l Layout) String() string {
	switch l {
	case LayoutAuto:
		return "auto"
	case LayoutPriced:
		return "priced"
	case LayoutAssigned:
		return "assigned"
	case LayoutCurrent:
		return "current"
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

// PositionalRow is a tuple from a table whose columns are known only by
// position.
type PositionalRow struct {
	Layout Layout
	Values []any
}

func (PositionalRow) raw() {}

// layoutColumns lists the canonical field each position maps to. An empty
// name drops the column.
var layoutColumns = map[Layout][]string{
	LayoutPriced: {
		"id", "", "object_type", "manufacturer", "model", "serial_number",
		"purchase_date", "", "current_holder", "notes",
	},
	LayoutAssigned: {
		"id", "object_type", "manufacturer", "model", "serial_number",
		"purchase_date", "current_holder", "notes", "assignment_date",
	},
	LayoutCurrent: {
		"id", "object_type", "manufacturer", "model", "serial_number",
		"purchase_date", "assignment_date", "current_holder", "notes",
		"deactivated",
	},
}

// Errors returned for positional rows.
var (
	ErrUnknownLayout = errors.New("unknown positional layout")
	ErrRowLength     = errors.New("positional row length does not match layout")
)

// DetectLayout picks the layout of a positional row. Nine columns are the
// assigned layout. Ten columns are the current layout when the last value
// is a typed flag, the priced legacy layout when the eighth value is a
// number that is not a date, and the current layout otherwise.
func DetectLayout(values []any) (Layout, error) {
	switch len(values) {
	case 9:
		return LayoutAssigned, nil
	case 10:
		if isFlag(values[9]) {
			return LayoutCurrent, nil
		}
		if isPrice(values[7]) {
			return LayoutPriced, nil
		}
		return LayoutCurrent, nil
	}
	return LayoutAuto, fmt.Errorf("%w: %d columns", ErrUnknownLayout, len(values))
}

// isPrice reports whether v looks like a price column value.
func isPrice(v any) bool {
	switch x := v.(type) {
	case float32, float64:
		return true
	case int, int64, int32:
		return true
	case string:
		if _, ok := parseDate(x); ok {
			return false
		}
		_, err := parseNumber(x)
		return err == nil
	case []byte:
		return isPrice(string(x))
	}
	return false
}

// isFlag reports whether v is a typed boolean column value.
func isFlag(v any) bool {
	switch v.(type) {
	case bool, int, int64, int32:
		return true
	}
	return false
}

// toNamed converts a positional row into named fields.
func (p PositionalRow) toNamed() (NamedFields, error) {
	layout := p.Layout
	if layout == LayoutAuto {
		var err error
		if layout, err = DetectLayout(p.Values); err != nil {
			return nil, err
		}
	}
	cols, ok := layoutColumns[layout]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayout, layout)
	}
	if len(p.Values) != len(cols) {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrRowLength, layout, len(cols), len(p.Values))
	}
	named := make(NamedFields, len(cols))
	for i, name := range cols {
		if name == "" {
			continue
		}
		named[name] = p.Values[i]
	}
	return named, nil
}

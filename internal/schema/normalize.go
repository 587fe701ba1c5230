package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/cs121/verwaltung-db/pkg/types"
)

// Aliases maps legacy and alternate field names, in canonical form, to the
// current field names. A mapping to "" drops the field.
var Aliases = map[string]string{
	"objekttyp":          types.FieldObjectType,
	"objektart":          types.FieldObjectType,
	"objecttype":         types.FieldObjectType,
	"type":               types.FieldObjectType,
	"hersteller":         types.FieldManufacturer,
	"modell":             types.FieldModel,
	"seriennummer":       types.FieldSerialNumber,
	"serialnumber":       types.FieldSerialNumber,
	"serial":             types.FieldSerialNumber,
	"einkaufsdatum":      types.FieldPurchaseDate,
	"kaufdatum":          types.FieldPurchaseDate,
	"zuweisungsdatum":    types.FieldAssignmentDate,
	"assignment":         types.FieldAssignmentDate,
	"aktueller_besitzer": types.FieldCurrentHolder,
	"besitzer":           types.FieldCurrentHolder,
	"owner":              types.FieldCurrentHolder,
	"holder":             types.FieldCurrentHolder,
	"anmerkungen":        types.FieldNotes,
	"notizen":            types.FieldNotes,
	"bemerkungen":        types.FieldNotes,
	"stillgelegt":        types.FieldDeactivated,
	"deaktiviert":        types.FieldDeactivated,
	"inactive":           types.FieldDeactivated,
	"nummer":             "",
	"asset_number":       "",
	"kaufpreis":          "",
	"price":              "",
}

var currentFields = map[string]bool{
	types.FieldID:          true,
	types.FieldDeactivated: true,
}

func init() {
	for _, f := range types.SearchableFields {
		currentFields[f] = true
	}
}

// CanonicalName folds a column or key name: accents stripped, lower case,
// spaces and dashes turned into single underscores.
func CanonicalName(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	folded = strings.NewReplacer("-", "_", " ", "_").Replace(folded)
	for strings.Contains(folded, "__") {
		folded = strings.ReplaceAll(folded, "__", "_")
	}
	return folded
}

// FieldFor resolves a column name to a current field name. The second
// result is false for unknown and dropped columns.
func FieldFor(name string) (string, bool) {
	c := CanonicalName(name)
	if currentFields[c] {
		return c, true
	}
	field, ok := Aliases[c]
	if !ok || field == "" {
		return "", false
	}
	return field, true
}

// Issue is a stored value the normalizer could not read and replaced by
// the field's default.
type Issue struct {
	Field string
	Value any
	Err   error
}

// Normalize converts raw into the current Record shape. Missing fields
// default to absent or false; unknown fields are ignored.
func Normalize(raw Raw) (types.Record, error) {
	r, _, err := NormalizeReport(raw)
	return r, err
}

// NormalizeReport is Normalize that also returns the values it replaced,
// so that callers loading stored data can log them.
func NormalizeReport(raw Raw) (types.Record, []Issue, error) {
	switch r := raw.(type) {
	case NamedFields:
		return fromNamed(r)
	case PositionalRow:
		named, err := r.toNamed()
		if err != nil {
			return types.Record{}, nil, err
		}
		return fromNamed(named)
	case nil:
		return types.Record{}, nil, fmt.Errorf("normalize: nil input")
	}
	return types.Record{}, nil, fmt.Errorf("normalize: unsupported input %T", raw)
}

func fromNamed(in NamedFields) (types.Record, []Issue, error) {
	// Aliases first so that a current-named key wins over a legacy one.
	fields := make(map[string]any, len(in))
	for key, v := range in {
		c := CanonicalName(key)
		if currentFields[c] {
			continue
		}
		if field, ok := Aliases[c]; ok && field != "" {
			fields[field] = v
		}
	}
	for key, v := range in {
		if c := CanonicalName(key); currentFields[c] {
			fields[c] = v
		}
	}

	id, err := ID(fields[types.FieldID])
	if err != nil {
		return types.Record{}, nil, err
	}
	var issues []Issue
	deactivated, err := ParseBool(fields[types.FieldDeactivated])
	if err != nil {
		issues = append(issues, Issue{Field: types.FieldDeactivated, Value: fields[types.FieldDeactivated], Err: err})
		deactivated = false
	}
	return types.Record{
		ID:             id,
		ObjectType:     Text(fields[types.FieldObjectType]),
		Manufacturer:   Text(fields[types.FieldManufacturer]),
		Model:          Text(fields[types.FieldModel]),
		SerialNumber:   Text(fields[types.FieldSerialNumber]),
		PurchaseDate:   Date(fields[types.FieldPurchaseDate]),
		AssignmentDate: Date(fields[types.FieldAssignmentDate]),
		CurrentHolder:  Text(fields[types.FieldCurrentHolder]),
		Notes:          Text(fields[types.FieldNotes]),
		Deactivated:    deactivated,
	}, issues, nil
}

// Clean trims every text field of r and canonicalizes its dates. Backends
// run it on every record they are asked to store.
func Clean(r types.Record) types.Record {
	return types.Record{
		ID:             r.ID,
		ObjectType:     strings.TrimSpace(r.ObjectType),
		Manufacturer:   strings.TrimSpace(r.Manufacturer),
		Model:          strings.TrimSpace(r.Model),
		SerialNumber:   strings.TrimSpace(r.SerialNumber),
		PurchaseDate:   Date(r.PurchaseDate),
		AssignmentDate: Date(r.AssignmentDate),
		CurrentHolder:  strings.TrimSpace(r.CurrentHolder),
		Notes:          strings.TrimSpace(r.Notes),
		Deactivated:    r.Deactivated,
	}
}

// Prepare readies a record for insertion: cleaned, without an id, and
// with its notes consistent with the deactivated flag.
func Prepare(r types.Record) types.Record {
	return Clean(r).Copy(types.WithID(0)).Reconciled()
}

// Revise readies next to replace existing. Reactivating a record removes
// the marker line that deactivation added.
func Revise(existing, next types.Record) types.Record {
	next = Clean(next).Copy(types.WithID(existing.ID))
	if existing.Deactivated && !next.Deactivated {
		next = next.WithoutDeactivationNote()
	}
	return next.Reconciled()
}

// Category normalizes a custom value category name.
func Category(category string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return "", types.ErrInvalidCategory
	}
	return c, nil
}

// Text renders a stored value as trimmed text. Integral floats lose their
// fraction so that spreadsheet serial numbers read back as typed.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case json.Number:
		return Text(string(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(isoDate)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ID converts a stored id value. Absent ids are zero.
func ID(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("id %v is not an integer", x)
		}
		return int64(x), nil
	}
	s := Text(v)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q: %w", s, err)
	}
	return id, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	// Accept the German decimal comma used by the old price column.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

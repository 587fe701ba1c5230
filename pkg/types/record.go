package types

import (
	"encoding/json"
	"strings"
)

// DeactivationMarker is the line appended to a record's notes when the
// record is deactivated. Matching is case-insensitive.
const DeactivationMarker = "Stillgelegt"

// DefaultHolder is the placeholder holder for stock items. ClearOwner resets
// records to this value unless Config.DefaultHolder overrides it.
const DefaultHolder = "LAGER"

// Record is one inventory asset.
//
// Optional text fields use the empty string for "absent"; the normalizer
// guarantees that no field holds blank-only text. ID is zero until the
// record has been stored and never changes afterwards.
type Record struct {
	ID             int64
	ObjectType     string
	Manufacturer   string
	Model          string
	SerialNumber   string
	PurchaseDate   string // ISO 8601 date or empty.
	AssignmentDate string // ISO 8601 date or empty.
	CurrentHolder  string
	Notes          string
	Deactivated    bool
}

// Override replaces one field of a record in Copy.
type Override func(*Record)

// WithID sets the ID.
func WithID(id int64) Override { return func(r *Record) { r.ID = id } }

// WithObjectType sets the object type.
func WithObjectType(v string) Override { return func(r *Record) { r.ObjectType = v } }

// WithManufacturer sets the manufacturer.
func WithManufacturer(v string) Override { return func(r *Record) { r.Manufacturer = v } }

// WithModel sets the model.
func WithModel(v string) Override { return func(r *Record) { r.Model = v } }

// WithSerialNumber sets the serial number.
func WithSerialNumber(v string) Override { return func(r *Record) { r.SerialNumber = v } }

// WithPurchaseDate sets the purchase date.
func WithPurchaseDate(v string) Override { return func(r *Record) { r.PurchaseDate = v } }

// WithAssignmentDate sets the assignment date.
func WithAssignmentDate(v string) Override { return func(r *Record) { r.AssignmentDate = v } }

// WithCurrentHolder sets the current holder.
func WithCurrentHolder(v string) Override { return func(r *Record) { r.CurrentHolder = v } }

// WithNotes sets the notes.
func WithNotes(v string) Override { return func(r *Record) { r.Notes = v } }

// WithDeactivated sets the deactivated flag.
func WithDeactivated(v bool) Override { return func(r *Record) { r.Deactivated = v } }

// Copy returns a new Record with the given overrides applied. Fields that
// are not overridden, including ID, keep their values.
func (r Record) Copy(opts ...Override) Record {
	c := r
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// HasDeactivationNote reports whether the notes mention the marker
// anywhere, ignoring case.
func (r Record) HasDeactivationNote() bool {
	return strings.Contains(strings.ToLower(r.Notes), strings.ToLower(DeactivationMarker))
}

// WithDeactivationNote returns the record with the deactivation marker
// appended to its notes. Active records and records whose notes already
// carry the marker are returned unchanged.
func (r Record) WithDeactivationNote() Record {
	if !r.Deactivated || r.HasDeactivationNote() {
		return r
	}
	notes := r.Notes
	if notes != "" && !strings.HasSuffix(notes, "\n") {
		notes += "\n"
	}
	return r.Copy(WithNotes(notes + DeactivationMarker))
}

// WithoutDeactivationNote removes the last line of the notes that consists
// of the marker alone, together with the newline that separated it from the
// preceding text. Everything else is left byte for byte.
func (r Record) WithoutDeactivationNote() Record {
	lines := strings.Split(r.Notes, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.EqualFold(strings.TrimSpace(lines[i]), DeactivationMarker) {
			continue
		}
		switch {
		case len(lines) == 1:
			lines = nil
		case i > 0:
			lines = append(lines[:i], lines[i+1:]...)
		default:
			lines = lines[1:]
		}
		return r.Copy(WithNotes(strings.Join(lines, "\n")))
	}
	return r
}

// Reconciled returns the record with its notes consistent with the
// deactivated flag.
func (r Record) Reconciled() Record {
	return r.WithDeactivationNote()
}

// Field returns the textual value of a searchable field by name.
// The second result is false for unknown names.
func (r Record) Field(name string) (string, bool) {
	switch name {
	case FieldObjectType:
		return r.ObjectType, true
	case FieldManufacturer:
		return r.Manufacturer, true
	case FieldModel:
		return r.Model, true
	case FieldSerialNumber:
		return r.SerialNumber, true
	case FieldPurchaseDate:
		return r.PurchaseDate, true
	case FieldAssignmentDate:
		return r.AssignmentDate, true
	case FieldCurrentHolder:
		return r.CurrentHolder, true
	case FieldNotes:
		return r.Notes, true
	}
	return "", false
}

// recordJSON mirrors the on-disk JSON shape: absent text is written as null.
type recordJSON struct {
	ID             *int64  `json:"id"`
	ObjectType     *string `json:"object_type"`
	Manufacturer   *string `json:"manufacturer"`
	Model          *string `json:"model"`
	SerialNumber   *string `json:"serial_number"`
	PurchaseDate   *string `json:"purchase_date"`
	AssignmentDate *string `json:"assignment_date"`
	CurrentHolder  *string `json:"current_holder"`
	Notes          *string `json:"notes"`
	Deactivated    bool    `json:"deactivated"`
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// MarshalJSON writes the record with explicit nulls for absent fields.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		ObjectType:     nullable(r.ObjectType),
		Manufacturer:   nullable(r.Manufacturer),
		Model:          nullable(r.Model),
		SerialNumber:   nullable(r.SerialNumber),
		PurchaseDate:   nullable(r.PurchaseDate),
		AssignmentDate: nullable(r.AssignmentDate),
		CurrentHolder:  nullable(r.CurrentHolder),
		Notes:          nullable(r.Notes),
		Deactivated:    r.Deactivated,
	}
	if r.ID != 0 {
		id := r.ID
		out.ID = &id
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the current record shape. Legacy shapes are handled
// by the schema normalizer, not here.
func (r *Record) UnmarshalJSON(data []byte) error {
	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Record{
		ObjectType:     deref(in.ObjectType),
		Manufacturer:   deref(in.Manufacturer),
		Model:          deref(in.Model),
		SerialNumber:   deref(in.SerialNumber),
		PurchaseDate:   deref(in.PurchaseDate),
		AssignmentDate: deref(in.AssignmentDate),
		CurrentHolder:  deref(in.CurrentHolder),
		Notes:          deref(in.Notes),
		Deactivated:    in.Deactivated,
	}
	if in.ID != nil {
		r.ID = *in.ID
	}
	return nil
}

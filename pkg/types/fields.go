package types

// Record field names as used in filters, on-disk columns and exports.
const (
	FieldID             = "id"
	FieldObjectType     = "object_type"
	FieldManufacturer   = "manufacturer"
	FieldModel          = "model"
	FieldSerialNumber   = "serial_number"
	FieldPurchaseDate   = "purchase_date"
	FieldAssignmentDate = "assignment_date"
	FieldCurrentHolder  = "current_holder"
	FieldNotes          = "notes"
	FieldDeactivated    = "deactivated"
)

// GlobalSearchKey is the reserved filter key whose value is matched against
// every field in SearchableFields.
const GlobalSearchKey = "__global__"

// SearchableFields lists the fields that per-field filters and the global
// search may address, in display order.
var SearchableFields = []string{
	FieldObjectType,
	FieldManufacturer,
	FieldModel,
	FieldSerialNumber,
	FieldPurchaseDate,
	FieldAssignmentDate,
	FieldCurrentHolder,
	FieldNotes,
}

// Filters maps a field name (or GlobalSearchKey) to a search term. Empty
// terms are ignored.
type Filters map[string]string

// Custom picklist categories used by the UI.
const (
	CategoryManufacturer = "manufacturer"
	CategoryModel        = "model"
	CategorySerialNumber = "serial_number"
	CategoryOwner        = "owner"
)

// DefaultObjectTypes seeds the object type registry of a new store.
var DefaultObjectTypes = []string{
	"Notebook",
	"Desktop",
	"Monitor",
	"Docking Station",
	"Smartphone",
	"Tablet",
	"Printer",
}

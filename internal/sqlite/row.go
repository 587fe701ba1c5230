package sqlite

import (
	"database/sql"

	"github.com/cs121/verwaltung-db/pkg/types"
)

// itemRow is the database shape of a record. Absent text is stored as ''.
type itemRow struct {
	ID             int64  `db:"id"`
	ObjectType     string `db:"object_type"`
	Manufacturer   string `db:"manufacturer"`
	Model          string `db:"model"`
	SerialNumber   string `db:"serial_number"`
	PurchaseDate   string `db:"purchase_date"`
	AssignmentDate string `db:"assignment_date"`
	CurrentHolder  string `db:"current_holder"`
	Notes          string `db:"notes"`
	Deactivated    bool   `db:"deactivated"`
}

const selectItems = `SELECT id, object_type, manufacturer, model, serial_number,
    purchase_date, assignment_date, current_holder, notes, deactivated FROM items`

const insertItemFmt = `INSERT INTO %s (id, object_type, manufacturer, model, serial_number,
    purchase_date, assignment_date, current_holder, notes, deactivated)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateItem = `UPDATE items SET object_type = ?, manufacturer = ?, model = ?,
    serial_number = ?, purchase_date = ?, assignment_date = ?, current_holder = ?,
    notes = ?, deactivated = ? WHERE id = ?`

func fromRecord(r types.Record) itemRow {
	return itemRow{
		ID:             r.ID,
		ObjectType:     r.ObjectType,
		Manufacturer:   r.Manufacturer,
		Model:          r.Model,
		SerialNumber:   r.SerialNumber,
		PurchaseDate:   r.PurchaseDate,
		AssignmentDate: r.AssignmentDate,
		CurrentHolder:  r.CurrentHolder,
		Notes:          r.Notes,
		Deactivated:    r.Deactivated,
	}
}

func (row itemRow) record() types.Record {
	return types.Record{
		ID:             row.ID,
		ObjectType:     row.ObjectType,
		Manufacturer:   row.Manufacturer,
		Model:          row.Model,
		SerialNumber:   row.SerialNumber,
		PurchaseDate:   row.PurchaseDate,
		AssignmentDate: row.AssignmentDate,
		CurrentHolder:  row.CurrentHolder,
		Notes:          row.Notes,
		Deactivated:    row.Deactivated,
	}
}

// insertArgs returns the arguments for insertItemFmt. A zero id lets
// SQLite assign the next rowid.
func (row itemRow) insertArgs() []any {
	id := sql.NullInt64{Int64: row.ID, Valid: row.ID != 0}
	return []any{id, row.ObjectType, row.Manufacturer, row.Model, row.SerialNumber,
		row.PurchaseDate, row.AssignmentDate, row.CurrentHolder, row.Notes, row.Deactivated}
}

func (row itemRow) updateArgs() []any {
	return []any{row.ObjectType, row.Manufacturer, row.Model, row.SerialNumber,
		row.PurchaseDate, row.AssignmentDate, row.CurrentHolder, row.Notes, row.Deactivated, row.ID}
}

// fieldColumns maps the clearable and distinct fields to their columns.
var fieldColumns = map[string]string{
	types.FieldObjectType:    "object_type",
	types.FieldManufacturer:  "manufacturer",
	types.FieldModel:         "model",
	types.FieldSerialNumber:  "serial_number",
	types.FieldCurrentHolder: "current_holder",
}

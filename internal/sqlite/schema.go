package sqlite

import "fmt"

const (
	itemsTable     = "items"
	migrationTable = "items_migration"
)

// itemColumns is the current column layout of the items table, in order.
// A live table with any other layout is migrated on Initialize.
var itemColumns = []string{
	"id",
	"object_type",
	"manufacturer",
	"model",
	"serial_number",
	"purchase_date",
	"assignment_date",
	"current_holder",
	"notes",
	"deactivated",
}

const createItemsFmt = `CREATE TABLE %s %s (
    id INTEGER PRIMARY KEY,
    object_type TEXT NOT NULL DEFAULT '',
    manufacturer TEXT NOT NULL DEFAULT '',
    model TEXT NOT NULL DEFAULT '',
    serial_number TEXT NOT NULL DEFAULT '',
    purchase_date TEXT NOT NULL DEFAULT '',
    assignment_date TEXT NOT NULL DEFAULT '',
    current_holder TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    deactivated INTEGER NOT NULL DEFAULT 0
);`

const (
	createObjectTypes = `CREATE TABLE IF NOT EXISTS object_types (
    name TEXT PRIMARY KEY COLLATE NOCASE
);`

	createCustomValues = `CREATE TABLE IF NOT EXISTS custom_values (
    category TEXT NOT NULL,
    value TEXT NOT NULL COLLATE NOCASE,
    PRIMARY KEY (category, value)
);`
)

func createItems(table string, ifNotExists bool) string {
	guard := ""
	if ifNotExists {
		guard = "IF NOT EXISTS"
	}
	return fmt.Sprintf(createItemsFmt, guard, table)
}

// schemaDDL lists the statements run on every Initialize, before migration.
func schemaDDL() []string {
	return []string{
		createObjectTypes,
		createCustomValues,
		createItems(itemsTable, true),
	}
}

package sqlite

import (
	"fmt"
	"slices"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/cs121/verwaltung-db/internal/schema"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// columns returns the column names of table in declaration order.
func columns(q sqlx.Queryer, table string) ([]string, error) {
	var names []string
	err := sqlx.Select(q, &names, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	return names, err
}

// migrate rewrites the items table into the current column layout. Every
// old row is read by column name, run through the normalizer and inserted
// with its id. Columns the old table lacks become '' or 0. The swap happens
// in one transaction. It reports whether a migration ran and how many rows
// it copied; on a current table it does nothing. Old values the normalizer
// had to replace are logged.
func migrate(db *sqlx.DB, log *zap.Logger) (migrated bool, rows int, err error) {
	live, err := columns(db, itemsTable)
	if err != nil {
		return false, 0, fmt.Errorf("reading columns: %w", err)
	}
	if slices.Equal(live, itemColumns) {
		return false, 0, nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + migrationTable); err != nil {
		return false, 0, err
	}
	if _, err := tx.Exec(createItems(migrationTable, false)); err != nil {
		return false, 0, err
	}

	records, err := readLegacy(tx, log)
	if err != nil {
		return false, 0, err
	}
	insert := fmt.Sprintf(insertItemFmt, migrationTable)
	for _, r := range records {
		if _, err := tx.Exec(insert, fromRecord(r).insertArgs()...); err != nil {
			return false, 0, fmt.Errorf("copying item %d: %w", r.ID, err)
		}
		if err := registerObjectType(tx, r.ObjectType); err != nil {
			return false, 0, err
		}
	}

	if _, err := tx.Exec(`DROP TABLE ` + itemsTable); err != nil {
		return false, 0, err
	}
	if _, err := tx.Exec(`ALTER TABLE ` + migrationTable + ` RENAME TO ` + itemsTable); err != nil {
		return false, 0, err
	}
	if err := tx.Commit(); err != nil {
		return false, 0, err
	}
	return true, len(records), nil
}

func readLegacy(tx *sqlx.Tx, log *zap.Logger) ([]types.Record, error) {
	rows, err := tx.Queryx(`SELECT * FROM ` + itemsTable)
	if err != nil {
		return nil, fmt.Errorf("reading old items: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		fields := make(map[string]any)
		if err := rows.MapScan(fields); err != nil {
			return nil, err
		}
		r, issues, err := schema.NormalizeReport(schema.NamedFields(fields))
		if err != nil {
			return nil, fmt.Errorf("normalizing old item: %w", err)
		}
		for _, is := range issues {
			log.Warn("unreadable value replaced",
				zap.Int64("id", r.ID),
				zap.String("field", is.Field),
				zap.Any("value", is.Value),
				zap.Error(is.Err))
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

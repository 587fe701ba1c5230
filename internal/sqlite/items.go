package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/cs121/verwaltung-db/internal/query"
	"github.com/cs121/verwaltung-db/internal/schema"
	"github.com/cs121/verwaltung-db/pkg/types"
)

func (b *Backend) all() ([]types.Record, error) {
	var rows []itemRow
	if err := b.db.Select(&rows, selectItems+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	records := make([]types.Record, len(rows))
	for i, row := range rows {
		records[i] = row.record()
	}
	return records, nil
}

func (b *Backend) get(id int64) (types.Record, error) {
	var row itemRow
	err := b.db.Get(&row, selectItems+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("item %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Record{}, err
	}
	return row.record(), nil
}

// save writes records over their stored rows in one transaction. With
// register set their object types are added to the registry, as Update
// does; marker repairs and deactivation leave the registry alone.
func (b *Backend) save(register bool, records ...types.Record) error {
	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range records {
		if _, err := tx.Exec(updateItem, fromRecord(r).updateArgs()...); err != nil {
			return fmt.Errorf("updating item %d: %w", r.ID, err)
		}
		if !register {
			continue
		}
		if err := registerObjectType(tx, r.ObjectType); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// repair persists the marker repairs among records and returns records
// with the repaired versions in place.
func (b *Backend) repair(records []types.Record) ([]types.Record, int, error) {
	fixed := query.Repair(records)
	if len(fixed) == 0 {
		return records, 0, nil
	}
	if err := b.save(false, fixed...); err != nil {
		return nil, 0, fmt.Errorf("repairing deactivation notes: %w", err)
	}
	byID := make(map[int64]types.Record, len(fixed))
	for _, r := range fixed {
		byID[r.ID] = r
	}
	for i, r := range records {
		if rr, ok := byID[r.ID]; ok {
			records[i] = rr
		}
	}
	b.log.Info("deactivation notes repaired", zap.Int("count", len(fixed)))
	return records, len(fixed), nil
}

// List returns the records matching filters in list order. Deactivated
// records among them that lack the marker line are repaired in storage.
func (b *Backend) List(filters types.Filters) ([]types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if err := query.Validate(filters); err != nil {
		return nil, err
	}
	records, err := b.all()
	if err != nil {
		return nil, err
	}
	matched, err := query.Apply(records, filters)
	if err != nil {
		return nil, err
	}
	matched, _, err = b.repair(matched)
	return matched, err
}

// Reconcile repairs the marker of every stored record.
func (b *Backend) Reconcile() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	records, err := b.all()
	if err != nil {
		return 0, err
	}
	_, n, err := b.repair(records)
	return n, err
}

// Get returns the record with id.
func (b *Backend) Get(id int64) (types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	return b.get(id)
}

// Create inserts r under a new id and registers its object type.
func (b *Backend) Create(r types.Record) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	r = schema.Prepare(r)

	tx, err := b.db.Beginx()
	if err != nil {
		return types.Record{}, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(fmt.Sprintf(insertItemFmt, itemsTable), fromRecord(r).insertArgs()...)
	if err != nil {
		return types.Record{}, fmt.Errorf("inserting item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Record{}, err
	}
	if err := registerObjectType(tx, r.ObjectType); err != nil {
		return types.Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Record{}, err
	}
	return r.Copy(types.WithID(id)), nil
}

// Update replaces the stored record id with r.
func (b *Backend) Update(id int64, r types.Record) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	existing, err := b.get(id)
	if err != nil {
		return types.Record{}, err
	}
	r = schema.Revise(existing, r)
	if err := b.save(true, r); err != nil {
		return types.Record{}, err
	}
	return r, nil
}

// Delete removes the record id if it exists.
func (b *Backend) Delete(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}
	_, err := b.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	return err
}

// Deactivate marks the record id inactive and appends the marker line.
// Deactivating an inactive record only repairs a missing marker.
func (b *Backend) Deactivate(id int64) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	existing, err := b.get(id)
	if err != nil {
		return types.Record{}, err
	}
	r := existing.Copy(types.WithDeactivated(true)).WithDeactivationNote()
	if r == existing {
		return r, nil
	}
	if err := b.save(false, r); err != nil {
		return types.Record{}, err
	}
	return r, nil
}

func (b *Backend) distinct(field string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	var values []string
	if err := b.db.Select(&values, `SELECT `+fieldColumns[field]+` FROM items ORDER BY id`); err != nil {
		return nil, err
	}
	return query.Distinct(values), nil
}

func (b *Backend) DistinctOwners() ([]string, error) {
	return b.distinct(types.FieldCurrentHolder)
}

func (b *Backend) DistinctManufacturers() ([]string, error) {
	return b.distinct(types.FieldManufacturer)
}

func (b *Backend) DistinctModels() ([]string, error) {
	return b.distinct(types.FieldModel)
}

func (b *Backend) DistinctSerialNumbers() ([]string, error) {
	return b.distinct(types.FieldSerialNumber)
}

// clear sets field to target on every record whose field equals value.
func (b *Backend) clear(field, value, target string, after func(*sqlx.Tx) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if value == "" || value == target {
		return 0, nil
	}
	col := fieldColumns[field]

	tx, err := b.db.Beginx()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE items SET `+col+` = ? WHERE `+col+` = ?`, target, value)
	if err != nil {
		return 0, fmt.Errorf("clearing %s: %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if after != nil {
		if err := after(tx); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	b.log.Debug("field cleared", zap.String("field", field), zap.Int64("rows", n))
	return int(n), nil
}

// ClearOwner moves every record held by value back to the default holder.
func (b *Backend) ClearOwner(value string) (int, error) {
	return b.clear(types.FieldCurrentHolder, value, b.config.DefaultHolder, nil)
}

func (b *Backend) ClearSerialNumber(value string) (int, error) {
	return b.clear(types.FieldSerialNumber, value, "", nil)
}

// ClearObjectType clears the type on its records and drops it from the
// registry.
func (b *Backend) ClearObjectType(value string) (int, error) {
	return b.clear(types.FieldObjectType, value, "", func(tx *sqlx.Tx) error {
		return unregisterObjectType(tx, value)
	})
}

func (b *Backend) ClearManufacturer(value string) (int, error) {
	return b.clear(types.FieldManufacturer, value, "", nil)
}

func (b *Backend) ClearModel(value string) (int, error) {
	return b.clear(types.FieldModel, value, "", nil)
}

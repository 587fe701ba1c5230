package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cs121/verwaltung-db/internal/query"
	"github.com/cs121/verwaltung-db/internal/schema"
)

func registerObjectType(ex sqlx.Execer, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if _, err := ex.Exec(`INSERT OR IGNORE INTO object_types (name) VALUES (?)`, name); err != nil {
		return fmt.Errorf("registering object type %q: %w", name, err)
	}
	return nil
}

// unregisterObjectType removes every registry entry equal to name ignoring
// case.
func unregisterObjectType(tx *sqlx.Tx, name string) error {
	var names []string
	if err := tx.Select(&names, `SELECT name FROM object_types`); err != nil {
		return err
	}
	for _, n := range names {
		if query.Fold(n) != query.Fold(name) {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM object_types WHERE name = ?`, n); err != nil {
			return err
		}
	}
	return nil
}

// RegisterObjectType adds name to the object type registry. Blank names are
// ignored; a name already registered in any spelling is kept as it was.
func (b *Backend) RegisterObjectType(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}
	var names []string
	if err := b.db.Select(&names, `SELECT name FROM object_types`); err != nil {
		return err
	}
	if query.ContainsFolded(names, name) {
		return nil
	}
	return registerObjectType(b.db, name)
}

// DistinctObjectTypes returns the registered object types.
func (b *Backend) DistinctObjectTypes() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	var names []string
	if err := b.db.Select(&names, `SELECT name FROM object_types`); err != nil {
		return nil, err
	}
	return query.Distinct(names), nil
}

func (b *Backend) customValues(category string) ([]string, error) {
	var values []string
	err := b.db.Select(&values, `SELECT value FROM custom_values WHERE category = ?`, category)
	return values, err
}

// ListCustomValues returns the picklist entries of category.
func (b *Backend) ListCustomValues(category string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	c, err := schema.Category(category)
	if err != nil {
		return nil, err
	}
	values, err := b.customValues(c)
	if err != nil {
		return nil, err
	}
	return query.Distinct(values), nil
}

// AddCustomValue adds value to category unless an entry equal ignoring case
// exists. Blank values are ignored.
func (b *Backend) AddCustomValue(category, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}
	c, err := schema.Category(category)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	values, err := b.customValues(c)
	if err != nil {
		return err
	}
	if query.ContainsFolded(values, value) {
		return nil
	}
	_, err = b.db.Exec(`INSERT OR IGNORE INTO custom_values (category, value) VALUES (?, ?)`, c, value)
	return err
}

// RemoveCustomValue removes the entry of category equal to value ignoring
// case. Removing an absent value is not an error.
func (b *Backend) RemoveCustomValue(category, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}
	c, err := schema.Category(category)
	if err != nil {
		return err
	}
	values, err := b.customValues(c)
	if err != nil {
		return err
	}
	key := query.Fold(strings.TrimSpace(value))
	for _, v := range values {
		if query.Fold(v) != key {
			continue
		}
		if _, err := b.db.Exec(`DELETE FROM custom_values WHERE category = ? AND value = ?`, c, v); err != nil {
			return err
		}
	}
	return nil
}

// Package jsonfile implements the flat-file inventory backend: one JSON
// document rewritten atomically on every change. It is the fallback when
// the SQLite database cannot be opened.
package jsonfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cs121/verwaltung-db/internal/fileutil"
	"github.com/cs121/verwaltung-db/internal/query"
	"github.com/cs121/verwaltung-db/internal/schema"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// Backend implements types.Repository on a JSON document. The document is
// held in memory; the file is only read by Initialize.
type Backend struct {
	mu     sync.RWMutex
	open   bool
	config types.Config
	log    *zap.Logger
	doc    document
}

var _ types.Repository = (*Backend)(nil)

// NewBackend creates a backend for config. A nil logger discards all
// output.
func NewBackend(config types.Config, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		config: config,
		log:    log.Named("jsonfile"),
	}
}

// Path returns the document path.
func (b *Backend) Path() string {
	return b.config.JSONPath()
}

// Initialize loads the document, creating it when it does not exist.
// Calling it again on an open backend is a no-op.
func (b *Backend) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return nil
	}
	path := b.Path()
	doc, err := b.load(path)
	if err != nil {
		return &types.StorageError{Backend: types.BackendJSON, Path: path, Err: err}
	}
	b.doc = doc
	b.open = true
	b.log.Debug("document loaded", zap.String("path", path), zap.Int("items", len(doc.Items)))
	return nil
}

func (b *Backend) load(path string) (document, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return document{}, fmt.Errorf("creating data directory: %w", err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		doc := newDocument(b.config.ObjectTypes)
		if err := write(path, doc); err != nil {
			return document{}, err
		}
		b.log.Info("document created", zap.String("path", path))
		return doc, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("reading document: %w", err)
	}
	return decode(data, b.config.ObjectTypes, b.log)
}

// writeFile is replaced in tests to simulate a failing disk.
var writeFile = fileutil.WriteAtomic

func write(path string, doc document) error {
	data, err := doc.encode()
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return writeFile(path, data)
}

// commit writes next and makes it the current state. If the write fails
// the current state and the file both stay as they were.
func (b *Backend) commit(next document) error {
	if err := write(b.Path(), next); err != nil {
		return err
	}
	b.doc = next
	return nil
}

// Close drops the in-memory document. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.open = false
	b.doc = document{}
	return nil
}

func (b *Backend) checkOpen() error {
	if !b.open {
		return types.ErrNotInitialized
	}
	return nil
}

// repair persists the marker repairs among records and returns records
// with the repaired versions in place.
func (b *Backend) repair(records []types.Record) ([]types.Record, int, error) {
	fixed := query.Repair(records)
	if len(fixed) == 0 {
		return records, 0, nil
	}
	next := b.doc.clone()
	byID := make(map[int64]types.Record, len(fixed))
	for _, r := range fixed {
		byID[r.ID] = r
		if i := next.index(r.ID); i >= 0 {
			next.Items[i] = r
		}
	}
	if err := b.commit(next); err != nil {
		return nil, 0, fmt.Errorf("repairing deactivation notes: %w", err)
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
// records among them that lack the marker line are repaired in the file.
func (b *Backend) List(filters types.Filters) ([]types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	matched, err := query.Apply(b.doc.Items, filters)
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
	_, n, err := b.repair(b.doc.clone().Items)
	return n, err
}

// Get returns the record with id.
func (b *Backend) Get(id int64) (types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	i := b.doc.index(id)
	if i < 0 {
		return types.Record{}, fmt.Errorf("item %d: %w", id, types.ErrNotFound)
	}
	return b.doc.Items[i], nil
}

// Create stores r under the highest id plus one and registers its object
// type.
func (b *Backend) Create(r types.Record) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	next := b.doc.clone()
	r = schema.Prepare(r).Copy(types.WithID(next.nextID()))
	next.Items = append(next.Items, r)
	next.registerObjectType(r.ObjectType)
	if err := b.commit(next); err != nil {
		return types.Record{}, err
	}
	return r, nil
}

// Update replaces the stored record id with r.
func (b *Backend) Update(id int64, r types.Record) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	i := b.doc.index(id)
	if i < 0 {
		return types.Record{}, fmt.Errorf("item %d: %w", id, types.ErrNotFound)
	}
	next := b.doc.clone()
	r = schema.Revise(next.Items[i], r)
	next.Items[i] = r
	next.registerObjectType(r.ObjectType)
	if err := b.commit(next); err != nil {
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
	i := b.doc.index(id)
	if i < 0 {
		return nil
	}
	next := b.doc.clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return b.commit(next)
}

// Deactivate marks the record id inactive and appends the marker line.
// Deactivating an inactive record only repairs a missing marker.
func (b *Backend) Deactivate(id int64) (types.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return types.Record{}, err
	}
	i := b.doc.index(id)
	if i < 0 {
		return types.Record{}, fmt.Errorf("item %d: %w", id, types.ErrNotFound)
	}
	existing := b.doc.Items[i]
	r := existing.Copy(types.WithDeactivated(true)).WithDeactivationNote()
	if r == existing {
		return r, nil
	}
	next := b.doc.clone()
	next.Items[i] = r
	if err := b.commit(next); err != nil {
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
	values := make([]string, 0, len(b.doc.Items))
	for _, r := range b.doc.Items {
		v, _ := r.Field(field)
		values = append(values, v)
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

// DistinctObjectTypes returns the registered object types.
func (b *Backend) DistinctObjectTypes() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	return query.Distinct(b.doc.ObjectTypes), nil
}

// clear sets field to target on every record whose field equals value.
func (b *Backend) clear(field, value, target string, after func(*document)) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return 0, err
	}
	if value == "" || value == target {
		return 0, nil
	}
	next := b.doc.clone()
	n := 0
	for i, r := range next.Items {
		if v, _ := r.Field(field); v != value {
			continue
		}
		next.Items[i] = setField(r, field, target)
		n++
	}
	if after != nil {
		after(&next)
	}
	if n == 0 && after == nil {
		return 0, nil
	}
	if err := b.commit(next); err != nil {
		return 0, err
	}
	b.log.Debug("field cleared", zap.String("field", field), zap.Int("rows", n))
	return n, nil
}

func setField(r types.Record, field, v string) types.Record {
	switch field {
	case types.FieldObjectType:
		return r.Copy(types.WithObjectType(v))
	case types.FieldManufacturer:
		return r.Copy(types.WithManufacturer(v))
	case types.FieldModel:
		return r.Copy(types.WithModel(v))
	case types.FieldSerialNumber:
		return r.Copy(types.WithSerialNumber(v))
	case types.FieldCurrentHolder:
		return r.Copy(types.WithCurrentHolder(v))
	}
	return r
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
	return b.clear(types.FieldObjectType, value, "", func(d *document) {
		d.unregisterObjectType(value)
	})
}

func (b *Backend) ClearManufacturer(value string) (int, error) {
	return b.clear(types.FieldManufacturer, value, "", nil)
}

func (b *Backend) ClearModel(value string) (int, error) {
	return b.clear(types.FieldModel, value, "", nil)
}

// RegisterObjectType adds name to the object type registry.
func (b *Backend) RegisterObjectType(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" || query.ContainsFolded(b.doc.ObjectTypes, name) {
		return nil
	}
	next := b.doc.clone()
	next.registerObjectType(name)
	return b.commit(next)
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
	return query.Distinct(b.doc.CustomValues[c]), nil
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
	if value == "" || query.ContainsFolded(b.doc.CustomValues[c], value) {
		return nil
	}
	next := b.doc.clone()
	next.CustomValues[c] = append(next.CustomValues[c], value)
	return b.commit(next)
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
	if !query.ContainsFolded(b.doc.CustomValues[c], value) {
		return nil
	}
	key := query.Fold(strings.TrimSpace(value))
	next := b.doc.clone()
	kept := next.CustomValues[c][:0]
	for _, v := range next.CustomValues[c] {
		if query.Fold(v) != key {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(next.CustomValues, c)
	} else {
		next.CustomValues[c] = kept
	}
	return b.commit(next)
}

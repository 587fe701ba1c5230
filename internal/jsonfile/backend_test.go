package jsonfile

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cs121/verwaltung-db/internal/fileutil"
	"github.com/cs121/verwaltung-db/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend(types.DefaultConfig(t.TempDir()), nil)
	require.NoError(t, b.Initialize())
	t.Cleanup(func() { b.Close() })
	return b
}

func readDocument(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestBackend_InitializeCreatesDocument(t *testing.T) {
	b := newTestBackend(t)
	assert.NoError(t, b.Initialize(), "second Initialize is a no-op")

	doc := readDocument(t, b.Path())
	assert.Equal(t, []any{}, doc["items"])
	assert.Equal(t, map[string]any{}, doc["custom_values"])
	assert.Contains(t, doc["object_types"], "Notebook")
}

func TestBackend_NotInitialized(t *testing.T) {
	b := NewBackend(types.DefaultConfig(t.TempDir()), nil)

	_, err := b.List(nil)
	assert.ErrorIs(t, err, types.ErrNotInitialized)
	_, err = b.Deactivate(1)
	assert.ErrorIs(t, err, types.ErrNotInitialized)

	require.NoError(t, b.Initialize())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	_, err = b.ListCustomValues("owner")
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestBackend_InitializeRejectsMalformedDocument(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	require.NoError(t, os.WriteFile(cfg.JSONPath(), []byte(`{"items": [`), 0o644))

	err := NewBackend(cfg, nil).Initialize()
	var se *types.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.BackendJSON, se.Backend)
	assert.ErrorIs(t, err, errMalformed)
}

func TestBackend_LegacyBareArray(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	legacy := `[
  {"id": 1, "objekttyp": "Notebook", "hersteller": "Acme", "seriennummer": "SN1"},
  {"id": 2, "objekttyp": "Monitor", "einkaufsdatum": "01.02.2020", "aktueller_besitzer": "Ann"},
  {"objekttyp": "Tablet", "anmerkungen": "  "}
]`
	require.NoError(t, os.WriteFile(cfg.JSONPath(), []byte(legacy), 0o644))

	b := NewBackend(cfg, nil)
	require.NoError(t, b.Initialize())
	defer b.Close()

	got, err := b.List(nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, types.Record{ID: 2, ObjectType: "Monitor", PurchaseDate: "2020-02-01", CurrentHolder: "Ann"}, got[0])
	assert.Equal(t, types.Record{ID: 1, ObjectType: "Notebook", Manufacturer: "Acme", SerialNumber: "SN1"}, got[1])
	assert.Equal(t, types.Record{ID: 3, ObjectType: "Tablet"}, got[2])

	for _, c := range []string{types.CategoryOwner, types.CategoryManufacturer, types.CategoryModel, types.CategorySerialNumber} {
		values, err := b.ListCustomValues(c)
		require.NoError(t, err)
		assert.Empty(t, values)
	}
}

func TestBackend_Scenarios(t *testing.T) {
	b := newTestBackend(t)

	created, err := b.Create(types.Record{ObjectType: "Notebook", Manufacturer: "Acme", SerialNumber: "SN1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.Deactivated)

	off, err := b.Deactivate(1)
	require.NoError(t, err)
	assert.True(t, off.Deactivated)
	assert.Equal(t, types.DeactivationMarker, off.Notes)
	again, err := b.Deactivate(1)
	require.NoError(t, err)
	assert.Equal(t, off.Notes, again.Notes)

	_, err = b.Create(types.Record{ObjectType: "Tablet", Manufacturer: "Acme"})
	require.NoError(t, err)
	n, err := b.ClearManufacturer("Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	manufacturers, err := b.DistinctManufacturers()
	require.NoError(t, err)
	assert.NotContains(t, manufacturers, "Acme")

	hits, err := b.List(types.Filters{types.GlobalSearchKey: "notebook"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)

	_, err = b.Update(999, types.Record{ObjectType: "Notebook"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBackend_IDReuseAfterDeletingMax(t *testing.T) {
	b := newTestBackend(t)
	for i := 0; i < 3; i++ {
		_, err := b.Create(types.Record{ObjectType: "Monitor"})
		require.NoError(t, err)
	}
	require.NoError(t, b.Delete(3))
	require.NoError(t, b.Delete(3))

	r, err := b.Create(types.Record{ObjectType: "Monitor"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.ID)

	require.NoError(t, b.Delete(1))
	r, err = b.Create(types.Record{ObjectType: "Monitor"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), r.ID, "gaps are not filled")
}

func TestBackend_PersistsAcrossReopen(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	b := NewBackend(cfg, nil)
	require.NoError(t, b.Initialize())

	_, err := b.Create(types.Record{ObjectType: "Scanner", Notes: "a\nb", PurchaseDate: "24.12.2023"})
	require.NoError(t, err)
	require.NoError(t, b.AddCustomValue("owner", "Ann"))
	require.NoError(t, b.Close())

	doc := readDocument(t, cfg.JSONPath())
	items := doc["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Nil(t, item["manufacturer"])
	assert.Equal(t, "2023-12-24", item["purchase_date"])
	assert.Equal(t, map[string]any{"owner": []any{"Ann"}}, doc["custom_values"])

	reopened := NewBackend(cfg, nil)
	require.NoError(t, reopened.Initialize())
	defer reopened.Close()
	r, err := reopened.Get(1)
	require.NoError(t, err)
	assert.Equal(t, types.Record{ID: 1, ObjectType: "Scanner", Notes: "a\nb", PurchaseDate: "2023-12-24"}, r)

	registered, err := reopened.DistinctObjectTypes()
	require.NoError(t, err)
	assert.Contains(t, registered, "Scanner")
}

func TestBackend_FailedWriteKeepsPreviousFile(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Create(types.Record{ObjectType: "Monitor"})
	require.NoError(t, err)
	before, err := os.ReadFile(b.Path())
	require.NoError(t, err)

	diskFull := errors.New("no space left on device")
	writeFile = func(string, []byte) error { return diskFull }
	t.Cleanup(func() { writeFile = fileutil.WriteAtomic })

	_, err = b.Create(types.Record{ObjectType: "Tablet"})
	assert.ErrorIs(t, err, diskFull)

	after, err := os.ReadFile(b.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := b.List(nil)
	require.NoError(t, err)
	assert.Len(t, got, 1, "memory stays in step with the file")
}

func TestBackend_ListRepairsMarker(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	doc := `{"items": [
  {"id": 1, "object_type": "Printer", "notes": "toner empty", "deactivated": true},
  {"id": 2, "object_type": "Printer", "deactivated": 1}
], "custom_values": {}}`
	require.NoError(t, os.WriteFile(cfg.JSONPath(), []byte(doc), 0o644))
	b := NewBackend(cfg, nil)
	require.NoError(t, b.Initialize())
	defer b.Close()

	got, err := b.List(types.Filters{"notes": "toner"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "toner empty\n"+types.DeactivationMarker, got[0].Notes)

	n, err := b.Reconcile()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = b.Reconcile()
	require.NoError(t, err)
	assert.Zero(t, n)

	items := readDocument(t, cfg.JSONPath())["items"].([]any)
	assert.Equal(t, types.DeactivationMarker, items[1].(map[string]any)["notes"])
}

func TestBackend_ClearOwnerAndObjectType(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Create(types.Record{ObjectType: "Beamer", CurrentHolder: "Ann"})
	require.NoError(t, err)
	_, err = b.Create(types.Record{ObjectType: "Monitor", CurrentHolder: "ann"})
	require.NoError(t, err)

	n, err := b.ClearOwner("Ann")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	owners, err := b.DistinctOwners()
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", types.DefaultHolder}, owners)

	n, err = b.ClearObjectType("Beamer")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	registered, err := b.DistinctObjectTypes()
	require.NoError(t, err)
	assert.NotContains(t, registered, "Beamer")
}

func TestBackend_CustomValues(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.AddCustomValue("Owner", "Bob"))
	require.NoError(t, b.AddCustomValue("owner", "ann"))
	require.NoError(t, b.AddCustomValue("owner", "BOB"))
	require.NoError(t, b.AddCustomValue("owner", ""))

	got, err := b.ListCustomValues("owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "Bob"}, got)

	require.NoError(t, b.RemoveCustomValue("owner", "bob"))
	require.NoError(t, b.RemoveCustomValue("owner", "nobody"))
	got, err = b.ListCustomValues("owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, got)

	_, err = b.ListCustomValues("")
	assert.ErrorIs(t, err, types.ErrInvalidCategory)
}

func TestBackend_DuplicateIDsAreRenumbered(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	legacy := `[{"id": 1, "object_type": "A"}, {"id": 1, "object_type": "B"}, {"object_type": "C"}]`
	require.NoError(t, os.WriteFile(cfg.JSONPath(), []byte(legacy), 0o644))

	core, logs := observer.New(zap.WarnLevel)
	b := NewBackend(cfg, zap.New(core))
	require.NoError(t, b.Initialize())
	defer b.Close()

	got, err := b.List(nil)
	require.NoError(t, err)
	ids := make(map[string]int64, len(got))
	for _, r := range got {
		ids[r.ObjectType] = r.ID
	}
	assert.Equal(t, map[string]int64{"A": 1, "B": 2, "C": 3}, ids)
	assert.Equal(t, 1, logs.FilterMessage("duplicate id renumbered").Len())

	require.NoError(t, b.Delete(1))
	_, err = b.Get(1)
	assert.ErrorIs(t, err, types.ErrNotFound)
	rest, err := b.List(nil)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestBackend_LogsUnreadableFlag(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	doc := `{"items": [{"id": 4, "object_type": "Tablet", "deactivated": "vielleicht"}]}`
	require.NoError(t, os.WriteFile(cfg.JSONPath(), []byte(doc), 0o644))

	core, logs := observer.New(zap.WarnLevel)
	b := NewBackend(cfg, zap.New(core))
	require.NoError(t, b.Initialize())
	defer b.Close()

	r, err := b.Get(4)
	require.NoError(t, err)
	assert.False(t, r.Deactivated)

	warned := logs.FilterMessage("unreadable value replaced").All()
	require.Len(t, warned, 1)
	assert.Equal(t, types.FieldDeactivated, warned[0].ContextMap()["field"])
	assert.Equal(t, "vielleicht", warned[0].ContextMap()["value"])
}

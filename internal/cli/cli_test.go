package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs121/verwaltung-db/internal/paths"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// cliEnv runs commands against private config and data directories.
type cliEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, key := range []string{paths.EnvConfigDir, paths.EnvDataDir, "INVENTAR_BACKEND", "INVENTAR_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	base := t.TempDir()
	return &cliEnv{
		t:         t,
		configDir: filepath.Join(base, "config"),
		dataDir:   filepath.Join(base, "data"),
	}
}

func (e *cliEnv) run(args ...string) (string, string, int) {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// ok runs a command that must succeed and returns its stdout.
func (e *cliEnv) ok(args ...string) string {
	e.t.Helper()
	out, errOut, code := e.run(args...)
	require.Equal(e.t, exitSuccess, code, "inventar %s\nstderr: %s", strings.Join(args, " "), errOut)
	return out
}

func decode[T any](t *testing.T, data string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(data), &v), data)
	return v
}

func TestInit_CreatesConfigSettingsAndDatabase(t *testing.T) {
	e := newCLIEnv(t)

	res := decode[initResult](t, e.ok("init", "--json"))
	assert.Equal(t, filepath.Join(e.dataDir, types.DefaultDBFile), res.Path)
	assert.Equal(t, types.BackendAuto, res.Backend)
	assert.False(t, res.Fallback)

	assert.FileExists(t, filepath.Join(e.configDir, configFileExt))
	assert.FileExists(t, filepath.Join(e.configDir, "settings.yaml"))
	assert.FileExists(t, res.Path)

	out := e.ok("init")
	assert.Contains(t, out, "Inventory initialized at")
}

func TestInit_FallsBackToJSONFile(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.dataDir, types.DefaultDBFile), 0o755))

	res := decode[initResult](t, e.ok("init", "--json"))
	assert.True(t, res.Fallback)
	assert.Equal(t, filepath.Join(e.dataDir, types.DefaultJSONFile), res.Path)

	created := decode[types.Record](t, e.ok("add", "--type", "Notebook", "--json"))
	assert.Equal(t, int64(1), created.ID)
	assert.FileExists(t, res.Path)
}

func TestRecords_Lifecycle(t *testing.T) {
	e := newCLIEnv(t)

	created := decode[types.Record](t, e.ok("add", "--type", "Notebook", "--manufacturer", "Acme",
		"--serial", "SN1", "--purchase-date", "24.12.2023", "--holder", "Ann", "--json"))
	assert.Equal(t, types.Record{
		ID: 1, ObjectType: "Notebook", Manufacturer: "Acme", SerialNumber: "SN1",
		PurchaseDate: "2023-12-24", CurrentHolder: "Ann",
	}, created)
	e.ok("add", "--type", "Monitor", "--model", "P24")

	got := decode[types.Record](t, e.ok("get", "1", "--json"))
	assert.Equal(t, created, got)

	listed := decode[[]types.Record](t, e.ok("list", "--json"))
	require.Len(t, listed, 2)
	assert.Equal(t, "Monitor", listed[0].ObjectType)

	hits := decode[[]types.Record](t, e.ok("list", "hersteller=acme", "--json"))
	require.Len(t, hits, 1)
	assert.Equal(t, int64(1), hits[0].ID)
	hits = decode[[]types.Record](t, e.ok("list", "--search", "p24", "--json"))
	require.Len(t, hits, 1)
	assert.Equal(t, int64(2), hits[0].ID)

	updated := decode[types.Record](t, e.ok("update", "1", "--holder", "Bob", "--serial", "", "--json"))
	assert.Equal(t, "Bob", updated.CurrentHolder)
	assert.Empty(t, updated.SerialNumber)
	assert.Equal(t, "Acme", updated.Manufacturer, "fields without flags are kept")

	off := decode[types.Record](t, e.ok("deactivate", "1", "--json"))
	assert.True(t, off.Deactivated)
	assert.Equal(t, types.DeactivationMarker, off.Notes)

	on := decode[types.Record](t, e.ok("update", "1", "--deactivated=false", "--json"))
	assert.False(t, on.Deactivated)
	assert.Empty(t, on.Notes)

	assert.Equal(t, map[string]int{"repaired": 0}, decode[map[string]int](t, e.ok("reconcile", "--json")))

	assert.Equal(t, map[string]int64{"id": 2}, decode[map[string]int64](t, e.ok("delete", "2", "--json")))
	assert.Equal(t, "Deleted record 2\n", e.ok("delete", "2"))
	listed = decode[[]types.Record](t, e.ok("list", "--json"))
	assert.Len(t, listed, 1)

	table := e.ok("list")
	assert.Contains(t, table, "ID  TYPE")
	assert.Contains(t, table, "Total: 1 record(s)")
}

func TestRecords_UserErrors(t *testing.T) {
	e := newCLIEnv(t)
	e.ok("add", "--type", "Notebook")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown id", []string{"get", "999"}, "not found"},
		{"bad id", []string{"get", "abc"}, "invalid id"},
		{"bad filter syntax", []string{"list", "notebook"}, "expected field=value"},
		{"unknown filter field", []string{"list", "price=1"}, "invalid filter"},
		{"missing type", []string{"add", "--model", "X1"}, "--type is required"},
		{"bad date", []string{"add", "--type", "Tablet", "--purchase-date", "soon"}, "--purchase-date"},
		{"deactivate unknown", []string{"deactivate", "42"}, "not found"},
		{"unknown backend", []string{"list", "--backend", "mongo"}, "unknown backend"},
		{"unknown picklist", []string{"distinct", "notes"}, "unknown field"},
		{"bad category", []string{"custom", "list", " "}, "category"},
		{"export format", []string{"export", filepath.Join(t.TempDir(), "out.txt")}, "unsupported export format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := e.run(tt.args...)
			assert.Equal(t, exitUserError, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestStorageFailureIsSystemError(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(e.dataDir, types.DefaultDBFile), 0o755))

	_, errOut, code := e.run("list", "--backend", "sqlite")
	assert.Equal(t, exitSysError, code)
	assert.Contains(t, errOut, "open storage")
}

func TestDistinctAndClear(t *testing.T) {
	e := newCLIEnv(t)
	e.ok("add", "--type", "Beamer", "--holder", "Ann", "--manufacturer", "Acme")
	e.ok("add", "--type", "Monitor", "--holder", "Ann", "--manufacturer", "acme")

	manufacturers := decode[[]string](t, e.ok("distinct", "hersteller", "--json"))
	assert.Equal(t, []string{"Acme"}, manufacturers, "spellings are merged ignoring case")

	assert.Equal(t, map[string]int{"changed": 2}, decode[map[string]int](t, e.ok("clear", "owner", "Ann", "--json")))
	assert.Equal(t, []string{types.DefaultHolder}, decode[[]string](t, e.ok("distinct", "current_holder", "--json")))

	assert.Equal(t, "Changed 1 record(s)\n", e.ok("clear", "object_type", "Beamer"))
	assert.NotContains(t, decode[[]string](t, e.ok("distinct", "object_type", "--json")), "Beamer")
	assert.Equal(t, "Changed 0 record(s)\n", e.ok("clear", "serial_number", ""))
}

func TestCustomValues(t *testing.T) {
	e := newCLIEnv(t)
	e.ok("custom", "add", "owner", "Bob")
	e.ok("custom", "add", "Owner", "ann")
	e.ok("custom", "add", "owner", "BOB")

	assert.Equal(t, "ann\nBob\n", e.ok("custom", "list", "owner"))
	e.ok("custom", "remove", "owner", "bob")
	assert.Equal(t, []string{"ann"}, decode[[]string](t, e.ok("custom", "list", "owner", "--json")))
	assert.Equal(t, []string{}, decode[[]string](t, e.ok("custom", "list", "model", "--json")))
}

func TestTypes_AddPersistsDefault(t *testing.T) {
	e := newCLIEnv(t)
	e.ok("types", "add", "Kamera")

	assert.Contains(t, decode[[]string](t, e.ok("types", "list", "--json")), "Kamera")
	data, err := os.ReadFile(filepath.Join(e.configDir, "settings.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Kamera")

	// A fresh data directory is seeded from the saved defaults.
	other := &cliEnv{t: t, configDir: e.configDir, dataDir: filepath.Join(t.TempDir(), "other")}
	assert.Contains(t, decode[[]string](t, other.ok("types", "list", "--json")), "Kamera")
}

func TestImportExport(t *testing.T) {
	e := newCLIEnv(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "bestand.csv")
	csv := "Objekttyp;Hersteller;Modell;Seriennummer;Einkaufsdatum;Stillgelegt\n" +
		"Notebook;Acme;X1;SN1;01.02.2020;nein\n" +
		"Monitor;Dell;P24;;gestern;nein\n" +
		";;;;;\n" +
		"Drucker;HP;M404;SN3;;ja\n"
	require.NoError(t, os.WriteFile(src, []byte(csv), 0o644))

	out, errOut, code := e.run("import", src, "--dry-run")
	require.Equal(t, exitSuccess, code, errOut)
	assert.Equal(t, "Read 2 record(s), 1 row error(s), 1 empty row(s)\n", out)
	assert.Contains(t, errOut, "row 3")
	assert.Empty(t, decode[[]types.Record](t, e.ok("list", "--json")))

	summary := decode[importSummary](t, e.ok("import", src, "--json"))
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, summary.Errors, 1)
	assert.NotEmpty(t, summary.BatchID)

	listed := decode[[]types.Record](t, e.ok("list", "--json"))
	require.Len(t, listed, 2)
	assert.Equal(t, "Drucker", listed[0].ObjectType)
	assert.Equal(t, types.DeactivationMarker, listed[0].Notes)

	for _, name := range []string{"out.csv", "out.json", "out.xlsx"} {
		dst := filepath.Join(dir, name)
		assert.Equal(t, fmt.Sprintf("Exported 1 record(s) to %s\n", dst), e.ok("export", dst, "object_type=notebook"))
		assert.FileExists(t, dst)
	}

	exported := decode[[]types.Record](t, readFile(t, filepath.Join(dir, "out.json")))
	require.Len(t, exported, 1)
	assert.Equal(t, "2020-02-01", exported[0].PurchaseDate)

	_, errOut, code = e.run("import", filepath.Join(dir, "missing.csv"))
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "missing.csv")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestConfigFileAndEnvironment(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	config := "backend: json\njson_file: bestand.json\ndefault_holder: Zentrale\n"
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, configFileExt), []byte(config), 0o644))

	res := decode[initResult](t, e.ok("init", "--json"))
	assert.Equal(t, types.BackendJSON, res.Backend)
	assert.Equal(t, filepath.Join(e.dataDir, "bestand.json"), res.Path)

	e.ok("add", "--type", "Tablet", "--holder", "Ann")
	e.ok("clear", "owner", "Ann")
	assert.Equal(t, []string{"Zentrale"}, decode[[]string](t, e.ok("distinct", "owner", "--json")))

	t.Setenv("INVENTAR_BACKEND", "sqlite")
	res = decode[initResult](t, e.ok("init", "--json"))
	assert.Equal(t, types.BackendSQLite, res.Backend)
}

func TestVersionSkipsSetup(t *testing.T) {
	e := newCLIEnv(t)
	out := e.ok("version")
	assert.Contains(t, out, "inventar "+Version)
	assert.NoDirExists(t, e.configDir)
}

func TestRootHelpListsCommands(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())
	for _, name := range []string{"list", "add", "deactivate", "clear", "custom", "import", "export", "reconcile"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"not found", fmt.Errorf("get: %w", types.ErrNotFound), exitUserError},
		{"storage", &types.StorageError{Backend: types.BackendSQLite, Err: errors.New("locked")}, exitSysError},
		{"not initialized", types.ErrNotInitialized, exitSysError},
		{"coded", withCode(exitSysError, errors.New("disk")), exitSysError},
		{"plain", errors.New("bad input"), exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

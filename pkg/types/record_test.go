package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCopy(t *testing.T) {
	orig := Record{ID: 7, ObjectType: "Notebook", Manufacturer: "Acme", Notes: "n"}

	c := orig.Copy(WithManufacturer("Globex"), WithDeactivated(true))

	assert.Equal(t, int64(7), c.ID, "ID must be preserved")
	assert.Equal(t, "Globex", c.Manufacturer)
	assert.True(t, c.Deactivated)
	assert.Equal(t, "Notebook", c.ObjectType)
	assert.Equal(t, "Acme", orig.Manufacturer, "original must not change")
	assert.Equal(t, orig, orig.Copy())
}

func TestWithDeactivationNote(t *testing.T) {
	tests := []struct {
		name  string
		in    Record
		notes string
	}{
		{
			name:  "active record unchanged",
			in:    Record{Notes: "keep"},
			notes: "keep",
		},
		{
			name:  "empty notes get marker only",
			in:    Record{Deactivated: true},
			notes: DeactivationMarker,
		},
		{
			name:  "marker appended on new line",
			in:    Record{Deactivated: true, Notes: "broken screen"},
			notes: "broken screen\n" + DeactivationMarker,
		},
		{
			name:  "no extra newline when notes end in one",
			in:    Record{Deactivated: true, Notes: "line\n"},
			notes: "line\n" + DeactivationMarker,
		},
		{
			name:  "existing marker in other case is kept",
			in:    Record{Deactivated: true, Notes: "STILLGELEGT seit 2023"},
			notes: "STILLGELEGT seit 2023",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.WithDeactivationNote()
			assert.Equal(t, tt.notes, got.Notes)
			assert.Equal(t, got, got.WithDeactivationNote(), "must be idempotent")
		})
	}
}

func TestWithoutDeactivationNoteRestoresNotes(t *testing.T) {
	for _, notes := range []string{
		"",
		"single line",
		"first\nsecond",
		"has stillgelegt inside a sentence\nand more",
		"  indented\n\nblank line above",
	} {
		r := Record{Notes: notes, Deactivated: true}
		marked := r.WithDeactivationNote()
		if r.HasDeactivationNote() {
			assert.Equal(t, notes, marked.Notes)
			continue
		}
		restored := marked.Copy(WithDeactivated(false)).WithoutDeactivationNote()
		assert.Equal(t, notes, restored.Notes, "notes %q", notes)
	}
}

func TestWithoutDeactivationNoteOnlyRemovesMarkerLine(t *testing.T) {
	r := Record{Notes: "Stillgelegt\nreturned by Bob\nstillgelegt"}
	got := r.WithoutDeactivationNote()
	assert.Equal(t, "Stillgelegt\nreturned by Bob", got.Notes)

	plain := Record{Notes: "no marker here"}
	assert.Equal(t, plain, plain.WithoutDeactivationNote())
}

func TestRecordField(t *testing.T) {
	r := Record{ObjectType: "Monitor", Notes: "n", CurrentHolder: "Ann"}
	for _, name := range SearchableFields {
		_, ok := r.Field(name)
		assert.True(t, ok, name)
	}
	v, _ := r.Field(FieldCurrentHolder)
	assert.Equal(t, "Ann", v)

	_, ok := r.Field("price")
	assert.False(t, ok)
}

func TestRecordJSONNulls(t *testing.T) {
	r := Record{ID: 3, ObjectType: "Tablet", Deactivated: true}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "manufacturer")
	assert.Nil(t, raw["manufacturer"], "absent fields are explicit null")
	assert.Equal(t, "Tablet", raw["object_type"])
	assert.Equal(t, true, raw["deactivated"])

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestRecordJSONBlankIsAbsent(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":null,"model":"  ","notes":" x "}`), &r))
	assert.Equal(t, int64(0), r.ID)
	assert.Equal(t, "", r.Model)
	assert.Equal(t, "x", r.Notes)
}

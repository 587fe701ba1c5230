package jsonfile

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/cs121/verwaltung-db/internal/query"
	"github.com/cs121/verwaltung-db/internal/schema"
	"github.com/cs121/verwaltung-db/pkg/types"
)

// document is the in-memory and on-disk state of the flat file.
type document struct {
	Items        []types.Record      `json:"items"`
	CustomValues map[string][]string `json:"custom_values"`
	ObjectTypes  []string            `json:"object_types"`
}

// rawDocument is the on-disk shape before normalization.
type rawDocument struct {
	Items        []schema.NamedFields `json:"items"`
	CustomValues map[string][]string  `json:"custom_values"`
	ObjectTypes  []string             `json:"object_types"`
}

var errMalformed = errors.New("malformed document")

func newDocument(objectTypes []string) document {
	return document{
		CustomValues: make(map[string][]string),
		ObjectTypes:  query.Distinct(objectTypes),
	}
}

// decode parses data. A bare top-level array is read as the item list of a
// document without custom values. Items pass through the normalizer, so
// legacy field names load too; items without an id, and items repeating an
// id already taken by an earlier item, are numbered after the highest id.
func decode(data []byte, seed []string, log *zap.Logger) (document, error) {
	data = bytes.TrimSpace(data)
	doc := newDocument(seed)
	if len(data) == 0 {
		return doc, nil
	}

	var raw rawDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	switch data[0] {
	case '[':
		if err := dec.Decode(&raw.Items); err != nil {
			return document{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
	case '{':
		if err := dec.Decode(&raw); err != nil {
			return document{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
	default:
		return document{}, fmt.Errorf("%w: unexpected %q", errMalformed, data[0])
	}

	var unnumbered []int
	seen := make(map[int64]bool, len(raw.Items))
	for i, item := range raw.Items {
		if item == nil {
			continue
		}
		r, issues, err := schema.NormalizeReport(item)
		if err != nil {
			return document{}, fmt.Errorf("item %d: %w", i, err)
		}
		for _, is := range issues {
			log.Warn("unreadable value replaced",
				zap.Int("item", i),
				zap.String("field", is.Field),
				zap.Any("value", is.Value),
				zap.Error(is.Err))
		}
		if r.ID != 0 && seen[r.ID] {
			log.Warn("duplicate id renumbered", zap.Int("item", i), zap.Int64("id", r.ID))
			r.ID = 0
		}
		if r.ID == 0 {
			unnumbered = append(unnumbered, len(doc.Items))
		} else {
			seen[r.ID] = true
		}
		doc.Items = append(doc.Items, r)
	}
	for _, i := range unnumbered {
		doc.Items[i].ID = doc.nextID()
	}
	slices.SortStableFunc(doc.Items, func(a, b types.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})

	for category, values := range raw.CustomValues {
		c, err := schema.Category(category)
		if err != nil {
			continue
		}
		doc.CustomValues[c] = query.Distinct(append(doc.CustomValues[c], values...))
	}

	names := append(slices.Clone(doc.ObjectTypes), raw.ObjectTypes...)
	for _, r := range doc.Items {
		names = append(names, r.ObjectType)
	}
	doc.ObjectTypes = query.Distinct(names)
	return doc, nil
}

// encode renders the document with sorted, deduplicated side lists.
func (d document) encode() ([]byte, error) {
	out := document{
		Items:        d.Items,
		CustomValues: make(map[string][]string, len(d.CustomValues)),
		ObjectTypes:  query.Distinct(d.ObjectTypes),
	}
	if out.Items == nil {
		out.Items = []types.Record{}
	}
	for c, values := range d.CustomValues {
		if v := query.Distinct(values); len(v) > 0 {
			out.CustomValues[c] = v
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// clone returns a deep copy that mutations can work on until it is saved.
func (d document) clone() document {
	c := document{
		Items:        slices.Clone(d.Items),
		CustomValues: make(map[string][]string, len(d.CustomValues)),
		ObjectTypes:  slices.Clone(d.ObjectTypes),
	}
	for k, v := range d.CustomValues {
		c.CustomValues[k] = slices.Clone(v)
	}
	return c
}

// nextID returns the highest id plus one.
func (d document) nextID() int64 {
	var highest int64
	for _, r := range d.Items {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest + 1
}

func (d document) index(id int64) int {
	return slices.IndexFunc(d.Items, func(r types.Record) bool { return r.ID == id })
}

func (d *document) registerObjectType(name string) {
	name = strings.TrimSpace(name)
	if name == "" || query.ContainsFolded(d.ObjectTypes, name) {
		return
	}
	d.ObjectTypes = append(d.ObjectTypes, name)
}

func (d *document) unregisterObjectType(name string) {
	key := query.Fold(name)
	d.ObjectTypes = slices.DeleteFunc(d.ObjectTypes, func(n string) bool {
		return query.Fold(n) == key
	})
}

// Package query implements the filtering, ordering and distinct-value rules
// shared by every storage backend, so that all backends list identically.
package query

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/cs121/verwaltung-db/pkg/types"
)

// Fold returns s in full Unicode case-folded form.
func Fold(s string) string {
	return cases.Fold().String(s)
}

var searchable = func() map[string]bool {
	m := make(map[string]bool, len(types.SearchableFields))
	for _, f := range types.SearchableFields {
		m[f] = true
	}
	return m
}()

// predicate is a compiled filter set.
type predicate struct {
	fields map[string]string // field -> folded term
	global string            // folded global term, "" when unset
}

func compile(filters types.Filters) (predicate, error) {
	p := predicate{fields: make(map[string]string)}
	for key, value := range filters {
		term := Fold(strings.TrimSpace(value))
		if key == types.GlobalSearchKey {
			p.global = term
			continue
		}
		if !searchable[key] {
			return predicate{}, fmt.Errorf("%w: %q", types.ErrInvalidFilter, key)
		}
		if term == "" {
			continue
		}
		p.fields[key] = term
	}
	return p, nil
}

func (p predicate) match(r types.Record) bool {
	for field, term := range p.fields {
		v, _ := r.Field(field)
		if !strings.Contains(Fold(v), term) {
			return false
		}
	}
	if p.global == "" {
		return true
	}
	for _, field := range types.SearchableFields {
		v, _ := r.Field(field)
		if strings.Contains(Fold(v), p.global) {
			return true
		}
	}
	return false
}

// Validate reports ErrInvalidFilter for filter keys that name no
// searchable field.
func Validate(filters types.Filters) error {
	_, err := compile(filters)
	return err
}

// Apply returns the records matching filters in list order. Per-field terms
// are case-insensitive substring matches ANDed together; the global term
// matches when any searchable field contains it. The input is not modified.
func Apply(records []types.Record, filters types.Filters) ([]types.Record, error) {
	p, err := compile(filters)
	if err != nil {
		return nil, err
	}
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if p.match(r) {
			out = append(out, r)
		}
	}
	Sort(out)
	return out, nil
}

// Sort orders records by object type, then model, case-insensitively, with
// the id as final tiebreak.
func Sort(records []types.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if x, y := Fold(a.ObjectType), Fold(b.ObjectType); x != y {
			return x < y
		}
		if x, y := Fold(a.Model), Fold(b.Model); x != y {
			return x < y
		}
		return a.ID < b.ID
	})
}

// Distinct returns the non-blank values deduplicated case-insensitively, in
// case-folded ascending order. Of several spellings the first one seen is
// kept.
func Distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := Fold(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	SortFolded(out)
	return out
}

// SortFolded sorts values case-insensitively, breaking ties bytewise.
func SortFolded(values []string) {
	sort.SliceStable(values, func(i, j int) bool {
		x, y := Fold(values[i]), Fold(values[j])
		if x != y {
			return x < y
		}
		return values[i] < values[j]
	})
}

// ContainsFolded reports whether values holds v ignoring case.
func ContainsFolded(values []string, v string) bool {
	key := Fold(strings.TrimSpace(v))
	for _, existing := range values {
		if Fold(existing) == key {
			return true
		}
	}
	return false
}

// Repair returns the records whose notes disagree with their deactivated
// flag, already repaired.
func Repair(records []types.Record) []types.Record {
	var fixed []types.Record
	for _, r := range records {
		if rr := r.Reconciled(); rr != r {
			fixed = append(fixed, rr)
		}
	}
	return fixed
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cs121/verwaltung-db/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// flushTrimmed flushes a tabwriter buffer to w without trailing blanks.
func flushTrimmed(w io.Writer, sb *strings.Builder, tw *tabwriter.Writer) error {
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func status(r types.Record) string {
	if r.Deactivated {
		return "deactivated"
	}
	return "active"
}

// printRecords prints records as a table, or as a JSON array in JSON mode.
func (a *app) printRecords(w io.Writer, records []types.Record) error {
	if a.flags.jsonMode {
		if records == nil {
			records = []types.Record{}
		}
		return writeJSON(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tMANUFACTURER\tMODEL\tSERIAL\tHOLDER\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ObjectType, r.Manufacturer, r.Model, r.SerialNumber, r.CurrentHolder, status(r))
	}
	if err := flushTrimmed(w, &sb, tw); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total: %d record(s)\n", len(records))
	return err
}

// printRecord prints one record as field/value lines.
func (a *app) printRecord(w io.Writer, r types.Record) error {
	if a.flags.jsonMode {
		return writeJSON(w, r)
	}
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s:\t%d\n", types.FieldID, r.ID)
	for _, f := range types.SearchableFields {
		v, _ := r.Field(f)
		if f == types.FieldNotes {
			v = strings.ReplaceAll(v, "\n", " / ")
		}
		fmt.Fprintf(tw, "%s:\t%s\n", f, v)
	}
	fmt.Fprintf(tw, "%s:\t%t\n", types.FieldDeactivated, r.Deactivated)
	return flushTrimmed(w, &sb, tw)
}

// printValues prints one value per line, or a JSON array.
func (a *app) printValues(w io.Writer, values []string) error {
	if a.flags.jsonMode {
		if values == nil {
			values = []string{}
		}
		return writeJSON(w, values)
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return err
		}
	}
	return nil
}

// printCount prints the result of a bulk change.
func (a *app) printCount(w io.Writer, key string, n int, format string) error {
	if a.flags.jsonMode {
		return writeJSON(w, map[string]int{key: n})
	}
	_, err := fmt.Fprintf(w, format+"\n", n)
	return err
}

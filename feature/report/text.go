package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"koala-diff/core/diff"
)

// WriteText writes a terminal summary of the report.
func WriteText(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "Comparison %s\n", r.ID)
	fmt.Fprintf(w, "  source: %s (%d rows)\n", r.Source, r.SourceRows)
	fmt.Fprintf(w, "  target: %s (%d rows)\n", r.Target, r.TargetRows)
	fmt.Fprintf(w, "  key:    %s\n", strings.Join(r.KeyColumns, ", "))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tKEYS")
	for _, c := range []diff.Classification{diff.Matched, diff.Modified, diff.Added, diff.Removed, diff.DuplicateKey} {
		fmt.Fprintf(tw, "%s\t%d\n", c, r.Counts[c])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nmatch integrity: %.4f (%d pairs compared in %dms, fanout %d)\n",
		r.MatchIntegrity, r.ComparedPairs, r.ElapsedMS, r.Fanout)

	if len(r.SchemaDrift) > 0 {
		fmt.Fprintln(w, "\nschema drift:")
		for _, d := range r.SchemaDrift {
			switch d.Kind {
			case "kind_changed":
				fmt.Fprintf(w, "  %s: %s -> %s\n", d.Column, d.SourceKind, d.TargetKind)
			default:
				fmt.Fprintf(w, "  %s: %s\n", d.Column, d.Kind)
			}
		}
	}

	changed := changedColumns(r)
	if len(changed) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\ncolumn drift:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tCHANGED\tMATCH RATE\tNULL>VAL\tVAL>NULL\tMEAN DELTA\tVARIANCE")
	for _, c := range changed {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%d\t%d\t%.4g\t%.4g\n",
			c.Name, c.Changed, c.MatchRate, c.NulledToValue, c.ValueToNulled, c.MeanDelta, c.DeltaVariance)
	}
	return tw.Flush()
}

// changedColumns filters the column reports down to those with at least one
// change, keeping the text summary focused.
func changedColumns(r *Report) []ColumnReport {
	var out []ColumnReport
	for _, c := range r.Columns {
		if c.Changed > 0 {
			out = append(out, c)
		}
	}
	return out
}

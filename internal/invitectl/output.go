package invitectl

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// Printer renders command results as indented JSON or as text.
type Printer struct {
	Format string
	Writer io.Writer
}

// Print writes v as JSON, or calls text for the human-readable form.
func (p *Printer) Print(v any, text func(w io.Writer)) error {
	if p.Format == "json" {
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.Writer)
	return nil
}

// Table writes rows aligned under header.
func Table(w io.Writer, header []any, rows [][]any) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeRow(tw, header)
	for _, r := range rows {
		writeRow(tw, r)
	}
	_ = tw.Flush()
}

func writeRow(w io.Writer, cols []any) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

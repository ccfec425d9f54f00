package importer

import (
	"fmt"
	"io"
	"strings"
)

const summaryRule = 50

// WriteSummary prints the human-readable result of a run.
func (r Report) WriteSummary(w io.Writer) error {
	var builder strings.Builder

	rule := strings.Repeat("=", summaryRule)
	builder.WriteString("\n" + rule + "\n")
	builder.WriteString("Import complete!\n")
	if r.DryRun {
		builder.WriteString("  Dry run: no changes were committed\n")
	}
	fmt.Fprintf(&builder, "  Inserted: %d employees\n", r.Inserted)
	fmt.Fprintf(&builder, "  Failed: %d employees\n", r.Failed)
	fmt.Fprintf(&builder, "  Total in database: %d\n", r.Total)
	builder.WriteString(rule + "\n")

	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	return nil
}

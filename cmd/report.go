package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/ridoystarlord/dupfix/cleaner"
)

func printFixResult(w io.Writer, res *cleaner.Result, dryRun bool) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	cyan := color.New(color.FgCyan)

	if !res.Changed {
		green.Fprintf(w, "✅ No changes needed: %s\n", res.Path)
		printSkipped(w, res.Skipped)
		return
	}

	if dryRun {
		yellow.Fprintf(w, "🔍 Changes needed: %s\n", res.Path)
	} else {
		green.Fprintf(w, "✅ Migration fixed: %d duplicate artifacts removed\n", res.TotalRemoved())
	}
	for _, cat := range cleaner.Categories {
		cyan.Fprintf(w, "   • %s removed: %d\n", cat.Label(), res.Removed[cat])
	}
	cyan.Fprintf(w, "   • Cascade deletes rewritten: %d\n", res.Rewritten)
	printSkipped(w, res.Skipped)

	if dryRun {
		fmt.Fprintln(w, "(Dry run only. No files were written.)")
		return
	}
	fmt.Fprintf(w, "📁 Updated: %s\n", res.Path)
}

func printSkipped(w io.Writer, skipped []cleaner.Skip) {
	if len(skipped) == 0 {
		return
	}
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(w, "⚠️  %d duplicate declarations left in place:\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(w, "   - line %d: %s (%s)\n", s.Line, s.Text, s.Reason)
	}
}

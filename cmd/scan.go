package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/ridoystarlord/dupfix/cleaner"
	"github.com/spf13/cobra"
)

var (
	scanFix    bool
	scanCheck  bool
	scanFormat string
)

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Report duplicate relation artifacts in every migration under a directory",
	Long: `Walk a directory and run the cleaner over every file matching the
configured include globs (default *.cs). Nothing is written unless --fix is set.

Examples:
  dupfix scan src/Modules/Stocker.Modules.CRM            # Report only
  dupfix scan Migrations --fix                           # Fix every file
  dupfix scan Migrations --check                         # Exit 1 if anything needs fixing
  dupfix scan Migrations --format json                   # Machine readable report
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		needsFix, err := runScan(cmd.Context(), os.Stdout, args[0])
		if err != nil {
			fmt.Printf("❌ Scan failed: %v\n", err)
			os.Exit(1)
		}
		if scanCheck && needsFix {
			os.Exit(1)
		}
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanFix, "fix", false, "Write the cleaned files")
	scanCmd.Flags().BoolVar(&scanCheck, "check", false, "Exit with status 1 when any file needs changes")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "text", "Output format (text, json)")
}

var errScanFailures = errors.New("some files could not be cleaned")

type scanFile struct {
	Path   string          `json:"path"`
	Result *cleaner.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type scanReport struct {
	Root       string     `json:"root"`
	Fixed      bool       `json:"fixed"`
	Files      []scanFile `json:"files"`
	Scanned    int        `json:"scanned"`
	NeedsFix   int        `json:"needs_fix"`
	Errors     int        `json:"errors"`
	TotalFound int        `json:"artifacts"`
}

// runScan reports whether any file needed changes. The report is always
// written; files that could not be read or cleaned turn into errScanFailures.
func runScan(ctx context.Context, w io.Writer, root string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if scanFormat != "text" && scanFormat != "json" {
		return false, fmt.Errorf("unknown format %q (want text or json)", scanFormat)
	}

	c, err := newCleaner()
	if err != nil {
		return false, err
	}
	outcomes, err := c.FixDir(ctx, root, cleaner.BatchOptions{
		Include: cfg.Include,
		DryRun:  !scanFix,
		Workers: cfg.Workers,
	})
	if err != nil {
		return false, err
	}

	report := scanReport{Root: root, Fixed: scanFix, Scanned: len(outcomes)}
	for _, o := range outcomes {
		f := scanFile{Path: o.Path, Result: o.Result}
		switch {
		case o.Err != nil:
			f.Error = o.Err.Error()
			report.Errors++
		case o.Result.Changed:
			report.NeedsFix++
			report.TotalFound += o.Result.TotalRemoved()
		}
		report.Files = append(report.Files, f)
	}

	if scanFormat == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return false, err
		}
	} else {
		printScanReport(w, report)
	}
	if report.Errors > 0 {
		return report.NeedsFix > 0, fmt.Errorf("%w (%d of %d)", errScanFailures, report.Errors, report.Scanned)
	}
	return report.NeedsFix > 0, nil
}

func printScanReport(w io.Writer, report scanReport) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Fprintf(w, "📋 Migration scan: %s\n", report.Root)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	for _, f := range report.Files {
		switch {
		case f.Error != "":
			red.Fprintf(w, "❌ %s\n", f.Error)
		case f.Result.Changed:
			verb := "needs fixing"
			if report.Fixed {
				verb = "fixed"
			}
			yellow.Fprintf(w, "🔧 %s %s: %d removed, %d cascade rewritten\n",
				f.Path, verb, f.Result.TotalRemoved(), f.Result.Rewritten)
			printSkipped(w, f.Result.Skipped)
		default:
			printSkipped(w, f.Result.Skipped)
		}
	}

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "📊 Scanned %d files: %d with changes, %d errors\n", report.Scanned, report.NeedsFix, report.Errors)
	if report.NeedsFix == 0 && report.Errors == 0 {
		green.Fprintln(w, "✅ No duplicate relation artifacts found")
	} else if !report.Fixed && report.NeedsFix > 0 {
		fmt.Fprintln(w, "💡 Run with --fix to write the changes.")
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ridoystarlord/dupfix/database"
	"github.com/ridoystarlord/dupfix/introspect"
	"github.com/spf13/cobra"
)

var (
	dbCheckTimeout time.Duration
	dbCheckSchemas []string
	dbCheckFormat  string
	dbCheckStrict  bool
)

var dbCheckCmd = &cobra.Command{
	Use:   "db-check",
	Short: "Look for duplicate relation columns and cascading keys in a live database",
	Long: `Connect to the PostgreSQL database in DATABASE_URL (environment or .env)
and report what the duplicate relations already left behind.

This command will:
- Verify database connectivity
- List columns ending with the duplicate suffix
- List foreign keys built on those columns
- List foreign keys that still cascade on delete

Examples:
  dupfix db-check                          # Check the configured schemas
  dupfix db-check --schema crm --schema hr # Check specific schemas
  dupfix db-check --timeout 30s            # Set custom timeout
  dupfix db-check --strict                 # Exit 1 when anything is found
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		clean, err := runDBCheck(os.Stdout)
		if err != nil {
			fmt.Printf("❌ Database check failed: %v\n", err)
			os.Exit(1)
		}
		if dbCheckStrict && !clean {
			os.Exit(1)
		}
	},
}

func init() {
	dbCheckCmd.Flags().DurationVarP(&dbCheckTimeout, "timeout", "t", 0, "Timeout for the check (default from config)")
	dbCheckCmd.Flags().StringSliceVarP(&dbCheckSchemas, "schema", "s", nil, "Schema to inspect (default from config)")
	dbCheckCmd.Flags().StringVarP(&dbCheckFormat, "format", "f", "text", "Output format (text, json)")
	dbCheckCmd.Flags().BoolVar(&dbCheckStrict, "strict", false, "Exit with status 1 when anything is found")
}

func runDBCheck(w io.Writer) (bool, error) {
	timeout := dbCheckTimeout
	if timeout <= 0 {
		timeout = cfg.Database.Timeout
	}
	schemas := dbCheckSchemas
	if len(schemas) == 0 {
		schemas = cfg.Database.Schemas
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := database.GetPool(ctx, logger)
	if err != nil {
		return false, fmt.Errorf("failed to get database pool: %w", err)
	}
	defer database.ClosePool()

	report, err := introspect.Inspect(ctx, pool, cfg.Rules(), schemas)
	if err != nil {
		return false, err
	}

	if dbCheckFormat == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return report.Clean(), encoder.Encode(report)
	}
	printDBReport(w, report, schemas)
	return report.Clean(), nil
}

func printDBReport(w io.Writer, report *introspect.Report, schemas []string) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Fprintf(w, "🗄️  Database check (%s)\n", strings.Join(schemas, ", "))
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if report.Clean() {
		green.Fprintln(w, "✅ No duplicate relation columns or cascading keys found")
		return
	}

	if len(report.Columns) > 0 {
		red.Fprintf(w, "\n🔴 Duplicate columns (%d):\n", len(report.Columns))
		for i, c := range report.Columns {
			nullable := "NOT NULL"
			if c.IsNullable {
				nullable = "NULL"
			}
			fmt.Fprintf(w, "  %d. [%s.%s].%s %s %s\n", i+1, c.Schema, c.TableName, c.ColumnName, c.DataType, nullable)
		}
	}

	if len(report.ForeignKeys) > 0 {
		red.Fprintf(w, "\n🔴 Foreign keys on duplicate columns (%d):\n", len(report.ForeignKeys))
		for i, fk := range report.ForeignKeys {
			fmt.Fprintf(w, "  %d. [%s.%s] %s (%s, ON DELETE %s)\n", i+1, fk.Schema, fk.TableName, fk.ConstraintName, fk.ColumnName, fk.OnDelete)
		}
	}

	if len(report.Cascades) > 0 {
		yellow.Fprintf(w, "\n🟡 Cascading foreign keys (%d):\n", len(report.Cascades))
		for i, fk := range report.Cascades {
			fmt.Fprintf(w, "  %d. [%s.%s] %s (%s)\n", i+1, fk.Schema, fk.TableName, fk.ConstraintName, fk.ColumnName)
		}
	}

	fmt.Fprintf(w, "\n📊 Summary:\n")
	fmt.Fprintf(w, "  • Duplicate columns: %d\n", len(report.Columns))
	fmt.Fprintf(w, "  • Duplicate foreign keys: %d\n", len(report.ForeignKeys))
	fmt.Fprintf(w, "  • Cascading foreign keys: %d\n", len(report.Cascades))
	fmt.Fprintln(w, "\n💡 Fix the migrations with 'dupfix scan --fix' and add a migration that drops these columns.")
}

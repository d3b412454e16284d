package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ridoystarlord/dupfix/cleaner"
	"github.com/ridoystarlord/dupfix/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "dev"

// skipConfig marks commands that must run even when the config file is broken.
const skipConfig = "dupfix/skip-config"

var errUsage = errors.New("expected exactly one migration file")

var (
	cfgFile   string
	verbose   bool
	dryRunFix bool

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "dupfix <migration-file>",
	Short: "Remove duplicate relation artifacts from EF Core migrations",
	Long: `dupfix cleans a generated EF Core migration or model snapshot of the
artifacts left by an accidental duplicate relation: shadow columns such as
CustomerId1, their foreign keys and indexes, their snapshot declarations, and
it rewrites cascading deletes to NoAction.

Examples:

  dupfix Migrations/20251122235505_InitialPostgreSQL_CRM.cs
  dupfix --dry-run Migrations/CRMDbContextModelSnapshot.cs
  dupfix scan Migrations/
  dupfix watch Migrations/
`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zapcore.WarnLevel
		if verbose {
			level = zapcore.DebugLevel
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		l, err := zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l

		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger.Debug("configuration loaded",
			zap.String("suffix", cfg.Suffix),
			zap.Strings("column_types", cfg.ColumnTypes))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		err := runRoot(os.Stdout, cmd, args)
		if errors.Is(err, errUsage) {
			os.Exit(1)
		}
		if err != nil {
			fmt.Println("❌ Error:", err)
			os.Exit(1)
		}
	},
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// Register subcommands
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&dryRunFix, "dry-run", false, "Report what would be removed without writing the file")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(dbCheckCmd)
	rootCmd.AddCommand(initCmd)
}

func newCleaner() (*cleaner.Cleaner, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	return cleaner.New(cfg.Rules(), cleaner.WithLogger(logger))
}

// runRoot prints the usage to w and returns errUsage unless args holds
// exactly one path.
func runRoot(w io.Writer, cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		cmd.SetOut(w)
		_ = cmd.Usage()
		return errUsage
	}
	return runFix(w, args[0], dryRunFix)
}

// runFix cleans one migration document and reports the outcome to w.
func runFix(w io.Writer, path string, dryRun bool) error {
	c, err := newCleaner()
	if err != nil {
		return err
	}
	res, err := c.FixFile(path, dryRun)
	if err != nil {
		return err
	}
	printFixResult(w, res, dryRun)
	return nil
}

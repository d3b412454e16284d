package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ridoystarlord/dupfix/cleaner"
	"github.com/ridoystarlord/dupfix/watcher"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Fix migrations as soon as the EF tooling writes them",
	Long: `Watch a migrations directory and clean every matching file once it has
stopped changing. Leave it running while you call 'dotnet ef migrations add'.

Examples:
  dupfix watch Infrastructure/Persistence/Migrations
  dupfix watch Migrations --debounce 1s
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runWatch(ctx, args[0]); err != nil {
			fmt.Printf("❌ Watch failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "How long a file must stay unchanged before it is cleaned")
}

func runWatch(ctx context.Context, dir string) error {
	c, err := newCleaner()
	if err != nil {
		return err
	}

	w, err := watcher.New(dir, c, cfg.Include,
		watcher.WithDebounce(watchDebounce),
		watcher.WithLogger(logger),
		watcher.OnFix(func(res *cleaner.Result) {
			printFixResult(os.Stdout, res, false)
		}),
	)
	if err != nil {
		return err
	}

	fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", dir)
	if err := w.Run(ctx); err != nil {
		return err
	}

	stats := w.Stats()
	fmt.Printf("📊 Checked %d files, fixed %d, %d errors\n", stats.FilesChecked, stats.FilesFixed, stats.Errors)
	return nil
}

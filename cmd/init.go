package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ridoystarlord/dupfix/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an example " + config.DefaultFile,
	Long: `Write an example configuration file with the built-in defaults.

Examples:
  dupfix init            # Create .dupfix.yaml
  dupfix init --force    # Overwrite an existing .dupfix.yaml
`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeExampleConfig(os.Stdout, config.DefaultFile, initForce); err != nil {
			fmt.Println("❌", err)
			os.Exit(1)
		}
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

var errConfigExists = errors.New("config file already exists (use --force to overwrite)")

func writeExampleConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s: %w", path, errConfigExists)
	}
	if err := os.WriteFile(path, []byte(config.Example), 0644); err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	fmt.Fprintf(w, "✅ Created %s\n", path)
	fmt.Fprintln(w, "📝 Edit the suffix and cascade rewrites to match your project")
	fmt.Fprintln(w, "🚀 Run 'dupfix scan <migrations-dir>' to see what would change")
	return nil
}

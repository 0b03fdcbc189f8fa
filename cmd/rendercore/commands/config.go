package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the configuration after defaults, KRC_* environment variables
and flags have been merged.`,
	Example: `  # Show configuration as YAML (default)
  rendercore config show

  # Show configuration as JSON
  rendercore config show --format json`,
	RunE: runConfigShow,
}

func init() {
	configShowCmd.Flags().String("format", "yaml", "output format (yaml, json)")
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "yaml":
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "rendercore",
	Short: "Kitsune RenderCore - looping video wallpapers for Wayland",
	Long: `Kitsune RenderCore paints looping videos behind your desktop on
wlr layer-shell compositors (Hyprland, sway, river, ...).

Each monitor gets its own background layer surface and its own video,
selected through a hot-reloadable mapping file. Rendering pauses
automatically while a game is in the foreground.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("backend", "auto", "render backend (stub, wayland, auto)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Bool("pretty", false, "human-readable console logging")
	pf.String("map-file", "", "monitor-video mapping file (default is $HOME/.config/kitsune-rendercore/video-map.conf)")

	viper.BindPFlag("backend", pf.Lookup("backend"))
	viper.BindPFlag("log_level", pf.Lookup("log-level"))
	viper.BindPFlag("pretty", pf.Lookup("pretty"))
	viper.BindPFlag("map_file", pf.Lookup("map-file"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())
	logger.Init(viper.GetString("log_level"), viper.GetBool("pretty"))
}

// loadConfig materializes the full configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Manage the monitor-video mapping",
	Long: `Inspect and edit the mapping file that assigns a video to each
monitor. The running daemon picks up edits within about a second.`,
}

var mapShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective monitor-video mapping",
	RunE:  runMapShow,
}

var mapSetCmd = &cobra.Command{
	Use:   "set MONITOR VIDEO",
	Short: "Map a monitor to a video file",
	Example: `  rendercore map set DP-1 ~/Videos/ocean.mp4
  rendercore map set HDMI-A-1 ~/Videos/forest.mp4`,
	Args: cobra.ExactArgs(2),
	RunE: runMapSet,
}

var mapPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the mapping file location",
	RunE:  runMapPath,
}

func init() {
	mapCmd.AddCommand(mapShowCmd)
	mapCmd.AddCommand(mapSetCmd)
	mapCmd.AddCommand(mapPathCmd)
	rootCmd.AddCommand(mapCmd)
}

func runMapShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := videomap.NewStore(cfg.MapFile, cfg.DefaultVideo, cfg.VideoMapEnv)
	mappings := store.Snapshot()
	monitors := make([]string, 0, len(mappings))
	for monitor := range mappings {
		monitors = append(monitors, monitor)
	}
	sort.Strings(monitors)

	for _, monitor := range monitors {
		fmt.Printf("%s=%s\n", monitor, mappings[monitor])
	}
	if cfg.DefaultVideo != "" {
		fmt.Printf("(default)=%s\n", cfg.DefaultVideo)
	}
	if len(monitors) == 0 && cfg.DefaultVideo == "" {
		fmt.Println("no mappings configured")
	}
	return nil
}

func runMapSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	monitor, video := args[0], args[1]
	if err := videomap.SetMonitorVideo(cfg.MapFile, monitor, video); err != nil {
		return err
	}
	fmt.Printf("%s=%s written to %s\n", monitor, video, cfg.MapFile)
	return nil
}

func runMapPath(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Println(cfg.MapFile)
	return nil
}

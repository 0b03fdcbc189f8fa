package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/runtime"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List the monitors the backend can see",
	Long: `Bootstrap the backend, print every discovered monitor with its mode
and the video currently mapped to it, then exit.`,
	RunE: runMonitors,
}

func init() {
	rootCmd.AddCommand(monitorsCmd)
}

func runMonitors(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := videomap.NewStore(cfg.MapFile, cfg.DefaultVideo, cfg.VideoMapEnv)
	b, err := runtime.SelectBackend(cfg, store)
	if err != nil {
		return err
	}
	if err := b.Bootstrap(); err != nil {
		return err
	}
	defer b.Close()

	monitors, err := b.DiscoverMonitors()
	if err != nil {
		return err
	}

	for _, m := range monitors {
		video := "<none>"
		if path, ok := store.Resolve(m.Name); ok {
			video = path
		}
		fmt.Printf("%-12s %4dx%-4d @%dHz  %s\n", m.Name, m.Width, m.Height, m.RefreshHz, video)
	}
	return nil
}

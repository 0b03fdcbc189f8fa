package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/api"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/pause"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/runtime"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wallpaper daemon",
	Long: `Connect to the compositor, create one background layer surface per
monitor, and render looping videos until interrupted.`,
	Example: `  # Same video on every monitor
  rendercore run --default-video ~/Videos/loop.mp4

  # Per-monitor selection via mapping file, 30 fps pacing
  rendercore run --fps 30

  # Headless smoke test without a compositor
  rendercore run --backend stub --max-frames 120

  # Expose the status API
  rendercore run --status-port 7474`,
	RunE: runDaemon,
}

func init() {
	f := runCmd.Flags()
	f.Int("fps", 60, "target frames per second")
	f.Uint64("max-frames", 0, "stop after this many frames (0 = run forever)")
	f.Int("video-fps", 30, "decoder output frame rate")
	f.Float64("speed", 1.0, "video playback speed multiplier")
	f.String("hwaccel", "auto", "decoder hardware acceleration (auto, none, nvdec, vaapi)")
	f.String("quality", "", "decode resolution preset (low, medium, high, ultra)")
	f.Int("source-width", 0, "explicit decode width (overrides quality preset)")
	f.Int("source-height", 0, "explicit decode height (overrides quality preset)")
	f.String("default-video", "", "video for monitors without a mapping entry")
	f.Bool("pause-on-game", true, "pause rendering while a game is in the foreground")
	f.String("game-detector", "steam", "game detection strategy (steam, gamemode, none)")
	f.Int("status-port", 0, "serve the status API on this port (0 = disabled)")

	viper.BindPFlag("target_fps", f.Lookup("fps"))
	viper.BindPFlag("max_frames", f.Lookup("max-frames"))
	viper.BindPFlag("video_fps", f.Lookup("video-fps"))
	viper.BindPFlag("speed", f.Lookup("speed"))
	viper.BindPFlag("hwaccel", f.Lookup("hwaccel"))
	viper.BindPFlag("quality", f.Lookup("quality"))
	viper.BindPFlag("source_width", f.Lookup("source-width"))
	viper.BindPFlag("source_height", f.Lookup("source-height"))
	viper.BindPFlag("default_video", f.Lookup("default-video"))
	viper.BindPFlag("pause_on_game", f.Lookup("pause-on-game"))
	viper.BindPFlag("game_detector", f.Lookup("game-detector"))
	viper.BindPFlag("status_port", f.Lookup("status-port"))

	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("main")

	store := videomap.NewStore(cfg.MapFile, cfg.DefaultVideo, cfg.VideoMapEnv)
	gate := pause.NewGate(runtime.BuildDetector(cfg))

	b, err := runtime.SelectBackend(cfg, store)
	if err != nil {
		return err
	}
	rt := runtime.New(cfg, b, gate)

	if cfg.StatusPort > 0 {
		srv := api.NewServer(rt, store)
		go func() {
			if err := srv.Start(cfg.StatusPort); err != nil {
				log.Error().Err(err).Msg("status API server failed")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("backend", b.Name()).
		Str("map_file", cfg.MapFile).
		Msg("kitsune-rendercore starting")
	return rt.Run(ctx)
}

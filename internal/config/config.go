package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// HWAccel selects the decoder hardware acceleration hint.
type HWAccel string

const (
	HWAccelAuto  HWAccel = "auto"
	HWAccelNone  HWAccel = "none"
	HWAccelNvdec HWAccel = "nvdec"
	HWAccelVaapi HWAccel = "vaapi"
)

// ParseHWAccel maps user input to a known acceleration hint. Unknown
// values fall back to auto, matching the decoder's own probing.
func ParseHWAccel(s string) HWAccel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return HWAccelNone
	case "nvdec", "cuda":
		return HWAccelNvdec
	case "vaapi":
		return HWAccelVaapi
	default:
		return HWAccelAuto
	}
}

// VideoOptions are the per-decoder tuning knobs shared by every stream.
type VideoOptions struct {
	FPS     int     `json:"fps" yaml:"fps"`
	Speed   float64 `json:"speed" yaml:"speed"`
	HWAccel HWAccel `json:"hwaccel" yaml:"hwaccel"`
}

// Config is the full runtime configuration of the render core.
type Config struct {
	Backend      string        `json:"backend" yaml:"backend"`
	TargetFPS    int           `json:"target_fps" yaml:"target_fps"`
	MaxFrames    uint64        `json:"max_frames" yaml:"max_frames"`
	Video        VideoOptions  `json:"video" yaml:"video"`
	Quality      string        `json:"quality" yaml:"quality"`
	SourceWidth  int           `json:"source_width" yaml:"source_width"`
	SourceHeight int           `json:"source_height" yaml:"source_height"`
	MapFile      string        `json:"map_file" yaml:"map_file"`
	DefaultVideo string        `json:"default_video" yaml:"default_video"`
	VideoMapEnv  string        `json:"video_map" yaml:"video_map"`
	PauseOnGame  bool          `json:"pause_on_game" yaml:"pause_on_game"`
	GamePoll     time.Duration `json:"game_poll" yaml:"game_poll"`
	GameDetector string        `json:"game_detector" yaml:"game_detector"`
	StatusPort   int           `json:"status_port" yaml:"status_port"`
	LogLevel     string        `json:"log_level" yaml:"log_level"`
	Pretty       bool          `json:"pretty" yaml:"pretty"`
}

// DefaultMapFilePath returns the per-user location of the video mapping
// file, KRC_VIDEO_MAP_FILE overrides it.
func DefaultMapFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "kitsune-rendercore", "video-map.conf")
}

// SetDefaults registers every configuration key with its default value
// and its KRC_* environment binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", "auto")
	v.SetDefault("target_fps", 60)
	v.SetDefault("max_frames", 0)
	v.SetDefault("video_fps", 30)
	v.SetDefault("speed", 1.0)
	v.SetDefault("hwaccel", "auto")
	v.SetDefault("quality", "")
	v.SetDefault("source_width", 0)
	v.SetDefault("source_height", 0)
	v.SetDefault("map_file", "")
	v.SetDefault("default_video", "")
	v.SetDefault("video_map", "")
	v.SetDefault("pause_on_game", true)
	v.SetDefault("game_poll_ms", 1500)
	v.SetDefault("game_detector", "steam")
	v.SetDefault("status_port", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty", false)

	v.SetEnvPrefix("KRC")
	v.AutomaticEnv()
	// Legacy names carried over from earlier releases.
	v.BindEnv("default_video", "KRC_VIDEO_DEFAULT", "KRC_VIDEO")
	v.BindEnv("hwaccel", "KRC_HWACCEL")
	v.BindEnv("speed", "KRC_VIDEO_SPEED")
	v.BindEnv("pause_on_game", "KRC_PAUSE_ON_STEAM_GAME")
	v.BindEnv("game_poll_ms", "KRC_STEAM_POLL_MS")
}

// FromViper materializes a Config from v, applying range clamps that keep
// downstream components out of degenerate states.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Backend:      v.GetString("backend"),
		TargetFPS:    v.GetInt("target_fps"),
		MaxFrames:    v.GetUint64("max_frames"),
		Quality:      v.GetString("quality"),
		SourceWidth:  v.GetInt("source_width"),
		SourceHeight: v.GetInt("source_height"),
		MapFile:      v.GetString("map_file"),
		DefaultVideo: v.GetString("default_video"),
		VideoMapEnv:  v.GetString("video_map"),
		PauseOnGame:  v.GetBool("pause_on_game"),
		GameDetector: v.GetString("game_detector"),
		StatusPort:   v.GetInt("status_port"),
		LogLevel:     v.GetString("log_level"),
		Pretty:       v.GetBool("pretty"),
		Video: VideoOptions{
			FPS:     v.GetInt("video_fps"),
			Speed:   v.GetFloat64("speed"),
			HWAccel: ParseHWAccel(v.GetString("hwaccel")),
		},
	}

	if cfg.TargetFPS < 1 {
		cfg.TargetFPS = 1
	}
	if cfg.Video.FPS < 1 {
		cfg.Video.FPS = 30
	}
	if cfg.Video.Speed <= 0 {
		cfg.Video.Speed = 1.0
	}
	if cfg.SourceWidth < 0 || cfg.SourceHeight < 0 {
		return nil, fmt.Errorf("source resolution must be positive, got %dx%d",
			cfg.SourceWidth, cfg.SourceHeight)
	}
	if cfg.MapFile == "" {
		cfg.MapFile = DefaultMapFilePath()
	}

	pollMS := v.GetInt("game_poll_ms")
	if pollMS < 100 {
		pollMS = 1500
	}
	cfg.GamePoll = time.Duration(pollMS) * time.Millisecond

	return cfg, nil
}

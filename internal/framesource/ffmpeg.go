package framesource

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

// spawnFunc starts one decoder subprocess and returns the started command
// together with its captured stdout. Tests substitute it to simulate a
// decoder without ffmpeg installed.
type spawnFunc func() (*exec.Cmd, io.ReadCloser, error)

// FFmpeg wraps one external ffmpeg decoder subprocess that loops a video
// indefinitely and emits raw RGBA frames on stdout.
type FFmpeg struct {
	path   string
	width  int
	height int
	opts   config.VideoOptions

	spawn  spawnFunc
	cmd    *exec.Cmd
	stdout io.ReadCloser
	closed bool
}

// NewFFmpeg spawns the decoder for path scaled and center-cropped to
// width x height. The subprocess decodes video only: no audio, no
// subtitles, no data streams.
func NewFFmpeg(path string, width, height int, opts config.VideoOptions) (*FFmpeg, error) {
	f := &FFmpeg{
		path:   path,
		width:  width,
		height: height,
		opts:   opts,
	}
	f.spawn = f.spawnDecoder

	if err := f.start(); err != nil {
		return nil, err
	}
	logger.WithComponent("framesource").Info().
		Str("path", path).
		Int("width", width).
		Int("height", height).
		Int("fps", opts.FPS).
		Float64("speed", opts.Speed).
		Str("hwaccel", string(opts.HWAccel)).
		Msg("ffmpeg source enabled")
	return f, nil
}

// Path returns the video path this decoder loops.
func (f *FFmpeg) Path() string { return f.path }

func (f *FFmpeg) start() error {
	cmd, stdout, err := f.spawn()
	if err != nil {
		return err
	}
	f.cmd = cmd
	f.stdout = stdout
	return nil
}

func (f *FFmpeg) spawnDecoder() (*exec.Cmd, io.ReadCloser, error) {
	cmd := exec.Command("ffmpeg", buildFFmpegArgs(f.path, f.width, f.height, f.opts)...)
	cmd.Stdin = nil
	cmd.Stderr = nil
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to capture ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to spawn ffmpeg: %w", err)
	}
	return cmd, stdout, nil
}

// buildFFmpegArgs assembles the decoder invocation: loop forever, video
// stream only, timestamp rescale for playback speed, resample to the
// target rate, aspect-preserving scale+crop to the exact target size,
// raw RGBA rows on stdout with no container framing.
func buildFFmpegArgs(path string, width, height int, opts config.VideoOptions) []string {
	vf := fmt.Sprintf(
		"setpts=PTS/%.4f,fps=%d,scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		opts.Speed, opts.FPS, width, height, width, height,
	)

	args := []string{"-hide_banner", "-loglevel", "error"}
	switch opts.HWAccel {
	case config.HWAccelAuto:
		args = append(args, "-hwaccel", "auto")
	case config.HWAccelNvdec:
		args = append(args, "-hwaccel", "cuda")
	case config.HWAccelVaapi:
		args = append(args, "-hwaccel", "vaapi")
	case config.HWAccelNone:
	}
	args = append(args,
		"-stream_loop", "-1",
		"-i", path,
		"-an", "-sn", "-dn",
		"-vf", vf,
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"-",
	)
	return args
}

// FillNextFrame blocks until one full frame is read into dst. On clean
// end-of-stream or a broken pipe the subprocess is restarted once and the
// read retried; any other failure is logged and reported as "no update".
func (f *FFmpeg) FillNextFrame(dst []byte) bool {
	if f.closed {
		return false
	}
	if err := f.fill(dst); err != nil {
		logger.WithComponent("framesource").Warn().
			Str("path", f.path).
			Err(err).
			Msg("ffmpeg frame read failed")
		return false
	}
	return true
}

func (f *FFmpeg) fill(dst []byte) error {
	if f.stdout == nil {
		// A previous restart failed and left no decoder behind. Try the
		// spawn again on this tick instead of reading a nil pipe.
		if err := f.restart(); err != nil {
			return fmt.Errorf("ffmpeg restart failed: %w", err)
		}
	}
	_, err := io.ReadFull(f.stdout, dst)
	if err == nil {
		return nil
	}
	if !isStreamEnd(err) {
		return fmt.Errorf("failed to read ffmpeg frame: %w", err)
	}

	if err := f.restart(); err != nil {
		return fmt.Errorf("ffmpeg restart failed: %w", err)
	}
	if _, err := io.ReadFull(f.stdout, dst); err != nil {
		return fmt.Errorf("failed to read frame after restart: %w", err)
	}
	return nil
}

// restart kills, reaps and respawns the decoder with identical
// parameters. Frame loops hit this at every end of a non-looping stream
// and whenever the decoder dies underneath us.
func (f *FFmpeg) restart() error {
	f.reap()
	logger.WithComponent("framesource").Info().
		Str("path", f.path).
		Msg("restarting ffmpeg decoder")
	return f.start()
}

func (f *FFmpeg) reap() {
	if f.stdout != nil {
		f.stdout.Close()
	}
	if f.cmd != nil && f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
		_ = f.cmd.Wait()
	}
	f.cmd = nil
	f.stdout = nil
}

// Close terminates and reaps the subprocess. No decoder is ever left
// attached past the lifetime of its source.
func (f *FFmpeg) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.reap()
}

func isStreamEnd(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrClosedPipe)
}

// FrameSize returns the byte length of one raw RGBA frame.
func FrameSize(width, height int) int {
	return width * height * 4
}

package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/backend"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/pause"
)

type fixedDetector struct{ running bool }

func (d *fixedDetector) GameRunning() bool { return d.running }

func testConfig() *config.Config {
	return &config.Config{
		Backend:   "stub",
		TargetFPS: 1000,
		MaxFrames: 3,
	}
}

func TestRunStopsAtFrameBound(t *testing.T) {
	b := backend.NewStub()
	rt := New(testConfig(), b, pause.NewGate(nil))

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := b.Stats().FrameIndex; got != 3 {
		t.Fatalf("frames rendered = %d, want 3", got)
	}

	snap := rt.Snapshot()
	if snap.Backend != "stub" {
		t.Errorf("snapshot backend = %q, want stub", snap.Backend)
	}
	if snap.Paused {
		t.Error("snapshot must not report paused after a clean run")
	}
	if len(snap.Monitors) != 2 {
		t.Errorf("snapshot monitors = %d, want 2", len(snap.Monitors))
	}
}

func TestRunHoldsFramesWhileGameRuns(t *testing.T) {
	b := backend.NewStub()
	rt := New(testConfig(), b, pause.NewGate(&fixedDetector{running: true}))
	rt.pauseSlice = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := rt.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := b.Stats().FrameIndex; got != 0 {
		t.Fatalf("frames rendered while paused = %d, want 0", got)
	}
	if !rt.Snapshot().Paused {
		t.Error("snapshot must report paused")
	}
}

func TestRunResumesAfterGameCloses(t *testing.T) {
	b := backend.NewStub()
	det := &fixedDetector{running: true}
	rt := New(testConfig(), b, pause.NewGate(det))
	rt.pauseSlice = time.Millisecond

	go func() {
		time.Sleep(10 * time.Millisecond)
		det.running = false
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rt.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := b.Stats().FrameIndex; got != 3 {
		t.Fatalf("frames rendered = %d, want 3", got)
	}
}

func TestSelectBackendRejectsUnknownName(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "x11"
	if _, err := SelectBackend(cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend name")
	}
}

func TestSelectBackendStub(t *testing.T) {
	b, err := SelectBackend(testConfig(), nil)
	if err != nil {
		t.Fatalf("SelectBackend: %v", err)
	}
	if b.Name() != "stub" {
		t.Fatalf("backend = %q, want stub", b.Name())
	}
}

func TestSelectBackendAutoWithoutSession(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "")
	cfg := testConfig()
	cfg.Backend = "auto"
	b, err := SelectBackend(cfg, nil)
	if err != nil {
		t.Fatalf("SelectBackend: %v", err)
	}
	if b.Name() != "stub" {
		t.Fatalf("backend = %q, want stub", b.Name())
	}
}

func TestBuildDetectorDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.PauseOnGame = false
	if _, ok := BuildDetector(cfg).(pause.Disabled); !ok {
		t.Fatal("pause disabled must yield the disabled detector")
	}

	cfg.PauseOnGame = true
	cfg.GameDetector = "none"
	if _, ok := BuildDetector(cfg).(pause.Disabled); !ok {
		t.Fatal("detector \"none\" must yield the disabled detector")
	}
}

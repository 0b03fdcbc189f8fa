package pause

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

type fakeDetector struct{ running bool }

func (f *fakeDetector) GameRunning() bool { return f.running }

func TestGateLogsEachEdgeOnce(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	det := &fakeDetector{}
	g := NewGate(det)

	// Held false: no edges.
	for i := 0; i < 5; i++ {
		if g.ShouldPause() {
			t.Fatal("gate paused with no game running")
		}
	}

	det.running = true
	for i := 0; i < 7; i++ {
		if !g.ShouldPause() {
			t.Fatal("gate did not pause with game running")
		}
	}

	det.running = false
	for i := 0; i < 5; i++ {
		if g.ShouldPause() {
			t.Fatal("gate stayed paused after game closed")
		}
	}

	out := buf.String()
	if got := strings.Count(out, "pausing wallpaper render"); got != 1 {
		t.Errorf("pausing edge logged %d times, want 1\n%s", got, out)
	}
	if got := strings.Count(out, "resuming wallpaper render"); got != 1 {
		t.Errorf("resuming edge logged %d times, want 1\n%s", got, out)
	}
}

func TestSteamDetectorCachesBetweenPolls(t *testing.T) {
	probes := 0
	now := time.Now()
	d := NewSteamDetector(time.Second)
	d.now = func() time.Time { return now }
	d.probe = func() bool { probes++; return true }

	for i := 0; i < 10; i++ {
		if !d.GameRunning() {
			t.Fatal("probe result not propagated")
		}
	}
	if probes != 1 {
		t.Fatalf("probe ran %d times within one interval, want 1", probes)
	}

	now = now.Add(2 * time.Second)
	d.GameRunning()
	if probes != 2 {
		t.Fatalf("probe did not re-run after interval, probes=%d", probes)
	}
}

func TestSteamDetectorMinimumInterval(t *testing.T) {
	d := NewSteamDetector(time.Millisecond)
	if d.pollInterval != 1500*time.Millisecond {
		t.Errorf("tiny interval not lifted to default: %v", d.pollInterval)
	}
}

// buildProcEntry fabricates one /proc/<pid> directory.
func buildProcEntry(t *testing.T, root, pid, cmdline, environ, state string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("cmdline", cmdline)
	write("environ", environ)
	write("stat", pid+" (game) "+state+" 1 1 1")
}

func TestDetectSteamGame(t *testing.T) {
	cases := []struct {
		name    string
		cmdline string
		environ string
		state   string
		want    bool
	}{
		{"steamapps game", "/home/u/.local/share/Steam/steamapps/common/Game/bin\x00-fullscreen", "", "S", true},
		{"proton app id", "/usr/bin/wine\x00game.exe", "SteamAppId=620\x00PATH=/usr/bin", "S", true},
		{"steam client excluded", "/usr/lib/steam/steamapps/common/x\x00steamwebhelper", "", "S", false},
		{"utility app id", "/usr/bin/thing", "SteamAppId=769\x00", "S", false},
		{"zombie ignored", "/steamapps/common/Game", "", "Z", false},
		{"plain process", "/usr/bin/firefox", "HOME=/home/u", "S", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			buildProcEntry(t, root, "4242", tc.cmdline, tc.environ, tc.state)
			if got := detectSteamGame(root); got != tc.want {
				t.Errorf("detectSteamGame = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsRealGameAppID(t *testing.T) {
	for id, want := range map[string]bool{
		"620":     true,
		"0":       false,
		"480":     false,
		"229000":  false,
		"garbage": false,
	} {
		if got := isRealGameAppID(id); got != want {
			t.Errorf("isRealGameAppID(%q) = %v, want %v", id, got, want)
		}
	}
}

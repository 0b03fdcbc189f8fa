package videomap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeMapFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "video-map.conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write map file: %v", err)
	}
	return path
}

func TestResolvePrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeMapFile(t, dir, "A=/videos/v1.mp4\n")

	s := NewStore(path, "/videos/v4.mp4", "A:/videos/v2.mp4;B:/videos/v3.mp4")

	cases := []struct {
		monitor string
		want    string
	}{
		{"A", "/videos/v1.mp4"}, // file beats env
		{"B", "/videos/v3.mp4"}, // env beats default
		{"C", "/videos/v4.mp4"}, // default applies last
	}
	for _, tc := range cases {
		got, ok := s.Resolve(tc.monitor)
		if !ok || got != tc.want {
			t.Errorf("Resolve(%q) = %q, %v; want %q, true", tc.monitor, got, ok, tc.want)
		}
	}
}

func TestResolveNoVideo(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing.conf"), "", "")
	if got, ok := s.Resolve("DP-1"); ok {
		t.Errorf("Resolve on empty store = %q, true; want no video", got)
	}
}

func TestParseMapSkipsCommentsAndMalformedLines(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"# a comment",
		"",
		"DP-1=/videos/a.mp4",
		"no-equals-sign",
		"  =missing-monitor",
		"HDMI-A-1= ",
		"DP-1=/videos/b.mp4", // last wins
	}, "\n"))
	m := parseMap(in)
	if len(m) != 1 {
		t.Fatalf("parseMap kept %d entries, want 1: %v", len(m), m)
	}
	if m["DP-1"] != "/videos/b.mp4" {
		t.Errorf("duplicate entry resolved to %q, want last assignment", m["DP-1"])
	}
}

func TestParseEnvMap(t *testing.T) {
	m := ParseEnvMap(" DP-1:/a.mp4 ; HDMI-A-1:/b.mp4 ;; broken ")
	if len(m) != 2 || m["DP-1"] != "/a.mp4" || m["HDMI-A-1"] != "/b.mp4" {
		t.Errorf("ParseEnvMap = %v", m)
	}
	if len(ParseEnvMap("")) != 0 {
		t.Error("empty env value should parse to empty map")
	}
}

func TestMaybeReloadIdempotentWithinInterval(t *testing.T) {
	dir := t.TempDir()
	path := writeMapFile(t, dir, "A=/videos/v1.mp4\n")

	now := time.Now()
	s := NewStore(path, "", "")
	s.now = func() time.Time { return now }

	// Within the poll interval neither call may stat the file.
	s.MaybeReload()
	s.MaybeReload()
	if s.statCalls != 0 {
		t.Fatalf("stat calls within interval = %d, want 0", s.statCalls)
	}

	// Past the interval: exactly one stat for the due call, none for the
	// immediate follow-up.
	now = now.Add(2 * time.Second)
	s.MaybeReload()
	if s.statCalls != 1 {
		t.Fatalf("stat calls after interval = %d, want 1", s.statCalls)
	}
	s.MaybeReload()
	if s.statCalls != 1 {
		t.Fatalf("second call inside fresh interval added a stat: %d", s.statCalls)
	}
}

func TestMaybeReloadPicksUpFileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeMapFile(t, dir, "A=/videos/v1.mp4\n")

	now := time.Now()
	s := NewStore(path, "", "")
	s.now = func() time.Time { return now }

	if err := os.WriteFile(path, []byte("A=/videos/v2.mp4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Force a visible mtime difference regardless of filesystem resolution.
	newMtime := s.lastMtime.Add(2 * time.Second)
	if err := os.Chtimes(path, newMtime, newMtime); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Second)
	if !s.MaybeReload() {
		t.Fatal("MaybeReload did not report a change")
	}
	if got, _ := s.Resolve("A"); got != "/videos/v2.mp4" {
		t.Errorf("Resolve(A) after reload = %q", got)
	}

	// Unchanged mtime: due check stats but does not re-parse or report.
	now = now.Add(2 * time.Second)
	if s.MaybeReload() {
		t.Error("MaybeReload reported a change with unchanged mtime")
	}
}

func TestSetMonitorVideoRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "video-map.conf")

	if err := SetMonitorVideo(path, "DP-1", "/videos/a.mp4"); err != nil {
		t.Fatalf("SetMonitorVideo: %v", err)
	}
	if err := SetMonitorVideo(path, "HDMI-A-1", "/videos/b.mp4"); err != nil {
		t.Fatalf("SetMonitorVideo: %v", err)
	}
	// Rewriting an existing monitor must preserve the other entry.
	if err := SetMonitorVideo(path, "DP-1", "/videos/c.mp4"); err != nil {
		t.Fatalf("SetMonitorVideo: %v", err)
	}

	m := ParseMapFile(path)
	if len(m) != 2 {
		t.Fatalf("round-trip kept %d entries, want 2: %v", len(m), m)
	}
	if m["DP-1"] != "/videos/c.mp4" {
		t.Errorf("DP-1 = %q, want rewritten value", m["DP-1"])
	}
	if m["HDMI-A-1"] != "/videos/b.mp4" {
		t.Errorf("HDMI-A-1 = %q, want preserved value", m["HDMI-A-1"])
	}
}

func TestSetMonitorVideoRejectsEmptyArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video-map.conf")
	if err := SetMonitorVideo(path, " ", "/v.mp4"); err == nil {
		t.Error("empty monitor accepted")
	}
	if err := SetMonitorVideo(path, "DP-1", ""); err == nil {
		t.Error("empty video accepted")
	}
}

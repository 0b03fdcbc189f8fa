// Package pause suspends rendering while a foreground game runs.
package pause

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Detector reports whether a foreground game is currently active.
// Implementations cache their answer behind a bounded poll rate; calling
// GameRunning every frame is expected and cheap.
type Detector interface {
	GameRunning() bool
}

// Disabled is the always-off detector used when pausing is turned off.
type Disabled struct{}

func (Disabled) GameRunning() bool { return false }

// Steam client and non-game utility app ids that cause false positives.
var nonGameAppIDs = map[uint32]bool{
	7:      true,
	228980: true,
	229000: true,
	480:    true,
	769:    true,
}

// SteamDetector scans the process table for running Steam games. The
// scan walks /proc at most once per poll interval and caches the result
// in between.
type SteamDetector struct {
	pollInterval time.Duration
	lastProbe    time.Time
	lastResult   bool
	probed       bool

	now   func() time.Time
	probe func() bool
}

// NewSteamDetector builds a detector polling no more often than
// pollInterval. Intervals under 100ms are lifted to the 1.5s default.
func NewSteamDetector(pollInterval time.Duration) *SteamDetector {
	if pollInterval < 100*time.Millisecond {
		pollInterval = 1500 * time.Millisecond
	}
	return &SteamDetector{
		pollInterval: pollInterval,
		now:          time.Now,
		probe:        func() bool { return detectSteamGame("/proc") },
	}
}

// GameRunning returns the cached probe result, refreshing it when the
// poll interval has elapsed.
func (d *SteamDetector) GameRunning() bool {
	if d.probed && d.now().Sub(d.lastProbe) < d.pollInterval {
		return d.lastResult
	}
	d.lastProbe = d.now()
	d.probed = true
	d.lastResult = d.probe()
	return d.lastResult
}

// detectSteamGame reports whether any live process looks like a running
// Steam game rather than the Steam client or its runtime helpers.
func detectSteamGame(procRoot string) bool {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		pid := entry.Name()
		if !isNumeric(pid) {
			continue
		}
		p := filepath.Join(procRoot, pid)
		if isZombie(p) {
			continue
		}
		if isSteamGameProcess(p) {
			return true
		}
	}
	return false
}

func isSteamGameProcess(procPath string) bool {
	raw, _ := os.ReadFile(filepath.Join(procPath, "cmdline"))
	cmd := nulJoin(raw)
	cmdLower := strings.ToLower(cmd)

	// The client itself and its runtime are never games.
	if strings.Contains(cmdLower, "steamwebhelper") ||
		strings.HasSuffix(cmdLower, "/steam") ||
		strings.Contains(cmdLower, "/steam.sh") ||
		strings.Contains(cmdLower, "steam-runtime") {
		return false
	}

	if strings.Contains(cmd, "steamapps/common/") {
		return true
	}

	// Proton/Steam game processes usually export one of these env vars.
	raw, err := os.ReadFile(filepath.Join(procPath, "environ"))
	if err != nil {
		return false
	}
	envBlob := nulJoin(raw)
	for _, key := range []string{"SteamAppId", "SteamGameId", "STEAM_COMPAT_APP_ID"} {
		if v, ok := envValue(envBlob, key); ok && isRealGameAppID(v) {
			return true
		}
	}
	return false
}

func envValue(blob, key string) (string, bool) {
	prefix := key + "="
	for _, entry := range strings.Fields(blob) {
		if v, ok := strings.CutPrefix(entry, prefix); ok {
			return v, true
		}
	}
	return "", false
}

func isRealGameAppID(v string) bool {
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil || id == 0 {
		return false
	}
	return !nonGameAppIDs[uint32(id)]
}

func isZombie(procPath string) bool {
	stat, err := os.ReadFile(filepath.Join(procPath, "stat"))
	if err != nil {
		return false
	}
	s := string(stat)
	end := strings.LastIndexByte(s, ')')
	if end < 0 {
		return false
	}
	fields := strings.Fields(s[end+1:])
	return len(fields) > 0 && fields[0] == "Z"
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func nulJoin(b []byte) string {
	return strings.ReplaceAll(string(b), "\x00", " ")
}

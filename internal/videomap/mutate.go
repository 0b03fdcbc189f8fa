package videomap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SetMonitorVideo rewrites one monitor's entry in the mapping file at
// path, preserving every other entry. The file is rewritten whole with
// sorted keys so concurrent readers only ever see a consistent mapping.
func SetMonitorVideo(path, monitor, video string) error {
	monitor = strings.TrimSpace(monitor)
	video = strings.TrimSpace(video)
	if monitor == "" {
		return fmt.Errorf("monitor is empty")
	}
	if video == "" {
		return fmt.Errorf("video path is empty")
	}

	m := ParseMapFile(path)
	m[monitor] = video

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create map directory %s: %w", dir, err)
		}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("# monitor=/absolute/path/video.mp4\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%s\n", k, m[k])
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

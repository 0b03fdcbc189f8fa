// Package videomap resolves which video file plays on which monitor.
//
// Three layers merge, most specific wins: a user-editable mapping file,
// a process-environment mapping, and a single default video. The file is
// the only cross-process mutation point and is re-read when its mtime
// changes; the other two layers are fixed for the process lifetime.
package videomap

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

const defaultPollInterval = time.Second

// Store holds the merged monitor→video mapping and reload bookkeeping.
type Store struct {
	mapFile      string
	defaultVideo string
	envMap       map[string]string
	fileMap      map[string]string

	pollInterval time.Duration
	lastCheck    time.Time
	lastMtime    time.Time
	haveMtime    bool

	now       func() time.Time
	statCalls int
}

// NewStore builds a store over mapFile, the raw KRC_VIDEO_MAP environment
// value and the global default video path (empty for none). The file is
// parsed once up front; later changes are picked up by MaybeReload.
func NewStore(mapFile, defaultVideo, envRaw string) *Store {
	s := &Store{
		mapFile:      mapFile,
		defaultVideo: strings.TrimSpace(defaultVideo),
		envMap:       ParseEnvMap(envRaw),
		fileMap:      ParseMapFile(mapFile),
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	s.lastCheck = s.now()
	if st, err := os.Stat(mapFile); err == nil {
		s.lastMtime = st.ModTime()
		s.haveMtime = true
	}
	return s
}

// MapFile returns the path of the backing mapping file.
func (s *Store) MapFile() string { return s.mapFile }

// Resolve returns the video for monitor, or ok=false when no layer has an
// entry. Precedence: file mapping, environment mapping, default.
func (s *Store) Resolve(monitor string) (string, bool) {
	if v, ok := s.fileMap[monitor]; ok {
		return v, true
	}
	if v, ok := s.envMap[monitor]; ok {
		return v, true
	}
	if s.defaultVideo != "" {
		return s.defaultVideo, true
	}
	return "", false
}

// Snapshot returns a copy of the merged mapping for reporting.
func (s *Store) Snapshot() map[string]string {
	merged := make(map[string]string, len(s.envMap)+len(s.fileMap))
	for k, v := range s.envMap {
		merged[k] = v
	}
	for k, v := range s.fileMap {
		merged[k] = v
	}
	return merged
}

// MaybeReload re-reads the mapping file if the poll interval elapsed and
// the file's mtime moved. It reports whether the mapping changed; callers
// re-resolve their monitors on true. The file is untrusted racy input, a
// half-written line parses to nothing rather than failing the reload.
func (s *Store) MaybeReload() bool {
	if s.now().Sub(s.lastCheck) < s.pollInterval {
		return false
	}
	s.lastCheck = s.now()
	s.statCalls++

	st, err := os.Stat(s.mapFile)
	if err != nil {
		if s.haveMtime {
			// File disappeared: drop its layer.
			s.haveMtime = false
			s.lastMtime = time.Time{}
			s.fileMap = map[string]string{}
			logger.WithComponent("videomap").Warn().
				Str("file", s.mapFile).
				Msg("mapping file removed, falling back to env/default layers")
			return true
		}
		return false
	}
	if s.haveMtime && st.ModTime().Equal(s.lastMtime) {
		return false
	}
	s.lastMtime = st.ModTime()
	s.haveMtime = true

	s.fileMap = ParseMapFile(s.mapFile)
	logger.WithComponent("videomap").Info().
		Str("file", s.mapFile).
		Int("entries", len(s.fileMap)).
		Msg("mapping file reloaded")
	return true
}

// ParseMapFile parses path as a mapping file. Missing or unreadable files
// yield an empty mapping.
func ParseMapFile(path string) map[string]string {
	f, err := os.Open(path)
	if err != nil {
		return map[string]string{}
	}
	defer f.Close()
	return parseMap(f)
}

// parseMap reads `monitor=path` lines. Blank lines and #-comments are
// skipped, malformed lines are ignored, the last assignment wins.
func parseMap(r io.Reader) map[string]string {
	m := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		monitor, video, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		monitor = strings.TrimSpace(monitor)
		video = strings.TrimSpace(video)
		if monitor == "" || video == "" {
			continue
		}
		m[monitor] = video
	}
	return m
}

// ParseEnvMap parses the `monitor:path;monitor:path` environment form.
func ParseEnvMap(raw string) map[string]string {
	m := map[string]string{}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		monitor, video, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		monitor = strings.TrimSpace(monitor)
		video = strings.TrimSpace(video)
		if monitor == "" || video == "" {
			continue
		}
		m[monitor] = video
	}
	return m
}

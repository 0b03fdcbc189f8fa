package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/backend"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/pause"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/runtime"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

func testServer(t *testing.T) (*Server, *videomap.Store) {
	t.Helper()
	mapFile := filepath.Join(t.TempDir(), "video-map.conf")
	store := videomap.NewStore(mapFile, "", "")
	rt := runtime.New(&config.Config{Backend: "stub", TargetFPS: 60}, backend.NewStub(), pause.NewGate(nil))
	return NewServer(rt, store), store
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestStatusEndpointReportsBackend(t *testing.T) {
	s, _ := testServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snap runtime.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Paused {
		t.Error("fresh runtime must not be paused")
	}
}

func TestSetMapEndpointWritesMapFile(t *testing.T) {
	s, store := testServer(t)

	body := strings.NewReader(`{"video": "/videos/loop.mp4"}`)
	req := httptest.NewRequest("PUT", "/api/map/DP-1", body)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	data, err := os.ReadFile(store.MapFile())
	if err != nil {
		t.Fatalf("read map file: %v", err)
	}
	if !strings.Contains(string(data), "DP-1=/videos/loop.mp4") {
		t.Fatalf("map file content = %q", data)
	}

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/map", nil))
	if !strings.Contains(rec.Body.String(), "/videos/loop.mp4") {
		t.Fatalf("map listing = %s", rec.Body.String())
	}
}

func TestSetMapEndpointRejectsBadJSON(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest("PUT", "/api/map/DP-1", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

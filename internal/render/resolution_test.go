package render

import "testing"

func TestChooseSourceResolutionPresets(t *testing.T) {
	cases := []struct {
		quality string
		width   uint32
		height  uint32
	}{
		{"low", 1280, 720},
		{"720p", 1280, 720},
		{"medium", 1920, 1080},
		{"1080p", 1920, 1080},
		{"high", 2560, 1440},
		{"ultra", 3840, 2160},
		{"4k", 3840, 2160},
		{"2160p", 3840, 2160},
		{"ULTRA", 3840, 2160},
		{"", 960, 540},
		{"potato", 960, 540},
	}
	for _, tc := range cases {
		w, h := ChooseSourceResolution(tc.quality, 0, 0, 16384)
		if w != tc.width || h != tc.height {
			t.Errorf("quality %q: got %dx%d, want %dx%d", tc.quality, w, h, tc.width, tc.height)
		}
	}
}

func TestChooseSourceResolutionOverridesBeatPreset(t *testing.T) {
	w, h := ChooseSourceResolution("ultra", 640, 0, 16384)
	if w != 640 || h != 2160 {
		t.Fatalf("got %dx%d, want 640x2160", w, h)
	}
	w, h = ChooseSourceResolution("", 0, 480, 16384)
	if w != 960 || h != 480 {
		t.Fatalf("got %dx%d, want 960x480", w, h)
	}
}

func TestChooseSourceResolutionClampsUniformly(t *testing.T) {
	w, h := ChooseSourceResolution("ultra", 0, 0, 2048)
	if w != 2048 || h != 1152 {
		t.Fatalf("got %dx%d, want 2048x1152", w, h)
	}
}

func TestChooseSourceResolutionZeroLimitSkipsClamp(t *testing.T) {
	w, h := ChooseSourceResolution("ultra", 0, 0, 0)
	if w != 3840 || h != 2160 {
		t.Fatalf("got %dx%d, want 3840x2160", w, h)
	}
}

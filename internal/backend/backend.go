// Package backend defines the capability interface the render loop
// drives, keeping it agnostic of the concrete compositor integration.
package backend

import "errors"

// Monitor describes one discovered output. ID is the stable numeric
// handle the compositor assigned at discovery; Name is the connector
// name users put in the mapping file (DP-1, HDMI-A-1, ...).
type Monitor struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Width     uint32 `json:"width"`
	Height    uint32 `json:"height"`
	RefreshHz uint32 `json:"refresh_hz"`
}

// LayerRole is the compositor layer a surface is placed on. Only the
// background layer is used; the type exists so surface specs stay
// self-describing in logs and status output.
type LayerRole string

const LayerBackground LayerRole = "background"

// SurfaceSpec pairs a monitor with its requested layer role.
type SurfaceSpec struct {
	Monitor Monitor   `json:"monitor"`
	Layer   LayerRole `json:"layer"`
}

// Stats is a point-in-time snapshot of backend progress for status
// reporting. All fields are monotonic except ReadySurfaces.
type Stats struct {
	FrameIndex     uint64 `json:"frame_index"`
	UploadedFrames uint64 `json:"uploaded_frames"`
	ReadySurfaces  int    `json:"ready_surfaces"`
	TotalSurfaces  int    `json:"total_surfaces"`
}

// Backend is the capability set the render loop needs. Bootstrap is
// called once before anything else; RenderFrame is called repeatedly
// from a single goroutine and owns all internal mutation.
type Backend interface {
	Name() string
	Bootstrap() error
	DiscoverMonitors() ([]Monitor, error)
	BuildSurfaces(monitors []Monitor) ([]SurfaceSpec, error)
	RenderFrame(surfaces []SurfaceSpec) error
	Stats() Stats
	Close() error
}

// ErrNotBootstrapped is returned by backend operations invoked before a
// successful Bootstrap.
var ErrNotBootstrapped = errors.New("backend not bootstrapped")

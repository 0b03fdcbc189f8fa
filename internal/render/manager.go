package render

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/config"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/framesource"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

// readback rows must be 256-byte aligned for texture-to-buffer copies
const copyPitchAlignment = 256

// Present describes one monitor's destination for a rendered frame. Dst
// receives tightly DstStride-spaced BGRX rows, ready for a little-endian
// XRGB8888 buffer.
type Present struct {
	MonitorID string
	Width     uint32
	Height    uint32
	Dst       []byte
	DstStride uint32
}

// Config carries everything the manager needs besides the GPU itself.
type Config struct {
	Store        *videomap.Store
	Video        config.VideoOptions
	Quality      string
	SourceWidth  uint32
	SourceHeight uint32
}

// videoStream is the per-monitor decode state: one source texture the
// decoder frames are uploaded into, plus its bind group and uniform
// buffer. Each stream owns its uniform so per-monitor aspect ratios
// never clobber each other inside a single submit.
type videoStream struct {
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	uniform   *wgpu.Buffer
	bindGroup *wgpu.BindGroup

	pixels       []byte
	source       framesource.Source
	currentVideo string
}

// renderTarget is the per-monitor output: an offscreen color target at
// the monitor's resolution and a mappable buffer the rendered frame is
// copied into for presentation.
type renderTarget struct {
	width        uint32
	height       uint32
	paddedStride uint32
	texture      *wgpu.Texture
	view         *wgpu.TextureView
	readback     *wgpu.Buffer
}

func (t *renderTarget) matches(width, height uint32) bool {
	return t.width == width && t.height == height
}

func (t *renderTarget) release() {
	if t.readback != nil {
		t.readback.Release()
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.texture != nil {
		t.texture.Release()
	}
}

// Manager owns the GPU device and everything rendered on it. One
// pipeline and sampler are shared by all monitors; textures, uniforms
// and targets are per monitor.
type Manager struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	pipeline   *wgpu.RenderPipeline
	bindLayout *wgpu.BindGroupLayout
	sampler    *wgpu.Sampler

	store        *videomap.Store
	videoOpts    config.VideoOptions
	sourceWidth  uint32
	sourceHeight uint32

	streams map[string]*videoStream
	targets map[string]*renderTarget

	startedAt      time.Time
	uploadedFrames uint64
}

// NewManager brings up the GPU and the shared render program. The
// decode resolution is chosen once and shared by every stream.
func NewManager(cfg Config) (*Manager, error) {
	log := logger.WithComponent("render")

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreference_HighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("request GPU adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("request GPU device: %w", err)
	}

	m := &Manager{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     device.GetQueue(),
		store:     cfg.Store,
		videoOpts: cfg.Video,
		streams:   map[string]*videoStream{},
		targets:   map[string]*renderTarget{},
		startedAt: time.Now(),
	}

	maxDim := adapter.GetLimits().Limits.MaxTextureDimension2D
	m.sourceWidth, m.sourceHeight = ChooseSourceResolution(cfg.Quality, cfg.SourceWidth, cfg.SourceHeight, maxDim)
	log.Info().
		Uint32("source_width", m.sourceWidth).
		Uint32("source_height", m.sourceHeight).
		Uint32("max_texture_dimension", maxDim).
		Msg("source texture resolution selected")

	if err := m.buildProgram(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) buildProgram() error {
	shader, err := m.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "rendercore-frame-shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: frameShaderWGSL},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	defer shader.Release()

	m.sampler, err = m.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:          "rendercore-source-sampler",
		AddressModeU:   wgpu.AddressMode_Repeat,
		AddressModeV:   wgpu.AddressMode_Repeat,
		AddressModeW:   wgpu.AddressMode_ClampToEdge,
		MagFilter:      wgpu.FilterMode_Linear,
		MinFilter:      wgpu.FilterMode_Linear,
		MipmapFilter:   wgpu.MipmapFilterMode_Linear,
		LodMinClamp:    0,
		LodMaxClamp:    32,
		MaxAnisotrophy: 1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	m.bindLayout, err = m.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "rendercore-frame-bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStage_Fragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleType_Float,
					ViewDimension: wgpu.TextureViewDimension_2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStage_Fragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingType_Filtering},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStage_Fragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingType_Uniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}

	layout, err := m.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "rendercore-frame-pipeline-layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{m.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	defer layout.Release()

	m.pipeline, err = m.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "rendercore-frame-pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopology_TriangleList,
			FrontFace: wgpu.FrontFace_CCW,
			CullMode:  wgpu.CullMode_None,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    wgpu.TextureFormat_BGRA8Unorm,
				Blend:     &wgpu.BlendState_Replace,
				WriteMask: wgpu.ColorWriteMask_All,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	return nil
}

// UploadedFrames reports how many decoded video frames reached the GPU.
func (m *Manager) UploadedFrames() uint64 { return m.uploadedFrames }

// RenderFrame draws every requested monitor, then copies the results
// back into the presents' destination buffers. One submit covers all
// monitors.
func (m *Manager) RenderFrame(frameIndex uint64, presents []Present) error {
	if m.store != nil && m.store.MaybeReload() {
		m.refreshVideoSelections()
	}
	if len(presents) == 0 {
		return nil
	}

	for i := range presents {
		p := &presents[i]
		stream, err := m.ensureStream(p.MonitorID)
		if err != nil {
			return err
		}
		if err := m.ensureTarget(p.MonitorID, p.Width, p.Height); err != nil {
			return err
		}
		if stream.source.FillNextFrame(stream.pixels) {
			m.queue.WriteTexture(
				&wgpu.ImageCopyTexture{
					Texture: stream.texture,
					Aspect:  wgpu.TextureAspect_All,
				},
				stream.pixels,
				&wgpu.TextureDataLayout{
					BytesPerRow:  m.sourceWidth * 4,
					RowsPerImage: m.sourceHeight,
				},
				&wgpu.Extent3D{Width: m.sourceWidth, Height: m.sourceHeight, DepthOrArrayLayers: 1},
			)
			m.uploadedFrames++
		}
	}

	elapsed := float32(time.Since(m.startedAt).Seconds())

	encoder, err := m.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	for i := range presents {
		p := &presents[i]
		stream := m.streams[p.MonitorID]
		target := m.targets[p.MonitorID]

		aspect := float32(p.Width) / float32(maxU32(p.Height, 1))
		m.queue.WriteBuffer(stream.uniform, 0, frameUniformBytes(elapsed+float32(frameIndex)*0.0001, aspect))

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: "rendercore-textured-pass",
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:       target.view,
				LoadOp:     wgpu.LoadOp_Clear,
				StoreOp:    wgpu.StoreOp_Store,
				ClearValue: wgpu.Color{A: 1},
			}},
		})
		pass.SetPipeline(m.pipeline)
		pass.SetBindGroup(0, stream.bindGroup, nil)
		pass.Draw(3, 1, 0, 0)
		pass.End()
		pass.Release()

		encoder.CopyTextureToBuffer(
			&wgpu.ImageCopyTexture{
				Texture: target.texture,
				Aspect:  wgpu.TextureAspect_All,
			},
			&wgpu.ImageCopyBuffer{
				Buffer: target.readback,
				Layout: wgpu.TextureDataLayout{
					BytesPerRow:  target.paddedStride,
					RowsPerImage: target.height,
				},
			},
			&wgpu.Extent3D{Width: target.width, Height: target.height, DepthOrArrayLayers: 1},
		)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish command encoder: %w", err)
	}
	m.queue.Submit(cmd)
	cmd.Release()

	for i := range presents {
		if err := m.readInto(m.targets[presents[i].MonitorID], &presents[i]); err != nil {
			return err
		}
	}
	return nil
}

// readInto maps the target's readback buffer and copies its rows,
// stripping the copy-pitch padding, into the present destination.
func (m *Manager) readInto(target *renderTarget, p *Present) error {
	size := uint64(target.paddedStride) * uint64(target.height)
	mapped := false
	if err := target.readback.MapAsync(wgpu.MapMode_Read, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapped = status == wgpu.BufferMapAsyncStatus_Success
	}); err != nil {
		return fmt.Errorf("map readback buffer for %s: %w", p.MonitorID, err)
	}
	m.device.Poll(true, nil)
	if !mapped {
		return fmt.Errorf("readback buffer map failed for %s", p.MonitorID)
	}
	data := target.readback.GetMappedRange(0, uint(size))

	rowBytes := target.width * 4
	if p.DstStride > 0 && p.DstStride < rowBytes {
		rowBytes = p.DstStride
	}
	rows := target.height
	if p.Height < rows {
		rows = p.Height
	}
	dstStride := p.DstStride
	if dstStride == 0 {
		dstStride = rowBytes
	}
	for row := uint32(0); row < rows; row++ {
		src := data[row*target.paddedStride : row*target.paddedStride+rowBytes]
		copy(p.Dst[row*dstStride:], src)
	}
	target.readback.Unmap()
	return nil
}

// ensureStream builds the per-monitor decode state on first sight of a
// monitor.
func (m *Manager) ensureStream(monitorID string) (*videoStream, error) {
	if s, ok := m.streams[monitorID]; ok {
		return s, nil
	}

	pixels := framesource.PlaceholderPixels(int(m.sourceWidth), int(m.sourceHeight))
	texture, err := m.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "rendercore-source-texture",
		Size:          wgpu.Extent3D{Width: m.sourceWidth, Height: m.sourceHeight, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension_2D,
		Format:        wgpu.TextureFormat_RGBA8UnormSrgb,
		Usage:         wgpu.TextureUsage_TextureBinding | wgpu.TextureUsage_CopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create source texture for %s: %w", monitorID, err)
	}
	m.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: texture, Aspect: wgpu.TextureAspect_All},
		pixels,
		&wgpu.TextureDataLayout{BytesPerRow: m.sourceWidth * 4, RowsPerImage: m.sourceHeight},
		&wgpu.Extent3D{Width: m.sourceWidth, Height: m.sourceHeight, DepthOrArrayLayers: 1},
	)
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("create source texture view for %s: %w", monitorID, err)
	}
	uniform, err := m.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "rendercore-frame-uniform",
		Size:  frameUniformSize,
		Usage: wgpu.BufferUsage_Uniform | wgpu.BufferUsage_CopyDst,
	})
	if err != nil {
		view.Release()
		texture.Release()
		return nil, fmt.Errorf("create uniform buffer for %s: %w", monitorID, err)
	}
	bindGroup, err := m.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "rendercore-frame-bg",
		Layout: m.bindLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: m.sampler},
			{Binding: 2, Buffer: uniform, Size: frameUniformSize},
		},
	})
	if err != nil {
		uniform.Release()
		view.Release()
		texture.Release()
		return nil, fmt.Errorf("create bind group for %s: %w", monitorID, err)
	}

	stream := &videoStream{
		texture:   texture,
		view:      view,
		uniform:   uniform,
		bindGroup: bindGroup,
		pixels:    pixels,
		source:    framesource.Empty{},
	}
	m.streams[monitorID] = stream
	m.syncVideoSelection(monitorID, stream)
	return stream, nil
}

// refreshVideoSelections re-resolves the mapping for every known stream
// after a mapping reload. A monitor can sit out a frame while its surface
// has no redraw pending or both its buffers are still held, so the reload
// must cover all streams, not just the ones drawn this call.
func (m *Manager) refreshVideoSelections() {
	for id, stream := range m.streams {
		m.syncVideoSelection(id, stream)
	}
}

// syncVideoSelection points the stream's frame source at the video the
// mapping currently selects for the monitor, replacing the decoder only
// when the selection actually changed.
func (m *Manager) syncVideoSelection(monitorID string, stream *videoStream) {
	var desired string
	if m.store != nil {
		if path, ok := m.store.Resolve(monitorID); ok {
			desired = path
		}
	}
	if stream.currentVideo == desired && stream.source != nil {
		return
	}

	log := logger.WithComponent("render")
	if stream.source != nil {
		stream.source.Close()
	}
	stream.currentVideo = desired
	if desired == "" {
		log.Info().Str("monitor", monitorID).Msg("no video mapped, using procedural fallback")
		stream.source = framesource.Empty{}
		return
	}
	log.Info().Str("monitor", monitorID).Str("video", desired).Msg("video selected")
	stream.source = framesource.FromPath(desired, int(m.sourceWidth), int(m.sourceHeight), m.videoOpts)
}

// ensureTarget (re)builds the offscreen target when the monitor size is
// first seen or changes.
func (m *Manager) ensureTarget(monitorID string, width, height uint32) error {
	width = maxU32(width, 1)
	height = maxU32(height, 1)
	if t, ok := m.targets[monitorID]; ok {
		if t.matches(width, height) {
			return nil
		}
		t.release()
		delete(m.targets, monitorID)
	}

	paddedStride := (width*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	texture, err := m.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "rendercore-offscreen-target",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension_2D,
		Format:        wgpu.TextureFormat_BGRA8Unorm,
		Usage:         wgpu.TextureUsage_RenderAttachment | wgpu.TextureUsage_CopySrc,
	})
	if err != nil {
		return fmt.Errorf("create offscreen target for %s: %w", monitorID, err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return fmt.Errorf("create offscreen view for %s: %w", monitorID, err)
	}
	readback, err := m.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "rendercore-readback",
		Size:  uint64(paddedStride) * uint64(height),
		Usage: wgpu.BufferUsage_MapRead | wgpu.BufferUsage_CopyDst,
	})
	if err != nil {
		view.Release()
		texture.Release()
		return fmt.Errorf("create readback buffer for %s: %w", monitorID, err)
	}

	m.targets[monitorID] = &renderTarget{
		width:        width,
		height:       height,
		paddedStride: paddedStride,
		texture:      texture,
		view:         view,
		readback:     readback,
	}
	return nil
}

// Close tears down all per-monitor state and the device.
func (m *Manager) Close() {
	for _, s := range m.streams {
		if s.source != nil {
			s.source.Close()
		}
		s.bindGroup.Release()
		s.uniform.Release()
		s.view.Release()
		s.texture.Release()
	}
	m.streams = map[string]*videoStream{}
	for _, t := range m.targets {
		t.release()
	}
	m.targets = map[string]*renderTarget{}
	if m.pipeline != nil {
		m.pipeline.Release()
	}
	if m.bindLayout != nil {
		m.bindLayout.Release()
	}
	if m.sampler != nil {
		m.sampler.Release()
	}
	if m.queue != nil {
		m.queue.Release()
	}
	if m.device != nil {
		m.device.Release()
	}
	if m.adapter != nil {
		m.adapter.Release()
	}
	if m.instance != nil {
		m.instance.Release()
	}
}

func frameUniformBytes(timeSec, aspect float32) []byte {
	buf := make([]byte, frameUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(timeSec))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(aspect))
	return buf
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

package render

// frameShaderWGSL draws one fullscreen triangle and samples the source
// texture with a slow wave distortion. The uniform carries animation
// time and the target aspect ratio so the horizontal and vertical wave
// amplitudes stay visually even.
const frameShaderWGSL = `
struct VsOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

struct FrameUniform {
    time_sec: f32,
    aspect: f32,
    _pad0: f32,
    _pad1: f32,
};

@group(0) @binding(0) var src_tex: texture_2d<f32>;
@group(0) @binding(1) var src_sampler: sampler;
@group(0) @binding(2) var<uniform> uniforms: FrameUniform;

@vertex
fn vs_main(@builtin(vertex_index) vid: u32) -> VsOut {
    var out: VsOut;
    var pos = array<vec2<f32>, 3>(
        vec2<f32>(-1.0, -3.0),
        vec2<f32>(-1.0,  1.0),
        vec2<f32>( 3.0,  1.0)
    );
    let p = pos[vid];
    out.pos = vec4<f32>(p, 0.0, 1.0);
    out.uv = 0.5 * (p + vec2<f32>(1.0, 1.0));
    return out;
}

@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let base_uv = vec2<f32>(in.uv.x, 1.0 - in.uv.y);
    let wave = vec2<f32>(
        sin(uniforms.time_sec * 0.45 + base_uv.y * 8.0) * 0.005,
        cos(uniforms.time_sec * 0.40 + base_uv.x * 7.0) * 0.005 * uniforms.aspect
    );
    let uv = fract(base_uv + wave);
    let col = textureSample(src_tex, src_sampler, uv).rgb;
    return vec4<f32>(col, 1.0);
}
`

// frameUniformSize matches the WGSL FrameUniform layout: four f32 values.
const frameUniformSize = 16

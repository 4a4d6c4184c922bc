// Package metalgs implements a stateful, draw-call oriented graphics
// device on top of Apple Metal 3.
//
// The host drives the device the way early Direct3D and OpenGL programs
// drive theirs: immediate-mode state setters for blend, depth, stencil,
// viewport, scissor and cull; shaders authored in an HLSL-like effect
// language; indexed and non-indexed primitive draws; render-target and
// swap-chain management. metalgs translates that world to Metal's
// command-buffer and encoder model:
//
//   - clears are recorded as pending load actions and applied by the next
//     draw against the matching render target, never executed eagerly;
//   - each draw builds a render pipeline descriptor from the current
//     state block and resolves it through a fingerprint-keyed cache of
//     compiled pipeline states;
//   - dynamic vertex, index and uniform data flows through a per-frame
//     transient buffer pool that recycles GPU buffers on command-buffer
//     completion;
//   - effect shaders are transpiled to Metal Shading Language by the msl
//     subpackage, which also derives the uniform block layout, the vertex
//     input descriptor and the texture and sampler binding tables.
//
// All state-mutating calls must come from the host's single graphics
// thread. The only concurrent seam is the command-buffer completion
// handler, which touches nothing but the transient buffer pool.
//
// The Metal driver itself sits behind the narrow interfaces of
// internal/mtl; tests run against the recording implementation in
// internal/mtl/mtltest.
package metalgs

// Package backend defines the graphics backend contract used by the
// program registry, and a registry of named backend factories.
//
// # Backend Registration
//
// Backends register a Factory from init() functions and are selected at
// runtime. The software backend is registered on import of this package;
// the GPU backend registers itself when its package is imported:
//
//	import _ "github.com/gogpu/shaderlive/backend/wgpu"
//
// # Backend Selection
//
// Use Default to open the best available backend, or Open to request one
// by name:
//
//	b, err := backend.Open(backend.BackendWGPU, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
// # Handles
//
// Shaders and programs are referred to by opaque handles. The zero handle
// is never returned for a live object, so it can be used as "none".
//
// # Available Backends
//
//   - wgpu: compiles WGSL with naga and creates HAL shader modules, render
//     pipelines and uniform buffers on a gogpu/wgpu device.
//   - software: compiles and links on the CPU only and keeps uniform
//     buffers in memory. Useful for validation without a GPU.
package backend

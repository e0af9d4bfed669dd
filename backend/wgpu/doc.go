// Package wgpu provides the shader backend on top of the gogpu/wgpu HAL.
//
// Shaders are compiled from WGSL to SPIR-V with naga and uploaded as HAL
// shader modules. Linking a vertex and a fragment shader checks the
// inter-stage interface, creates one uniform buffer per var<uniform>
// binding, the bind group layouts and bind groups that expose them, a
// pipeline layout and a render pipeline. SetUniform writes straight into
// the program's uniform buffers through the device queue.
//
// # Registration and Selection
//
// The backend is registered as "wgpu" when this package is imported:
//
//	import _ "github.com/gogpu/shaderlive/backend/wgpu"
//
// and is preferred over the software backend by backend.Default.
//
// # Devices
//
// By default the backend opens its own headless device through the HAL
// backend registry. The CPU HAL backend is always linked in, so a device
// is available without a GPU. An application that already owns a device
// passes it with WithDevice; the backend then never destroys it.
//
//	b, err := wgpu.New(wgpu.WithDevice(device, queue), wgpu.WithTargetFormat(format))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
// Render passes draw a program with the pipeline and bind groups returned
// by Pipeline.
package wgpu

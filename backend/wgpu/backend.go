package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shaderlive/backend"
	"github.com/gogpu/shaderlive/internal/logging"
	"github.com/gogpu/shaderlive/internal/wgslc"
)

// init registers the wgpu backend on package import.
func init() {
	backend.Register(backend.BackendWGPU, func(logger *slog.Logger) (backend.Backend, error) {
		return New(WithLogger(logger))
	})
}

// Option configures a Backend.
type Option func(*options)

type options struct {
	variant gputypes.Backend
	format  gputypes.TextureFormat
	device  hal.Device
	queue   hal.Queue
	logger  *slog.Logger
}

// WithHALBackend selects the HAL backend used to open a headless device.
// Default: gputypes.BackendEmpty, the CPU backend.
func WithHALBackend(variant gputypes.Backend) Option {
	return func(o *options) {
		o.variant = variant
	}
}

// WithTargetFormat sets the color format render pipelines are built for.
// Default: gputypes.TextureFormatBGRA8Unorm.
func WithTargetFormat(format gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithDevice makes the backend use a device owned by the caller.
func WithDevice(device hal.Device, queue hal.Queue) Option {
	return func(o *options) {
		o.device = device
		o.queue = queue
	}
}

// WithLogger sets the logger for backend events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Backend implements backend.Backend on a HAL device.
type Backend struct {
	logger   *slog.Logger
	device   hal.Device
	queue    hal.Queue
	headless *headless // nil when the device is owned by the caller
	info     DeviceInfo
	format   gputypes.TextureFormat
	cache    *wgslc.Cache

	next     uint64
	shaders  map[backend.ShaderHandle]*shader
	programs map[backend.ProgramHandle]*program
	bound    backend.ProgramHandle
	closed   bool
}

type shader struct {
	stage    gputypes.ShaderStage
	label    string
	compiled *wgslc.Module
	module   hal.ShaderModule
}

// New creates a wgpu backend.
func New(opts ...Option) (*Backend, error) {
	o := options{
		variant: gputypes.BackendEmpty,
		format:  gputypes.TextureFormatBGRA8Unorm,
	}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Backend{
		logger:   logging.OrNop(o.logger),
		device:   o.device,
		queue:    o.queue,
		format:   o.format,
		cache:    wgslc.NewCache(0),
		shaders:  make(map[backend.ShaderHandle]*shader),
		programs: make(map[backend.ProgramHandle]*program),
	}

	if b.device == nil {
		h, err := openHeadless(o.variant)
		if err != nil {
			return nil, err
		}
		b.headless = h
		b.device, b.queue, b.info = h.device, h.queue, h.info
		b.logger.Info("wgpu: device opened", "adapter", b.info.String())
	}
	if b.queue == nil {
		return nil, errors.New("wgpu: device without queue")
	}
	return b, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendWGPU
}

// Info returns the adapter of a headless device. It is zero for a device
// passed with WithDevice.
func (b *Backend) Info() DeviceInfo {
	return b.info
}

func (b *Backend) handle() uint64 {
	b.next++
	return b.next
}

// CompileShader compiles WGSL to SPIR-V and creates a shader module.
func (b *Backend) CompileShader(stage gputypes.ShaderStage, label, source string) (backend.ShaderHandle, string, error) {
	if b.closed {
		return 0, "", backend.ErrClosed
	}
	irStage, ok := backend.IRStage(stage)
	if !ok {
		return 0, "", fmt.Errorf("%w: %s: unsupported stage %s", backend.ErrCompileFailed, label, stage)
	}

	compiled, _, err := b.cache.CompileStage(irStage, source)
	if err != nil {
		return 0, err.Error(), fmt.Errorf("%w: %s: %w", backend.ErrCompileFailed, label, err)
	}

	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: compiled.SPIRV,
		},
	})
	if err != nil {
		return 0, err.Error(), fmt.Errorf("%w: %s: failed to create shader module: %w", backend.ErrCompileFailed, label, err)
	}

	h := backend.ShaderHandle(b.handle())
	b.shaders[h] = &shader{stage: stage, label: label, compiled: compiled, module: module}
	b.logger.Debug("wgpu: shader compiled", "label", label, "handle", h, "words", len(compiled.SPIRV))
	return h, compiled.WarningLog(), nil
}

// LinkProgram builds a render pipeline from a vertex and a fragment shader.
func (b *Backend) LinkProgram(label string, vertex, fragment backend.ShaderHandle) (backend.ProgramHandle, string, error) {
	if b.closed {
		return 0, "", backend.ErrClosed
	}
	vs, ok := b.shaders[vertex]
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", backend.ErrUnknownHandle, vertex)
	}
	fs, ok := b.shaders[fragment]
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", backend.ErrUnknownHandle, fragment)
	}

	linked, err := wgslc.Link(vs.compiled, fs.compiled)
	if err != nil {
		return 0, err.Error(), fmt.Errorf("%w: %s: %w", backend.ErrLinkFailed, label, err)
	}

	p, err := b.buildProgram(label, vs, fs, linked)
	if err != nil {
		return 0, err.Error(), fmt.Errorf("%w: %s: %w", backend.ErrLinkFailed, label, err)
	}

	h := backend.ProgramHandle(b.handle())
	b.programs[h] = p
	b.logger.Debug("wgpu: program linked", "label", label, "handle", h, "uniforms", len(linked.Uniforms))
	return h, "", nil
}

// DeleteShader destroys a shader module.
func (b *Backend) DeleteShader(h backend.ShaderHandle) {
	s, ok := b.shaders[h]
	if !ok {
		return
	}
	delete(b.shaders, h)
	b.device.DestroyShaderModule(s.module)
}

// DeleteProgram destroys a program's pipeline and uniform resources.
func (b *Backend) DeleteProgram(h backend.ProgramHandle) {
	p, ok := b.programs[h]
	if !ok {
		return
	}
	delete(b.programs, h)
	b.release(p)
	if b.bound == h {
		b.bound = 0
	}
}

// UseProgram binds a program. Unknown handles are ignored.
func (b *Backend) UseProgram(h backend.ProgramHandle) {
	if _, ok := b.programs[h]; ok || h == 0 {
		b.bound = h
	}
}

// Bound returns the bound program.
func (b *Backend) Bound() backend.ProgramHandle {
	return b.bound
}

// Pipeline returns the render pipeline of a program and its bind groups,
// indexed by group number.
func (b *Backend) Pipeline(h backend.ProgramHandle) (hal.RenderPipeline, []hal.BindGroup, bool) {
	p, ok := b.programs[h]
	if !ok {
		return nil, nil, false
	}
	return p.pipeline, p.bindGroups, true
}

// SetUniform encodes value and writes it into the uniform buffer.
func (b *Backend) SetUniform(h backend.ProgramHandle, name string, value any) error {
	p, ok := b.programs[h]
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrUnknownHandle, h)
	}
	u, f, ok := wgslc.FindField(p.linked.Uniforms, name)
	if !ok {
		return fmt.Errorf("%w: %q in %s", backend.ErrUnknownUniform, name, p.label)
	}
	data, err := f.Encode(value)
	if err != nil {
		if errors.Is(err, wgslc.ErrValueType) || errors.Is(err, wgslc.ErrUnsupportedField) {
			return fmt.Errorf("%w: %w", backend.ErrUniformType, err)
		}
		return err
	}
	buf := p.buffers[bindingKey{u.Group, u.Binding}]
	if err := b.queue.WriteBuffer(buf, uint64(f.Offset), data); err != nil {
		return fmt.Errorf("wgpu: writing uniform %q: %w", name, err)
	}
	return nil
}

// UniformBuffer returns the buffer backing a program's uniform binding.
func (b *Backend) UniformBuffer(h backend.ProgramHandle, group, binding uint32) (hal.Buffer, bool) {
	p, ok := b.programs[h]
	if !ok {
		return nil, false
	}
	buf, ok := p.buffers[bindingKey{group, binding}]
	return buf, ok
}

// Close releases all programs and shaders, and the device if the backend
// opened it.
func (b *Backend) Close() {
	if b.closed {
		return
	}
	for h, p := range b.programs {
		b.release(p)
		delete(b.programs, h)
	}
	for h, s := range b.shaders {
		b.device.DestroyShaderModule(s.module)
		delete(b.shaders, h)
	}
	b.bound = 0
	if b.headless != nil {
		b.headless.release()
		b.headless = nil
	}
	b.closed = true
}

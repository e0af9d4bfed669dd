package backend

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderlive/internal/logging"
	"github.com/gogpu/shaderlive/internal/wgslc"
)

// SoftwareBackend compiles and links on the CPU. Programs own in-memory
// uniform buffers that SetUniform writes into.
type SoftwareBackend struct {
	logger   *slog.Logger
	cache    *wgslc.Cache
	next     uint64
	shaders  map[ShaderHandle]*softwareShader
	programs map[ProgramHandle]*softwareProgram
	bound    ProgramHandle
	closed   bool
}

type softwareShader struct {
	stage  gputypes.ShaderStage
	module *wgslc.Module
}

type softwareProgram struct {
	label   string
	linked  *wgslc.Linked
	buffers map[bindingKey][]byte
}

type bindingKey struct {
	group, binding uint32
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func(logger *slog.Logger) (Backend, error) {
		return NewSoftwareBackend(logger), nil
	})
}

// NewSoftwareBackend creates a new software backend.
func NewSoftwareBackend(logger *slog.Logger) *SoftwareBackend {
	return &SoftwareBackend{
		logger:   logging.OrNop(logger),
		cache:    wgslc.NewCache(0),
		shaders:  make(map[ShaderHandle]*softwareShader),
		programs: make(map[ProgramHandle]*softwareProgram),
	}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

func (b *SoftwareBackend) handle() uint64 {
	b.next++
	return b.next
}

// CompileShader compiles WGSL source for one stage.
func (b *SoftwareBackend) CompileShader(stage gputypes.ShaderStage, label, source string) (ShaderHandle, string, error) {
	if b.closed {
		return 0, "", ErrClosed
	}
	irStage, ok := IRStage(stage)
	if !ok {
		return 0, "", fmt.Errorf("%w: %s: unsupported stage %s", ErrCompileFailed, label, stage)
	}
	module, _, err := b.cache.CompileStage(irStage, source)
	if err != nil {
		return 0, err.Error(), fmt.Errorf("%w: %s: %w", ErrCompileFailed, label, err)
	}
	h := ShaderHandle(b.handle())
	b.shaders[h] = &softwareShader{stage: stage, module: module}
	b.logger.Debug("software: shader compiled", "label", label, "handle", h)
	return h, module.WarningLog(), nil
}

// LinkProgram checks the stage interface and allocates uniform buffers.
func (b *SoftwareBackend) LinkProgram(label string, vertex, fragment ShaderHandle) (ProgramHandle, string, error) {
	if b.closed {
		return 0, "", ErrClosed
	}
	vs, ok := b.shaders[vertex]
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", ErrUnknownHandle, vertex)
	}
	fs, ok := b.shaders[fragment]
	if !ok {
		return 0, "", fmt.Errorf("%w: %s", ErrUnknownHandle, fragment)
	}
	linked, err := wgslc.Link(vs.module, fs.module)
	if err != nil {
		return 0, err.Error(), fmt.Errorf("%w: %s: %w", ErrLinkFailed, label, err)
	}

	p := &softwareProgram{
		label:   label,
		linked:  linked,
		buffers: make(map[bindingKey][]byte, len(linked.Uniforms)),
	}
	for _, u := range linked.Uniforms {
		p.buffers[bindingKey{u.Group, u.Binding}] = make([]byte, u.Size)
	}
	h := ProgramHandle(b.handle())
	b.programs[h] = p
	b.logger.Debug("software: program linked", "label", label, "handle", h, "uniforms", len(linked.Uniforms))
	return h, "", nil
}

// DeleteShader releases a shader.
func (b *SoftwareBackend) DeleteShader(h ShaderHandle) {
	delete(b.shaders, h)
}

// DeleteProgram releases a program.
func (b *SoftwareBackend) DeleteProgram(h ProgramHandle) {
	delete(b.programs, h)
	if b.bound == h {
		b.bound = 0
	}
}

// UseProgram binds a program.
func (b *SoftwareBackend) UseProgram(h ProgramHandle) {
	if _, ok := b.programs[h]; ok || h == 0 {
		b.bound = h
	}
}

// Bound returns the bound program.
func (b *SoftwareBackend) Bound() ProgramHandle {
	return b.bound
}

// SetUniform encodes value into the program's uniform buffer.
func (b *SoftwareBackend) SetUniform(h ProgramHandle, name string, value any) error {
	p, ok := b.programs[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	u, f, ok := wgslc.FindField(p.linked.Uniforms, name)
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrUnknownUniform, name, p.label)
	}
	data, err := f.Encode(value)
	if err != nil {
		return uniformError(err)
	}
	copy(p.buffers[bindingKey{u.Group, u.Binding}][f.Offset:], data)
	return nil
}

// UniformData returns the contents of a program's uniform buffer.
func (b *SoftwareBackend) UniformData(h ProgramHandle, group, binding uint32) ([]byte, bool) {
	p, ok := b.programs[h]
	if !ok {
		return nil, false
	}
	data, ok := p.buffers[bindingKey{group, binding}]
	return data, ok
}

// Live returns the number of shaders and programs not yet deleted.
func (b *SoftwareBackend) Live() (shaders, programs int) {
	return len(b.shaders), len(b.programs)
}

// Close releases all backend resources.
func (b *SoftwareBackend) Close() {
	clear(b.shaders)
	clear(b.programs)
	b.bound = 0
	b.closed = true
}

// uniformError maps an encoding failure onto the backend sentinels.
func uniformError(err error) error {
	if errors.Is(err, wgslc.ErrValueType) || errors.Is(err, wgslc.ErrUnsupportedField) {
		return fmt.Errorf("%w: %w", ErrUniformType, err)
	}
	return err
}

package backend

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
)

const testVertex = `struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOut {
    var out: VertexOut;
    let x = f32(index % 2u);
    let y = f32(index / 2u);
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>(x, y);
    return out;
}
`

const testFragment = `struct Params {
    time: f32,
    speed: f32,
    tint: vec4<f32>,
}

@group(0) @binding(0) var<uniform> params: Params;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(uv, sin(params.time * params.speed), 1.0) * params.tint;
}
`

func TestHandles(t *testing.T) {
	var s ShaderHandle
	if s.Valid() {
		t.Error("zero ShaderHandle should be invalid")
	}
	if ProgramHandle(3).String() != "program#3" {
		t.Errorf("String() = %q", ProgramHandle(3).String())
	}
	if !ShaderHandle(1).Valid() {
		t.Error("non-zero ShaderHandle should be valid")
	}
}

func TestSoftwareBackendName(t *testing.T) {
	b := NewSoftwareBackend(nil)
	if b.Name() != "software" {
		t.Errorf("Name() = %q, want %q", b.Name(), "software")
	}
}

func TestSoftwareCompileAndLink(t *testing.T) {
	b := NewSoftwareBackend(nil)
	defer b.Close()

	vs, _, err := b.CompileShader(gputypes.ShaderStageVertex, "vs", testVertex)
	if err != nil {
		t.Fatalf("CompileShader(vertex) error = %v", err)
	}
	fs, _, err := b.CompileShader(gputypes.ShaderStageFragment, "fs", testFragment)
	if err != nil {
		t.Fatalf("CompileShader(fragment) error = %v", err)
	}
	if vs == fs || !vs.Valid() || !fs.Valid() {
		t.Fatalf("handles = %v, %v", vs, fs)
	}

	p, _, err := b.LinkProgram("prog", vs, fs)
	if err != nil {
		t.Fatalf("LinkProgram() error = %v", err)
	}

	if err := b.SetUniform(p, "speed", float32(2.5)); err != nil {
		t.Fatalf("SetUniform(speed) error = %v", err)
	}
	if err := b.SetUniform(p, "tint", [4]float32{1, 0.5, 0.25, 1}); err != nil {
		t.Fatalf("SetUniform(tint) error = %v", err)
	}
	data, ok := b.UniformData(p, 0, 0)
	if !ok {
		t.Fatal("UniformData() not found")
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[4:])); got != 2.5 {
		t.Errorf("speed = %v, want 2.5", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[20:])); got != 0.5 {
		t.Errorf("tint.y = %v, want 0.5", got)
	}

	if err := b.SetUniform(p, "missing", 1.0); !errors.Is(err, ErrUnknownUniform) {
		t.Errorf("SetUniform(missing) error = %v, want ErrUnknownUniform", err)
	}
	if err := b.SetUniform(p, "tint", 1.0); !errors.Is(err, ErrUniformType) {
		t.Errorf("SetUniform(tint, scalar) error = %v, want ErrUniformType", err)
	}
	if err := b.SetUniform(p+100, "speed", 1.0); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("SetUniform(unknown program) error = %v, want ErrUnknownHandle", err)
	}

	b.UseProgram(p)
	if b.Bound() != p {
		t.Errorf("Bound() = %v, want %v", b.Bound(), p)
	}
	b.DeleteProgram(p)
	if b.Bound() != 0 {
		t.Error("deleting the bound program should unbind it")
	}
	b.DeleteShader(vs)
	b.DeleteShader(fs)
	if shaders, programs := b.Live(); shaders != 0 || programs != 0 {
		t.Errorf("Live() = %d, %d, want 0, 0", shaders, programs)
	}
}

func TestSoftwareCompileFailure(t *testing.T) {
	b := NewSoftwareBackend(nil)
	defer b.Close()

	h, log, err := b.CompileShader(gputypes.ShaderStageFragment, "broken", "// ok\n#error Include not found: /x.wgsl\n")
	if !errors.Is(err, ErrCompileFailed) {
		t.Fatalf("error = %v, want ErrCompileFailed", err)
	}
	if h.Valid() {
		t.Error("failed compile returned a valid handle")
	}
	if !strings.Contains(log, "line 2") || !strings.Contains(log, "Include not found: /x.wgsl") {
		t.Errorf("log = %q", log)
	}

	_, log, err = b.CompileShader(gputypes.ShaderStageFragment, "wrong stage", testVertex)
	if !errors.Is(err, ErrCompileFailed) || !strings.Contains(log, "no @fragment entry point") {
		t.Errorf("wrong stage: err = %v, log = %q", err, log)
	}
	if shaders, _ := b.Live(); shaders != 0 {
		t.Errorf("failed compiles left %d shaders", shaders)
	}
}

func TestSoftwareLinkFailure(t *testing.T) {
	b := NewSoftwareBackend(nil)
	defer b.Close()

	vs, _, err := b.CompileShader(gputypes.ShaderStageVertex, "vs", testVertex)
	if err != nil {
		t.Fatal(err)
	}
	fs, _, err := b.CompileShader(gputypes.ShaderStageFragment, "fs", `@fragment
fn fs_main(@location(2) glow: f32) -> @location(0) vec4<f32> {
    return vec4<f32>(glow);
}
`)
	if err != nil {
		t.Fatal(err)
	}
	p, log, err := b.LinkProgram("prog", vs, fs)
	if !errors.Is(err, ErrLinkFailed) {
		t.Fatalf("LinkProgram() error = %v, want ErrLinkFailed", err)
	}
	if p.Valid() || !strings.Contains(log, "@location(2)") {
		t.Errorf("handle = %v, log = %q", p, log)
	}

	if _, _, err := b.LinkProgram("prog", vs, 999); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("LinkProgram(unknown) error = %v, want ErrUnknownHandle", err)
	}
}

func TestSoftwareClosed(t *testing.T) {
	b := NewSoftwareBackend(nil)
	b.Close()
	if _, _, err := b.CompileShader(gputypes.ShaderStageVertex, "vs", testVertex); !errors.Is(err, ErrClosed) {
		t.Errorf("CompileShader after Close error = %v, want ErrClosed", err)
	}
}

type stubBackend struct {
	SoftwareBackend
	name string
}

func (s *stubBackend) Name() string { return s.name }

func TestRegistry(t *testing.T) {
	Register("stub", func(*slog.Logger) (Backend, error) {
		return &stubBackend{name: "stub"}, nil
	})
	defer Unregister("stub")

	if !IsRegistered("stub") {
		t.Fatal("stub should be registered")
	}
	found := false
	for _, name := range Available() {
		if name == "stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("Available() = %v, want stub listed", Available())
	}

	b, err := Open("stub", nil)
	if err != nil {
		t.Fatalf("Open(stub) error = %v", err)
	}
	if b.Name() != "stub" {
		t.Errorf("Name() = %q", b.Name())
	}

	if _, err := Open("nope", nil); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(nope) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestDefaultFallsBackToSoftware(t *testing.T) {
	openErr := errors.New("no adapter")
	Register(BackendWGPU, func(*slog.Logger) (Backend, error) {
		return nil, openErr
	})
	defer Unregister(BackendWGPU)

	if DefaultName() != BackendWGPU {
		t.Fatalf("DefaultName() = %q, want %q", DefaultName(), BackendWGPU)
	}
	b, err := Default(nil)
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if b.Name() != BackendSoftware {
		t.Errorf("Default() = %q, want software fallback", b.Name())
	}

	if _, err := Open(BackendWGPU, nil); !errors.Is(err, openErr) {
		t.Errorf("Open(wgpu) error = %v, want wrapped %v", err, openErr)
	}
}

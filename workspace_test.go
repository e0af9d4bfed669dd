package shaderlive

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderlive/backend"
	"github.com/gogpu/shaderlive/program"
)

const (
	vertexSource = `struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOut {
    var out: VertexOut;
    let uv = vec2<f32>(f32((index << 1u) & 2u), f32(index & 2u));
    out.position = vec4<f32>(uv * 2.0 - 1.0, 0.0, 1.0);
    out.uv = uv;
    return out;
}
`
	fragmentSource = `@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(uv, 0.0, 1.0);
}
`
	brokenFragmentSource = `@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(uv, 0.0, 1.0)
}
`
	fixedFragmentSource = `@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(uv.yx, 1.0, 1.0);
}
`
	includeFragmentSource = `#pragma include("palette.wgsl")
@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(palette(uv.x), 1.0);
}
`
)

const reloadTimeout = 10 * time.Second

type recorder struct {
	events []program.CompileEvent
}

func (r *recorder) ProgramCompiled(e program.CompileEvent) {
	r.events = append(r.events, e)
}

func (r *recorder) failures() int {
	n := 0
	for _, e := range r.events {
		if !e.Success {
			n++
		}
	}
	return n
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func openWorkspace(t *testing.T, opts ...Option) (*Workspace, *recorder) {
	t.Helper()
	rec := &recorder{}
	opts = append([]Option{WithBackendName(backend.BackendSoftware), WithListener(rec)}, opts...)
	ws, err := Open(opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(ws.Close)
	if !ws.Watching() {
		t.Skip("file watching unavailable")
	}
	return ws, rec
}

// frameUntil runs frames until done reports true.
func frameUntil(t *testing.T, ws *Workspace, what string, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(reloadTimeout)
	for time.Now().Before(deadline) {
		ws.Frame()
		if done() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHotReloadEndToEnd(t *testing.T) {
	ws, rec := openWorkspace(t)
	dir := tempDir(t)
	vs := filepath.Join(dir, "x.vert.wgsl")
	fs := filepath.Join(dir, "x.frag.wgsl")
	writeFile(t, vs, vertexSource)
	writeFile(t, fs, fragmentSource)

	first := ws.Load("x", vs, fs)
	if !first.Valid {
		t.Fatalf("Load() invalid:\n%s", first.Diagnostic)
	}
	ws.Registry().Use("x")

	// A syntax error keeps the old program.
	writeFile(t, fs, brokenFragmentSource)
	frameUntil(t, ws, "failed rebuild", func() bool { return rec.failures() > 0 })

	got, _ := ws.Registry().Get("x")
	if !got.Valid || got.Program != first.Program {
		t.Fatalf("after broken edit: valid %v program %v, want the original %v", got.Valid, got.Program, first.Program)
	}
	if _, ok := ws.Registry().LastFailure("x"); !ok {
		t.Error("LastFailure() not recorded")
	}

	// Fixing the file replaces it.
	writeFile(t, fs, fixedFragmentSource)
	frameUntil(t, ws, "successful rebuild", func() bool {
		p, _ := ws.Registry().Get("x")
		return p.Valid && p.Program != first.Program
	})

	got, _ = ws.Registry().Get("x")
	if got.Diagnostic != program.SuccessDiagnostic {
		t.Errorf("Diagnostic = %q", got.Diagnostic)
	}
	if ws.Registry().Bound() != "x" {
		t.Errorf("Bound() = %q, want x", ws.Registry().Bound())
	}
	last := rec.events[len(rec.events)-1]
	if !last.Success || last.Name != "x" {
		t.Errorf("last event = %+v", last)
	}
}

func TestIncludeEditReloads(t *testing.T) {
	ws, _ := openWorkspace(t)
	dir := tempDir(t)
	vs := filepath.Join(dir, "x.vert.wgsl")
	fs := filepath.Join(dir, "x.frag.wgsl")
	palette := filepath.Join(dir, "palette.wgsl")
	writeFile(t, vs, vertexSource)
	writeFile(t, fs, includeFragmentSource)
	writeFile(t, palette, "fn palette(t: f32) -> vec3<f32> {\n    return vec3<f32>(t);\n}\n")

	first := ws.Load("x", vs, fs)
	if !first.Valid {
		t.Fatalf("Load() invalid:\n%s", first.Diagnostic)
	}

	writeFile(t, palette, "fn palette(t: f32) -> vec3<f32> {\n    return vec3<f32>(t, 1.0 - t, 0.5);\n}\n")
	frameUntil(t, ws, "rebuild after include edit", func() bool {
		p, _ := ws.Registry().Get("x")
		return p.Program != first.Program
	})
}

func TestMissingIncludeCreatedLater(t *testing.T) {
	ws, _ := openWorkspace(t)
	dir := tempDir(t)
	vs := filepath.Join(dir, "x.vert.wgsl")
	fs := filepath.Join(dir, "x.frag.wgsl")
	writeFile(t, vs, vertexSource)
	writeFile(t, fs, includeFragmentSource)

	first := ws.Load("x", vs, fs)
	if first.Valid {
		t.Fatal("Load() with a missing include should fail")
	}
	if !strings.Contains(first.Diagnostic, "Include not found") {
		t.Errorf("Diagnostic = %q", first.Diagnostic)
	}

	writeFile(t, filepath.Join(dir, "palette.wgsl"), "fn palette(t: f32) -> vec3<f32> {\n    return vec3<f32>(t);\n}\n")
	frameUntil(t, ws, "rebuild after include creation", func() bool {
		p, _ := ws.Registry().Get("x")
		return p.Valid
	})
}

func TestLibraryDir(t *testing.T) {
	lib := tempDir(t)
	writeFile(t, filepath.Join(lib, "palette.wgsl"), "fn palette(t: f32) -> vec3<f32> {\n    return vec3<f32>(t);\n}\n")

	ws, err := Open(WithBackendName(backend.BackendSoftware), WithLibraryDir(lib))
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	dir := tempDir(t)
	vs := filepath.Join(dir, "x.vert.wgsl")
	fs := filepath.Join(dir, "x.frag.wgsl")
	writeFile(t, vs, vertexSource)
	writeFile(t, fs, includeFragmentSource)

	if p := ws.Load("x", vs, fs); !p.Valid {
		t.Fatalf("Load() with library snippet invalid:\n%s", p.Diagnostic)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(WithLibraryDir(filepath.Join(t.TempDir(), "missing"))); err == nil {
		t.Error("Open() with a missing library directory should fail")
	}
	_, err := Open(WithBackendName("nope"))
	if !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Open(nope) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOpenErrorClosesInjectedBackend(t *testing.T) {
	b := backend.NewSoftwareBackend(nil)

	_, err := Open(WithBackend(b), WithLibraryDir(filepath.Join(t.TempDir(), "missing")))
	if err == nil {
		t.Fatal("Open() with a missing library directory should fail")
	}

	_, _, err = b.CompileShader(gputypes.ShaderStageVertex, "after", vertexSource)
	if !errors.Is(err, backend.ErrClosed) {
		t.Errorf("backend still open after failed Open: CompileShader error = %v", err)
	}
}

func TestOpenWithBackend(t *testing.T) {
	b := backend.NewSoftwareBackend(nil)
	ws, err := Open(WithBackend(b))
	if err != nil {
		t.Fatal(err)
	}
	if ws.Backend() != backend.Backend(b) {
		t.Error("Backend() is not the injected backend")
	}

	dir := tempDir(t)
	vs := filepath.Join(dir, "x.vert.wgsl")
	fs := filepath.Join(dir, "x.frag.wgsl")
	writeFile(t, vs, vertexSource)
	writeFile(t, fs, fragmentSource)
	ws.Load("x", vs, fs)

	ws.Close()
	ws.Close()

	if shaders, programs := b.Live(); shaders != 0 || programs != 0 {
		t.Errorf("live objects after Close = %d shaders, %d programs", shaders, programs)
	}
	if ws.Watching() {
		t.Error("Watching() = true after Close")
	}
}

func TestDefaultBackend(t *testing.T) {
	ws, err := Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ws.Close()
	if name := ws.Backend().Name(); name != backend.BackendWGPU {
		t.Errorf("default backend = %q, want %q", name, backend.BackendWGPU)
	}
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderlive/backend"
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
	fragmentSource = `#pragma include("tint.wgsl")
#pragma switch(USE_TINT, true)
#pragma range(glow_strength, 0.0, 2.0 * pi, 1.0)
#pragma label(glow_strength, "Glow")

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(tint(uv), 1.0);
}
`
	tintSource = `fn tint(uv: vec2<f32>) -> vec3<f32> {
    return vec3<f32>(uv, 0.5);
}
`
	brokenFragmentSource = `@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(uv, 0.0 1.0);
}
`
)

// shaderDir writes a vertex/fragment pair plus one include and returns
// their paths.
func shaderDir(t *testing.T) (dir, vertex, fragment string) {
	t.Helper()
	dir = t.TempDir()
	vertex = filepath.Join(dir, "glow.vert.wgsl")
	fragment = filepath.Join(dir, "glow.frag.wgsl")
	writeFile(t, vertex, vertexSource)
	writeFile(t, fragment, fragmentSource)
	writeFile(t, filepath.Join(dir, "tint.wgsl"), tintSource)
	return dir, vertex, fragment
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()

	assert.Equal(t, "shaderlive", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	for _, name := range []string{"check", "inspect", "watch", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "backend", "library", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "shaderlive version")
	assert.Contains(t, out, backend.BackendSoftware)
}

func TestCheckCmd_Success(t *testing.T) {
	_, vertex, fragment := shaderDir(t)

	out, err := execute(t, "check", "--backend", backend.BackendSoftware, vertex, fragment)

	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "glow")
	assert.Contains(t, out, "Compiled and linked successfully")
}

func TestCheckCmd_Name(t *testing.T) {
	_, vertex, fragment := shaderDir(t)

	out, err := execute(t, "check", "--backend", backend.BackendSoftware, "--name", "custom", vertex, fragment)

	require.NoError(t, err)
	assert.Contains(t, out, "custom")
}

func TestCheckCmd_Failure(t *testing.T) {
	dir, vertex, _ := shaderDir(t)
	broken := filepath.Join(dir, "broken.frag.wgsl")
	writeFile(t, broken, brokenFragmentSource)

	out, err := execute(t, "check", "--backend", backend.BackendSoftware, vertex, broken)

	require.ErrorIs(t, err, errCheckFailed)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "fragment "+broken)
	assert.Contains(t, out, "["+broken+":3]")
}

func TestCheckCmd_Args(t *testing.T) {
	_, err := execute(t, "check", "only-one.wgsl")
	assert.Error(t, err)
}

func TestCheckCmd_UnknownBackend(t *testing.T) {
	_, vertex, fragment := shaderDir(t)

	_, err := execute(t, "check", "--backend", "nope", vertex, fragment)

	require.ErrorIs(t, err, backend.ErrBackendNotAvailable)
}

func TestConfigFile(t *testing.T) {
	dir, vertex, fragment := shaderDir(t)
	cfg := filepath.Join(dir, "shaderlive.yaml")
	writeFile(t, cfg, "backend: nope\n")

	_, err := execute(t, "check", "--config", cfg, vertex, fragment)
	require.ErrorIs(t, err, backend.ErrBackendNotAvailable)

	// Flags win over the config file.
	_, err = execute(t, "check", "--config", cfg, "--backend", backend.BackendSoftware, vertex, fragment)
	require.NoError(t, err)
}

func TestConfigFile_Missing(t *testing.T) {
	_, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironment(t *testing.T) {
	_, vertex, fragment := shaderDir(t)
	t.Setenv("SHADERLIVE_BACKEND", "nope")

	_, err := execute(t, "check", vertex, fragment)

	require.ErrorIs(t, err, backend.ErrBackendNotAvailable)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "version", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestInspectCmd_Table(t *testing.T) {
	dir, _, fragment := shaderDir(t)

	out, err := execute(t, "inspect", fragment)

	require.NoError(t, err)
	assert.Contains(t, out, fragment)
	assert.Contains(t, out, filepath.Join(dir, "tint.wgsl"))
	assert.Contains(t, out, "USE_TINT")
	assert.Contains(t, out, "Use Tint")
	assert.Contains(t, out, "Glow")
	assert.Contains(t, out, filepath.Join(dir, "tint.wgsl")+":1-3")
}

func TestInspectCmd_YAML(t *testing.T) {
	dir, _, fragment := shaderDir(t)
	tint := filepath.Join(dir, "tint.wgsl")

	out, err := execute(t, "inspect", "--yaml", fragment)
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))

	assert.Equal(t, fragment, report.Entry)
	assert.Equal(t, []string{fragment, tint}, report.Includes)
	require.Len(t, report.Switches, 1)
	assert.Equal(t, switchReport{Name: "USE_TINT", Label: "Use Tint", Default: true}, report.Switches[0])
	require.Len(t, report.Ranges, 1)
	assert.Equal(t, "Glow", report.Ranges[0].Label)
	assert.InDelta(t, 6.283185, report.Ranges[0].Max, 1e-5)
	require.NotNil(t, report.Ranges[0].Default)
	assert.InDelta(t, 1.0, *report.Ranges[0].Default, 1e-9)
	assert.Empty(t, report.Errors)

	require.NotEmpty(t, report.LineMap)
	assert.Equal(t, lineSpan{From: 1, To: 3, File: tint, FileLine: 1}, report.LineMap[0])
	last := report.LineMap[len(report.LineMap)-1]
	assert.Equal(t, report.Lines, last.To)
	assert.Equal(t, fragment, last.File)
}

func TestInspectCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "entry.wgsl")
	writeFile(t, entry, "#pragma include(\"gone.wgsl\")\nfn f() {}\n")

	out, err := execute(t, "inspect", "--yaml", entry)
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Include not found")
	assert.Contains(t, report.Errors[0], "["+entry+":1]")
}

func TestInspectCmd_Library(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, "tint.wgsl"), tintSource)
	dir := t.TempDir()
	fragment := filepath.Join(dir, "glow.frag.wgsl")
	writeFile(t, fragment, fragmentSource)

	out, err := execute(t, "inspect", "--library", lib, fragment)

	require.NoError(t, err)
	assert.Contains(t, out, "embedded:tint.wgsl")
}

func TestWatchCmd_Frames(t *testing.T) {
	_, vertex, fragment := shaderDir(t)

	out, err := execute(t, "watch", "--backend", backend.BackendSoftware, "--fps", "1000", "--frames", "3", vertex, fragment)

	require.NoError(t, err)
	assert.Contains(t, out, "compiled")
	assert.Contains(t, out, "glow")
}

func TestWatchCmd_InvalidFPS(t *testing.T) {
	_, vertex, fragment := shaderDir(t)

	_, err := execute(t, "watch", "--backend", backend.BackendSoftware, "--fps", "0", vertex, fragment)

	assert.ErrorContains(t, err, "fps must be positive")
}

func TestProgramName(t *testing.T) {
	tests := map[string]string{
		"shaders/plasma.frag.wgsl": "plasma",
		"plasma.wgsl":              "plasma",
		`dir\tunnel.frag`:          "tunnel",
		"noext":                    "noext",
		".hidden":                  ".hidden",
	}
	for in, want := range tests {
		assert.Equal(t, want, programName(in), in)
	}
}

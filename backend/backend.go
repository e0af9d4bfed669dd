package backend

import (
	"errors"
	"strconv"

	"github.com/gogpu/gputypes"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrCompileFailed is returned when a shader stage does not compile.
	ErrCompileFailed = errors.New("backend: shader compilation failed")

	// ErrLinkFailed is returned when two stages do not form a program.
	ErrLinkFailed = errors.New("backend: program link failed")

	// ErrUnknownHandle is returned for handles the backend did not issue or
	// has already deleted.
	ErrUnknownHandle = errors.New("backend: unknown handle")

	// ErrUnknownUniform is returned when a program has no uniform of the
	// requested name.
	ErrUnknownUniform = errors.New("backend: unknown uniform")

	// ErrUniformType is returned when a value does not fit the uniform.
	ErrUniformType = errors.New("backend: uniform type mismatch")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("backend: closed")
)

// ShaderHandle identifies a compiled shader stage. Zero is invalid.
type ShaderHandle uint64

// Valid reports whether h refers to an object.
func (h ShaderHandle) Valid() bool { return h != 0 }

// String returns "shader#N".
func (h ShaderHandle) String() string { return "shader#" + strconv.FormatUint(uint64(h), 10) }

// ProgramHandle identifies a linked program. Zero is invalid.
type ProgramHandle uint64

// Valid reports whether h refers to an object.
func (h ProgramHandle) Valid() bool { return h != 0 }

// String returns "program#N".
func (h ProgramHandle) String() string { return "program#" + strconv.FormatUint(uint64(h), 10) }

// Backend is the graphics API seen by the program registry.
//
// All methods are called from the goroutine that owns the graphics
// context; implementations need not be safe for concurrent use.
type Backend interface {
	// Name returns the backend identifier (e.g., "wgpu", "software").
	Name() string

	// CompileShader compiles one stage. It returns the compiler log, which
	// may hold warnings on success. On failure the handle is zero, the log
	// holds the diagnostics and the error wraps ErrCompileFailed.
	CompileShader(stage gputypes.ShaderStage, label, source string) (ShaderHandle, string, error)

	// LinkProgram links a vertex and a fragment shader. On failure the
	// handle is zero, the log holds the reasons and the error wraps
	// ErrLinkFailed. The shaders stay owned by the caller.
	LinkProgram(label string, vertex, fragment ShaderHandle) (ProgramHandle, string, error)

	// DeleteShader releases a shader. Unknown handles are ignored.
	DeleteShader(ShaderHandle)

	// DeleteProgram releases a program. Unknown handles are ignored.
	// Deleting the bound program unbinds it.
	DeleteProgram(ProgramHandle)

	// UseProgram binds p as the current program. The zero handle unbinds.
	UseProgram(ProgramHandle)

	// SetUniform writes value into the uniform called name of program p.
	SetUniform(p ProgramHandle, name string, value any) error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()
}

package program

import (
	"github.com/gogpu/shaderlive/backend"
	"github.com/gogpu/shaderlive/resolve"
)

// CompiledProgram is the result of one build of a named shader.
type CompiledProgram struct {
	Name string

	// Program and the stage handles are zero unless Valid.
	Program  backend.ProgramHandle
	Vertex   backend.ShaderHandle
	Fragment backend.ShaderHandle

	// VertexPath and FragmentPath are absolute.
	VertexPath   string
	FragmentPath string

	// Diagnostic is the compiler and linker output with line references
	// attributed to the original files. On success it reports success.
	Diagnostic string

	// Valid is true only when both stages compiled and linked.
	Valid bool

	// Metadata merges the vertex and fragment directives; vertex
	// declarations win.
	Metadata resolve.Metadata

	// Generation counts the successful builds of this name.
	Generation int
}

// CompileEvent describes one build attempt.
type CompileEvent struct {
	Name       string
	Success    bool
	Diagnostic string
}

// Listener is notified of every build attempt.
type Listener interface {
	ProgramCompiled(CompileEvent)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(CompileEvent)

// ProgramCompiled calls f(e).
func (f ListenerFunc) ProgramCompiled(e CompileEvent) {
	f(e)
}

package wgslc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga/ir"
)

// ErrNoEntryPoint is returned when a module lacks an entry point for the
// requested stage.
var ErrNoEntryPoint = errors.New("wgslc: no entry point for stage")

// StageName returns the WGSL attribute name of a stage.
func StageName(stage ir.ShaderStage) string {
	switch stage {
	case ir.StageVertex:
		return "vertex"
	case ir.StageFragment:
		return "fragment"
	case ir.StageCompute:
		return "compute"
	case ir.StageTask:
		return "task"
	case ir.StageMesh:
		return "mesh"
	default:
		return fmt.Sprintf("stage(%d)", stage)
	}
}

// CompileStage compiles source and requires an entry point for stage.
// It returns the module and the entry point name.
func CompileStage(stage ir.ShaderStage, source string) (*Module, string, error) {
	m, err := Compile(source)
	if err != nil {
		return nil, "", err
	}
	entry, ok := m.EntryPoint(stage)
	if !ok {
		return nil, "", &Error{
			Phase:       "entry point",
			Diagnostics: []Diagnostic{{Message: fmt.Sprintf("no @%s entry point", StageName(stage))}},
		}
	}
	return m, entry, nil
}

// Linked is the result of checking a vertex and fragment module together.
type Linked struct {
	VertexEntry   string
	FragmentEntry string

	// Uniforms is the merged uniform set of both stages, sorted by group
	// and binding.
	Uniforms []Uniform
}

// LinkError describes why two stages do not form a program.
type LinkError struct {
	Problems []string
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	return "link error: " + e.Log()
}

// Log returns one problem per line.
func (e *LinkError) Log() string {
	return strings.Join(e.Problems, "\n")
}

// Link checks that the fragment inputs are produced by the vertex stage
// and merges the uniforms declared by both.
func Link(vertex, fragment *Module) (*Linked, error) {
	vsEntry, ok := vertex.EntryPoint(ir.StageVertex)
	if !ok {
		return nil, &LinkError{Problems: []string{"vertex module has no @vertex entry point"}}
	}
	fsEntry, ok := fragment.EntryPoint(ir.StageFragment)
	if !ok {
		return nil, &LinkError{Problems: []string{"fragment module has no @fragment entry point"}}
	}

	var problems []string
	outputs := make(map[uint32]Varying)
	for _, v := range vertex.Outputs(vsEntry) {
		outputs[v.Location] = v
	}
	for _, in := range fragment.Inputs(fsEntry) {
		out, ok := outputs[in.Location]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf(
				"fragment input %q at @location(%d) is not written by the vertex stage", in.Name, in.Location))
		case out.Type != in.Type:
			problems = append(problems, fmt.Sprintf(
				"fragment input %q at @location(%d) has type %s, vertex output %q has type %s",
				in.Name, in.Location, in.Type, out.Name, out.Type))
		}
	}

	uniforms, conflicts := MergeUniforms(vertex.Uniforms(), fragment.Uniforms())
	problems = append(problems, conflicts...)

	if len(problems) > 0 {
		return nil, &LinkError{Problems: problems}
	}
	return &Linked{VertexEntry: vsEntry, FragmentEntry: fsEntry, Uniforms: uniforms}, nil
}

// MergeUniforms combines uniform sets. Declarations of the same group and
// binding must agree on name and type; each disagreement is returned as a
// problem.
func MergeUniforms(sets ...[]Uniform) ([]Uniform, []string) {
	type key struct{ group, binding uint32 }
	seen := make(map[key]Uniform)
	var (
		out      []Uniform
		problems []string
	)
	for _, set := range sets {
		for _, u := range set {
			k := key{u.Group, u.Binding}
			prev, ok := seen[k]
			if !ok {
				seen[k] = u
				out = append(out, u)
				continue
			}
			if prev.Name != u.Name || prev.Type != u.Type || prev.Size != u.Size {
				problems = append(problems, fmt.Sprintf(
					"@group(%d) @binding(%d) declared as %s: %s and %s: %s",
					u.Group, u.Binding, prev.Name, prev.Type, u.Name, u.Type))
			}
		}
	}
	sortUniforms(out)
	return out, problems
}

// FindField looks name up as a struct member first, then as the name of a
// non-struct uniform.
func FindField(uniforms []Uniform, name string) (Uniform, Field, bool) {
	for _, u := range uniforms {
		if len(u.Fields) == 1 && u.Fields[0].Name == u.Name {
			continue
		}
		if f, ok := u.Field(name); ok {
			return u, f, true
		}
	}
	for _, u := range uniforms {
		if u.Name == name && len(u.Fields) == 1 && u.Fields[0].Name == u.Name {
			return u, u.Fields[0], true
		}
	}
	return Uniform{}, Field{}, false
}

package wgslc

import (
	"fmt"
	"sort"

	"github.com/gogpu/naga/ir"
)

// Varying is a user-defined value passed between stages through @location.
type Varying struct {
	Name     string
	Location uint32
	Type     string
}

// EntryPoint returns the name of the first entry point for stage.
func (m *Module) EntryPoint(stage ir.ShaderStage) (string, bool) {
	for _, ep := range m.IR.EntryPoints {
		if ep.Stage == stage {
			return ep.Name, true
		}
	}
	return "", false
}

func (m *Module) entry(name string) *ir.EntryPoint {
	for i := range m.IR.EntryPoints {
		if m.IR.EntryPoints[i].Name == name {
			return &m.IR.EntryPoints[i]
		}
	}
	return nil
}

// Inputs returns the @location arguments of an entry point, sorted by
// location. Struct arguments contribute their members.
func (m *Module) Inputs(entry string) []Varying {
	ep := m.entry(entry)
	if ep == nil {
		return nil
	}
	var out []Varying
	for _, arg := range ep.Function.Arguments {
		out = m.appendVaryings(out, arg.Name, arg.Type, arg.Binding)
	}
	sortVaryings(out)
	return out
}

// Outputs returns the @location results of an entry point, sorted by
// location.
func (m *Module) Outputs(entry string) []Varying {
	ep := m.entry(entry)
	if ep == nil || ep.Function.Result == nil {
		return nil
	}
	res := ep.Function.Result
	out := m.appendVaryings(nil, "", res.Type, res.Binding)
	sortVaryings(out)
	return out
}

func (m *Module) appendVaryings(out []Varying, name string, ty ir.TypeHandle, binding *ir.Binding) []Varying {
	if binding != nil {
		switch loc := (*binding).(type) {
		case ir.LocationBinding:
			out = append(out, Varying{Name: name, Location: loc.Location, Type: TypeName(m.IR, ty)})
		case *ir.LocationBinding:
			out = append(out, Varying{Name: name, Location: loc.Location, Type: TypeName(m.IR, ty)})
		}
		return out
	}
	if int(ty) >= len(m.IR.Types) {
		return out
	}
	if st, ok := m.IR.Types[ty].Inner.(ir.StructType); ok {
		for _, member := range st.Members {
			out = m.appendVaryings(out, member.Name, member.Type, member.Binding)
		}
	}
	return out
}

func sortVaryings(v []Varying) {
	sort.Slice(v, func(i, j int) bool { return v[i].Location < v[j].Location })
}

// TypeName renders a type handle in WGSL syntax.
func TypeName(module *ir.Module, handle ir.TypeHandle) string {
	if int(handle) >= len(module.Types) {
		return "<invalid>"
	}
	t := module.Types[handle]
	switch inner := t.Inner.(type) {
	case ir.ScalarType:
		return scalarName(inner)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", inner.Size, scalarName(inner.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", inner.Columns, inner.Rows, scalarName(inner.Scalar))
	case ir.AtomicType:
		return fmt.Sprintf("atomic<%s>", scalarName(inner.Scalar))
	case ir.ArrayType:
		if inner.Size.Constant == nil {
			return fmt.Sprintf("array<%s>", TypeName(module, inner.Base))
		}
		return fmt.Sprintf("array<%s, %d>", TypeName(module, inner.Base), *inner.Size.Constant)
	case ir.StructType:
		if t.Name != "" {
			return t.Name
		}
		return "struct"
	default:
		if t.Name != "" {
			return t.Name
		}
		return fmt.Sprintf("%T", inner)
	}
}

func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		if s.Width == 2 {
			return "f16"
		}
		if s.Width == 8 {
			return "f64"
		}
		return "f32"
	case ir.ScalarSint:
		if s.Width == 8 {
			return "i64"
		}
		return "i32"
	case ir.ScalarUint:
		if s.Width == 8 {
			return "u64"
		}
		return "u32"
	case ir.ScalarBool:
		return "bool"
	default:
		return "abstract"
	}
}

// Uniform is a var<uniform> global of a compiled module.
type Uniform struct {
	Name    string
	Group   uint32
	Binding uint32
	Type    string
	Size    uint32

	// Fields lists the settable values inside the uniform. A struct
	// uniform has one field per member; any other uniform has a single
	// field named after the variable.
	Fields []Field
}

// Field finds a field by name.
func (u *Uniform) Field(name string) (Field, bool) {
	for _, f := range u.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Uniforms returns the module's uniform variables sorted by group and
// binding.
func (m *Module) Uniforms() []Uniform {
	var out []Uniform
	for _, gv := range m.IR.GlobalVariables {
		if gv.Space != ir.SpaceUniform || gv.Binding == nil {
			continue
		}
		u := Uniform{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Type:    TypeName(m.IR, gv.Type),
			Size:    ir.TypeSize(m.IR, gv.Type),
		}
		if st, ok := m.IR.Types[gv.Type].Inner.(ir.StructType); ok {
			for _, member := range st.Members {
				u.Fields = append(u.Fields, newField(m.IR, member.Name, member.Type, member.Offset))
			}
		} else {
			u.Fields = []Field{newField(m.IR, gv.Name, gv.Type, 0)}
		}
		out = append(out, u)
	}
	sortUniforms(out)
	return out
}

func sortUniforms(u []Uniform) {
	sort.Slice(u, func(i, j int) bool {
		if u[i].Group != u[j].Group {
			return u[i].Group < u[j].Group
		}
		return u[i].Binding < u[j].Binding
	})
}

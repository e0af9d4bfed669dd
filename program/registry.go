package program

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaderlive/backend"
	"github.com/gogpu/shaderlive/internal/logging"
	"github.com/gogpu/shaderlive/resolve"
)

// SuccessDiagnostic is the diagnostic of a build without warnings.
const SuccessDiagnostic = "Compiled and linked successfully"

// Registry owns the compiled programs of a backend.
type Registry struct {
	backend   backend.Backend
	resolver  *resolve.Resolver
	listeners []Listener
	logger    *slog.Logger

	entries map[string]*entry
	bound   string
}

type entry struct {
	// current is the registry's view of the program: the last valid build,
	// or the latest failed one if no build ever succeeded.
	current CompiledProgram

	// Paths used by the next Reload.
	vertexPath   string
	fragmentPath string

	// deps are the files of the latest attempt.
	deps []string

	// lastFailure is the diagnostic of the latest attempt if it failed.
	lastFailure string
}

// NewRegistry creates a registry that builds programs with b.
func NewRegistry(b backend.Backend, opts ...Option) *Registry {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger)
	if o.resolver == nil {
		o.resolver = resolve.New(resolve.WithLogger(logger))
	}
	return &Registry{
		backend:   b,
		resolver:  o.resolver,
		listeners: o.listeners,
		logger:    logger,
		entries:   make(map[string]*entry),
	}
}

// Load builds the program called name from two files and returns the
// result of this attempt. The paths are stored for Reload even when the
// build fails. A valid result replaces the previous program; a failed one
// only replaces a program that was itself invalid.
func (r *Registry) Load(name, vertexPath, fragmentPath string) CompiledProgram {
	prog, deps := r.build(name, vertexPath, fragmentPath)

	e, ok := r.entries[name]
	if !ok {
		e = &entry{}
		r.entries[name] = e
	}
	e.vertexPath, e.fragmentPath = prog.VertexPath, prog.FragmentPath

	r.commit(e, &prog, deps)
	r.notify(prog)
	return prog
}

// Reload rebuilds name from its stored paths. It reports whether the entry
// was replaced by a valid program. Unknown names return false.
func (r *Registry) Reload(name string) bool {
	e, ok := r.entries[name]
	if !ok {
		return false
	}
	prog, deps := r.build(name, e.vertexPath, e.fragmentPath)
	replaced := r.commit(e, &prog, deps)
	r.notify(prog)
	return replaced
}

// Get returns a copy of the registry entry for name.
func (r *Registry) Get(name string) (CompiledProgram, bool) {
	e, ok := r.entries[name]
	if !ok {
		return CompiledProgram{}, false
	}
	return e.current, true
}

// Names returns the sorted names of all loaded programs.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependencies returns the files the latest build of name read, including
// its two entry files.
func (r *Registry) Dependencies(name string) []string {
	e, ok := r.entries[name]
	if !ok {
		return nil
	}
	return append([]string(nil), e.deps...)
}

// Dependents returns the sorted names of programs whose latest build read
// path.
func (r *Registry) Dependents(path string) []string {
	path = filepath.Clean(path)
	var names []string
	for name, e := range r.entries {
		for _, dep := range e.deps {
			if dep == path {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// LastFailure returns the diagnostic of the latest build of name if that
// build failed.
func (r *Registry) LastFailure(name string) (string, bool) {
	e, ok := r.entries[name]
	if !ok || e.lastFailure == "" {
		return "", false
	}
	return e.lastFailure, true
}

// Use binds the program called name. The binding follows the name: when
// the program is replaced by a reload, the new build is bound.
func (r *Registry) Use(name string) {
	r.bound = name
	r.backend.UseProgram(r.boundHandle())
}

// Bound returns the bound name, or "" if none.
func (r *Registry) Bound() string {
	return r.bound
}

// SetUniform sets a uniform of the bound program. With no program bound,
// or an invalid one, it does nothing and returns nil.
func (r *Registry) SetUniform(name string, value any) error {
	h := r.boundHandle()
	if !h.Valid() {
		return nil
	}
	return r.backend.SetUniform(h, name, value)
}

// Close releases every program and forgets all entries.
func (r *Registry) Close() {
	r.backend.UseProgram(0)
	for name, e := range r.entries {
		r.release(e.current)
		delete(r.entries, name)
	}
	r.bound = ""
}

func (r *Registry) boundHandle() backend.ProgramHandle {
	if e, ok := r.entries[r.bound]; ok && e.current.Valid {
		return e.current.Program
	}
	return 0
}

// commit applies the replace-on-success policy and reports whether prog
// became the current program.
func (r *Registry) commit(e *entry, prog *CompiledProgram, deps []string) bool {
	e.deps = deps

	if prog.Valid {
		old := e.current
		prog.Generation = old.Generation + 1
		e.current = *prog
		e.lastFailure = ""
		r.release(old)
		if r.bound == prog.Name {
			r.backend.UseProgram(prog.Program)
		}
		r.logger.Info("program: compiled", "name", prog.Name, "generation", prog.Generation)
		return true
	}

	e.lastFailure = prog.Diagnostic
	prog.Generation = e.current.Generation
	if !e.current.Valid {
		e.current = *prog
	}
	r.logger.Warn("program: build failed", "name", prog.Name, "diagnostic", prog.Diagnostic)
	return false
}

func (r *Registry) notify(prog CompiledProgram) {
	ev := CompileEvent{Name: prog.Name, Success: prog.Valid, Diagnostic: prog.Diagnostic}
	for _, l := range r.listeners {
		l.ProgramCompiled(ev)
	}
}

// build resolves, compiles and links one program. It never touches the
// registry entry. Backend objects of a failed build are deleted.
func (r *Registry) build(name, vertexPath, fragmentPath string) (CompiledProgram, []string) {
	vs := r.resolver.Resolve(vertexPath)
	fs := r.resolver.Resolve(fragmentPath)

	prog := CompiledProgram{
		Name:         name,
		VertexPath:   vs.Entry,
		FragmentPath: fs.Entry,
		Metadata:     vs.Metadata.Merge(fs.Metadata),
	}
	deps := union(vs.IncludedFiles, fs.IncludedFiles)

	vh, vlog, verr := r.backend.CompileShader(gputypes.ShaderStageVertex, name+".vertex", vs.Source)
	fh, flog, ferr := r.backend.CompileShader(gputypes.ShaderStageFragment, name+".fragment", fs.Source)

	if verr != nil || ferr != nil {
		var parts []string
		if verr != nil {
			parts = append(parts, stageReport("vertex", vs, vlog, verr))
		} else {
			r.backend.DeleteShader(vh)
		}
		if ferr != nil {
			parts = append(parts, stageReport("fragment", fs, flog, ferr))
		} else {
			r.backend.DeleteShader(fh)
		}
		prog.Diagnostic = strings.Join(parts, "\n")
		return prog, deps
	}

	ph, llog, lerr := r.backend.LinkProgram(name, vh, fh)
	if lerr != nil {
		r.backend.DeleteShader(vh)
		r.backend.DeleteShader(fh)
		if llog == "" {
			llog = lerr.Error()
		}
		prog.Diagnostic = "link:\n" + indent(llog)
		return prog, deps
	}

	prog.Program, prog.Vertex, prog.Fragment = ph, vh, fh
	prog.Valid = true
	prog.Diagnostic = SuccessDiagnostic
	if warnings := joinNonEmpty(vs.Attribute(vlog), fs.Attribute(flog)); warnings != "" {
		prog.Diagnostic += "\n" + indent(warnings)
	}
	return prog, deps
}

// release deletes the backend objects of a valid program.
func (r *Registry) release(p CompiledProgram) {
	if !p.Valid {
		return
	}
	r.backend.DeleteProgram(p.Program)
	r.backend.DeleteShader(p.Vertex)
	r.backend.DeleteShader(p.Fragment)
}

func stageReport(stage string, shader *resolve.ResolvedShader, log string, err error) string {
	if log == "" {
		log = err.Error()
	}
	return fmt.Sprintf("%s %s:\n%s", stage, shader.Entry, indent(shader.Attribute(log)))
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, p := range list {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

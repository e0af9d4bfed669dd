// Package wgslc wraps the naga WGSL front end for the shaderlive backends.
//
// Compile runs the full naga pipeline (parse, lower, validate, SPIR-V) and
// converts failures into line-addressed diagnostics, so callers can map the
// reported lines of a flattened source back to the files it came from.
package wgslc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/naga/wgsl"
)

// Diagnostic is a single compiler message.
// Line and Column are 1-based; zero means the location is unknown.
type Diagnostic struct {
	Line    int
	Column  int
	Message string
}

// String formats the diagnostic the way naga does ("line L, column C: msg").
func (d Diagnostic) String() string {
	switch {
	case d.Line > 0 && d.Column > 0:
		return fmt.Sprintf("line %d, column %d: %s", d.Line, d.Column, d.Message)
	case d.Line > 0:
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	default:
		return d.Message
	}
}

// Error is returned by Compile when the source does not compile.
type Error struct {
	// Phase names the pipeline step that failed: "preprocess", "parse",
	// "lower", "validate" or "spirv".
	Phase       string
	Diagnostics []Diagnostic
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Phase + " error: " + e.Log()
}

// Log returns all diagnostics, one per line.
func (e *Error) Log() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// Module is a successfully compiled WGSL source.
type Module struct {
	// IR is the validated naga module, used for reflection.
	IR *ir.Module

	// SPIRV is the generated code as little-endian 32-bit words.
	SPIRV []uint32

	// Warnings holds non-fatal lowering diagnostics.
	Warnings []Diagnostic
}

// WarningLog returns the warnings, one per line.
func (m *Module) WarningLog() string {
	lines := make([]string, len(m.Warnings))
	for i, w := range m.Warnings {
		lines[i] = "warning: " + w.String()
	}
	return strings.Join(lines, "\n")
}

var (
	// naga parse errors: "line 3, column 7: expected ..."
	lineColumnPattern = regexp.MustCompile(`line (\d+), column (\d+): (.*)`)
	// naga lowering errors: "3:7: undefined identifier ..."
	spanPattern = regexp.MustCompile(`(?m)^(?:[a-zA-Z ]+error: )*(\d+):(\d+): (.*)$`)
)

// Compile compiles WGSL source to SPIR-V.
//
// Lines starting with "#error" are reported as errors at their own line
// without invoking naga, which lets a preprocessor surface problems through
// the normal compile diagnostics.
func Compile(source string) (*Module, error) {
	if diags := ErrorDirectives(source); len(diags) > 0 {
		return nil, &Error{Phase: "preprocess", Diagnostics: diags}
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, &Error{Phase: "parse", Diagnostics: parseDiagnostics(err)}
	}

	lowered, err := wgsl.LowerWithWarnings(ast, source)
	if err != nil {
		return nil, &Error{Phase: "lower", Diagnostics: parseDiagnostics(err)}
	}

	validationErrors, err := naga.Validate(lowered.Module)
	if err != nil {
		return nil, &Error{Phase: "validate", Diagnostics: []Diagnostic{{Message: err.Error()}}}
	}
	if len(validationErrors) > 0 {
		diags := make([]Diagnostic, len(validationErrors))
		for i := range validationErrors {
			diags[i] = Diagnostic{Message: validationErrors[i].Error()}
		}
		return nil, &Error{Phase: "validate", Diagnostics: diags}
	}

	spirvBytes, err := naga.GenerateSPIRV(lowered.Module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, &Error{Phase: "spirv", Diagnostics: []Diagnostic{{Message: err.Error()}}}
	}

	m := &Module{
		IR:    lowered.Module,
		SPIRV: Words(spirvBytes),
	}
	for _, w := range lowered.Warnings {
		m.Warnings = append(m.Warnings, Diagnostic{
			Line:    w.Span.Start.Line,
			Column:  w.Span.Start.Column,
			Message: w.Message,
		})
	}
	return m, nil
}

// ErrorDirectives returns one diagnostic per "#error" line in source.
func ErrorDirectives(source string) []Diagnostic {
	var diags []Diagnostic
	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(trimmed, "#error")
		if !ok {
			continue
		}
		msg := strings.TrimSpace(rest)
		if msg == "" {
			msg = "#error"
		}
		diags = append(diags, Diagnostic{Line: i + 1, Message: "error: " + msg})
	}
	return diags
}

// parseDiagnostics extracts locations from a naga error message.
func parseDiagnostics(err error) []Diagnostic {
	text := err.Error()

	if m := lineColumnPattern.FindStringSubmatch(text); m != nil {
		return []Diagnostic{{Line: atoi(m[1]), Column: atoi(m[2]), Message: m[3]}}
	}

	var diags []Diagnostic
	for _, m := range spanPattern.FindAllStringSubmatch(text, -1) {
		diags = append(diags, Diagnostic{Line: atoi(m[1]), Column: atoi(m[2]), Message: m[3]})
	}
	if len(diags) > 0 {
		return diags
	}
	return []Diagnostic{{Message: text}}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Words converts SPIR-V bytes to a uint32 slice.
// SPIR-V is little-endian 32-bit words; trailing bytes are ignored.
func Words(spirvBytes []byte) []uint32 {
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code
}

package resolve

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// LineMapping maps one line of flattened source back to its origin.
type LineMapping struct {
	// FlattenedLine is the 1-based line number in ResolvedShader.Source.
	FlattenedLine int

	// OriginFile is the absolute path of the file the line came from, or
	// "embedded:<name>" for lines inlined from the fallback library.
	OriginFile string

	// OriginLine is the 1-based line in OriginFile. Zero means the line has
	// no source position (a marker emitted for a missing entry file).
	OriginLine int
}

// String returns "file:line".
func (m LineMapping) String() string {
	return m.OriginFile + ":" + strconv.Itoa(m.OriginLine)
}

// ResolvedShader is the immutable result of resolving one entry file.
type ResolvedShader struct {
	// Entry is the absolute path of the entry file.
	Entry string

	// Source is the flattened source. Every line, including the last one,
	// is terminated by a newline.
	Source string

	// IncludedFiles lists every absolute path the resolution visited, the
	// entry file first, without duplicates. Paths that could not be read
	// are included so that creating them later can trigger a rebuild.
	IncludedFiles []string

	// LineMappings has exactly one entry per line of Source, in strictly
	// increasing FlattenedLine order.
	LineMappings []LineMapping

	// Metadata holds the directives stripped from the source.
	Metadata Metadata
}

// LineCount returns the number of lines in Source.
func (s *ResolvedShader) LineCount() int {
	return len(s.LineMappings)
}

// Lookup returns the origin of a 1-based flattened line.
func (s *ResolvedShader) Lookup(line int) (LineMapping, bool) {
	i := sort.Search(len(s.LineMappings), func(i int) bool {
		return s.LineMappings[i].FlattenedLine >= line
	})
	if i < len(s.LineMappings) && s.LineMappings[i].FlattenedLine == line {
		return s.LineMappings[i], true
	}
	return LineMapping{}, false
}

// Includes reports whether path was visited while resolving s.
func (s *ResolvedShader) Includes(path string) bool {
	for _, p := range s.IncludedFiles {
		if p == path {
			return true
		}
	}
	return false
}

var (
	// "line 12" anywhere in a message, as naga and our #error diagnostics print it.
	lineRefPattern = regexp.MustCompile(`\bline (\d+)\b`)
	// "12:4:" at the start of a message.
	spanRefPattern = regexp.MustCompile(`^\s*(\d+):(\d+):`)
)

// Attribute annotates every line of a compiler diagnostic that refers to a
// flattened line number with the original location, as in
//
//	line 14, column 3: expected ';' [/shaders/common.wgsl:2]
//
// Lines without a recognizable reference are returned unchanged.
func (s *ResolvedShader) Attribute(diagnostic string) string {
	if diagnostic == "" {
		return diagnostic
	}
	lines := strings.Split(diagnostic, "\n")
	for i, line := range lines {
		var ref string
		if m := lineRefPattern.FindStringSubmatch(line); m != nil {
			ref = m[1]
		} else if m := spanRefPattern.FindStringSubmatch(line); m != nil {
			ref = m[1]
		}
		if ref == "" {
			continue
		}
		n, err := strconv.Atoi(ref)
		if err != nil {
			continue
		}
		if origin, ok := s.Lookup(n); ok {
			lines[i] = fmt.Sprintf("%s [%s]", line, origin)
		}
	}
	return strings.Join(lines, "\n")
}

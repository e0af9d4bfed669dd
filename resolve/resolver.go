package resolve

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/shaderlive/internal/logging"
)

var (
	includePattern = regexp.MustCompile(`^\s*#pragma\s+include\s*\(\s*"([^"]+)"\s*\)\s*$`)
	includeHead    = regexp.MustCompile(`^\s*#pragma\s+include\b`)
)

// strippedLine replaces a recognized directive in the flattened source.
const strippedLine = "//"

// Option configures a Resolver.
type Option func(*options)

type options struct {
	library     *Library
	recognizers []Recognizer
	readFile    func(path string) ([]byte, error)
	logger      *slog.Logger
}

// WithLibrary sets the fallback library. Passing nil disables the fallback.
func WithLibrary(l *Library) Option {
	return func(o *options) {
		o.library = l
	}
}

// WithRecognizers replaces the metadata grammar.
func WithRecognizers(r ...Recognizer) Option {
	return func(o *options) {
		o.recognizers = r
	}
}

// WithReadFile replaces os.ReadFile as the source of file contents.
func WithReadFile(fn func(path string) ([]byte, error)) Option {
	return func(o *options) {
		o.readFile = fn
	}
}

// WithLogger sets the logger for resolution events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Resolver flattens shader sources. A Resolver holds no per-call state and
// may be used from several goroutines.
type Resolver struct {
	library     *Library
	recognizers []Recognizer
	readFile    func(path string) ([]byte, error)
	logger      *slog.Logger
}

// New creates a Resolver. Without options it reads from disk, falls back to
// DefaultLibrary and uses DefaultRecognizers.
func New(opts ...Option) *Resolver {
	o := options{
		library:     DefaultLibrary(),
		recognizers: DefaultRecognizers(),
		readFile:    os.ReadFile,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Resolver{
		library:     o.library,
		recognizers: o.recognizers,
		readFile:    o.readFile,
		logger:      logging.OrNop(o.logger),
	}
}

// Library returns the fallback library in use.
func (r *Resolver) Library() *Library {
	return r.library
}

// Resolve flattens the file at entryPath and everything it includes.
// It never fails: problems are reported as "#error" lines in the result.
func (r *Resolver) Resolve(entryPath string) *ResolvedShader {
	entry := absPath(entryPath)
	s := &resolution{
		r:       r,
		visited: make(map[string]bool),
		shader:  &ResolvedShader{Entry: entry},
	}
	s.include(entry, site{file: entry}, true)
	s.shader.Source = s.out.String()

	r.logger.Debug("resolve: shader flattened",
		"entry", entry,
		"lines", len(s.shader.LineMappings),
		"files", len(s.shader.IncludedFiles))
	return s.shader
}

// site is the position an include was requested from.
type site struct {
	file string
	line int
}

// resolution is the state of one Resolve call.
type resolution struct {
	r       *Resolver
	stack   []string
	visited map[string]bool
	out     strings.Builder
	shader  *ResolvedShader
}

func (s *resolution) emit(text string, at site) {
	s.out.WriteString(text)
	s.out.WriteByte('\n')
	s.shader.LineMappings = append(s.shader.LineMappings, LineMapping{
		FlattenedLine: len(s.shader.LineMappings) + 1,
		OriginFile:    at.file,
		OriginLine:    at.line,
	})
}

func (s *resolution) onStack(id string) bool {
	for _, p := range s.stack {
		if p == id {
			return true
		}
	}
	return false
}

func (s *resolution) include(path string, from site, entry bool) {
	id := fileID(path)
	if s.onStack(id) {
		s.r.logger.Warn("resolve: include loop", "path", path, "from", from.file, "line", from.line)
		s.emit("#error Include loop detected: "+path, from)
		return
	}
	if !s.visited[id] {
		s.visited[id] = true
		s.shader.IncludedFiles = append(s.shader.IncludedFiles, path)
	}

	s.stack = append(s.stack, id)
	defer func() { s.stack = s.stack[:len(s.stack)-1] }()

	origin := path
	data, err := s.r.readFile(path)
	if err != nil {
		name := filepath.Base(path)
		src, ok := s.r.library.Lookup(name)
		if !ok {
			s.r.logger.Warn("resolve: source not found", "path", path, "error", err)
			if entry {
				s.emit("#error Shader source not found: "+path, from)
			} else {
				s.emit("#error Include not found: "+path, from)
			}
			return
		}
		s.r.logger.Debug("resolve: using embedded fallback", "path", path, "name", name)
		data = []byte(src)
		origin = EmbeddedPrefix + name
	}

	dir := filepath.Dir(path)
	for i, line := range splitLines(string(data)) {
		at := site{file: origin, line: i + 1}

		if m := includePattern.FindStringSubmatch(line); m != nil {
			target := m[1]
			if !filepath.IsAbs(target) {
				target = filepath.Join(dir, target)
			}
			s.include(filepath.Clean(target), at, false)
			continue
		}
		if includeHead.MatchString(line) {
			s.emit("#error malformed include directive: "+strconv.Quote(strings.TrimSpace(line)), at)
			continue
		}

		handled, err := s.recognize(line)
		switch {
		case err != nil:
			s.emit("#error "+err.Error(), at)
		case handled:
			s.emit(strippedLine, at)
		default:
			s.emit(line, at)
		}
	}
}

func (s *resolution) recognize(line string) (bool, error) {
	for _, rec := range s.r.recognizers {
		ok, err := rec.Recognize(line, &s.shader.Metadata)
		if ok || err != nil {
			return true, err
		}
	}
	return false, nil
}

// splitLines splits text into lines, accepting "\n" and "\r\n". A trailing
// newline does not produce an empty final line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// fileID identifies a file for loop detection. Paths through symlinks
// resolve to the same ID; paths that do not exist are their own ID.
func fileID(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

package resolve

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed library/*.wgsl
var libraryFS embed.FS

// EmbeddedPrefix marks lines inlined from the fallback library.
const EmbeddedPrefix = "embedded:"

// Library is a read-only table of fallback snippets keyed by file name.
// A Library is safe for concurrent use.
type Library struct {
	files map[string]string
}

// NewLibrary returns a library holding a copy of files.
func NewLibrary(files map[string]string) *Library {
	l := &Library{files: make(map[string]string, len(files))}
	for name, src := range files {
		l.files[name] = src
	}
	return l
}

// DefaultLibrary returns the snippets compiled into the binary.
func DefaultLibrary() *Library {
	l := &Library{files: make(map[string]string)}
	entries, err := fs.ReadDir(libraryFS, "library")
	if err != nil {
		return l
	}
	for _, e := range entries {
		data, err := fs.ReadFile(libraryFS, path.Join("library", e.Name()))
		if err != nil {
			continue
		}
		l.files[e.Name()] = string(data)
	}
	return l
}

// Lookup returns the snippet stored under name.
func (l *Library) Lookup(name string) (string, bool) {
	if l == nil {
		return "", false
	}
	src, ok := l.files[name]
	return src, ok
}

// Names returns the sorted snippet names.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	names := make([]string, 0, len(l.files))
	for name := range l.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overlay returns a new library containing l's snippets plus every *.wgsl
// file in dir. Files in dir replace snippets of the same name.
func (l *Library) Overlay(dir string) (*Library, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve: reading library overlay: %w", err)
	}
	out := NewLibrary(nil)
	if l != nil {
		for name, src := range l.files {
			out.files[name] = src
		}
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wgsl") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolve: reading library overlay: %w", err)
		}
		out.files[e.Name()] = string(data)
	}
	return out, nil
}

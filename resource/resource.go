// Package resource provides the sources a compilation reads: the root file
// and everything it includes.
package resource

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"unicode/utf8"
)

// ErrNotFound is returned when reading a resource that does not exist.
var ErrNotFound = errors.New("resource not found")

// Resource is one readable source.
type Resource interface {
	// Name is the path shown in diagnostics.
	Name() string
	// Identity is equal for two resources backed by the same source.
	Identity() string
	Exists() bool
	Read() (string, error)
	// Hash is the hex SHA-256 of the content.
	Hash() (string, error)
	Encoding() string
}

// Factory turns an include name into a resource.
type Factory interface {
	// Resolve finds name relative to the including resource. The result may
	// not exist; callers check Exists.
	Resolve(name string, relativeTo Resource) (Resource, error)
}

const utf8Encoding = "utf-8"

var bom = []byte{0xEF, 0xBB, 0xBF}

func decode(name string, b []byte) (string, error) {
	b = bytes.TrimPrefix(b, bom)
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s: content is not valid %s", name, utf8Encoding)
	}
	return string(b), nil
}

func hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// FS resolves resources inside a file system.
type FS struct {
	fsys   fs.FS
	search []string
}

// NewFS returns a factory over fsys. Names not found next to the including
// file are looked up in the search directories, in order.
func NewFS(fsys fs.FS, search ...string) *FS {
	f := &FS{fsys: fsys}
	for _, s := range search {
		f.search = append(f.search, clean(s))
	}
	return f
}

// Dir returns a factory over a directory on disk.
func Dir(dir string, search ...string) *FS {
	return NewFS(os.DirFS(dir), search...)
}

// Open returns the resource at name, relative to the file system root.
func (f *FS) Open(name string) Resource {
	return &file{fsys: f.fsys, path: clean(name)}
}

func (f *FS) Resolve(name string, relativeTo Resource) (Resource, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("empty resource name")
	}
	dirs := []string{"."}
	if !isAbs(name) {
		dirs = append(append([]string{}, f.search...), dirs...)
		if rel, ok := relativeTo.(*file); ok {
			dirs = append([]string{path.Dir(rel.path)}, dirs...)
		}
	}

	var first Resource
	for _, d := range dirs {
		r := &file{fsys: f.fsys, path: clean(path.Join(d, slashes(name)))}
		if r.Exists() {
			return r, nil
		}
		if first == nil {
			first = r
		}
	}
	return first, nil
}

func slashes(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

func isAbs(name string) bool {
	return strings.HasPrefix(slashes(name), "/")
}

// clean makes a name valid for fs.FS: slash separated, no leading slash.
func clean(name string) string {
	p := path.Clean("/" + slashes(name))
	if p == "/" {
		return "."
	}
	return p[1:]
}

type file struct {
	fsys fs.FS
	path string
}

func (r *file) Name() string     { return r.path }
func (r *file) Identity() string { return "file:" + r.path }
func (r *file) Encoding() string { return utf8Encoding }

func (r *file) Exists() bool {
	st, err := fs.Stat(r.fsys, r.path)
	return err == nil && !st.IsDir()
}

func (r *file) bytes() ([]byte, error) {
	b, err := fs.ReadFile(r.fsys, r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, r.path)
	}
	return b, err
}

func (r *file) Read() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return decode(r.path, b)
}

func (r *file) Hash() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return hash(b), nil
}

// Memory is a resource held in memory.
type Memory struct {
	name    string
	content string
}

// String returns an in-memory resource.
func String(name, content string) *Memory {
	return &Memory{name: name, content: content}
}

func (m *Memory) Name() string          { return m.name }
func (m *Memory) Identity() string      { return "memory:" + m.name }
func (m *Memory) Exists() bool          { return true }
func (m *Memory) Encoding() string      { return utf8Encoding }
func (m *Memory) Read() (string, error) { return decode(m.name, []byte(m.content)) }
func (m *Memory) Hash() (string, error) { return hash([]byte(m.content)), nil }

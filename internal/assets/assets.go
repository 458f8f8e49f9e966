// Package assets resolves ghost model identifiers to files and loads them.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when no file matches a model identifier.
var ErrNotFound = errors.New("model not found")

// DefaultSubdir is the conventional directory for ghost models.
const DefaultSubdir = "Ghost"

// DefaultExtensions are tried, in order, when an identifier has no extension.
var DefaultExtensions = []string{"usdc", "usdz"}

// Config locates the model library.
type Config struct {
	Root       string   `json:"root" mapstructure:"root"`
	Subdir     string   `json:"subdir" mapstructure:"subdir"`
	Extensions []string `json:"extensions" mapstructure:"extensions"`
}

// Model is a loaded ghost representation.
type Model struct {
	ID   string
	Path string
	Data []byte
}

// Loader fetches a model by identifier. Implementations must honour ctx cancellation.
type Loader interface {
	Load(ctx context.Context, modelID string) (Model, error)
}

// Resolver maps identifiers such as "Quaternius", "Quaternius.usdc" or "Ghost/Wisp.usdz"
// to paths inside the library.
type Resolver struct {
	fs         afero.Fs
	root       string
	subdir     string
	extensions []string
}

func NewResolver(fs afero.Fs, cfg Config) *Resolver {
	r := &Resolver{
		fs:         fs,
		root:       cfg.Root,
		subdir:     cfg.Subdir,
		extensions: cfg.Extensions,
	}
	if r.subdir == "" {
		r.subdir = DefaultSubdir
	}
	if len(r.extensions) == 0 {
		r.extensions = DefaultExtensions
	}
	return r
}

// Resolve finds the file for modelID. For every candidate extension it tries the
// identifier's own directory, then the conventional subdirectory, then the library root.
func (r *Resolver) Resolve(modelID string) (string, error) {
	id := strings.Trim(strings.ReplaceAll(modelID, "\\", "/"), "/")
	if id == "" {
		return "", fmt.Errorf("resolve %q: %w", modelID, ErrNotFound)
	}

	dir, file := path.Split(id)
	dir = strings.TrimSuffix(dir, "/")
	name, ext := file, ""
	if i := strings.LastIndex(file, "."); i > 0 {
		name, ext = file[:i], file[i+1:]
	}

	exts := r.extensions
	if ext != "" {
		exts = []string{ext}
	}
	var dirs []string
	if dir != "" {
		dirs = append(dirs, dir)
	}
	dirs = uniq(append(dirs, r.subdir, ""))

	for _, e := range exts {
		for _, d := range dirs {
			candidate := path.Join(r.root, d, name+"."+e)
			ok, err := afero.Exists(r.fs, candidate)
			if err != nil {
				return "", fmt.Errorf("resolve %q: %w", modelID, err)
			}
			if ok {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("resolve %q: %w", modelID, ErrNotFound)
}

// Available lists model identifiers in the conventional subdirectory (prefixed with it)
// and at the library root, sorted.
func (r *Resolver) Available() ([]string, error) {
	seen := map[string]struct{}{}
	for _, d := range []string{r.subdir, ""} {
		entries, err := afero.ReadDir(r.fs, path.Join(r.root, d))
		if err != nil {
			if exists, _ := afero.DirExists(r.fs, path.Join(r.root, d)); !exists {
				continue
			}
			return nil, fmt.Errorf("list models: %w", err)
		}
		for _, fi := range entries {
			if fi.IsDir() || !r.hasModelExt(fi.Name()) {
				continue
			}
			id := fi.Name()
			if d != "" {
				id = d + "/" + id
			}
			seen[id] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Resolver) hasModelExt(name string) bool {
	for _, e := range r.extensions {
		if strings.HasSuffix(name, "."+e) {
			return true
		}
	}
	return false
}

func uniq(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

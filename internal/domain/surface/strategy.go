package surface

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// Request describes one surface to copy into the build directory
type Request struct {
	Kind       Kind
	Field      string
	Source     string
	Runtime    string
	ProjectDir string
	BuildDir   string
	// Skip reports whether a file, named as a slash path relative to the
	// project directory, is left out
	Skip func(rel string) bool
}

func (r Request) skip(rel string) bool {
	return r.Skip != nil && r.Skip(rel)
}

// CopyStrategy copies one surface and returns the generated files as slash
// paths relative to the build directory
type CopyStrategy interface {
	Copy(ctx context.Context, req Request) ([]string, error)
}

// Planner is implemented by strategies that can report the files they would
// generate, with their sizes, without copying anything
type Planner interface {
	Plan(ctx context.Context, req Request) (map[string]int64, error)
}

// DefaultStrategies returns the strategy table for every known kind
func DefaultStrategies() map[Kind]CopyStrategy {
	return map[Kind]CopyStrategy{
		KindHTTP: FileStrategy{},
		KindRPC:  FileStrategy{},
		KindUI:   TreeStrategy{},
	}
}

// FileStrategy copies the single module file a module:symbol reference points at
type FileStrategy struct{}

// locate finds the module file of the reference and its dist name
func (FileStrategy) locate(ctx context.Context, req Request) (src, out string, size int64, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", 0, err
	}

	ref, err := manifest.ParseRef(req.Source)
	if err != nil {
		return "", "", 0, types.ReferenceError(req.Field, req.Source, err)
	}

	candidates := ref.FileCandidates(req.Runtime)
	ignored := ""
	for _, cand := range candidates {
		src := filepath.Join(req.ProjectDir, filepath.FromSlash(cand))
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if req.skip(cand) {
			ignored = cand
			continue
		}
		return src, paths.DistPath(string(req.Kind), path.Base(cand)), info.Size(), nil
	}

	if ignored != "" {
		return "", "", 0, types.IgnoredSourceError(req.Field, ignored)
	}
	return "", "", 0, types.MissingSourceError(req.Field, filepath.Join(req.ProjectDir, filepath.FromSlash(candidates[0])))
}

// Plan implements Planner
func (s FileStrategy) Plan(ctx context.Context, req Request) (map[string]int64, error) {
	_, out, size, err := s.locate(ctx, req)
	if err != nil {
		return nil, err
	}
	return map[string]int64{out: size}, nil
}

// Copy implements CopyStrategy
func (s FileStrategy) Copy(ctx context.Context, req Request) ([]string, error) {
	src, out, _, err := s.locate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := copyFile(src, filepath.Join(req.BuildDir, filepath.FromSlash(out))); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

// TreeStrategy copies a directory tree, preserving relative structure
type TreeStrategy struct{}

// walk calls fn for every regular, non-skipped file of the tree with its
// on-disk path, dist name and size
func (TreeStrategy) walk(ctx context.Context, req Request, fn func(src, out string, size int64) error) error {
	root := req.Source
	if !filepath.IsAbs(root) {
		root = filepath.Join(req.ProjectDir, filepath.FromSlash(root))
	}

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return types.MissingSourceError(req.Field, root)
		}
		return fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s %q must be a directory", req.Field, req.Source)
	}

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}

		rel, err := paths.ToSlash(root, p)
		if err != nil {
			return err
		}
		// Ignore patterns are anchored at the project root. A tree outside
		// the project is matched by its own relative names.
		name := rel
		if projectRel, err := paths.ToSlash(req.ProjectDir, p); err == nil && paths.IsLocal(projectRel) {
			name = projectRel
		}
		if req.skip(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}
		return fn(p, paths.DistPath(string(req.Kind), rel), fi.Size())
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s surface: %w", req.Kind, err)
	}
	return nil
}

// Plan implements Planner
func (s TreeStrategy) Plan(ctx context.Context, req Request) (map[string]int64, error) {
	var mu sync.Mutex
	planned := make(map[string]int64)
	err := s.walk(ctx, req, func(_, out string, size int64) error {
		mu.Lock()
		planned[out] = size
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return planned, nil
}

// Copy implements CopyStrategy
func (s TreeStrategy) Copy(ctx context.Context, req Request) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	err := s.walk(ctx, req, func(src, out string, _ int64) error {
		if err := copyFile(src, filepath.Join(req.BuildDir, filepath.FromSlash(out))); err != nil {
			return err
		}
		mu.Lock()
		files = append(files, out)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

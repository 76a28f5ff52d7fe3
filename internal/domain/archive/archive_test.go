package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/surface"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

const testManifest = `id: classifier
version: 1.2.0
entrypoint: src.main:handler
exports:
  - id: classify
    path: src.main:classify
  - id: prompts
    path: prompts
surfaces:
  http:
    entry: src.main:mount
  ui:
    path: ui
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "agent.yaml", testManifest)
	writeFile(t, dir, "src/main.py", "def handler(ctx): pass\ndef classify(x): return x\ndef mount(app): pass\n")
	writeFile(t, dir, "prompts/system.txt", "You classify things.")
	writeFile(t, dir, "ui/index.html", "<html></html>")
	writeFile(t, dir, "ui/app.js", "console.log('hi')")
	writeFile(t, dir, ".env", "API_KEY=placeholder\n")
	writeFile(t, dir, "src/__pycache__/main.cpython-311.pyc", "bytecode")
	return dir
}

func builderFor(t *testing.T, out string) *Builder {
	opts := DefaultOptions()
	opts.OutputDir = out
	return NewBuilder(opts, nil, nil)
}

func memberNames(idx *Index) []string {
	names := make([]string, 0, len(idx.Members))
	for _, m := range idx.Members {
		names = append(names, m.Name)
	}
	return names
}

func TestBuildLayout(t *testing.T) {
	project := newProject(t)
	out := t.TempDir()

	art, err := builderFor(t, out).Build(context.Background(), project)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "classifier-1.2.0.apkg"), art.Path)
	assert.FileExists(t, art.Path)
	assert.FileExists(t, art.IndexPath)
	assert.True(t, strings.HasPrefix(art.Hash(), "sha256:"))

	assert.Equal(t, []string{
		"agent.yaml",
		"deploy.json",
		"dist/http/main.py",
		"dist/ui/app.js",
		"dist/ui/index.html",
		"prompts/system.txt",
		"src/main.py",
		"ui/app.js",
		"ui/index.html",
	}, memberNames(art.Index))

	zr, err := zip.OpenReader(art.Path)
	require.NoError(t, err)
	defer zr.Close()
	for i, f := range zr.File {
		assert.Equal(t, art.Index.Members[i].Name, f.Name)
		assert.True(t, epoch.Equal(f.Modified), "modified %s", f.Modified)
		assert.Equal(t, os.FileMode(0o644), f.Mode().Perm())
		assert.Equal(t, zip.Deflate, f.Method)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	project := newProject(t)

	a, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)
	b, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())

	ab, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	bb, err := os.ReadFile(b.Path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(ab, bb), "archives differ")
}

// copyTree copies a project to dst, stamping every file with mtime and mode
func copyTree(t *testing.T, src, dst string, mtime time.Time, mode os.FileMode) {
	t.Helper()
	err := filepath.WalkDir(src, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, mode); err != nil {
			return err
		}
		if err := os.Chmod(target, mode); err != nil {
			return err
		}
		return os.Chtimes(target, mtime, mtime)
	})
	require.NoError(t, err)
}

func TestBuildIgnoresPathTimesAndModes(t *testing.T) {
	project := newProject(t)
	moved := filepath.Join(t.TempDir(), "elsewhere", "checkout")
	copyTree(t, project, moved, time.Date(2031, 7, 4, 12, 0, 0, 0, time.UTC), 0o755)

	a, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)
	b, err := builderFor(t, t.TempDir()).Build(context.Background(), moved)
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())
	ab, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	bb, err := os.ReadFile(b.Path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(ab, bb), "archives differ")
}

func TestIgnorePatternsApplyToUISurface(t *testing.T) {
	project := newProject(t)
	writeFile(t, project, ".apkgignore", "ui/secret-config.js\nui/**/*.map\n")
	writeFile(t, project, "ui/secret-config.js", "window.KEY = 'x'")
	writeFile(t, project, "ui/js/app.js.map", "{}")
	writeFile(t, project, "ui/node_modules/lib.js", "export default 1")

	art, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)

	names := memberNames(art.Index)
	for _, gone := range []string{"ui/secret-config.js", "dist/ui/secret-config.js", "ui/js/app.js.map", "dist/ui/js/app.js.map"} {
		assert.NotContains(t, names, gone)
	}
	// root-anchored defaults do not reach into the ui tree
	assert.Contains(t, names, "ui/node_modules/lib.js")
	assert.Contains(t, names, "dist/ui/node_modules/lib.js")

	clean := newProject(t)
	writeFile(t, clean, "ui/node_modules/lib.js", "export default 1")
	writeFile(t, clean, ".apkgignore", "ui/secret-config.js\nui/**/*.map\n")
	want, err := builderFor(t, t.TempDir()).Build(context.Background(), clean)
	require.NoError(t, err)
	assert.Equal(t, want.Hash(), art.Hash())
}

func TestIgnoredSurfaceSourceFails(t *testing.T) {
	project := t.TempDir()
	writeFile(t, project, "agent.yaml", "id: web\nversion: 1.0.0\nentrypoint: src.main:handler\nsurfaces:\n  http:\n    entry: src.web:mount\n")
	writeFile(t, project, "src/main.py", "def handler(ctx): pass\n")
	writeFile(t, project, "src/web.py", "def mount(app): pass\n")
	writeFile(t, project, ".apkgignore", "src/web.py\n")
	out := t.TempDir()

	_, err := builderFor(t, out).Build(context.Background(), project)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMissingSource)
	assert.Contains(t, err.Error(), "surfaces.http.entry")
	assert.Contains(t, err.Error(), "ignore pattern")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSymbolNotFoundAdvisory(t *testing.T) {
	project := newProject(t)
	writeFile(t, project, "src/main.py", "def handler(ctx): pass\n\ndef mount(app): pass\n")

	art, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)

	var missing []string
	for _, a := range art.Advisories {
		if a.Code == types.AdvisorySymbolMissing {
			missing = append(missing, a.Subject)
		}
	}
	assert.Equal(t, []string{"exports.classify"}, missing)
}

// countingTree counts copies while planning like the default ui strategy
type countingTree struct {
	surface.TreeStrategy
	copies *atomic.Int32
}

func (c countingTree) Copy(ctx context.Context, req surface.Request) ([]string, error) {
	c.copies.Add(1)
	return c.TreeStrategy.Copy(ctx, req)
}

func TestSizeLimitCheckedBeforeCopying(t *testing.T) {
	project := newProject(t)
	writeFile(t, project, "ui/video.bin", strings.Repeat("x", 4096))

	var copies atomic.Int32
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.MaxSizeBytes = 6000
	_, err := NewBuilder(opts, nil, nil).
		WithStrategy(surface.KindUI, countingTree{copies: &copies}).
		Build(context.Background(), project)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSizeLimit)
	assert.Zero(t, copies.Load())

	opts.MaxSizeBytes = 1 << 20
	_, err = NewBuilder(opts, nil, nil).
		WithStrategy(surface.KindUI, countingTree{copies: &copies}).
		Build(context.Background(), project)
	require.NoError(t, err)
	assert.Equal(t, int32(1), copies.Load())
}

func TestIgnoredFilesDoNotAffectHash(t *testing.T) {
	project := newProject(t)

	before, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)

	writeFile(t, project, ".env.local", "SECRET=1")
	writeFile(t, project, "src/.env", "SECRET=2")
	writeFile(t, project, "node_modules/left-pad/index.js", "module.exports = 1")
	writeFile(t, project, ".git/HEAD", "ref: refs/heads/main")
	writeFile(t, project, "ui/.DS_Store", "junk")

	after, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)

	assert.Equal(t, before.Hash(), after.Hash())
	for _, name := range memberNames(after.Index) {
		assert.NotContains(t, name, ".env")
		assert.NotContains(t, name, "node_modules")
		assert.NotContains(t, name, ".DS_Store")
	}
}

func TestIgnoreFileAndConfiguredPatterns(t *testing.T) {
	project := newProject(t)
	writeFile(t, project, ".apkgignore", "# local notes\nnotes/\n")
	writeFile(t, project, "notes/todo.md", "later")
	writeFile(t, project, "scratch.tmp", "x")

	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Ignore = []string{"*.tmp"}
	art, err := NewBuilder(opts, nil, nil).Build(context.Background(), project)
	require.NoError(t, err)

	names := memberNames(art.Index)
	assert.NotContains(t, names, "notes/todo.md")
	assert.NotContains(t, names, "scratch.tmp")
	assert.Contains(t, names, ".apkgignore")
}

func TestSizeLimitWritesNothing(t *testing.T) {
	project := newProject(t)
	out := filepath.Join(t.TempDir(), "out")

	opts := DefaultOptions()
	opts.OutputDir = out
	opts.MaxSizeBytes = 64
	_, err := NewBuilder(opts, nil, nil).Build(context.Background(), project)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSizeLimit)
	assert.NoDirExists(t, out)
}

func TestFailedBuildLeavesNoArtifact(t *testing.T) {
	project := newProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(project, "ui")))
	out := t.TempDir()

	_, err := builderFor(t, out).Build(context.Background(), project)
	assert.Equal(t, types.KindMissingSource, types.KindOf(err))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildAdvisories(t *testing.T) {
	project := newProject(t)
	writeFile(t, project, "certs/server.pem", "-----BEGIN-----")
	writeFile(t, project, "deploy.json", "{}")

	art, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.NoError(t, err)

	codes := make(map[string]string)
	for _, a := range art.Advisories {
		codes[a.Subject] = a.Code
	}
	assert.Equal(t, types.AdvisorySecretFile, codes["certs/server.pem"])
	assert.Equal(t, types.AdvisoryShadowedFile, codes["deploy.json"])
}

func TestBuildRecordsMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	_, err := NewBuilder(opts, nil, metrics).Build(context.Background(), newProject(t))
	require.NoError(t, err)
	_, err = NewBuilder(opts, nil, metrics).Build(context.Background(), t.TempDir())
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BuildsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BuildsTotal.WithLabelValues("missing_source")))
}

func TestVerifyAndExtract(t *testing.T) {
	art, err := builderFor(t, t.TempDir()).Build(context.Background(), newProject(t))
	require.NoError(t, err)

	idx, err := Verify(context.Background(), art.Path, VerifyOptions{ExpectedHash: art.Hash()})
	require.NoError(t, err)
	assert.Equal(t, art.Index.Hash, idx.Hash)

	dest := t.TempDir()
	_, err = Extract(context.Background(), art.Path, dest, VerifyOptions{MaxSizeBytes: 1 << 20})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dest, "prompts", "system.txt"))
	require.NoError(t, err)
	assert.Equal(t, "You classify things.", string(data))
	assert.FileExists(t, filepath.Join(dest, "dist", "http", "main.py"))
}

func TestVerifyRejectsTampering(t *testing.T) {
	art, err := builderFor(t, t.TempDir()).Build(context.Background(), newProject(t))
	require.NoError(t, err)

	_, err = Verify(context.Background(), art.Path, VerifyOptions{ExpectedHash: "sha256:deadbeef"})
	assert.ErrorIs(t, err, types.ErrIntegrity)

	tampered := *art.Index
	tampered.Members = append([]Member(nil), art.Index.Members...)
	tampered.Members[2].SHA256 = strings.Repeat("0", 64)
	data, err := tampered.Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(art.IndexPath, data, 0o644))

	_, err = Verify(context.Background(), art.Path, VerifyOptions{})
	assert.ErrorIs(t, err, types.ErrIntegrity)

	require.NoError(t, os.Remove(art.IndexPath))
	_, err = Verify(context.Background(), art.Path, VerifyOptions{})
	assert.ErrorIs(t, err, types.ErrIntegrity)
}

func TestVerifyRejectsSwappedArchive(t *testing.T) {
	first, err := builderFor(t, t.TempDir()).Build(context.Background(), newProject(t))
	require.NoError(t, err)

	other := newProject(t)
	writeFile(t, other, "prompts/system.txt", "Something else entirely.")
	second, err := builderFor(t, t.TempDir()).Build(context.Background(), other)
	require.NoError(t, err)

	data, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(first.Path, data, 0o644))

	_, err = Verify(context.Background(), first.Path, VerifyOptions{})
	assert.ErrorIs(t, err, types.ErrIntegrity)
}

func TestExtractEnforcesSizeLimit(t *testing.T) {
	art, err := builderFor(t, t.TempDir()).Build(context.Background(), newProject(t))
	require.NoError(t, err)

	_, err = Extract(context.Background(), art.Path, t.TempDir(), VerifyOptions{MaxSizeBytes: 16})
	assert.ErrorIs(t, err, types.ErrSizeLimit)
}

func TestInspect(t *testing.T) {
	b := builderFor(t, t.TempDir())
	art, err := b.Build(context.Background(), newProject(t))
	require.NoError(t, err)

	in, err := b.Inspect(context.Background(), art.Path)
	require.NoError(t, err)
	assert.Equal(t, "classifier", in.Manifest.ID)
	assert.Equal(t, art.Hash(), in.Index.Hash)
	require.NotNil(t, in.Descriptor)
	assert.True(t, in.Descriptor.Multiplex)
	assert.Len(t, in.Descriptor.Expose, 2)
}

func TestIgnoreSet(t *testing.T) {
	s, err := NewIgnoreSet("build/", "*.log")
	require.NoError(t, err)

	for _, p := range []string{".env", ".env.prod", "a/b/.env", ".git/config", "src/__pycache__/x.pyc", "x.pyc",
		"build/out.bin", "debug.log", "agent-1.0.0.apkg", "dist/ui/index.html"} {
		assert.True(t, s.Match(p), p)
	}
	for _, p := range []string{"src/main.py", "env.py", "logs/debug.txt", "ui/index.html"} {
		assert.False(t, s.Match(p), p)
	}

	_, err = NewIgnoreSet("[unclosed")
	assert.Error(t, err)
}

func TestMissingExportSource(t *testing.T) {
	project := newProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(project, "prompts")))

	_, err := builderFor(t, t.TempDir()).Build(context.Background(), project)
	require.Error(t, err)
	assert.Equal(t, types.KindMissingSource, types.KindOf(err))
	assert.Contains(t, err.Error(), "exports.prompts")

	project = newProject(t)
	writeFile(t, project, ".apkgignore", "prompts\n")
	_, err = builderFor(t, t.TempDir()).Build(context.Background(), project)
	assert.Equal(t, types.KindMissingSource, types.KindOf(err), "ignored sources do not ship")
}

package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/surface"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/utils"
)

// epoch is the modification time stamped on every member
var epoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures the builder
type Options struct {
	MaxSizeBytes int64
	Ignore       []string
	// OutputDir is resolved against the project directory when relative
	OutputDir string
	Surfaces  surface.Options
}

// DefaultOptions returns the default builder options
func DefaultOptions() Options {
	return Options{
		MaxSizeBytes: config.DefaultMaxSizeBytes,
		OutputDir:    "build",
		Surfaces:     surface.DefaultOptions(),
	}
}

// OptionsFromConfig builds options from the build configuration
func OptionsFromConfig(cfg config.BuildConfig) Options {
	return Options{
		MaxSizeBytes: cfg.MaxSizeBytes,
		Ignore:       cfg.Ignore,
		OutputDir:    cfg.OutputDir,
		Surfaces:     surface.OptionsFromConfig(cfg),
	}
}

// Artifact describes a finished build
type Artifact struct {
	BuildID    id.BuildID
	Path       string
	IndexPath  string
	Manifest   *manifest.Manifest
	Index      *Index
	Advisories []types.Advisory
}

// Hash returns the integrity hash recorded in the index
func (a *Artifact) Hash() string {
	return a.Index.Hash
}

// Builder turns a project directory into a content-addressed artifact
type Builder struct {
	opts       Options
	hasher     *utils.Hasher
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	strategies map[surface.Kind]surface.CopyStrategy
}

// NewBuilder creates a builder. logger and metrics may be nil.
func NewBuilder(opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Builder {
	if opts.MaxSizeBytes <= 0 {
		opts.MaxSizeBytes = config.DefaultMaxSizeBytes
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "build"
	}
	return &Builder{
		opts:    opts,
		hasher:  utils.DefaultHasher(),
		logger:  logging.OrNop(logger).Component("builder"),
		metrics: metrics,
	}
}

// WithStrategy overrides how one surface kind is copied into the artifact
func (b *Builder) WithStrategy(kind surface.Kind, s surface.CopyStrategy) *Builder {
	if b.strategies == nil {
		b.strategies = make(map[surface.Kind]surface.CopyStrategy)
	}
	b.strategies[kind] = s
	return b
}

// Build packages projectDir into {id}-{version}.apkg plus its index.
// Identical inputs produce byte-identical archives. Nothing is left in the
// output directory when the build fails.
func (b *Builder) Build(ctx context.Context, projectDir string) (art *Artifact, err error) {
	buildID := id.NewBuildID()
	log := b.logger.With(zap.String("build_id", buildID.String()), zap.String("project", projectDir))
	timer := monitoring.NewBuildTimer(b.metrics)

	defer func() {
		status := "success"
		if err != nil {
			status = statusOf(err)
		}
		d := timer.Stop(status)
		if err != nil {
			log.Warn("Build failed", zap.Error(err), zap.Duration("duration", d))
			return
		}
		log.Info("Build complete",
			zap.String("artifact", art.Path),
			zap.String("hash", art.Hash()),
			zap.Int("members", len(art.Index.Members)),
			zap.Int64("size", art.Index.Size),
			zap.Duration("duration", d))
	}()

	projectDir, err = filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	m, err := manifest.Load(projectDir)
	if err != nil {
		return nil, err
	}

	outDir := b.opts.OutputDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(projectDir, outDir)
	}

	patterns := append([]string(nil), b.opts.Ignore...)
	if rel, err := paths.ToSlash(projectDir, outDir); err == nil && paths.IsLocal(rel) && rel != "." {
		patterns = append(patterns, rel+"/**")
	}
	ignore, err := LoadIgnoreSet(projectDir, patterns)
	if err != nil {
		return nil, err
	}

	log.Debug("Ignore patterns", zap.Strings("patterns", ignore.Patterns()))

	refs, err := checkSources(projectDir, m, ignore)
	if err != nil {
		return nil, err
	}

	files, advisories, err := collect(ctx, projectDir, ignore)
	if err != nil {
		return nil, err
	}
	advisories = append(manifest.Advise(m), advisories...)
	advisories = append(advisories, symbolAdvisories(projectDir, m, refs)...)

	surfaceOpts := b.opts.Surfaces
	surfaceOpts.Skip = ignore.Match
	assembler := surface.NewAssembler(surfaceOpts, b.logger)
	for kind, s := range b.strategies {
		assembler.WithStrategy(kind, s)
	}

	planned, err := assembler.Plan(ctx, projectDir, m)
	if err != nil {
		return nil, err
	}
	if err := b.checkSize(m, plannedMembers(files, planned)); err != nil {
		return nil, err
	}

	buildDir, err := os.MkdirTemp("", "apkg-build-")
	if err != nil {
		return nil, fmt.Errorf("failed to create build directory: %w", err)
	}
	defer os.RemoveAll(buildDir)

	layout, err := assembler.Assemble(ctx, projectDir, buildDir, m)
	if err != nil {
		return nil, err
	}

	members, shadowed, err := merge(files, layout)
	if err != nil {
		return nil, err
	}
	advisories = append(advisories, shadowed...)

	// Re-checked on the real members in case the tree changed while copying
	if err := b.checkSize(m, members); err != nil {
		return nil, err
	}

	for _, a := range advisories {
		b.metrics.RecordAdvisory(a.Code)
		log.Warn("Build advisory",
			zap.String("code", a.Code),
			zap.String("subject", a.Subject),
			zap.String("message", a.Message))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	artifactPath, idx, err := b.write(ctx, m, members, outDir)
	if err != nil {
		return nil, err
	}
	timer.SetSize(idx.Size)

	return &Artifact{
		BuildID:    buildID,
		Path:       artifactPath,
		IndexPath:  paths.IndexPath(artifactPath),
		Manifest:   m,
		Index:      idx,
		Advisories: advisories,
	}, nil
}

// merge adds generated surface files to the project files. Generated files
// win over project files with the same name.
func merge(files []source, layout *surface.Layout) ([]source, []types.Advisory, error) {
	byName := make(map[string]int, len(files))
	for i, f := range files {
		byName[f.Name] = i
	}

	var advisories []types.Advisory
	for _, name := range layout.Files {
		p := filepath.Join(layout.BuildDir, filepath.FromSlash(name))
		info, err := os.Stat(p)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stat generated %s: %w", name, err)
		}
		gen := source{Name: name, Path: p, Size: info.Size()}

		if i, ok := byName[name]; ok {
			files[i] = gen
			advisories = append(advisories, types.Advisory{
				Code:    types.AdvisoryShadowedFile,
				Subject: name,
				Message: "project file replaced by the generated " + name,
			})
			continue
		}
		byName[name] = len(files)
		files = append(files, gen)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, advisories, nil
}

// plannedMembers sizes the members a build would write, with generated
// files replacing project files of the same name
func plannedMembers(files []source, planned map[string]int64) []source {
	out := make([]source, 0, len(files)+len(planned))
	for _, f := range files {
		if _, ok := planned[f.Name]; ok {
			continue
		}
		out = append(out, f)
	}
	for name, size := range planned {
		out = append(out, source{Name: name, Size: size})
	}
	return out
}

func (b *Builder) checkSize(m *manifest.Manifest, members []source) error {
	total := int64(len(m.Raw))
	largest, largestSize := m.FileName(), total
	for _, s := range members {
		total += s.Size
		if s.Size > largestSize {
			largest, largestSize = s.Name, s.Size
		}
	}
	if total > b.opts.MaxSizeBytes {
		return types.SizeLimitExceeded(total, b.opts.MaxSizeBytes, largest)
	}
	return nil
}

func memberHeader(name string) *zip.FileHeader {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: epoch,
	}
	hdr.SetMode(0o644)
	return hdr
}

// write streams members into a temp archive, then renames the index and
// the archive into place. Temp files are removed on any failure.
func (b *Builder) write(ctx context.Context, m *manifest.Manifest, members []source, outDir string) (artifactPath string, idx *Index, err error) {
	name := paths.ArtifactName(m.ID, m.Version)
	artifactPath = filepath.Join(outDir, name)

	tmp, err := os.CreateTemp(outDir, "."+name+".*.tmp")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp archive: %w", err)
	}
	var tmpIndex string
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			if tmpIndex != "" {
				os.Remove(tmpIndex)
			}
		}
	}()

	zw := zip.NewWriter(tmp)
	stream := b.hasher.NewStreamHasher()
	idx = &Index{
		Format:   IndexFormat,
		Artifact: name,
		ID:       m.ID,
		Version:  m.Version,
		Members:  make([]Member, 0, len(members)+1),
	}

	add := func(memberName string, r io.Reader) error {
		w, err := zw.CreateHeader(memberHeader(memberName))
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", memberName, err)
		}
		dw := b.hasher.NewDigestWriter()
		if _, err := io.Copy(io.MultiWriter(w, dw), r); err != nil {
			return fmt.Errorf("failed to write %s: %w", memberName, err)
		}
		idx.Members = append(idx.Members, Member{Name: memberName, Size: dw.Size(), SHA256: dw.Sum()})
		stream.Add(memberName, dw.Size(), dw.Sum())
		idx.Size += dw.Size()
		return nil
	}

	if err := add(m.FileName(), bytes.NewReader(m.Raw)); err != nil {
		return "", nil, err
	}
	for _, s := range members {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		f, err := os.Open(s.Path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to open %s: %w", s.Name, err)
		}
		err = add(s.Name, f)
		f.Close()
		if err != nil {
			return "", nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to close archive: %w", err)
	}

	// files may have grown since the pre-write check
	if idx.Size > b.opts.MaxSizeBytes {
		return "", nil, types.SizeLimitExceeded(idx.Size, b.opts.MaxSizeBytes, largestMember(idx))
	}
	idx.Hash = stream.Sum()

	data, err := idx.Encode()
	if err != nil {
		return "", nil, err
	}
	ti, err := os.CreateTemp(outDir, "."+name+".index.*.tmp")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpIndex = ti.Name()
	if _, err := ti.Write(data); err != nil {
		ti.Close()
		return "", nil, fmt.Errorf("failed to write index: %w", err)
	}
	if err := ti.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to close index: %w", err)
	}

	if err := os.Rename(tmpIndex, paths.IndexPath(artifactPath)); err != nil {
		return "", nil, fmt.Errorf("failed to place index: %w", err)
	}
	tmpIndex = ""
	if err := os.Rename(tmp.Name(), artifactPath); err != nil {
		os.Remove(paths.IndexPath(artifactPath))
		return "", nil, fmt.Errorf("failed to place archive: %w", err)
	}

	return artifactPath, idx, nil
}

func largestMember(idx *Index) string {
	var name string
	var size int64 = -1
	for _, m := range idx.Members {
		if m.Size > size {
			name, size = m.Name, m.Size
		}
	}
	return name
}

// statusOf maps an error to a bounded metrics label
func statusOf(err error) string {
	if k := types.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

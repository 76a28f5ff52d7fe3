package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/archive"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/surface"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// Options configures the loader
type Options struct {
	StagingDir   string
	MaxSizeBytes int64
	Concurrency  int
	// Timeout bounds a single load; zero means no limit beyond the caller's context
	Timeout time.Duration
}

// OptionsFromConfig builds options from the loader configuration
func OptionsFromConfig(cfg config.LoaderConfig) Options {
	return Options{
		StagingDir:   cfg.StagingDir,
		MaxSizeBytes: cfg.MaxSizeBytes,
		Concurrency:  cfg.Concurrency,
		Timeout:      cfg.Timeout,
	}
}

// Loader verifies artifacts, stages them and mounts them into a registry
type Loader struct {
	opts     Options
	registry *registry.Registry
	resolver SymbolResolver
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// New creates a loader. A nil resolver locates module files only.
func New(reg *registry.Registry, resolver SymbolResolver, opts Options, logger *logging.Logger, metrics *monitoring.Metrics) *Loader {
	if opts.StagingDir == "" {
		opts.StagingDir = filepath.Join(os.TempDir(), paths.StagingSubdir)
	}
	if opts.MaxSizeBytes <= 0 {
		opts.MaxSizeBytes = config.DefaultMaxSizeBytes
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if resolver == nil {
		resolver = FileResolver{}
	}
	return &Loader{
		opts:     opts,
		registry: reg,
		resolver: resolver,
		logger:   logging.OrNop(logger).Component("loader"),
		metrics:  metrics,
	}
}

// WithTracer records a span per load
func (l *Loader) WithTracer(t *tracing.Tracer) *Loader {
	l.tracer = t
	return l
}

// Registry returns the registry this loader mounts into
func (l *Loader) Registry() *registry.Registry {
	return l.registry
}

// Load verifies, stages, binds and mounts an artifact
func (l *Loader) Load(ctx context.Context, artifactPath string) (*registry.MountedPackage, error) {
	return l.LoadWithHash(ctx, artifactPath, "")
}

// LoadWithHash is Load with a caller-supplied expected integrity hash.
// The staging directory is removed on every failure, including cancellation.
func (l *Loader) LoadWithHash(ctx context.Context, artifactPath, expectedHash string) (pkg *registry.MountedPackage, err error) {
	timer := monitoring.NewLoadTimer(l.metrics)
	span, ctx := l.tracer.StartSpan(ctx, "loader.load")
	span.SetTag("artifact", artifactPath)
	log := l.logger.With(append([]zap.Field{zap.String("artifact", artifactPath)}, tracing.Fields(ctx)...)...)

	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	if err := os.MkdirAll(l.opts.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging root: %w", err)
	}
	staging := filepath.Join(l.opts.StagingDir, id.NewStagingName())
	if err := os.Mkdir(staging, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	mounted := false
	defer func() {
		if !mounted {
			if rmErr := os.RemoveAll(staging); rmErr != nil {
				log.Warn("Failed to remove staging directory", zap.String("dir", staging), zap.Error(rmErr))
			}
		}
		status := "success"
		if err != nil {
			status = statusOf(err)
		}
		d := timer.Stop(status)
		if err != nil {
			span.SetError(err)
			l.tracer.Submit(span)
			log.Warn("Load failed", zap.Error(err), zap.Duration("duration", d))
			return
		}
		span.SetTag("package", pkg.ID)
		l.tracer.Submit(span)
		log.Info("Load complete",
			zap.String("package", pkg.ID),
			zap.String("version", pkg.Version),
			zap.String("mount_id", pkg.MountID.String()),
			zap.Duration("duration", d))
	}()

	pkg, err = l.stage(ctx, artifactPath, expectedHash, staging)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.registry.Register(pkg); err != nil {
		return nil, err
	}
	mounted = true
	return pkg, nil
}

// stage verifies and extracts an artifact into staging and binds its exports
func (l *Loader) stage(ctx context.Context, artifactPath, expectedHash, staging string) (*registry.MountedPackage, error) {
	idx, err := archive.Extract(ctx, artifactPath, staging, archive.VerifyOptions{
		ExpectedHash: expectedHash,
		MaxSizeBytes: l.opts.MaxSizeBytes,
	})
	if err != nil {
		return nil, err
	}

	m, err := manifest.ParseFile(filepath.Join(staging, filepath.FromSlash(idx.Members[0].Name)))
	if err != nil {
		return nil, err
	}
	if m.ID != idx.ID || m.Version != idx.Version {
		return nil, types.IntegrityError(artifactPath,
			fmt.Sprintf("index names %s %s but the manifest declares %s %s", idx.ID, idx.Version, m.ID, m.Version))
	}

	desc, err := l.checkSurfaces(staging, m)
	if err != nil {
		return nil, err
	}

	pkg := &registry.MountedPackage{
		MountID:      id.NewMountID(),
		ID:           m.ID,
		Version:      m.Version,
		Hash:         idx.Hash,
		ArtifactPath: artifactPath,
		StagingDir:   staging,
		Manifest:     m,
		Descriptor:   desc,
		MountedAt:    time.Now(),
	}

	for _, e := range m.AllExports() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := l.bind(ctx, staging, m, e)
		if err != nil {
			return nil, err
		}
		if e.Visibility == manifest.Private {
			pkg.Private = append(pkg.Private, b)
		} else {
			pkg.Exports = append(pkg.Exports, b)
		}
	}
	return pkg, nil
}

// checkSurfaces re-validates deploy.json and the generated dist tree
func (l *Loader) checkSurfaces(staging string, m *manifest.Manifest) (*surface.Descriptor, error) {
	data, err := os.ReadFile(filepath.Join(staging, paths.DeployFile))
	if err != nil {
		if os.IsNotExist(err) && m.Surfaces.Empty() {
			return nil, nil
		}
		if os.IsNotExist(err) {
			return nil, types.MissingSourceError(paths.DeployFile, paths.DeployFile)
		}
		return nil, fmt.Errorf("failed to read %s: %w", paths.DeployFile, err)
	}

	desc, err := surface.ParseDescriptor(data)
	if err != nil {
		return nil, err
	}
	if err := desc.Check(m.Surfaces); err != nil {
		return nil, err
	}

	for _, k := range desc.Expose {
		dir := paths.DistPath(string(k), "")
		if info, err := os.Stat(filepath.Join(staging, filepath.FromSlash(dir))); err != nil || !info.IsDir() {
			return nil, types.MissingSourceError("surfaces."+string(k), dir)
		}
	}
	return desc, nil
}

// bind resolves one export against the staged tree
func (l *Loader) bind(ctx context.Context, root string, m *manifest.Manifest, e manifest.Export) (registry.Binding, error) {
	b := registry.Binding{
		ExportID:   e.ID,
		PackageID:  m.ID,
		Schema:     e.Schema,
		Visibility: e.Visibility,
	}

	if e.Schema != "" && !manifest.IsRef(e.Schema) {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(e.Schema))); err != nil {
			return b, types.MissingSourceError("exports."+e.ID+".schema", e.Schema)
		}
	}

	if e.IsSymbol() {
		ref, err := manifest.ParseRef(e.Path)
		if err != nil {
			return b, types.ReferenceError(e.ID, e.Path, err)
		}
		res, err := l.resolver.Resolve(ctx, ResolveRequest{
			PackageID: m.ID,
			ExportID:  e.ID,
			Ref:       ref,
			Runtime:   m.RuntimeTag(),
			Root:      root,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return b, err
			}
			return b, types.ReferenceError(e.ID, e.Path, err)
		}
		b.Kind = registry.BindingSymbol
		b.Ref = ref.String()
		b.RelPath = res.RelPath
		if res.RelPath != "" {
			b.Path = filepath.Join(root, filepath.FromSlash(res.RelPath))
		}
		b.Invoker = res.Invoker
		return b, nil
	}

	rel := path.Clean(filepath.ToSlash(e.Path))
	p, err := paths.SafeJoin(root, rel)
	if err != nil {
		return b, types.ReferenceError(e.ID, e.Path, err)
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return b, types.MissingSourceError("exports."+e.ID, rel)
		}
		return b, fmt.Errorf("failed to stat export %s: %w", e.ID, err)
	}
	b.Kind = registry.BindingPath
	b.RelPath = rel
	b.Path = p
	return b, nil
}

// Result is the outcome of one load in a batch
type Result struct {
	Path    string
	Package *registry.MountedPackage
	Err     error
}

// LoadAll loads independent artifacts concurrently. One failure does not
// stop the others; results keep the input order.
func (l *Loader) LoadAll(ctx context.Context, artifactPaths []string) []Result {
	results := make([]Result, len(artifactPaths))

	var g errgroup.Group
	g.SetLimit(l.opts.Concurrency)
	for i, p := range artifactPaths {
		g.Go(func() error {
			pkg, err := l.Load(ctx, p)
			results[i] = Result{Path: p, Package: pkg, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Unload unmounts a package and releases its staging directory
func (l *Loader) Unload(packageID string) error {
	return l.registry.Unregister(packageID)
}

func statusOf(err error) string {
	if k := types.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

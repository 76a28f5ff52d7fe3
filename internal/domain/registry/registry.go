package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/version"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// snapshot is an immutable view of the mount table
type snapshot struct {
	packages   map[string]*MountedPackage
	exports    map[string]Binding
	generation uint64
	changed    time.Time
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		packages:   make(map[string]*MountedPackage, len(s.packages)+1),
		exports:    make(map[string]Binding, len(s.exports)),
		generation: s.generation + 1,
		changed:    time.Now(),
	}
	for k, v := range s.packages {
		next.packages[k] = v
	}
	for k, v := range s.exports {
		next.exports[k] = v
	}
	return next
}

func (s *snapshot) remove(pkg *MountedPackage) {
	delete(s.packages, pkg.ID)
	for _, b := range pkg.Exports {
		delete(s.exports, b.ExportID)
	}
}

func (s *snapshot) add(pkg *MountedPackage) {
	s.packages[pkg.ID] = pkg
	for _, b := range pkg.Exports {
		s.exports[b.ExportID] = b
	}
}

// Releaser frees the staging directory of a package that left the table
type Releaser func(dir string) error

// Registry is the mount table. Writers serialize on a mutex; readers load
// the current snapshot and never block.
type Registry struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]

	policy  version.Policy
	release Releaser
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates an empty registry. logger and metrics may be nil.
func New(policy version.Policy, logger *logging.Logger, metrics *monitoring.Metrics) *Registry {
	r := &Registry{
		policy:  policy,
		release: os.RemoveAll,
		logger:  logging.OrNop(logger).Component("registry"),
		metrics: metrics,
	}
	r.current.Store(&snapshot{
		packages: map[string]*MountedPackage{},
		exports:  map[string]Binding{},
	})
	return r
}

// WithReleaser replaces the staging cleanup function
func (r *Registry) WithReleaser(fn Releaser) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release = fn
	return r
}

// Policy returns the upgrade policy in force
func (r *Registry) Policy() version.Policy {
	return r.policy
}

// Register mounts pkg. A package already mounted under the same id is
// replaced wholesale if the upgrade policy allows it. Any public export id
// owned by a different package rejects the whole registration with every
// offending id listed; the table is unchanged on any error.
func (r *Registry) Register(pkg *MountedPackage) error {
	if pkg == nil || pkg.ID == "" {
		return fmt.Errorf("package id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	prev := cur.packages[pkg.ID]

	if prev != nil {
		if err := r.checkPolicy(prev, pkg); err != nil {
			return err
		}
	}

	if conflicts := r.conflicts(cur, pkg); len(conflicts) > 0 {
		r.metrics.IncConflicts()
		r.logger.Warn("Mount rejected",
			zap.String("package", pkg.ID),
			zap.Strings("conflicts", conflicts))
		return types.ConflictError(pkg.ID, conflicts)
	}

	next := cur.clone()
	if prev != nil {
		next.remove(prev)
	}
	next.add(pkg)
	r.current.Store(next)
	r.metrics.SetMounted(len(next.packages), len(next.exports))

	if prev != nil {
		r.logger.Info("Package replaced",
			zap.String("package", pkg.ID),
			zap.String("from", prev.Version),
			zap.String("to", pkg.Version))
		if prev.StagingDir != pkg.StagingDir {
			r.releaseStaging(prev)
		}
	} else {
		r.logger.Info("Package mounted",
			zap.String("package", pkg.ID),
			zap.String("version", pkg.Version),
			zap.Int("exports", len(pkg.Exports)))
	}
	return nil
}

func (r *Registry) checkPolicy(prev, pkg *MountedPackage) error {
	existing, err := version.Parse(prev.Version)
	if err != nil {
		return fmt.Errorf("mounted %s has invalid version: %w", prev.ID, err)
	}
	incoming, err := version.Parse(pkg.Version)
	if err != nil {
		return types.VersionPolicyError(pkg.ID, prev.Version, pkg.Version, err.Error())
	}

	switch d := r.policy.Check(existing, incoming); d {
	case version.Allow:
		return nil
	case version.RejectIdentical:
		return types.VersionPolicyError(pkg.ID, prev.Version, pkg.Version,
			fmt.Sprintf("version is already mounted (policy %s)", r.policy))
	default:
		return types.VersionPolicyError(pkg.ID, prev.Version, pkg.Version,
			fmt.Sprintf("downgrade not allowed (policy %s)", r.policy))
	}
}

// conflicts returns sorted export ids of pkg owned by another package.
// Ids owned by the package being replaced are not conflicts.
func (r *Registry) conflicts(cur *snapshot, pkg *MountedPackage) []string {
	var ids []string
	seen := make(map[string]bool, len(pkg.Exports))
	for _, b := range pkg.Exports {
		if seen[b.ExportID] {
			ids = append(ids, b.ExportID)
			continue
		}
		seen[b.ExportID] = true
		if owner, ok := cur.exports[b.ExportID]; ok && owner.PackageID != pkg.ID {
			ids = append(ids, b.ExportID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Unregister removes a package and every export it owns, then releases its staging directory
func (r *Registry) Unregister(packageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	pkg, ok := cur.packages[packageID]
	if !ok {
		return types.NotMountedError(packageID)
	}

	next := cur.clone()
	next.remove(pkg)
	r.current.Store(next)

	r.metrics.IncUnmounts()
	r.metrics.SetMounted(len(next.packages), len(next.exports))
	r.logger.Info("Package unmounted", zap.String("package", packageID), zap.String("version", pkg.Version))

	r.releaseStaging(pkg)
	return nil
}

func (r *Registry) releaseStaging(pkg *MountedPackage) {
	if pkg.StagingDir == "" || r.release == nil {
		return
	}
	if err := r.release(pkg.StagingDir); err != nil {
		r.logger.Warn("Failed to release staging directory",
			zap.String("package", pkg.ID),
			zap.String("dir", pkg.StagingDir),
			zap.Error(err))
	}
}

// Lookup returns the public binding for an export id
func (r *Registry) Lookup(exportID string) (Binding, bool) {
	b, ok := r.current.Load().exports[exportID]
	return b, ok
}

// Package returns a mounted package by id
func (r *Registry) Package(packageID string) (*MountedPackage, bool) {
	p, ok := r.current.Load().packages[packageID]
	return p, ok
}

// List returns mounted packages sorted by id
func (r *Registry) List() []*MountedPackage {
	cur := r.current.Load()
	out := make([]*MountedPackage, 0, len(cur.packages))
	for _, p := range cur.packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot returns a copy of the global export table keyed by export id
func (r *Registry) Snapshot() map[string]Binding {
	cur := r.current.Load()
	out := make(map[string]Binding, len(cur.exports))
	for k, v := range cur.exports {
		out[k] = v
	}
	return out
}

// Stats returns registry statistics
func (r *Registry) Stats() types.RegistryStats {
	cur := r.current.Load()
	stats := types.RegistryStats{
		Packages:   len(cur.packages),
		Exports:    len(cur.exports),
		Generation: cur.generation,
	}
	if !cur.changed.IsZero() {
		changed := cur.changed
		stats.LastChanged = &changed
	}
	return stats
}

// Close unmounts every package
func (r *Registry) Close() error {
	for _, p := range r.List() {
		if err := r.Unregister(p.ID); err != nil && types.KindOf(err) != types.KindNotMounted {
			return err
		}
	}
	return nil
}

package registry

import (
	"sort"
	"time"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/surface"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// BindingKind distinguishes code exports from data exports
type BindingKind string

const (
	BindingSymbol BindingKind = "symbol"
	BindingPath   BindingKind = "path"
)

// Binding is an export resolved inside a staged package
type Binding struct {
	ExportID   string              `json:"export_id"`
	PackageID  string              `json:"package_id"`
	Kind       BindingKind         `json:"kind"`
	Ref        string              `json:"ref,omitempty"`
	RelPath    string              `json:"rel_path,omitempty"`
	Path       string              `json:"-"`
	Schema     string              `json:"schema,omitempty"`
	Visibility manifest.Visibility `json:"visibility"`
	// Invoker is set when the host registered an implementation for Ref
	Invoker types.Invoker `json:"-"`
}

// Invocable reports whether the binding can be dispatched
func (b Binding) Invocable() bool {
	return b.Invoker != nil
}

// MountedPackage is a verified, staged package with its bound exports
type MountedPackage struct {
	MountID      id.MountID          `json:"mount_id"`
	ID           string              `json:"id"`
	Version      string              `json:"version"`
	Hash         string              `json:"hash"`
	ArtifactPath string              `json:"artifact"`
	StagingDir   string              `json:"-"`
	Manifest     *manifest.Manifest  `json:"-"`
	Descriptor   *surface.Descriptor `json:"deploy,omitempty"`
	Exports      []Binding           `json:"exports"`
	Private      []Binding           `json:"private,omitempty"`
	MountedAt    time.Time           `json:"mounted_at"`
}

// ExportIDs returns the sorted public export ids
func (p *MountedPackage) ExportIDs() []string {
	ids := make([]string, 0, len(p.Exports))
	for _, b := range p.Exports {
		ids = append(ids, b.ExportID)
	}
	sort.Strings(ids)
	return ids
}

// Binding finds an export of this package, public or private
func (p *MountedPackage) Binding(exportID string) (Binding, bool) {
	for _, group := range [][]Binding{p.Exports, p.Private} {
		for _, b := range group {
			if b.ExportID == exportID {
				return b, true
			}
		}
	}
	return Binding{}, false
}

// Summary is the listing view of a mounted package
type Summary struct {
	MountID   id.MountID `json:"mount_id"`
	ID        string     `json:"id"`
	Version   string     `json:"version"`
	Hash      string     `json:"hash"`
	Exports   []string   `json:"exports"`
	MountedAt time.Time  `json:"mounted_at"`
}

// Summary returns the listing view
func (p *MountedPackage) Summary() Summary {
	return Summary{
		MountID:   p.MountID,
		ID:        p.ID,
		Version:   p.Version,
		Hash:      p.Hash,
		Exports:   p.ExportIDs(),
		MountedAt: p.MountedAt,
	}
}

package manifest

import "sort"

// Visibility controls whether an export enters the global mount table
type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

// DefaultRuntime is assumed when metadata.runtime is empty
const DefaultRuntime = "python3.11"

// Runtimes lists the accepted runtime tags
var Runtimes = []string{"python3.9", "python3.11", "node18", "node20", "go1.21", "go1.22", "go1.23", "go1.24"}

// Manifest is the validated agent.yaml model
type Manifest struct {
	ID          string            `yaml:"id" toml:"id" json:"id"`
	Version     string            `yaml:"version" toml:"version" json:"version"`
	Entrypoint  string            `yaml:"entrypoint,omitempty" toml:"entrypoint,omitempty" json:"entrypoint,omitempty"`
	Exports     []Export          `yaml:"exports,omitempty" toml:"exports,omitempty" json:"exports,omitempty"`
	Private     []Export          `yaml:"private,omitempty" toml:"private,omitempty" json:"private,omitempty"`
	Metadata    Metadata          `yaml:"metadata" toml:"metadata" json:"metadata"`
	Surfaces    Surfaces          `yaml:"surfaces,omitempty" toml:"surfaces,omitempty" json:"surfaces,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty" toml:"environment,omitempty" json:"environment,omitempty"`

	// Raw holds the exact bytes the manifest was parsed from
	Raw []byte `yaml:"-" toml:"-" json:"-"`
	// Format is the encoding Raw is in
	Format Format `yaml:"-" toml:"-" json:"-"`
}

// Export is one named, addressable unit of functionality
type Export struct {
	ID         string     `yaml:"id" toml:"id" json:"id"`
	Path       string     `yaml:"path" toml:"path" json:"path"`
	Schema     string     `yaml:"schema,omitempty" toml:"schema,omitempty" json:"schema,omitempty"`
	Visibility Visibility `yaml:"visibility,omitempty" toml:"visibility,omitempty" json:"visibility,omitempty"`
}

// IsSymbol reports whether the export binds a module:symbol reference
// rather than a path inside the package.
func (e Export) IsSymbol() bool {
	return IsRef(e.Path)
}

// Metadata describes authorship and the runtime the package targets
type Metadata struct {
	Authors     []string `yaml:"authors,omitempty" toml:"authors,omitempty" json:"authors,omitempty"`
	License     string   `yaml:"license,omitempty" toml:"license,omitempty" json:"license,omitempty"`
	Runtime     string   `yaml:"runtime,omitempty" toml:"runtime,omitempty" json:"runtime,omitempty"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Homepage    string   `yaml:"homepage,omitempty" toml:"homepage,omitempty" json:"homepage,omitempty"`
	Tags        []string `yaml:"tags,omitempty" toml:"tags,omitempty" json:"tags,omitempty"`
}

// Surfaces groups the optional protocol exposures
type Surfaces struct {
	RPC  *RPCSurface  `yaml:"rpc,omitempty" toml:"rpc,omitempty" json:"rpc,omitempty"`
	HTTP *HTTPSurface `yaml:"http,omitempty" toml:"http,omitempty" json:"http,omitempty"`
	UI   *UISurface   `yaml:"ui,omitempty" toml:"ui,omitempty" json:"ui,omitempty"`
}

// RPCSurface points at the function that starts the RPC service
type RPCSurface struct {
	Service string `yaml:"service" toml:"service" json:"service"`
}

// HTTPSurface points at the function that mounts HTTP routes
type HTTPSurface struct {
	Entry string `yaml:"entry" toml:"entry" json:"entry"`
}

// UISurface points at a directory of static assets
type UISurface struct {
	Path string `yaml:"path" toml:"path" json:"path"`
}

// Empty reports whether no surface is declared
func (s Surfaces) Empty() bool {
	return s.RPC == nil && s.HTTP == nil && s.UI == nil
}

// AllExports returns public then private exports with visibility filled in
func (m *Manifest) AllExports() []Export {
	out := make([]Export, 0, len(m.Exports)+len(m.Private))
	for _, e := range m.Exports {
		if e.Visibility == "" {
			e.Visibility = Public
		}
		out = append(out, e)
	}
	for _, e := range m.Private {
		e.Visibility = Private
		out = append(out, e)
	}
	return out
}

// PublicExportIDs returns the sorted ids that enter the global table
func (m *Manifest) PublicExportIDs() []string {
	ids := make([]string, 0, len(m.Exports))
	for _, e := range m.AllExports() {
		if e.Visibility == Public {
			ids = append(ids, e.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// RuntimeTag returns the runtime, defaulted when empty
func (m *Manifest) RuntimeTag() string {
	if m.Metadata.Runtime == "" {
		return DefaultRuntime
	}
	return m.Metadata.Runtime
}

// FileName returns the archive member name for the manifest
func (m *Manifest) FileName() string {
	return m.Format.FileName()
}

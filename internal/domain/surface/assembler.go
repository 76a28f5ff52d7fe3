package surface

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
)

// Options configures surface assembly
type Options struct {
	Ports     Ports
	Multiplex bool
	// Skip filters surface files by their slash path relative to the project
	Skip func(rel string) bool
}

// DefaultOptions returns default ports with multiplexing enabled
func DefaultOptions() Options {
	return Options{
		Ports:     DefaultPorts(),
		Multiplex: true,
	}
}

// OptionsFromConfig builds options from the build configuration
func OptionsFromConfig(cfg config.BuildConfig) Options {
	return Options{
		Ports: Ports{
			KindHTTP: cfg.PortHTTP,
			KindRPC:  cfg.PortRPC,
			KindUI:   cfg.PortUI,
		},
		Multiplex: cfg.Multiplex,
	}
}

// Layout is the result of assembling surfaces into a build directory
type Layout struct {
	BuildDir   string
	Descriptor *Descriptor
	// Files lists every generated file as a sorted slash path relative to BuildDir
	Files    []string
	Surfaces map[Kind][]string
}

// Assembler copies declared surfaces using a per-kind strategy table
type Assembler struct {
	opts       Options
	strategies map[Kind]CopyStrategy
	logger     *logging.Logger
}

// NewAssembler creates an assembler with the default strategy table
func NewAssembler(opts Options, logger *logging.Logger) *Assembler {
	if opts.Ports == nil {
		opts.Ports = DefaultPorts()
	}
	return &Assembler{
		opts:       opts,
		strategies: DefaultStrategies(),
		logger:     logging.OrNop(logger).Component("surface"),
	}
}

// WithStrategy overrides the copy strategy for a kind
func (a *Assembler) WithStrategy(kind Kind, s CopyStrategy) *Assembler {
	a.strategies[kind] = s
	return a
}

func (a *Assembler) request(kind Kind, projectDir, buildDir string, m *manifest.Manifest) Request {
	return Request{
		Kind:       kind,
		Field:      field(kind),
		Source:     source(m.Surfaces, kind),
		Runtime:    m.RuntimeTag(),
		ProjectDir: projectDir,
		BuildDir:   buildDir,
		Skip:       a.opts.Skip,
	}
}

// Plan reports every file Assemble would generate with its size, without
// writing anything. Surfaces whose strategy is not a Planner are left out.
func (a *Assembler) Plan(ctx context.Context, projectDir string, m *manifest.Manifest) (map[string]int64, error) {
	desc, err := NewDescriptor(m.Surfaces, a.opts.Ports, a.opts.Multiplex)
	if err != nil {
		return nil, err
	}
	data, err := desc.Encode()
	if err != nil {
		return nil, err
	}

	planned := map[string]int64{paths.DeployFile: int64(len(data))}
	for _, kind := range desc.Expose {
		strategy, ok := a.strategies[kind]
		if !ok {
			return nil, fmt.Errorf("no copy strategy registered for %s surface", kind)
		}
		planner, ok := strategy.(Planner)
		if !ok {
			continue
		}
		files, err := planner.Plan(ctx, a.request(kind, projectDir, "", m))
		if err != nil {
			return nil, err
		}
		for name, size := range files {
			planned[name] = size
		}
	}
	return planned, nil
}

// Assemble copies every declared surface of m into buildDir and writes deploy.json
func (a *Assembler) Assemble(ctx context.Context, projectDir, buildDir string, m *manifest.Manifest) (*Layout, error) {
	desc, err := NewDescriptor(m.Surfaces, a.opts.Ports, a.opts.Multiplex)
	if err != nil {
		return nil, err
	}

	layout := &Layout{
		BuildDir:   buildDir,
		Descriptor: desc,
		Surfaces:   make(map[Kind][]string, len(desc.Expose)),
	}

	for _, kind := range desc.Expose {
		strategy, ok := a.strategies[kind]
		if !ok {
			return nil, fmt.Errorf("no copy strategy registered for %s surface", kind)
		}

		files, err := strategy.Copy(ctx, a.request(kind, projectDir, buildDir, m))
		if err != nil {
			return nil, err
		}

		a.logger.Debug("Surface assembled",
			zap.String("kind", string(kind)),
			zap.Int("files", len(files)))

		layout.Surfaces[kind] = files
		layout.Files = append(layout.Files, files...)
	}

	data, err := desc.Encode()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(buildDir, paths.DeployFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", paths.DeployFile, err)
	}
	layout.Files = append(layout.Files, paths.DeployFile)
	sort.Strings(layout.Files)

	return layout, nil
}

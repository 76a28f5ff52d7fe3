package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/archive"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/version"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
)

// SeedReport summarizes a directory mount
type SeedReport struct {
	Loaded  []string         `json:"loaded"`
	Skipped []string         `json:"skipped,omitempty"`
	Failed  map[string]error `json:"-"`
}

// Seeder mounts prebuilt artifacts from disk on startup
type Seeder struct {
	loader *Loader
	logger *logging.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(loader *Loader, logger *logging.Logger) *Seeder {
	return &Seeder{
		loader: loader,
		logger: logging.OrNop(logger).Component("seeder"),
	}
}

// MountDir mounts every artifact in dir. When several versions of one
// package are present only the newest is loaded. Individual failures are
// logged and reported; they do not stop the rest.
func (s *Seeder) MountDir(ctx context.Context, dir string) (*SeedReport, error) {
	report := &SeedReport{Failed: make(map[string]error)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("Artifact directory not found", zap.String("dir", dir))
			return report, nil
		}
		return nil, fmt.Errorf("failed to read artifact directory: %w", err)
	}

	type candidate struct {
		path    string
		version version.Version
	}
	newest := make(map[string]candidate)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), paths.ArtifactExt) {
			continue
		}
		p := filepath.Join(dir, e.Name())

		idx, err := archive.ReadIndex(p)
		if err != nil {
			report.Failed[p] = err
			continue
		}
		v, err := version.Parse(idx.Version)
		if err != nil {
			report.Failed[p] = err
			continue
		}

		cur, ok := newest[idx.ID]
		switch {
		case !ok:
			newest[idx.ID] = candidate{path: p, version: v}
		case version.Compare(v, cur.version) > 0:
			report.Skipped = append(report.Skipped, cur.path)
			newest[idx.ID] = candidate{path: p, version: v}
		default:
			report.Skipped = append(report.Skipped, p)
		}
	}

	selected := make([]string, 0, len(newest))
	for _, c := range newest {
		selected = append(selected, c.path)
	}
	sort.Strings(selected)
	sort.Strings(report.Skipped)

	s.logger.Info("Seeding artifacts", zap.String("dir", dir), zap.Int("count", len(selected)))

	for _, res := range s.loader.LoadAll(ctx, selected) {
		if res.Err != nil {
			report.Failed[res.Path] = res.Err
			continue
		}
		report.Loaded = append(report.Loaded, res.Package.ID)
	}
	sort.Strings(report.Loaded)

	for p, err := range report.Failed {
		s.logger.Warn("Failed to mount artifact", zap.String("artifact", p), zap.Error(err))
	}
	s.logger.Info("Seeding complete",
		zap.Int("loaded", len(report.Loaded)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}

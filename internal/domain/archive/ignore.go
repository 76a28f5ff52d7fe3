package archive

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
)

// DefaultIgnores keeps secrets, VCS data, caches and build output out of every artifact
var DefaultIgnores = []string{
	".env",
	".env.*",
	"**/.env",
	"**/.env.*",
	".git/**",
	"**/__pycache__/**",
	"**/*.pyc",
	"node_modules/**",
	".venv/**",
	"*" + paths.ArtifactExt,
	"*" + paths.ArtifactExt + paths.IndexSuffix,
	paths.DistDir + "/**",
	".DS_Store",
	"**/.DS_Store",
}

// IgnoreSet matches slash paths relative to the project root
type IgnoreSet struct {
	patterns []string
}

// NewIgnoreSet validates patterns and appends them to the defaults
func NewIgnoreSet(extra ...string) (*IgnoreSet, error) {
	s := &IgnoreSet{patterns: append([]string(nil), DefaultIgnores...)}
	for _, p := range extra {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.TrimPrefix(filepath.ToSlash(p), "/")
		if strings.HasSuffix(p, "/") {
			p += "**"
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
		s.patterns = append(s.patterns, p)
	}
	return s, nil
}

// LoadIgnoreSet combines defaults, configured patterns and the project's ignore file
func LoadIgnoreSet(projectDir string, configured []string) (*IgnoreSet, error) {
	patterns := append([]string(nil), configured...)

	data, err := os.ReadFile(filepath.Join(projectDir, paths.IgnoreFile))
	switch {
	case err == nil:
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", paths.IgnoreFile, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %s: %w", paths.IgnoreFile, err)
	}

	return NewIgnoreSet(patterns...)
}

// Match reports whether rel is ignored
func (s *IgnoreSet) Match(rel string) bool {
	for _, p := range s.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Patterns returns the effective pattern list
func (s *IgnoreSet) Patterns() []string {
	return append([]string(nil), s.patterns...)
}

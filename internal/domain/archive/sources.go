package archive

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// resolvedRef is a module:symbol reference located in the project
type resolvedRef struct {
	Field string
	Ref   manifest.Ref
	File  string // slash path relative to the project
}

// checkSources confirms the entrypoint, code surfaces and every export point
// at files that will ship. A source that exists but is ignored is an error.
func checkSources(projectDir string, m *manifest.Manifest, ignore *IgnoreSet) ([]resolvedRef, error) {
	present := func(rel string) bool {
		_, err := os.Stat(filepath.Join(projectDir, filepath.FromSlash(rel)))
		return err == nil
	}
	var refs []resolvedRef
	checkRef := func(field, value string) error {
		ref, err := manifest.ParseRef(value)
		if err != nil {
			return types.ReferenceError(field, value, err)
		}
		candidates := ref.FileCandidates(m.RuntimeTag())
		ignored := ""
		for _, c := range candidates {
			if !present(c) {
				continue
			}
			if ignore.Match(c) {
				ignored = c
				continue
			}
			refs = append(refs, resolvedRef{Field: field, Ref: ref, File: c})
			return nil
		}
		if ignored != "" {
			return types.IgnoredSourceError(field, ignored)
		}
		return types.MissingSourceError(field, candidates[0])
	}

	if m.Entrypoint != "" {
		if err := checkRef("entrypoint", m.Entrypoint); err != nil {
			return nil, err
		}
	}
	if s := m.Surfaces.RPC; s != nil {
		if err := checkRef("surfaces.rpc.service", s.Service); err != nil {
			return nil, err
		}
	}
	if s := m.Surfaces.HTTP; s != nil {
		if err := checkRef("surfaces.http.entry", s.Entry); err != nil {
			return nil, err
		}
	}
	for _, e := range m.AllExports() {
		field := "exports." + e.ID
		if e.IsSymbol() {
			if err := checkRef(field, e.Path); err != nil {
				return nil, err
			}
			continue
		}
		rel := path.Clean(filepath.ToSlash(e.Path))
		switch {
		case !present(rel):
			return nil, types.MissingSourceError(field, rel)
		case ignore.Match(rel):
			return nil, types.IgnoredSourceError(field, rel)
		}
	}
	return refs, nil
}

// symbolAdvisories flags references whose module file does not appear to
// define the referenced symbol
func symbolAdvisories(projectDir string, m *manifest.Manifest, refs []resolvedRef) []types.Advisory {
	var out []types.Advisory
	cache := make(map[string][]byte)
	for _, r := range refs {
		src, ok := cache[r.File]
		if !ok {
			data, err := os.ReadFile(filepath.Join(projectDir, filepath.FromSlash(r.File)))
			if err != nil {
				continue
			}
			cache[r.File] = data
			src = data
		}
		if manifest.DefinesSymbol(m.RuntimeTag(), src, r.Ref.Symbol) {
			continue
		}
		out = append(out, types.Advisory{
			Code:    types.AdvisorySymbolMissing,
			Subject: r.Field,
			Message: fmt.Sprintf("%s does not appear to define %q", r.File, r.Ref.Symbol),
		})
	}
	return out
}

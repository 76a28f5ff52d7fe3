package manifest

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/version"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/utils"
)

// Validate checks every rule and returns all violations, never just the first.
// The same rules run at build time and again at load time.
func Validate(m *Manifest) []types.Violation {
	var v violations

	if err := utils.ValidatePattern(m.ID, "id", utils.MaxPackageIDLength, utils.PackageIDPattern,
		"lowercase letters, digits and hyphens, starting with a letter"); err != nil {
		v.add("id", err.Error())
	}

	if m.Version == "" {
		v.add("version", "version is required")
	} else if _, err := version.Parse(m.Version); err != nil {
		v.add("version", err.Error())
	}

	switch {
	case m.Entrypoint != "":
		if _, err := ParseRef(m.Entrypoint); err != nil {
			v.add("entrypoint", err.Error())
		}
	case m.Surfaces.RPC == nil && m.Surfaces.HTTP == nil:
		v.add("entrypoint", "entrypoint is required when no rpc or http surface is declared")
	}

	validateExports(&v, m)
	validateMetadata(&v, m)
	validateSurfaces(&v, m)

	keys := make([]string, 0, len(m.Environment))
	for k := range m.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !utils.IsSecretKey(k) {
			v.add("environment."+k, "environment keys must be upper-case letters, digits and underscores")
		}
	}

	return v.list
}

func validateExports(v *violations, m *Manifest) {
	seen := make(map[string]string)

	check := func(group string, i int, e Export) {
		field := fmt.Sprintf("%s[%d]", group, i)
		if err := utils.ValidatePattern(e.ID, field+".id", utils.MaxExportIDLength, utils.ExportIDPattern,
			"letters, digits, dots, hyphens and underscores, starting with a letter"); err != nil {
			v.add(field+".id", err.Error())
		} else if prev, dup := seen[e.ID]; dup {
			v.add(field+".id", fmt.Sprintf("duplicate export id %q (already declared at %s)", e.ID, prev))
		} else {
			seen[e.ID] = field
		}

		switch {
		case e.Path == "":
			v.add(field+".path", "path is required")
		case len(e.Path) > utils.MaxPathLength:
			v.add(field+".path", fmt.Sprintf("path must not exceed %d characters", utils.MaxPathLength))
		case e.IsSymbol():
			if _, err := ParseRef(e.Path); err != nil {
				v.add(field+".path", err.Error())
			}
		case filepath.IsAbs(e.Path):
			v.add(field+".path", fmt.Sprintf("path %q must be relative to the package root", e.Path))
		case !paths.IsLocal(filepath.ToSlash(e.Path)):
			v.add(field+".path", fmt.Sprintf("path %q escapes the package root", e.Path))
		}

		if e.Schema != "" && !paths.IsLocal(filepath.ToSlash(e.Schema)) && !IsRef(e.Schema) {
			v.add(field+".schema", fmt.Sprintf("schema %q must be a relative path inside the package", e.Schema))
		}
	}

	for i, e := range m.Exports {
		switch e.Visibility {
		case "", Public, Private:
		default:
			v.add(fmt.Sprintf("exports[%d].visibility", i), fmt.Sprintf("unknown visibility %q (use public or private)", e.Visibility))
		}
		check("exports", i, e)
	}
	for i, e := range m.Private {
		if e.Visibility == Public {
			v.add(fmt.Sprintf("private[%d].visibility", i), "entries under private cannot be public")
		}
		check("private", i, e)
	}
}

func validateMetadata(v *violations, m *Manifest) {
	for i, a := range m.Metadata.Authors {
		if err := utils.ValidateString(a, fmt.Sprintf("metadata.authors[%d]", i), 1, 256, true); err != nil {
			v.add(fmt.Sprintf("metadata.authors[%d]", i), err.Error())
		}
	}
	if m.Metadata.Runtime != "" {
		known := false
		for _, r := range Runtimes {
			if r == m.Metadata.Runtime {
				known = true
				break
			}
		}
		if !known {
			v.add("metadata.runtime", fmt.Sprintf("unknown runtime %q", m.Metadata.Runtime))
		}
	}
}

func validateSurfaces(v *violations, m *Manifest) {
	if s := m.Surfaces.RPC; s != nil {
		if _, err := ParseRef(s.Service); err != nil {
			v.add("surfaces.rpc.service", err.Error())
		}
	}
	if s := m.Surfaces.HTTP; s != nil {
		if _, err := ParseRef(s.Entry); err != nil {
			v.add("surfaces.http.entry", err.Error())
		}
	}
	if s := m.Surfaces.UI; s != nil {
		if s.Path == "" {
			v.add("surfaces.ui.path", "path is required")
		} else if !filepath.IsAbs(s.Path) && !paths.IsLocal(filepath.ToSlash(s.Path)) {
			v.add("surfaces.ui.path", fmt.Sprintf("path %q escapes the project root", s.Path))
		}
	}
}

type violations struct {
	list []types.Violation
}

func (v *violations) add(field, msg string) {
	v.list = append(v.list, types.Violation{Field: field, Message: msg})
}

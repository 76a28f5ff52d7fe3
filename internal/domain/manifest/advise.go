package manifest

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/utils"
)

// Advise returns non-blocking findings about a valid manifest.
func Advise(m *Manifest) []types.Advisory {
	var out []types.Advisory

	if ui := m.Surfaces.UI; ui != nil && filepath.IsAbs(ui.Path) {
		out = append(out, types.Advisory{
			Code:    types.AdvisoryAbsolutePath,
			Subject: "surfaces.ui.path",
			Message: fmt.Sprintf("absolute path %q only builds on this machine", ui.Path),
		})
	}

	keys := make([]string, 0, len(m.Environment))
	for k := range m.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if val := m.Environment[k]; utils.LooksLikeSecret(val) {
			out = append(out, types.Advisory{
				Code:    types.AdvisorySecretValue,
				Subject: "environment." + k,
				Message: fmt.Sprintf("value %s looks like a credential; inject it at deploy time instead", utils.MaskSecret(val, 3)),
			})
		}
	}

	return out
}

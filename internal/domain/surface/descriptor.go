package surface

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// Descriptor is the deploy.json document
type Descriptor struct {
	Expose    []Kind `json:"expose"`
	Ports     Ports  `json:"ports"`
	Multiplex bool   `json:"multiplex"`
}

var (
	// stable key order keeps deploy.json byte-identical across builds
	descriptorEncoder = sonic.Config{SortMapKeys: true, EscapeHTML: true}.Froze()
	descriptorDecoder = sonic.Config{DisallowUnknownFields: true}.Froze()
)

// NewDescriptor describes the declared surfaces of a manifest
func NewDescriptor(s manifest.Surfaces, ports Ports, multiplex bool) (*Descriptor, error) {
	kinds := Declared(s)
	if err := ports.Validate(kinds); err != nil {
		return nil, err
	}

	d := &Descriptor{
		Expose:    make([]Kind, 0, len(kinds)),
		Ports:     make(Ports, len(kinds)),
		Multiplex: multiplex,
	}
	for _, k := range kinds {
		d.Expose = append(d.Expose, k)
		d.Ports[k] = ports[k]
	}
	return d, nil
}

// Encode renders the descriptor as indented JSON with sorted keys
func (d *Descriptor) Encode() ([]byte, error) {
	data, err := descriptorEncoder.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", paths.DeployFile, err)
	}
	return append(data, '\n'), nil
}

// ParseDescriptor decodes deploy.json strictly
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := descriptorDecoder.Unmarshal(data, &d); err != nil {
		return nil, types.SchemaError(paths.DeployFile, []types.Violation{{Field: "(document)", Message: err.Error()}})
	}
	return &d, nil
}

func known(k Kind) bool {
	for _, o := range Order {
		if o == k {
			return true
		}
	}
	return false
}

// Check verifies the descriptor agrees with the surfaces a manifest declares
func (d *Descriptor) Check(s manifest.Surfaces) error {
	var violations []types.Violation

	declared := Declared(s)
	if len(declared) != len(d.Expose) {
		violations = append(violations, types.Violation{
			Field:   "expose",
			Message: fmt.Sprintf("exposes %v but the manifest declares %v", d.Expose, declared),
		})
	} else {
		for i, k := range declared {
			if d.Expose[i] != k {
				violations = append(violations, types.Violation{
					Field:   fmt.Sprintf("expose[%d]", i),
					Message: fmt.Sprintf("expected %s, found %s", k, d.Expose[i]),
				})
			}
		}
	}

	if err := d.Ports.Validate(d.Expose); err != nil {
		violations = append(violations, types.Violation{Field: "ports", Message: err.Error()})
	}
	for k := range d.Ports {
		if !known(k) || source(s, k) == "" {
			violations = append(violations, types.Violation{
				Field:   "ports." + string(k),
				Message: fmt.Sprintf("port assigned to undeclared %s surface", k),
			})
		}
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool { return violations[i].Field < violations[j].Field })
		return types.SchemaError(paths.DeployFile, violations)
	}
	return nil
}

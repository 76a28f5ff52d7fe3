package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// Format is a manifest encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FileName returns the canonical manifest file name for the format
func (f Format) FileName() string {
	switch f {
	case FormatTOML:
		return "agent.toml"
	case FormatJSON:
		return "agent.json"
	default:
		return "agent.yaml"
	}
}

// FormatFromName infers the format from a manifest file name
func FormatFromName(name string) (Format, error) {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported manifest file %q", name)
	}
}

// Parse decodes and validates a manifest. Every validation violation and
// every unknown field are reported together as one schema error.
func Parse(data []byte, format Format, source string) (*Manifest, error) {
	var m Manifest
	if err := decode(data, format, &m); err != nil {
		return nil, types.SchemaError(source, []types.Violation{{Field: "(document)", Message: err.Error()}})
	}
	m.Raw = append([]byte(nil), data...)
	m.Format = format

	violations := Validate(&m)
	doc, err := decodeDocument(data, format)
	if err != nil {
		violations = append(violations, types.Violation{Field: "(document)", Message: err.Error()})
	} else {
		violations = append(violations, unknownFields(doc)...)
	}
	if len(violations) > 0 {
		return nil, types.SchemaError(source, violations)
	}
	return &m, nil
}

func decode(data []byte, format Format, m *Manifest) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("manifest is empty")
	}
	switch format {
	case FormatYAML:
		return yaml.Unmarshal(data, m)
	case FormatTOML:
		return toml.Unmarshal(data, m)
	case FormatJSON:
		return sonic.Unmarshal(data, m)
	default:
		return fmt.Errorf("unsupported manifest format %q", format)
	}
}

// Find returns the manifest file inside a project directory
func Find(projectDir string) (string, error) {
	for _, name := range paths.ManifestNames {
		p := filepath.Join(projectDir, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", types.MissingSourceError("manifest", filepath.Join(projectDir, paths.ManifestNames[0]))
}

// ParseFile reads and parses a manifest from disk
func ParseFile(path string) (*Manifest, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, types.SchemaError(path, []types.Violation{{Field: "(file)", Message: err.Error()}})
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.MissingSourceError("manifest", path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data, format, path)
}

// Load finds and parses the manifest of a project directory
func Load(projectDir string) (*Manifest, error) {
	p, err := Find(projectDir)
	if err != nil {
		return nil, err
	}
	return ParseFile(p)
}

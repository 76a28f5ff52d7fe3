package archive

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// IndexFormat identifies the sidecar index layout
const IndexFormat = "apkg-index/v1"

// Member is one archive entry as recorded in the index
type Member struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Index is the sidecar written next to every artifact. It carries the
// integrity hash so the archive bytes never depend on their own digest.
type Index struct {
	Format   string   `json:"format"`
	Artifact string   `json:"artifact"`
	ID       string   `json:"id"`
	Version  string   `json:"version"`
	Hash     string   `json:"hash"`
	Size     int64    `json:"size"`
	Members  []Member `json:"members"`
}

var (
	indexEncoder = sonic.Config{SortMapKeys: true}.Froze()
	indexDecoder = sonic.Config{DisallowUnknownFields: true}.Froze()
)

// Encode renders the index as indented JSON
func (idx *Index) Encode() ([]byte, error) {
	data, err := indexEncoder.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode index: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadIndex loads the sidecar index of an artifact
func ReadIndex(artifactPath string) (*Index, error) {
	indexPath := paths.IndexPath(artifactPath)
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.IntegrityError(artifactPath, "index "+indexPath+" is missing")
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var idx Index
	if err := indexDecoder.Unmarshal(data, &idx); err != nil {
		return nil, types.IntegrityError(artifactPath, "index is malformed: "+err.Error())
	}
	if idx.Format != IndexFormat {
		return nil, types.IntegrityError(artifactPath, fmt.Sprintf("unsupported index format %q", idx.Format))
	}
	if len(idx.Members) == 0 || !paths.IsManifestName(idx.Members[0].Name) {
		return nil, types.IntegrityError(artifactPath, "index does not start with a manifest member")
	}
	return &idx, nil
}

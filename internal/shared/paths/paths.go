package paths

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// File names and extensions
const (
	ArtifactExt   = ".apkg"
	IndexSuffix   = ".index.json"
	DeployFile    = "deploy.json"
	DistDir       = "dist"
	IgnoreFile    = ".apkgignore"
	StagingSubdir = "apkg-staging"
)

// ManifestNames lists accepted manifest file names in lookup order
var ManifestNames = []string{"agent.yaml", "agent.yml", "agent.toml", "agent.json"}

// ArtifactBase returns "{id}-{version}"
func ArtifactBase(id, version string) string {
	return fmt.Sprintf("%s-%s", id, version)
}

// ArtifactName returns "{id}-{version}.apkg"
func ArtifactName(id, version string) string {
	return ArtifactBase(id, version) + ArtifactExt
}

// IndexPath returns the sidecar index path for an artifact path
func IndexPath(artifactPath string) string {
	return artifactPath + IndexSuffix
}

// DistPath returns the archive path of a generated surface file
func DistPath(kind string, rel string) string {
	return path.Join(DistDir, kind, rel)
}

// IsManifestName reports whether name is an accepted manifest file name
func IsManifestName(name string) bool {
	for _, n := range ManifestNames {
		if n == name {
			return true
		}
	}
	return false
}

// ToSlash normalises an OS path relative to root into an archive member name.
func ToSlash(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsLocal reports whether a slash path stays inside its root
func IsLocal(p string) bool {
	if p == "" || path.IsAbs(p) || filepath.IsAbs(p) {
		return false
	}
	clean := path.Clean(p)
	return clean != ".." && !strings.HasPrefix(clean, "../")
}

// SafeJoin joins a slash member name onto root, refusing names that escape it.
func SafeJoin(root, name string) (string, error) {
	if !IsLocal(name) {
		return "", fmt.Errorf("path %q escapes %s", name, root)
	}
	return filepath.Join(root, filepath.FromSlash(path.Clean(name))), nil
}

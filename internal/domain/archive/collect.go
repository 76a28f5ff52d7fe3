package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// source is a file destined to become an archive member
type source struct {
	Name string // slash path inside the archive
	Path string // on-disk location
	Size int64
}

// secretFileNames flags files that usually hold credentials
var secretFileNames = []string{"*.pem", "*.key", "*.p12", "id_rsa", "id_ed25519", ".npmrc", ".pypirc", "credentials.json", "secrets.*"}

// collect walks projectDir and returns every regular, non-ignored file.
// Manifest files at the root are left out; the builder writes the manifest itself.
func collect(ctx context.Context, projectDir string, ignore *IgnoreSet) ([]source, []types.Advisory, error) {
	var (
		mu         sync.Mutex
		files      []source
		advisories []types.Advisory
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, projectDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == projectDir {
			return nil
		}

		rel, err := paths.ToSlash(projectDir, p)
		if err != nil {
			return err
		}
		if ignore.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			mu.Lock()
			advisories = append(advisories, types.Advisory{
				Code:    types.AdvisorySkippedFile,
				Subject: rel,
				Message: "not a regular file; left out of the artifact",
			})
			mu.Unlock()
			return nil
		}
		if !strings.Contains(rel, "/") && paths.IsManifestName(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", rel, err)
		}

		mu.Lock()
		defer mu.Unlock()
		files = append(files, source{Name: rel, Path: p, Size: info.Size()})
		if looksLikeSecretFile(rel) {
			advisories = append(advisories, types.Advisory{
				Code:    types.AdvisorySecretFile,
				Subject: rel,
				Message: "file name suggests credentials; add it to " + paths.IgnoreFile + " if it should not ship",
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to collect %s: %w", projectDir, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	sort.Slice(advisories, func(i, j int) bool { return advisories[i].Subject < advisories[j].Subject })
	return files, advisories, nil
}

func looksLikeSecretFile(rel string) bool {
	base := path.Base(rel)
	for _, p := range secretFileNames {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

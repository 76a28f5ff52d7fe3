package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
)

// ErrUnresolved is returned by a resolver that has no answer for a reference
var ErrUnresolved = errors.New("reference not resolved")

// ResolveRequest identifies a symbol export inside a staged package
type ResolveRequest struct {
	PackageID string
	ExportID  string
	Ref       manifest.Ref
	Runtime   string
	Root      string
}

// Resolution is what a resolver learned about a reference
type Resolution struct {
	// RelPath is the slash path of the module file inside the package
	RelPath string
	Invoker types.Invoker
}

// SymbolResolver binds module:symbol references
type SymbolResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (Resolution, error)
}

// StaticResolver serves invokers the host registered in-process
type StaticResolver struct {
	mu       sync.RWMutex
	invokers map[string]types.Invoker
}

// NewStaticResolver creates an empty static resolver
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{invokers: make(map[string]types.Invoker)}
}

func staticKey(packageID, ref string) string {
	return packageID + "|" + ref
}

// Register binds ref to inv. An empty packageID applies to every package.
func (s *StaticResolver) Register(packageID, ref string, inv types.Invoker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invokers[staticKey(packageID, ref)] = inv
}

// Resolve implements SymbolResolver
func (s *StaticResolver) Resolve(_ context.Context, req ResolveRequest) (Resolution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref := req.Ref.String()
	if inv, ok := s.invokers[staticKey(req.PackageID, ref)]; ok {
		return Resolution{Invoker: inv}, nil
	}
	if inv, ok := s.invokers[staticKey("", ref)]; ok {
		return Resolution{Invoker: inv}, nil
	}
	return Resolution{}, ErrUnresolved
}

// FileResolver locates the module file of a reference inside the package
type FileResolver struct{}

// Resolve implements SymbolResolver
func (FileResolver) Resolve(ctx context.Context, req ResolveRequest) (Resolution, error) {
	if err := ctx.Err(); err != nil {
		return Resolution{}, err
	}
	for _, cand := range req.Ref.FileCandidates(req.Runtime) {
		info, err := os.Stat(filepath.Join(req.Root, filepath.FromSlash(cand)))
		if err == nil && info.Mode().IsRegular() {
			return Resolution{RelPath: cand}, nil
		}
	}
	return Resolution{}, ErrUnresolved
}

// ChainResolver asks every resolver and merges their answers: the first
// file location and the first invoker win. It fails only when nobody answers.
type ChainResolver []SymbolResolver

// Resolve implements SymbolResolver
func (c ChainResolver) Resolve(ctx context.Context, req ResolveRequest) (Resolution, error) {
	var out Resolution
	found := false
	for _, r := range c {
		res, err := r.Resolve(ctx, req)
		if errors.Is(err, ErrUnresolved) {
			continue
		}
		if err != nil {
			return Resolution{}, err
		}
		found = true
		if out.RelPath == "" {
			out.RelPath = res.RelPath
		}
		if out.Invoker == nil {
			out.Invoker = res.Invoker
		}
	}
	if !found {
		return Resolution{}, ErrUnresolved
	}
	return out, nil
}

// DefaultResolver locates module files and attaches invokers registered on static
func DefaultResolver(static *StaticResolver) SymbolResolver {
	if static == nil {
		return FileResolver{}
	}
	return ChainResolver{FileResolver{}, static}
}

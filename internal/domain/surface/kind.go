package surface

import (
	"fmt"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
)

// Kind identifies a surface
type Kind string

const (
	KindHTTP Kind = "http"
	KindRPC  Kind = "rpc"
	KindUI   Kind = "ui"
)

// Order is the fixed expose order written to deploy.json
var Order = []Kind{KindHTTP, KindRPC, KindUI}

// Ports maps each surface kind to its listen port
type Ports map[Kind]int

// DefaultPorts returns the conventional port assignment
func DefaultPorts() Ports {
	return Ports{
		KindHTTP: 8080,
		KindRPC:  50051,
		KindUI:   3000,
	}
}

// Validate rejects missing, out of range and duplicate ports for the given kinds
func (p Ports) Validate(kinds []Kind) error {
	owner := make(map[int]Kind, len(kinds))
	for _, k := range kinds {
		port, ok := p[k]
		if !ok {
			return fmt.Errorf("no port assigned to %s surface", k)
		}
		if port <= 0 || port > 65535 {
			return fmt.Errorf("port %d for %s surface is out of range", port, k)
		}
		if prev, dup := owner[port]; dup {
			return fmt.Errorf("port %d assigned to both %s and %s surfaces", port, prev, k)
		}
		owner[port] = k
	}
	return nil
}

// Declared returns the declared surface kinds in expose order
func Declared(s manifest.Surfaces) []Kind {
	var kinds []Kind
	for _, k := range Order {
		if source(s, k) != "" {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// source returns the manifest value naming a surface's source, or "" when undeclared
func source(s manifest.Surfaces, k Kind) string {
	switch k {
	case KindHTTP:
		if s.HTTP != nil {
			return s.HTTP.Entry
		}
	case KindRPC:
		if s.RPC != nil {
			return s.RPC.Service
		}
	case KindUI:
		if s.UI != nil {
			return s.UI.Path
		}
	}
	return ""
}

// field returns the manifest field name of a surface's source
func field(k Kind) string {
	switch k {
	case KindHTTP:
		return "surfaces.http.entry"
	case KindRPC:
		return "surfaces.rpc.service"
	default:
		return "surfaces.ui.path"
	}
}

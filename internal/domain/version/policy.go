package version

import "fmt"

// Decision is the outcome of a policy check
type Decision int

const (
	Allow Decision = iota
	RejectDowngrade
	RejectIdentical
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RejectDowngrade:
		return "reject-downgrade"
	case RejectIdentical:
		return "reject-identical"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Policy decides whether an incoming version may replace a mounted one
type Policy int

const (
	// Strict rejects any incoming version <= the mounted one
	Strict Policy = iota
	// AllowReinstall accepts the identical version, still rejects downgrades
	AllowReinstall
	// AllowAny accepts every replacement
	AllowAny
)

// ParsePolicy maps a configuration string to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return Strict, nil
	case "allow-reinstall":
		return AllowReinstall, nil
	case "allow-any":
		return AllowAny, nil
	default:
		return Strict, fmt.Errorf("unknown upgrade policy %q", s)
	}
}

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case AllowReinstall:
		return "allow-reinstall"
	case AllowAny:
		return "allow-any"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Check compares the mounted version with the incoming one
func (p Policy) Check(existing, incoming Version) Decision {
	if p == AllowAny {
		return Allow
	}
	switch c := Compare(incoming, existing); {
	case c > 0:
		return Allow
	case c < 0:
		return RejectDowngrade
	default:
		if p == AllowReinstall {
			return Allow
		}
		return RejectIdentical
	}
}

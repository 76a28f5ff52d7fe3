package version

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// strict SemVer 2.0.0, no leading "v", no shorthand like "1.2"
var pattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
	`(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// Version is a validated semantic version
type Version struct {
	raw string
}

// Parse validates s as a strict semantic version
func Parse(s string) (Version, error) {
	if !pattern.MatchString(s) {
		return Version{}, fmt.Errorf("%q is not a semantic version (expected MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD])", s)
	}
	return Version{raw: s}, nil
}

// MustParse is Parse for constants and tests
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as written
func (v Version) String() string {
	return v.raw
}

// Prerelease returns the pre-release part without the leading "-"
func (v Version) Prerelease() string {
	return strings.TrimPrefix(semver.Prerelease("v"+v.raw), "-")
}

// Compare orders a and b by semver precedence: -1, 0 or +1.
// Build metadata is ignored, pre-releases sort before their release.
func Compare(a, b Version) int {
	return semver.Compare("v"+a.raw, "v"+b.raw)
}

// CompareStrings parses and compares two version strings
func CompareStrings(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return Compare(va, vb), nil
}

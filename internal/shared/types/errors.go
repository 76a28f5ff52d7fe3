package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a packaging failure.
type Kind string

const (
	KindSchema        Kind = "schema"
	KindMissingSource Kind = "missing_source"
	KindSizeLimit     Kind = "size_limit"
	KindIntegrity     Kind = "integrity"
	KindConflict      Kind = "conflict"
	KindVersionPolicy Kind = "version_policy"
	KindNotMounted    Kind = "not_mounted"
	KindReference     Kind = "invalid_reference"
)

// Sentinels for errors.Is matching against a kind.
var (
	ErrSchema        = &Error{Kind: KindSchema}
	ErrMissingSource = &Error{Kind: KindMissingSource}
	ErrSizeLimit     = &Error{Kind: KindSizeLimit}
	ErrIntegrity     = &Error{Kind: KindIntegrity}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrVersionPolicy = &Error{Kind: KindVersionPolicy}
	ErrNotMounted    = &Error{Kind: KindNotMounted}
	ErrReference     = &Error{Kind: KindReference}
)

// Violation is a single field-level problem found while validating input.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed failure returned by every packaging operation.
type Error struct {
	Kind       Kind        `json:"kind"`
	Message    string      `json:"message"`
	Hint       string      `json:"hint,omitempty"`
	Subjects   []string    `json:"subjects,omitempty"`
	Violations []Violation `json:"violations,omitempty"`
	Err        error       `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	for _, v := range e.Violations {
		fmt.Fprintf(&sb, "\n  - %s: %s", v.Field, v.Message)
	}
	if e.Hint != "" {
		sb.WriteString(" (hint: ")
		sb.WriteString(e.Hint)
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the kind of a packaging error, or "" for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// SchemaError reports every violated manifest field at once.
func SchemaError(source string, violations []Violation) *Error {
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	return &Error{
		Kind:       KindSchema,
		Message:    fmt.Sprintf("manifest %s has %d invalid field(s)", source, len(violations)),
		Hint:       "fix the listed fields: " + strings.Join(fields, ", "),
		Subjects:   fields,
		Violations: violations,
	}
}

// MissingSourceError reports a declared path that does not exist.
func MissingSourceError(field, path string) *Error {
	return &Error{
		Kind:     KindMissingSource,
		Message:  fmt.Sprintf("%s references %q which does not exist", field, path),
		Hint:     fmt.Sprintf("create %s or correct %s", path, field),
		Subjects: []string{path},
	}
}

// IgnoredSourceError reports a declared path that exists but is excluded by an ignore pattern.
func IgnoredSourceError(field, path string) *Error {
	return &Error{
		Kind:     KindMissingSource,
		Message:  fmt.Sprintf("%s references %q which matches an ignore pattern", field, path),
		Hint:     fmt.Sprintf("remove the pattern matching %s or point %s at a file that ships", path, field),
		Subjects: []string{path},
	}
}

// SizeLimitExceeded reports a package larger than the configured limit.
func SizeLimitExceeded(size, limit int64, largest string) *Error {
	return &Error{
		Kind:     KindSizeLimit,
		Message:  fmt.Sprintf("package size %d bytes exceeds limit of %d bytes", size, limit),
		Hint:     fmt.Sprintf("add ignore patterns or shrink %s", largest),
		Subjects: []string{largest},
	}
}

// IntegrityError reports a hash or member mismatch for an archive.
func IntegrityError(path, detail string) *Error {
	return &Error{
		Kind:     KindIntegrity,
		Message:  fmt.Sprintf("archive %s failed verification: %s", path, detail),
		Hint:     "rebuild the artifact or fetch it again; do not edit archives after build",
		Subjects: []string{path},
	}
}

// ConflictError names every export id already owned by another package.
func ConflictError(packageID string, ids []string) *Error {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return &Error{
		Kind:     KindConflict,
		Message:  fmt.Sprintf("package %s declares export ids already mounted: %s", packageID, strings.Join(sorted, ", ")),
		Hint:     "rename the exports or unmount the package that owns them",
		Subjects: sorted,
	}
}

// VersionPolicyError reports an upgrade rejected by the configured policy.
func VersionPolicyError(packageID, existing, incoming, reason string) *Error {
	return &Error{
		Kind:     KindVersionPolicy,
		Message:  fmt.Sprintf("package %s %s -> %s rejected: %s", packageID, existing, incoming, reason),
		Hint:     fmt.Sprintf("bump %s above %s or unmount it first", packageID, existing),
		Subjects: []string{packageID},
	}
}

// NotMountedError reports an operation on a package id that is not mounted.
func NotMountedError(packageID string) *Error {
	return &Error{
		Kind:     KindNotMounted,
		Message:  fmt.Sprintf("package %s is not mounted", packageID),
		Hint:     "list mounted packages to find the correct id",
		Subjects: []string{packageID},
	}
}

// ReferenceError reports an export that could not be bound.
func ReferenceError(exportID, ref string, err error) *Error {
	return &Error{
		Kind:     KindReference,
		Message:  fmt.Sprintf("export %s: cannot resolve %q", exportID, ref),
		Hint:     fmt.Sprintf("check the path of export %s", exportID),
		Subjects: []string{exportID},
		Err:      err,
	}
}

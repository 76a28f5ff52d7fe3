package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxPackageIDLength = 64
	MaxExportIDLength  = 128
	MaxPathLength      = 1024
)

// Regular expressions for validation
var (
	// PackageIDPattern is lowercase letters, digits and hyphens, starting with a letter
	PackageIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	// ExportIDPattern additionally allows dots and underscores
	ExportIDPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)
	// SecretKeyPattern matches conventional upper-case environment variable names
	SecretKeyPattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
	// secretLikePattern flags values that look like credentials
	secretLikePattern = regexp.MustCompile(`(?i)^(sk-[a-z0-9]{8,}|ghp_[a-z0-9]{20,}|xox[abp]-[a-z0-9-]{10,}|AKIA[0-9A-Z]{16}|[a-z]+://[^/\s:]+:[^@\s]+@.+)$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidatePattern validates a required string against a pattern
func ValidatePattern(value, fieldName string, maxLen int, pattern *regexp.Regexp, describe string) error {
	if err := ValidateString(value, fieldName, 1, maxLen, true); err != nil {
		return err
	}
	if !pattern.MatchString(value) {
		return fmt.Errorf("%s %q must be %s", fieldName, value, describe)
	}
	return nil
}

// IsSecretKey reports whether key looks like an environment variable name
func IsSecretKey(key string) bool {
	return SecretKeyPattern.MatchString(key)
}

// LooksLikeSecret reports whether a value resembles a credential
func LooksLikeSecret(value string) bool {
	return secretLikePattern.MatchString(strings.TrimSpace(value))
}

// MaskSecret keeps the first showChars characters of a value and masks the rest.
// Values too short to reveal anything are fully masked.
func MaskSecret(value string, showChars int) string {
	if showChars <= 0 || len(value) <= showChars {
		return "***"
	}
	return value[:showChars] + "***"
}

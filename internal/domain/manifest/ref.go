package manifest

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	modulePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*(\.[A-Za-z_][A-Za-z0-9_-]*)*$`)
	symbolPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Ref is a tagged (module path, symbol) pair such as "src.server:serve".
// Resolution is left to a pluggable resolver so the reference format stays
// independent of the runtime that eventually executes it.
type Ref struct {
	Module string `json:"module"`
	Symbol string `json:"symbol"`
}

// ParseRef parses "module.path:symbol"
func ParseRef(s string) (Ref, error) {
	module, symbol, ok := strings.Cut(s, ":")
	if !ok {
		return Ref{}, fmt.Errorf("%q must be in format 'module.path:symbol'", s)
	}
	if !modulePattern.MatchString(module) {
		return Ref{}, fmt.Errorf("%q has an invalid module path %q", s, module)
	}
	if !symbolPattern.MatchString(symbol) {
		return Ref{}, fmt.Errorf("%q has an invalid symbol %q", s, symbol)
	}
	return Ref{Module: module, Symbol: symbol}, nil
}

// String returns the canonical "module:symbol" form
func (r Ref) String() string {
	return r.Module + ":" + r.Symbol
}

// ModulePath converts the dotted module to a slash path without extension
func (r Ref) ModulePath() string {
	return strings.ReplaceAll(r.Module, ".", "/")
}

// FileCandidates lists slash paths the module may live at, in lookup order
func (r Ref) FileCandidates(runtime string) []string {
	base := r.ModulePath()
	var out []string
	for _, ext := range RuntimeExtensions(runtime) {
		out = append(out, base+ext)
	}
	for _, idx := range packageIndexFiles(runtime) {
		out = append(out, path.Join(base, idx))
	}
	return out
}

// RuntimeExtensions returns source file extensions for a runtime tag
func RuntimeExtensions(runtime string) []string {
	switch {
	case strings.HasPrefix(runtime, "python"):
		return []string{".py"}
	case strings.HasPrefix(runtime, "node"):
		return []string{".js", ".mjs", ".ts"}
	case strings.HasPrefix(runtime, "go"):
		return []string{".go"}
	default:
		return []string{".py", ".js", ".ts", ".go"}
	}
}

func packageIndexFiles(runtime string) []string {
	switch {
	case strings.HasPrefix(runtime, "python"):
		return []string{"__init__.py"}
	case strings.HasPrefix(runtime, "node"):
		return []string{"index.js", "index.ts"}
	default:
		return nil
	}
}

// IsRef reports whether s is written as a module:symbol reference rather than a path
func IsRef(s string) bool {
	return strings.Contains(s, ":") && !strings.Contains(s, "/") && !strings.Contains(s, `\`)
}

// definitionTemplates match a top-level declaration of {sym} per runtime family
var definitionTemplates = map[string]string{
	"python": `(?m)^(?:async\s+def|def|class)\s+{sym}\b|^{sym}\s*(?::[^=\n]*)?=|^from\s+\S+\s+import\s+.*\b{sym}\b`,
	"node":   `(?m)\b(?:function\*?|class)\s+{sym}\b|\b(?:const|let|var)\s+{sym}\s*=|\bexports\.{sym}\s*=|\bexport\s*\{[^}]*\b{sym}\b|module\.exports\s*=\s*\{[^}]*\b{sym}\b`,
	"go":     `(?m)^func\s+(?:\([^)]*\)\s*)?{sym}\s*[\[(]|^(?:var|const)\s+{sym}\b`,
}

// DefinesSymbol reports whether module source src declares symbol at top
// level in a form the runtime recognizes. Unknown runtimes accept any family.
func DefinesSymbol(runtime string, src []byte, symbol string) bool {
	quoted := regexp.QuoteMeta(symbol)
	for family, tpl := range definitionTemplates {
		if runtimeFamily(runtime) != "" && runtimeFamily(runtime) != family {
			continue
		}
		if regexp.MustCompile(strings.ReplaceAll(tpl, "{sym}", quoted)).Match(src) {
			return true
		}
	}
	return false
}

func runtimeFamily(runtime string) string {
	for _, family := range []string{"python", "node", "go"} {
		if strings.HasPrefix(runtime, family) {
			return family
		}
	}
	return ""
}

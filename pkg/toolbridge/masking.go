package toolbridge

import (
	"log/slog"
	"regexp"
)

// CodeMasker is the structural-masking interface grounded on
// pkg/masking/masker.go's Masker: code-based redaction that needs more
// than a regex (e.g. parsing a Kubernetes Secret manifest), kept separate
// from plain pattern replacement.
type CodeMasker interface {
	Name() string
	AppliesTo(data string) bool
	Mask(data string) string
}

// Pattern is one compiled regex redaction rule.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// Masker applies code-based maskers then regex patterns to tool-result
// content before it reaches the context builder, adapted wholesale from
// pkg/masking/service.go's two-phase apply (structural maskers first,
// general regex sweep second) and its fail-closed error policy.
type Masker struct {
	code     []CodeMasker
	patterns []Pattern
}

// NewMasker builds a Masker from a fixed set of code maskers and patterns,
// both applied to every tool result a Bridge returns.
func NewMasker(code []CodeMasker, patterns []Pattern) *Masker {
	return &Masker{code: code, patterns: patterns}
}

// Mask redacts content, failing closed: a panic from a misbehaving
// CodeMasker is recovered and the whole result is withheld, mirroring
// pkg/masking/service.go's "tool result could not be safely processed"
// fallback rather than leaking partially-masked content.
func (m *Masker) Mask(content string) (result string) {
	if content == "" {
		return content
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("masking panicked, redacting content", "panic", r)
			result = "[REDACTED: data masking failure — tool result could not be safely processed]"
		}
	}()

	masked := content
	for _, cm := range m.code {
		if cm.AppliesTo(masked) {
			masked = cm.Mask(masked)
		}
	}
	for _, p := range m.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}

package toolbridge

import "github.com/bmatcuk/doublestar/v4"

// matchPathConstraints reports whether path satisfies a list of glob
// constraints. A pattern prefixed with "!" is a negative constraint: if
// path matches it, the whole check fails regardless of any positive match.
// Positive constraints are OR'd together; an empty list means "no
// constraint" (always passes). Grounded on pkg/mcp/executor.go's
// allow/deny resolution, generalized from tool-name matching to path
// matching via doublestar (the pack's only glob library capable of
// expressing "**" recursive segments, which path/filepath.Match cannot).
func matchPathConstraints(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	matchedPositive := false
	hasPositive := false
	for _, p := range patterns {
		if len(p) > 0 && p[0] == '!' {
			neg := p[1:]
			if ok, _ := doublestar.Match(neg, path); ok {
				return false
			}
			continue
		}
		hasPositive = true
		if ok, _ := doublestar.Match(p, path); ok {
			matchedPositive = true
		}
	}
	if !hasPositive {
		return true // only negative constraints were given, and none matched
	}
	return matchedPositive
}

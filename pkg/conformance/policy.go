package conformance

// ExitPredicate is a pure function over a bundle deciding whether a phase
// may exit — spec.md §4.3: "Phase-exit predicates (per template) are pure
// functions over the latest bundle."
type ExitPredicate func(bundle *Bundle) bool

// AllLayersPass requires every layer in required to have passed (and not
// be skipped) before a phase may exit. This is the default predicate most
// pipeline templates use.
func AllLayersPass(required ...Layer) ExitPredicate {
	return func(bundle *Bundle) bool {
		for _, layer := range required {
			result, ok := bundle.Result(layer)
			if !ok || result.Skipped || !result.Passed {
				return false
			}
		}
		return true
	}
}

// NoSecurityViolations is a looser predicate some templates use for
// earlier stages: only the security layer is load-bearing, other layers
// may carry advisory-only violations that a reviewer triages instead.
func NoSecurityViolations() ExitPredicate {
	return func(bundle *Bundle) bool {
		result, ok := bundle.Result(LayerSecurity)
		if !ok {
			return true // layer not configured for this template
		}
		return result.Passed
	}
}

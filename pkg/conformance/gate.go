package conformance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Gate runs the layered, cost-ordered check bundle spec.md §4.3 describes.
// It never blocks — Run always returns a Bundle; callers (the stage
// executor) decide what to do with a failing verdict.
type Gate struct {
	checkers map[Layer]Checker
	cache    *Cache
}

// NewGate constructs a Gate with no checkers registered; call Register for
// each layer you want run.
func NewGate(cache *Cache) *Gate {
	return &Gate{checkers: make(map[Layer]Checker), cache: cache}
}

// Register installs the Checker for one layer, overwriting any previous
// registration for that layer.
func (g *Gate) Register(c Checker) {
	g.checkers[c.Layer()] = c
}

// hashContent returns the content-address used as the cache key's first
// component, matching the state store's artifact hashing so a bundle's
// FileHash lines up with the same file's artifact hash when both are
// computed over identical bytes.
func hashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Run executes every registered layer in cost order against target,
// short-circuiting the remaining layers (recorded as Skipped) the moment
// LayerSyntax fails, per spec.md §4.3: "Syntax (must pass to allow any
// further check)." Cached layer results for an unchanged file hash are
// reused without re-invoking the checker.
func (g *Gate) Run(ctx context.Context, target Target) (*Bundle, error) {
	fileHash := hashContent(target.Content)
	bundle := &Bundle{FileHash: fileHash}

	syntaxFailed := false
	for _, layer := range layerOrder {
		checker, ok := g.checkers[layer]
		if !ok {
			continue
		}

		if syntaxFailed {
			bundle.Results = append(bundle.Results, VerificationResult{Layer: layer, Skipped: true, CheckedAt: nowUTC()})
			continue
		}

		if cached, ok := g.cache.Get(fileHash, layer); ok {
			bundle.Results = append(bundle.Results, cached)
			if layer == LayerSyntax && !cached.Passed {
				syntaxFailed = true
			}
			continue
		}

		result, err := checker.Check(ctx, target)
		if err != nil {
			return nil, err
		}
		if putErr := g.cache.Put(fileHash, layer, result); putErr != nil {
			return nil, putErr
		}
		bundle.Results = append(bundle.Results, result)
		if layer == LayerSyntax && !result.Passed {
			syntaxFailed = true
		}
	}

	return bundle, nil
}

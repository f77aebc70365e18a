package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Validate is the pure function spec.md §4.2 mandates:
// validate(artifact, contract_id) → {passed, errors[], artifact_hash}.
// artifact is the raw YAML (or JSON, a subset of YAML) bytes of the thing
// being checked; content is never consulted across calls — two identical
// artifacts always produce identical results.
func (r *Registry) Validate(artifact []byte, contractID string) (*Result, error) {
	spec, err := r.Get(contractID)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(artifact)
	result := &Result{ArtifactHash: hex.EncodeToString(hash[:])}

	var decoded any
	if uErr := yaml.Unmarshal(artifact, &decoded); uErr != nil {
		result.Errors = append(result.Errors, ValidationError{Path: "$", Message: "artifact is not valid YAML/JSON: " + uErr.Error()})
		return result, nil
	}
	decoded = stringifyKeys(decoded)

	var errs []ValidationError
	errs = append(errs, validateNode(decoded, &spec.Schema, "$")...)
	for _, rule := range spec.Validation {
		fn, ok := r.checkFunc(rule.Check)
		if !ok {
			errs = append(errs, ValidationError{Path: "$", Message: fmt.Sprintf("unknown semantic check %q for rule %q", rule.Check, rule.ID)})
			continue
		}
		errs = append(errs, fn(decoded, rule)...)
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })
	result.Errors = errs
	result.Passed = len(errs) == 0
	return result, nil
}

// validateNode recursively checks decoded against a SchemaNode, appending a
// ValidationError for every mismatch found; it does not stop at the first
// error, so callers see the complete set in one pass.
func validateNode(value any, node *SchemaNode, path string) []ValidationError {
	if node == nil || node.Type == "" {
		return nil
	}
	var errs []ValidationError

	switch node.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return []ValidationError{{Path: path, Message: "expected string"}}
		}
		if len(node.Enum) > 0 && !contains(node.Enum, s) {
			errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("value %q not in enum %v", s, node.Enum)})
		}
	case TypeNumber, TypeInteger:
		if !isNumeric(value) {
			return []ValidationError{{Path: path, Message: "expected number"}}
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return []ValidationError{{Path: path, Message: "expected boolean"}}
		}
	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return []ValidationError{{Path: path, Message: "expected array"}}
		}
		for i, item := range items {
			errs = append(errs, validateNode(item, node.Items, fmt.Sprintf("%s[%d]", path, i))...)
		}
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return []ValidationError{{Path: path, Message: "expected object"}}
		}
		for _, req := range node.Required {
			if _, present := obj[req]; !present {
				errs = append(errs, ValidationError{Path: path + "." + req, Message: "required field missing"})
			}
		}
		for key, child := range node.Properties {
			v, present := obj[key]
			if !present {
				continue
			}
			errs = append(errs, validateNode(v, child, path+"."+key)...)
		}
	}
	return errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	default:
		return false
	}
}

// stringifyKeys recursively normalizes map[any]any (yaml.v3's raw decode
// result for some node shapes) into map[string]any so validateNode's type
// switches are uniform regardless of whether the artifact round-tripped
// through a generic interface{} or came straight off the wire as YAML.
func stringifyKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = stringifyKeys(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[fmt.Sprintf("%v", k)] = stringifyKeys(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = stringifyKeys(vv)
		}
		return out
	default:
		return v
	}
}

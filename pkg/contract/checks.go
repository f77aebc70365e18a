package contract

import "fmt"

// registerBuiltinChecks installs the semantic check kinds AgentForge ships
// out of the box. Pipeline templates and agent definitions reference these
// by name from their contract's `validation` list (spec.md §6).
func registerBuiltinChecks(r *Registry) {
	r.RegisterSemanticCheck("non_empty_string", checkNonEmptyString)
	r.RegisterSemanticCheck("one_of_fields_present", checkOneOfFieldsPresent)
	r.RegisterSemanticCheck("no_duplicate_list_items", checkNoDuplicateListItems)
}

// checkNonEmptyString rejects a string field that is present but blank.
// Params: {"field": "<path under the root object>"}.
func checkNonEmptyString(value any, rule SemanticRule) []ValidationError {
	field, _ := rule.Params["field"].(string)
	obj, ok := value.(map[string]any)
	if !ok || field == "" {
		return nil
	}
	s, ok := obj[field].(string)
	if ok && s == "" {
		return []ValidationError{{Path: "$." + field, Message: fmt.Sprintf("rule %q: must not be empty", rule.ID)}}
	}
	return nil
}

// checkOneOfFieldsPresent requires that at least one of Params["fields"]
// ([]any of string) is present and non-nil on the root object.
func checkOneOfFieldsPresent(value any, rule SemanticRule) []ValidationError {
	raw, _ := rule.Params["fields"].([]any)
	obj, ok := value.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	for _, f := range raw {
		name, _ := f.(string)
		if _, present := obj[name]; present {
			return nil
		}
	}
	return []ValidationError{{Path: "$", Message: fmt.Sprintf("rule %q: at least one of %v must be present", rule.ID, raw)}}
}

// checkNoDuplicateListItems rejects duplicate entries in a string-array
// field named by Params["field"].
func checkNoDuplicateListItems(value any, rule SemanticRule) []ValidationError {
	field, _ := rule.Params["field"].(string)
	obj, ok := value.(map[string]any)
	if !ok || field == "" {
		return nil
	}
	items, ok := obj[field].([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s := fmt.Sprintf("%v", item)
		if seen[s] {
			return []ValidationError{{Path: "$." + field, Message: fmt.Sprintf("rule %q: duplicate entry %q", rule.ID, s)}}
		}
		seen[s] = true
	}
	return nil
}

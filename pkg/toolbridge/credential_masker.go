package toolbridge

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaskedCredentialValue replaces any field recognized as a credential by
// StructuredCredentialMasker.
const MaskedCredentialValue = "[MASKED_CREDENTIAL]"

// credentialFieldNames are the map keys whose string values are treated as
// secrets, regardless of which tool produced the structured document (a
// file read, a search result, a command's JSON/YAML output). Adapted from
// pkg/masking/kubernetes_secret.go's Kubernetes-Secret-specific field list,
// generalized to any structured tool output rather than one resource kind.
var credentialFieldNames = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"access_key":    true,
	"private_key":   true,
	"client_secret": true,
}

// StructuredCredentialMasker is a CodeMasker that parses a tool result as
// YAML or JSON and replaces any recognized credential field's value,
// leaving the surrounding document shape intact — the same technique
// pkg/masking/kubernetes_secret.go uses for Kubernetes Secret manifests,
// generalized here to any structured document instead of one resource kind.
type StructuredCredentialMasker struct{}

func (m *StructuredCredentialMasker) Name() string { return "structured_credential" }

// AppliesTo is a cheap substring probe before the expensive parse attempt.
func (m *StructuredCredentialMasker) AppliesTo(data string) bool {
	lower := strings.ToLower(data)
	for field := range credentialFieldNames {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// Mask returns data with recognized credential fields redacted, or data
// unchanged if it does not parse as YAML/JSON or contains nothing to mask
// (fail-safe: never fabricate content, never drop non-credential data).
func (m *StructuredCredentialMasker) Mask(data string) string {
	trimmed := strings.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if masked := m.maskJSON(data); masked != data {
			return masked
		}
	}
	if masked := m.maskYAML(data); masked != data {
		return masked
	}
	return data
}

func (m *StructuredCredentialMasker) maskYAML(data string) string {
	decoder := yaml.NewDecoder(strings.NewReader(data))
	var docs []map[string]any
	anyMasked := false

	for {
		var doc map[string]any
		err := decoder.Decode(&doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return data
		}
		if doc == nil {
			continue
		}
		if maskCredentialFields(doc) {
			anyMasked = true
		}
		docs = append(docs, doc)
	}
	if !anyMasked || len(docs) == 0 {
		return data
	}

	var out strings.Builder
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return data
		}
	}
	if err := enc.Close(); err != nil {
		return data
	}
	result := strings.TrimRight(out.String(), "\n")
	if strings.HasSuffix(data, "\n") {
		result += "\n"
	}
	return result
}

func (m *StructuredCredentialMasker) maskJSON(data string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return data
	}
	if !maskCredentialFields(obj) {
		return data
	}
	result, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return data
	}
	out := string(result)
	if strings.HasSuffix(data, "\n") {
		out += "\n"
	}
	return out
}

// maskCredentialFields walks doc recursively, replacing any recognized
// credential field's scalar value. Returns true if anything was masked.
func maskCredentialFields(doc map[string]any) bool {
	masked := false
	for key, val := range doc {
		lowerKey := strings.ToLower(key)
		if credentialFieldNames[lowerKey] {
			if _, isScalar := val.(map[string]any); !isScalar {
				doc[key] = MaskedCredentialValue
				masked = true
				continue
			}
		}
		switch v := val.(type) {
		case map[string]any:
			if maskCredentialFields(v) {
				masked = true
			}
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					if maskCredentialFields(m) {
						masked = true
					}
				}
			}
		}
	}
	return masked
}

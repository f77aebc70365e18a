// Package contract implements AgentForge's Contract Validator (spec.md
// §4.2, C2): schema + semantic-rule validation of any artifact, with
// contract bodies themselves held as data rather than code.
package contract

// FieldType is the typed-JSON-schema-like shape spec.md §6 describes for
// the contract format's schema section.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
)

// SchemaNode is one node of a contract's schema tree. It intentionally
// covers only the shape tarsy's own config structs need expressed
// generically — object/array/scalar with required fields and enums — not a
// full JSON-Schema implementation, matching spec.md §6's "typed
// JSON-schema-like shape", not literal JSON Schema.
type SchemaNode struct {
	Type       FieldType             `yaml:"type"`
	Properties map[string]*SchemaNode `yaml:"properties,omitempty"`
	Required   []string              `yaml:"required,omitempty"`
	Items      *SchemaNode           `yaml:"items,omitempty"`
	Enum       []string              `yaml:"enum,omitempty"`
}

// SemanticRule is one named semantic check a Spec requires beyond shape
// validation (e.g. "every referenced stage name exists in the pipeline").
// Check names a registered SemanticCheckFunc; Params are passed through to
// it verbatim.
type SemanticRule struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description,omitempty"`
	Check       string         `yaml:"check"`
	Params      map[string]any `yaml:"params,omitempty"`
}

// Spec is one contract's full body: schema shape plus semantic rules,
// loaded as YAML configuration (spec.md §6: "Contract format. YAML:
// `schema` ... and `validation` ...").
type Spec struct {
	SchemaVersion int            `yaml:"schema_version"`
	ID            string         `yaml:"id"`
	Description   string         `yaml:"description,omitempty"`
	Schema        SchemaNode     `yaml:"schema"`
	Validation    []SemanticRule `yaml:"validation,omitempty"`
}

// ValidationError is one failure surfaced by Validate, with a JSON-pointer-
// style path into the artifact that failed.
type ValidationError struct {
	Path    string `yaml:"path"`
	Message string `yaml:"message"`
}

// Result is a validator's pure-function output, exactly spec.md §4.2's
// `{passed, errors[], artifact_hash}`.
type Result struct {
	Passed       bool              `yaml:"passed"`
	Errors       []ValidationError `yaml:"errors,omitempty"`
	ArtifactHash string            `yaml:"artifact_hash"`
}

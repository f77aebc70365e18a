package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDefinitionFile parses one agent-definition YAML file, per spec.md
// §6's format: "agent, identity, capabilities (tools.allowed,
// tools.forbidden, tools.path_constraints, output.contract,
// output.must_verify), constraints, orchestration."
func LoadDefinitionFile(path string) (AgentDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentDefinition{}, fmt.Errorf("read agent definition %s: %w", path, err)
	}
	var raw rawDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return AgentDefinition{}, fmt.Errorf("parse agent definition %s: %w", path, err)
	}
	return raw.toDefinition(), nil
}

// rawDefinition mirrors spec.md §6's on-disk agent-definition shape
// exactly (agent/identity/capabilities/constraints/orchestration),
// decoupled from AgentDefinition's flatter in-memory shape.
type rawDefinition struct {
	Agent         string            `yaml:"agent"`
	DisplayName   string            `yaml:"display_name"`
	Identity      string            `yaml:"identity"`
	Expertise     string            `yaml:"expertise"`
	ThinkingStyle string            `yaml:"thinking_style"`
	Capabilities  rawCapabilities   `yaml:"capabilities"`
	Constraints   []string          `yaml:"constraints"`
	Orchestration OrchestrationMeta `yaml:"orchestration"`
}

type rawCapabilities struct {
	Tools  rawTools  `yaml:"tools"`
	Output rawOutput `yaml:"output"`
}

type rawTools struct {
	Allowed         []string            `yaml:"allowed"`
	Forbidden       []string            `yaml:"forbidden"`
	PathConstraints map[string][]string `yaml:"path_constraints"`
}

type rawOutput struct {
	Contract   string   `yaml:"contract"`
	MustVerify []string `yaml:"must_verify"`
}

func (r rawDefinition) toDefinition() AgentDefinition {
	return AgentDefinition{
		Role:             r.Agent,
		DisplayName:      r.DisplayName,
		Identity:         r.Identity,
		Expertise:        r.Expertise,
		ThinkingStyle:    r.ThinkingStyle,
		AllowedTools:     r.Capabilities.Tools.Allowed,
		ForbiddenTools:   r.Capabilities.Tools.Forbidden,
		PathConstraints:  r.Capabilities.Tools.PathConstraints,
		OutputContractID: r.Capabilities.Output.Contract,
		MustVerify:       r.Capabilities.Output.MustVerify,
		Constraints:      r.Constraints,
		Orchestration:    r.Orchestration,
	}
}

// LoadDir loads every *.yaml file in dir as an agent definition, registers
// it, then validates cross-referenced orchestration role ids once every
// definition in the directory is loaded. Returns the number of
// definitions registered.
func (r *Registry) LoadDir(dir string, contractExists ContractExists) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read agent definitions dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	count := 0
	for _, name := range files {
		def, err := LoadDefinitionFile(filepath.Join(dir, name))
		if err != nil {
			return count, err
		}
		if err := r.Register(def, contractExists); err != nil {
			return count, fmt.Errorf("register agent from %s: %w", name, err)
		}
		count++
	}
	if err := r.ValidateOrchestrationReferences(); err != nil {
		return count, err
	}
	return count, nil
}

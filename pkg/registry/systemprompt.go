package registry

import (
	"fmt"
	"sort"
	"strings"
)

// BuildSystemPrompt constructs an agent's system prompt from identity,
// expertise, thinking style, constraints, tool list, and output-contract
// hints, per spec.md §4.7: "Construct the agent's system prompt from
// identity + expertise + thinking style + constraints + tool list +
// output-contract hints." This is the text ctxbuild's system-prompt
// section is built from (spec.md §4.5 budgets it at 1,500 tokens).
func BuildSystemPrompt(def AgentDefinition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s.\n\n", def.DisplayName)
	b.WriteString(def.Identity)
	b.WriteString("\n\n")

	if def.Expertise != "" {
		b.WriteString(def.Expertise)
		b.WriteString("\n\n")
	}
	if def.ThinkingStyle != "" {
		fmt.Fprintf(&b, "Thinking style: %s\n\n", def.ThinkingStyle)
	}
	if len(def.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, c := range def.Constraints {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	tools := append([]string(nil), def.AllowedTools...)
	sort.Strings(tools)
	if len(tools) > 0 {
		fmt.Fprintf(&b, "Available tools: %s\n\n", strings.Join(tools, ", "))
	}

	fmt.Fprintf(&b, "Your output must satisfy the %q contract.\n", def.OutputContractID)
	if len(def.MustVerify) > 0 {
		sorted := append([]string(nil), def.MustVerify...)
		sort.Strings(sorted)
		fmt.Fprintf(&b, "It must also pass: %s.\n", strings.Join(sorted, ", "))
	}

	return b.String()
}

// Package ctxbuild implements AgentForge's Context Builder (spec.md §4.5,
// C5): assembles a complete, fixed-schema context for one executor step
// from the State Store alone, never from prior LLM messages, with
// per-section token budgets that compress in a defined order when
// exceeded.
package ctxbuild

// charsPerToken is the same approximate-token heuristic
// pkg/mcp/tokens.go uses: ~4 characters per token for English text. Exact
// counting would need a tokenizer dependency the retrieved corpus never
// pulls in; the threshold is a soft compression trigger, not a hard
// boundary, so the heuristic is the right tool here too.
const charsPerToken = 4

// EstimateTokens approximates a token count for text.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// Section identifies one of the six fixed context sections spec.md §4.5
// defines.
type Section string

const (
	SectionSystemPrompt       Section = "system_prompt"
	SectionTaskFrame          Section = "task_frame"
	SectionCurrentState       Section = "current_state"
	SectionRecentActions      Section = "recent_actions"
	SectionVerificationStatus Section = "verification_status"
	SectionAvailableActions   Section = "available_actions"
)

// sectionBudget is the target token budget per section, spec.md §4.5's
// table (total target ≤ 8,000 tokens).
var sectionBudget = map[Section]int{
	SectionSystemPrompt:       1500,
	SectionTaskFrame:          500,
	SectionCurrentState:       4000,
	SectionRecentActions:      1000,
	SectionVerificationStatus: 200,
	SectionAvailableActions:   800,
}

// TotalBudget is the sum of every section's target budget.
func TotalBudget() int {
	total := 0
	for _, b := range sectionBudget {
		total += b
	}
	return total
}

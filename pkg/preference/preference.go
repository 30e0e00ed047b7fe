// Package preference generates the criteria an analyst should weigh when
// picking best reviews of each selected review type. The workflow asks
// the model for 3-5 concrete items per type and degrades to a built-in
// set when the response cannot be parsed.
package preference

import (
	"fmt"
	"strings"

	"github.com/reviewflow/reviewflow/pkg/llm"
	"github.com/reviewflow/reviewflow/pkg/stategraph"
)

// Node names.
const (
	NodeGenerateCriteria = "generate_criteria"
	NodeFinalize         = "finalize"
)

// State keys read and written by the workflow.
const (
	KeySelectedTypes      = "selected_types"
	KeyAdditionalCriteria = "additional_criteria"
	KeyCriteriaByType     = "criteria_by_type"
	KeyStatus             = "status"
)

// CriteriaByType holds the evaluation criteria for one review type.
type CriteriaByType struct {
	Type     string   `json:"type"`
	Criteria []string `json:"criteria"`
}

// defaultCriteria is the fallback when the model's response cannot be
// parsed or omits a requested type.
var defaultCriteria = []string{
	"specificity of the review content",
	"reliability of the information",
	"helpfulness to other shoppers",
}

const systemPrompt = `You are an expert review analyst. For each review type the
user selected, propose the concrete, practical criteria to weigh when
picking the BEST reviews of that type.

Propose 3-5 criteria per type. Each criterion should be:
1. Specific and measurable
2. Useful for actual review analysis
3. Representative of that type's character
4. Distinct from the others

Respond in this JSON format:
{
    "review type 1": ["criterion 1", "criterion 2", "criterion 3"],
    "review type 2": ["criterion 1", "criterion 2", "criterion 3"]
}`

// NewGraph builds the criteria generation workflow.
func NewGraph() (*stategraph.Graph, error) {
	return stategraph.Build(
		stategraph.Entry(NodeGenerateCriteria, generateCriteria, stategraph.To(NodeFinalize)),
		stategraph.Terminal(NodeFinalize, finalize),
	)
}

// generateCriteria asks the model for per-type criteria. An empty type
// selection short-circuits to an empty result without a model call, and
// any parse failure falls back to the default criteria per type. User
// supplied criteria are appended to every type, tagged as user-added.
func generateCriteria(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	selected := s.Strings(KeySelectedTypes)
	if len(selected) == 0 {
		ctx.Logger().Warn("no review types selected, returning empty criteria")
		return stategraph.Delta{KeyCriteriaByType: []CriteriaByType{}}, nil
	}
	additional := s.Strings(KeyAdditionalCriteria)

	client := ctx.LLM()
	if client == nil {
		return nil, fmt.Errorf("criteria generation requires an LLM client")
	}

	var parts []string
	parts = append(parts, "Selected review types: "+strings.Join(selected, ", "))
	if len(additional) > 0 {
		parts = append(parts, "Additional criteria to consider: "+strings.Join(additional, ", "))
	}

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: strings.Join(parts, "\n")}},
		Temperature:  0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate criteria: %w", err)
	}

	var byType map[string][]string
	if err := llm.DecodeJSON(resp.Content, &byType); err != nil {
		ctx.Logger().Warn("criteria response not parseable, using defaults", "error", err)
		byType = nil
	}

	// Assemble in the order the user selected the types, so the output
	// is deterministic regardless of map iteration.
	result := make([]CriteriaByType, 0, len(selected))
	for _, reviewType := range selected {
		criteria := byType[reviewType]
		if len(criteria) == 0 {
			criteria = append([]string(nil), defaultCriteria...)
		}
		for _, extra := range additional {
			criteria = append(criteria, "[user-added] "+extra)
		}
		result = append(result, CriteriaByType{Type: reviewType, Criteria: criteria})
	}

	return stategraph.Delta{KeyCriteriaByType: result}, nil
}

func finalize(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	return stategraph.Delta{KeyStatus: "criteria generation complete"}, nil
}

// Decode extracts the generated criteria from a final state, including
// states that round-tripped through a snapshot.
func Decode(s stategraph.State) ([]CriteriaByType, error) {
	return stategraph.DecodeField[[]CriteriaByType](s, KeyCriteriaByType)
}

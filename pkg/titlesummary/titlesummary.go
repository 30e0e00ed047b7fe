// Package titlesummary generates display titles, and where requested
// summaries, for the reviews the selection workflow picked, then
// validates the results against length rules.
package titlesummary

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/reviewflow/reviewflow/pkg/llm"
	"github.com/reviewflow/reviewflow/pkg/stategraph"
)

// Node names.
const (
	NodeValidateInput     = "validate_input"
	NodeGenerateTitles    = "generate_titles"
	NodeGenerateSummaries = "generate_summaries"
	NodeValidateResults   = "validate_results"
	NodeFinalize          = "finalize"
)

// Routing labels for the summary branch.
const (
	LabelSummariesRequired = "summaries_required"
	LabelSkip              = "skip"
)

// State keys read and written by the workflow.
const (
	KeySelectedReviews         = "selected_reviews"
	KeySummaryRequiredReviews  = "summary_required_reviews"
	KeyTitleStyle              = "title_style"
	KeySummaryStyle            = "summary_style"
	KeyTitleCustomRequirements = "title_custom_requirements"
	KeyRegenerateRequirements  = "regenerate_requirements"
	KeyValidated               = "validated"
	KeyReviewCount             = "review_count"
	KeyGeneratedTitles         = "generated_titles"
	KeyGeneratedSummaries      = "generated_summaries"
	KeyFinalResults            = "final_results"
	KeyStatus                  = "status"
)

// Title and summary length bounds, in runes.
const (
	MinTitleLen   = 5
	MaxTitleLen   = 50
	MinSummaryLen = 20
	MaxSummaryLen = 200
)

// ReviewInput is one review to title or summarize.
type ReviewInput struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// GeneratedTitle is the model's title for one review.
type GeneratedTitle struct {
	ReviewID int64  `json:"review_id"`
	Title    string `json:"title"`
}

// GeneratedSummary is the model's summary for one review.
type GeneratedSummary struct {
	ReviewID int64  `json:"review_id"`
	Summary  string `json:"summary"`
}

// ValidatedTitle is a title with its validation verdict.
type ValidatedTitle struct {
	ReviewID int64  `json:"review_id"`
	Title    string `json:"title"`
	Valid    bool   `json:"valid"`
	Message  string `json:"message"`
}

// ValidatedSummary is a summary with its validation verdict.
type ValidatedSummary struct {
	ReviewID int64  `json:"review_id"`
	Summary  string `json:"summary"`
	Valid    bool   `json:"valid"`
	Message  string `json:"message"`
}

// FinalResults is the workflow's output.
type FinalResults struct {
	Titles    []ValidatedTitle   `json:"titles"`
	Summaries []ValidatedSummary `json:"summaries"`
}

// Workflow wires the title/summary graph's settings.
type Workflow struct {
	// Model passed to completions. Empty uses the client default.
	Model string
}

// NewGraph builds the title and summary workflow.
func (w *Workflow) NewGraph() (*stategraph.Graph, error) {
	return stategraph.Build(
		stategraph.Entry(NodeValidateInput, validateInput, stategraph.To(NodeGenerateTitles)),
		stategraph.Of(NodeGenerateTitles, w.generateTitles, stategraph.When(routeOnSummaries, map[string]string{
			LabelSummariesRequired: NodeGenerateSummaries,
			LabelSkip:              NodeValidateResults,
		})),
		stategraph.Of(NodeGenerateSummaries, w.generateSummaries, stategraph.To(NodeValidateResults)),
		stategraph.Of(NodeValidateResults, validateResults, stategraph.To(NodeFinalize)),
		stategraph.Terminal(NodeFinalize, finalize),
	)
}

// validateInput checks that there is anything to process.
func validateInput(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	count := s.Len(KeySelectedReviews)
	if count == 0 {
		return nil, fmt.Errorf("no selected reviews provided")
	}
	ctx.Logger().Info("processing selected reviews",
		"count", count,
		"summaries_required", s.Len(KeySummaryRequiredReviews))
	return stategraph.Delta{KeyValidated: true, KeyReviewCount: count}, nil
}

// routeOnSummaries branches to summary generation only when some
// reviews were marked as needing one.
func routeOnSummaries(ctx stategraph.Context, s stategraph.State) string {
	if s.Len(KeySummaryRequiredReviews) > 0 {
		return LabelSummariesRequired
	}
	return LabelSkip
}

const titlePromptTemplate = `Generate a title in the "{style}" style for each of the
following reviews.

Reviews:
{reviews}

Requirements:
1. Each title must reflect the core content of its review
2. Match the "{style}" style: {guidance}
3. Keep titles between 5 and 50 characters{additional}
4. Respond in this JSON format:
{
    "titles": [
        {"review_id": 1, "title": "generated title"},
        {"review_id": 2, "title": "generated title"}
    ]
}`

// generateTitles produces one title per selected review. A model or
// parse failure degrades to placeholder titles rather than failing the
// workflow.
func (w *Workflow) generateTitles(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	reviews, err := stategraph.DecodeField[[]ReviewInput](s, KeySelectedReviews)
	if err != nil {
		return nil, err
	}
	client := ctx.LLM()
	if client == nil {
		return nil, fmt.Errorf("title generation requires an LLM client")
	}

	style := s.String(KeyTitleStyle, DefaultTitleStyle)

	var additional strings.Builder
	if custom := s.String(KeyTitleCustomRequirements, ""); custom != "" {
		additional.WriteString("\n5. User requirements: " + custom)
	}
	if regen := s.String(KeyRegenerateRequirements, ""); regen != "" {
		additional.WriteString("\n6. Regeneration requirements: " + regen)
	}

	prompt := llm.MustExpand(titlePromptTemplate, map[string]string{
		"style":      style,
		"guidance":   TitleStyleGuidance(style),
		"reviews":    formatReviews(reviews),
		"additional": additional.String(),
	})

	titles, err := completeInto[GeneratedTitle](ctx, client, w.Model, prompt, "titles")
	if err != nil {
		ctx.Logger().Error("title generation failed, using placeholders", "error", err)
		titles = make([]GeneratedTitle, len(reviews))
		for i, r := range reviews {
			titles[i] = GeneratedTitle{ReviewID: r.ID, Title: fmt.Sprintf("review %d", r.ID)}
		}
	}

	ctx.Logger().Info("generated titles", "count", len(titles), "style", style)
	return stategraph.Delta{KeyGeneratedTitles: titles}, nil
}

const summaryPromptTemplate = `Generate a summary in the "{style}" style for each of the
following reviews.

Reviews:
{reviews}

Requirements:
1. Summarize each review's core content and sentiment
2. Match the "{style}" style: {guidance}
3. Keep summaries between 20 and 200 characters
4. Respond in this JSON format:
{
    "summaries": [
        {"review_id": 1, "summary": "generated summary"},
        {"review_id": 2, "summary": "generated summary"}
    ]
}`

// generateSummaries produces summaries for the reviews that need them,
// with the same degrade-to-placeholder policy as titles.
func (w *Workflow) generateSummaries(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	reviews, err := stategraph.DecodeField[[]ReviewInput](s, KeySummaryRequiredReviews)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return stategraph.Delta{KeyGeneratedSummaries: []GeneratedSummary{}}, nil
	}
	client := ctx.LLM()
	if client == nil {
		return nil, fmt.Errorf("summary generation requires an LLM client")
	}

	style := s.String(KeySummaryStyle, DefaultSummaryStyle)
	prompt := llm.MustExpand(summaryPromptTemplate, map[string]string{
		"style":    style,
		"guidance": SummaryStyleGuidance(style),
		"reviews":  formatReviews(reviews),
	})

	summaries, err := completeInto[GeneratedSummary](ctx, client, w.Model, prompt, "summaries")
	if err != nil {
		ctx.Logger().Error("summary generation failed, using placeholders", "error", err)
		summaries = make([]GeneratedSummary, len(reviews))
		for i, r := range reviews {
			summaries[i] = GeneratedSummary{ReviewID: r.ID, Summary: fmt.Sprintf("summary of review %d", r.ID)}
		}
	}

	ctx.Logger().Info("generated summaries", "count", len(summaries), "style", style)
	return stategraph.Delta{KeyGeneratedSummaries: summaries}, nil
}

// validateResults applies the length rules to every generated title and
// summary and attaches a per-item verdict.
func validateResults(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	titles, err := stategraph.DecodeField[[]GeneratedTitle](s, KeyGeneratedTitles)
	if err != nil {
		return nil, err
	}
	summaries, err := stategraph.DecodeField[[]GeneratedSummary](s, KeyGeneratedSummaries)
	if err != nil {
		return nil, err
	}

	results := FinalResults{
		Titles:    make([]ValidatedTitle, 0, len(titles)),
		Summaries: make([]ValidatedSummary, 0, len(summaries)),
	}
	for _, t := range titles {
		valid, message := validateLength(t.Title, MinTitleLen, MaxTitleLen, "title")
		results.Titles = append(results.Titles, ValidatedTitle{
			ReviewID: t.ReviewID, Title: t.Title, Valid: valid, Message: message,
		})
	}
	for _, sum := range summaries {
		valid, message := validateLength(sum.Summary, MinSummaryLen, MaxSummaryLen, "summary")
		results.Summaries = append(results.Summaries, ValidatedSummary{
			ReviewID: sum.ReviewID, Summary: sum.Summary, Valid: valid, Message: message,
		})
	}

	ctx.Logger().Info("validated results",
		"titles", len(results.Titles), "summaries", len(results.Summaries))
	return stategraph.Delta{KeyFinalResults: results}, nil
}

func finalize(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	return stategraph.Delta{KeyStatus: "title and summary generation complete"}, nil
}

// validateLength checks rune-count bounds and phrases the verdict.
func validateLength(text string, minLen, maxLen int, kind string) (bool, string) {
	n := utf8.RuneCountInString(text)
	switch {
	case n < minLen:
		return false, fmt.Sprintf("%s is too short (%d runes, minimum %d)", kind, n, minLen)
	case n > maxLen:
		return false, fmt.Sprintf("%s is too long (%d runes, maximum %d)", kind, n, maxLen)
	}
	return true, kind + " is valid"
}

// formatReviews renders reviews for prompt inclusion.
func formatReviews(reviews []ReviewInput) string {
	var b strings.Builder
	for _, r := range reviews {
		fmt.Fprintf(&b, "review %d: %s\n", r.ID, r.Text)
	}
	return strings.TrimSpace(b.String())
}

// completeInto runs one completion and decodes the named JSON array
// field from the response.
func completeInto[T any](ctx stategraph.Context, client llm.Client, model, prompt, field string) ([]T, error) {
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Model:       model,
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	var payload map[string][]T
	if err := llm.DecodeJSON(resp.Content, &payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", field, err)
	}
	items, ok := payload[field]
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("response carries no %s", field)
	}
	return items, nil
}

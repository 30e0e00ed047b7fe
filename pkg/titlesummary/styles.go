package titlesummary

// Default styles used when the state names none.
const (
	DefaultTitleStyle   = "concise"
	DefaultSummaryStyle = "detailed"
)

// titleStyles maps a title style name to the guidance embedded in the
// generation prompt.
var titleStyles = map[string]string{
	"concise":      "short and to the point, no filler words",
	"creative":     "playful wording that catches the eye without misrepresenting the review",
	"professional": "neutral, informative wording suitable for a product page",
	"emotional":    "lead with the reviewer's strongest feeling",
	"question":     "phrase the title as a question the review answers",
}

// summaryStyles maps a summary style name to its prompt guidance.
var summaryStyles = map[string]string{
	"detailed":        "cover the main points the reviewer makes, in order",
	"brief":           "one or two sentences with only the core takeaway",
	"emotion-focused": "emphasize how the reviewer felt about the purchase",
	"factual":         "stick to verifiable statements, drop opinions",
}

// genericGuidance covers style names outside the catalog, so custom
// styles typed by an operator still steer the prompt.
const genericGuidance = "interpret the style name literally and write in that manner"

// TitleStyleGuidance returns the prompt guidance for a title style.
func TitleStyleGuidance(style string) string {
	if g, ok := titleStyles[style]; ok {
		return g
	}
	return genericGuidance
}

// SummaryStyleGuidance returns the prompt guidance for a summary style.
func SummaryStyleGuidance(style string) string {
	if g, ok := summaryStyles[style]; ok {
		return g
	}
	return genericGuidance
}

// TitleStyles lists the catalog's title style names.
func TitleStyles() []string {
	names := make([]string, 0, len(titleStyles))
	for name := range titleStyles {
		names = append(names, name)
	}
	return names
}

// SummaryStyles lists the catalog's summary style names.
func SummaryStyles() []string {
	names := make([]string, 0, len(summaryStyles))
	for name := range summaryStyles {
		names = append(names, name)
	}
	return names
}

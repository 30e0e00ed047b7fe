package review

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/reviewflow/reviewflow/pkg/llm"
)

const scoringPromptTemplate = `Evaluate the following reviews from the {perspective} perspective.
Evaluation criteria: {criteria}

{reviews}

Instructions:
1. Score each review from 0 to 100 against the criteria above
2. Respond one line per review in the form "review N: score" (example: "review 1: 85")
3. Include a score for every review

Scores:`

// defaultScore fills in for reviews the model's response did not cover.
const defaultScore = 50

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	spacePattern  = regexp.MustCompile(`\s+`)
	lineScoreExpr = regexp.MustCompile(`review\s*#?\s*(\d+)`)
	numberExpr    = regexp.MustCompile(`\d+`)
)

// cleanText strips HTML markup from review text before it goes into a
// prompt. Mall reviews arrive as rich-text fragments.
func cleanText(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// batchScore asks the model to score every review from one perspective
// and returns a score per review id. Reviews the response misses get
// defaultScore; a transport failure scores the whole batch at
// defaultScore rather than failing the workflow.
func batchScore(ctx context.Context, client llm.Client, model, perspective string, criteria []string, reviews []Review) map[int64]int {
	scores := make(map[int64]int, len(reviews))
	if len(reviews) == 0 {
		return scores
	}

	var b strings.Builder
	for i, r := range reviews {
		fmt.Fprintf(&b, "review %d (id %d): %s\n\n", i+1, r.ID, cleanText(r.Text))
	}

	prompt := llm.MustExpand(scoringPromptTemplate, map[string]string{
		"perspective": perspective,
		"criteria":    strings.Join(criteria, ", "),
		"reviews":     strings.TrimSpace(b.String()),
	})

	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Model:       model,
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		for _, r := range reviews {
			scores[r.ID] = defaultScore
		}
		return scores
	}

	parsed := parseScoreLines(resp.Content, len(reviews))
	for i, r := range reviews {
		if score, ok := parsed[i+1]; ok {
			scores[r.ID] = score
		} else {
			scores[r.ID] = defaultScore
		}
	}
	return scores
}

// parseScoreLines extracts "review N: score" lines into an index-to-score
// map. Scores clamp to 0..100; malformed lines are skipped.
func parseScoreLines(response string, count int) map[int]int {
	parsed := make(map[int]int, count)
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}

		m := lineScoreExpr.FindStringSubmatch(strings.ToLower(line))
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil || index < 1 || index > count {
			continue
		}

		scorePart := line[strings.LastIndex(line, ":")+1:]
		num := numberExpr.FindString(scorePart)
		if num == "" {
			continue
		}
		score, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		parsed[index] = clampScore(score)
	}
	return parsed
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewflow/reviewflow/pkg/llm"
)

// TestParseScoreLines extracts well-formed "review N: score" lines.
func TestParseScoreLines(t *testing.T) {
	response := `Here are my scores:
review 1: 85
Review 2: 70
review #3: 92

That's all.`

	parsed := parseScoreLines(response, 3)

	assert.Equal(t, map[int]int{1: 85, 2: 70, 3: 92}, parsed)
}

// TestParseScoreLines_Clamping clamps out-of-range scores to 0..100.
func TestParseScoreLines_Clamping(t *testing.T) {
	response := "review 1: 150\nreview 2: 0\nreview 3: 100"

	parsed := parseScoreLines(response, 3)

	assert.Equal(t, map[int]int{1: 100, 2: 0, 3: 100}, parsed)
}

// TestParseScoreLines_SkipsMalformed ignores lines that do not carry an
// index or a score, and indices outside the batch.
func TestParseScoreLines_SkipsMalformed(t *testing.T) {
	response := `review 1: 80
the second review is great
review 2 has no colon score marker
review 9: 50
review 3: no number here`

	parsed := parseScoreLines(response, 3)

	assert.Equal(t, map[int]int{1: 80}, parsed)
}

// TestParseScoreLines_ProseAroundScore reads the number after the last
// colon even when the model pads the line.
func TestParseScoreLines_ProseAroundScore(t *testing.T) {
	response := "review 1 (the one with photos): 77 points"

	parsed := parseScoreLines(response, 1)

	assert.Equal(t, map[int]int{1: 77}, parsed)
}

// TestCleanText strips markup and collapses whitespace.
func TestCleanText(t *testing.T) {
	in := "<p>Great   product!</p><br/>Works&nbsp;well\n\nevery  day."

	assert.Equal(t, "Great product! Works well every day.", cleanText(in))
}

// TestCleanText_PlainText passes clean input through.
func TestCleanText_PlainText(t *testing.T) {
	assert.Equal(t, "simple review", cleanText("  simple review  "))
}

func scoringReviews() []Review {
	now := time.Now().UTC()
	return []Review{
		{ID: 11, Text: "first review text goes here", Rating: 5, CreatedAt: now},
		{ID: 22, Text: "second review text goes here", Rating: 4, CreatedAt: now},
		{ID: 33, Text: "third review text goes here", Rating: 3, CreatedAt: now},
	}
}

// TestBatchScore maps parsed line indices back to review ids.
func TestBatchScore(t *testing.T) {
	var captured llm.CompletionRequest
	client := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		captured = req
		return &llm.CompletionResponse{Content: "review 1: 90\nreview 2: 60\nreview 3: 75"}, nil
	})

	scores := batchScore(context.Background(), client, "gpt-4o-mini", PerspectiveQuality,
		[]string{"performance", "durability"}, scoringReviews())

	assert.Equal(t, map[int64]int{11: 90, 22: 60, 33: 75}, scores)

	require.Len(t, captured.Messages, 1)
	prompt := captured.Messages[0].Content
	assert.Contains(t, prompt, "quality perspective")
	assert.Contains(t, prompt, "performance, durability")
	assert.Contains(t, prompt, "first review text goes here")
	assert.Equal(t, "gpt-4o-mini", captured.Model)
}

// TestBatchScore_MissingLinesDefault fills uncovered reviews with the
// default score.
func TestBatchScore_MissingLinesDefault(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "review 2: 88"}, nil
	})

	scores := batchScore(context.Background(), client, "", PerspectiveHelpfulness, nil, scoringReviews())

	assert.Equal(t, map[int64]int{11: defaultScore, 22: 88, 33: defaultScore}, scores)
}

// TestBatchScore_TransportFailure scores the whole batch at the default
// instead of failing.
func TestBatchScore_TransportFailure(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, errors.New("connection refused")
	})

	scores := batchScore(context.Background(), client, "", PerspectiveAuthenticity, nil, scoringReviews())

	assert.Equal(t, map[int64]int{11: defaultScore, 22: defaultScore, 33: defaultScore}, scores)
}

// TestBatchScore_EmptyBatch returns an empty map without a model call.
func TestBatchScore_EmptyBatch(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		t.Fatal("unexpected model call")
		return nil, nil
	})

	scores := batchScore(context.Background(), client, "", PerspectiveQuality, nil, nil)

	assert.Empty(t, scores)
}

package review

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewflow/reviewflow/pkg/llm"
	"github.com/reviewflow/reviewflow/pkg/preference"
	"github.com/reviewflow/reviewflow/pkg/stategraph"
)

// scriptedScorer answers scoring prompts with per-perspective score
// lines. Review indices follow prompt order, which is store order.
func scriptedScorer(t *testing.T, lines map[string]string) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		prompt := req.Messages[0].Content
		for perspective, response := range lines {
			if strings.Contains(prompt, perspective+" perspective") {
				return &llm.CompletionResponse{Content: response}, nil
			}
		}
		t.Errorf("unexpected prompt: %.80s", prompt)
		return nil, fmt.Errorf("unexpected prompt")
	})
}

func seedWorkflowReviews(t *testing.T, store *Store, texts ...string) []int64 {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ids := make([]int64, 0, len(texts))
	for i, text := range texts {
		id, err := store.AddReview(context.Background(), "mall-1", "shop-1", Review{
			Text:      text,
			Rating:    5,
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

// TestWorkflow_SelectsTopReviews runs the whole selection graph: load,
// filter, three-perspective fan-out, fusion, and persistence.
func TestWorkflow_SelectsTopReviews(t *testing.T) {
	store := openTestStore(t)
	ids := seedWorkflowReviews(t, store,
		"first review, long enough to pass the length rule",
		"second review, long enough to pass the length rule",
		"third review, long enough to pass the length rule",
	)

	w := &Workflow{Store: store, TopN: 2}
	g, err := w.NewGraph()
	require.NoError(t, err)

	client := scriptedScorer(t, map[string]string{
		PerspectiveQuality:      "review 1: 90\nreview 2: 50\nreview 3: 70",
		PerspectiveAuthenticity: "review 1: 60\nreview 2: 60\nreview 3: 60",
		PerspectiveHelpfulness:  "review 1: 80\nreview 2: 40\nreview 3: 90",
	})
	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(client))

	var trace stategraph.Trace
	final, err := g.Invoke(ctx, stategraph.State{
		KeyMallID: "mall-1",
		KeyShopID: "shop-1",
	}, stategraph.WithTrace(&trace))

	require.NoError(t, err)
	assert.Equal(t, "best review selection complete", final.String(KeyStatus, ""))
	assert.Equal(t, 2, final.Int(KeySavedCount, 0))

	selected, err := stategraph.DecodeField[[]SelectedCandidate](final, KeySelected)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	// Averages: review 1 = 76.7, review 3 = 73.3, review 2 = 50.
	assert.Equal(t, ids[0], selected[0].ID)
	assert.InDelta(t, 230.0/3, selected[0].Score, 0.01)
	assert.Equal(t, ids[2], selected[1].ID)

	assert.Equal(t, []string{
		NodeLoadReviews, NodeFilterByRules, NodeCheckReviewsExist, NodePickCandidates,
		NodeScoreQuality, NodeScoreAuthenticity, NodeScoreHelpfulness,
		NodeFuseCandidates, NodeSaveResults, NodeFinalize,
	}, trace.Nodes())

	// The winners are queryable afterwards, best first.
	persisted, err := store.Recommended(context.Background(), "mall-1", "shop-1")
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	assert.Equal(t, ids[0], persisted[0].ID)
}

// TestWorkflow_EmptyShopSkipsScoring routes straight to finalize when no
// reviews survive: no scoring node runs, nothing is saved.
func TestWorkflow_EmptyShopSkipsScoring(t *testing.T) {
	store := openTestStore(t)

	w := &Workflow{Store: store}
	g, err := w.NewGraph()
	require.NoError(t, err)

	failing := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		t.Fatal("scoring must not run for an empty shop")
		return nil, nil
	})
	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(failing))

	var trace stategraph.Trace
	final, err := g.Invoke(ctx, stategraph.State{
		KeyMallID: "mall-1",
		KeyShopID: "shop-1",
	}, stategraph.WithTrace(&trace))

	require.NoError(t, err)
	assert.Equal(t, "no reviews available for selection", final.String(KeyStatus, ""))
	assert.False(t, final.Has(KeySavedCount))
	assert.False(t, trace.Visited(NodePickCandidates))
	assert.False(t, trace.Visited(NodeScoreQuality))
	assert.True(t, trace.Visited(NodeFinalize))
}

// TestWorkflow_LengthRuleFilters drops reviews at or under the minimum
// length before scoring.
func TestWorkflow_LengthRuleFilters(t *testing.T) {
	store := openTestStore(t)
	ids := seedWorkflowReviews(t, store,
		"this one is comfortably longer than the cutoff",
		"too short",
	)

	w := &Workflow{Store: store, MinTextLen: 20}
	g, err := w.NewGraph()
	require.NoError(t, err)

	client := scriptedScorer(t, map[string]string{
		PerspectiveQuality:      "review 1: 80",
		PerspectiveAuthenticity: "review 1: 80",
		PerspectiveHelpfulness:  "review 1: 80",
	})
	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(client))

	final, err := g.Invoke(ctx, stategraph.State{KeyMallID: "mall-1", KeyShopID: "shop-1"})

	require.NoError(t, err)
	selected, err := stategraph.DecodeField[[]SelectedCandidate](final, KeySelected)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, ids[0], selected[0].ID)
}

// TestWorkflow_ModerationDropsFlagged removes reviews the moderator
// flags; a moderation outage degrades to the rule-filtered set.
func TestWorkflow_ModerationDropsFlagged(t *testing.T) {
	store := openTestStore(t)
	ids := seedWorkflowReviews(t, store,
		"a perfectly acceptable review of reasonable length",
		"spam spam spam buy followers at this excellent site",
	)

	moderator := llm.ModeratorFunc(func(ctx context.Context, text string) (*llm.ModerationResult, error) {
		return &llm.ModerationResult{Flagged: strings.Contains(text, "spam")}, nil
	})

	w := &Workflow{Store: store, Moderator: moderator}
	g, err := w.NewGraph()
	require.NoError(t, err)

	client := scriptedScorer(t, map[string]string{
		PerspectiveQuality:      "review 1: 70",
		PerspectiveAuthenticity: "review 1: 70",
		PerspectiveHelpfulness:  "review 1: 70",
	})
	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(client))

	final, err := g.Invoke(ctx, stategraph.State{KeyMallID: "mall-1", KeyShopID: "shop-1"})

	require.NoError(t, err)
	selected, err := stategraph.DecodeField[[]SelectedCandidate](final, KeySelected)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, ids[0], selected[0].ID)
}

// TestWorkflow_ModerationOutageKeepsRuleFiltered keeps every
// rule-filtered review when the moderator errors.
func TestWorkflow_ModerationOutageKeepsRuleFiltered(t *testing.T) {
	store := openTestStore(t)
	seedWorkflowReviews(t, store,
		"a perfectly acceptable review of reasonable length",
		"another perfectly acceptable review of decent length",
	)

	moderator := llm.ModeratorFunc(func(ctx context.Context, text string) (*llm.ModerationResult, error) {
		return nil, fmt.Errorf("moderation endpoint down")
	})

	w := &Workflow{Store: store, Moderator: moderator}
	g, err := w.NewGraph()
	require.NoError(t, err)

	client := scriptedScorer(t, map[string]string{
		PerspectiveQuality:      "review 1: 70\nreview 2: 60",
		PerspectiveAuthenticity: "review 1: 70\nreview 2: 60",
		PerspectiveHelpfulness:  "review 1: 70\nreview 2: 60",
	})
	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(client))

	final, err := g.Invoke(ctx, stategraph.State{KeyMallID: "mall-1", KeyShopID: "shop-1"})

	require.NoError(t, err)
	selected, err := stategraph.DecodeField[[]SelectedCandidate](final, KeySelected)
	require.NoError(t, err)
	assert.Len(t, selected, 2)
}

// TestWorkflow_GeneratedCriteriaReachPrompts feeds preference output
// through the state and checks it lands in the scoring prompt.
func TestWorkflow_GeneratedCriteriaReachPrompts(t *testing.T) {
	store := openTestStore(t)
	seedWorkflowReviews(t, store, "a review that is long enough to be scored")

	var qualityPrompt string
	client := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		prompt := req.Messages[0].Content
		if strings.Contains(prompt, "quality perspective") {
			qualityPrompt = prompt
		}
		return &llm.CompletionResponse{Content: "review 1: 50"}, nil
	})

	w := &Workflow{Store: store}
	g, err := w.NewGraph()
	require.NoError(t, err)

	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(client))
	_, err = g.Invoke(ctx, stategraph.State{
		KeyMallID: "mall-1",
		KeyShopID: "shop-1",
		preference.KeyCriteriaByType: []preference.CriteriaByType{
			{Type: PerspectiveQuality, Criteria: []string{"mentions stitching quality"}},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, qualityPrompt, "mentions stitching quality")
}

// TestWorkflow_CacheHitSkipsModel serves cached scores and skips the
// model for that perspective.
func TestWorkflow_CacheHitSkipsModel(t *testing.T) {
	store := openTestStore(t)
	ids := seedWorkflowReviews(t, store, "a review that is long enough to be scored")

	cache, _ := newTestCache(t, time.Hour)
	w := &Workflow{Store: store, Cache: cache, Model: "m1"}
	g, err := w.NewGraph()
	require.NoError(t, err)

	reviews, err := store.RecentReviews(context.Background(), "mall-1", "shop-1", DefaultLoadLimit)
	require.NoError(t, err)
	key := cache.Key("m1", PerspectiveQuality, reviews)
	require.NoError(t, cache.Set(context.Background(), key, map[int64]int{ids[0]: 99}))

	var modelCalls []string
	client := llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		modelCalls = append(modelCalls, req.Messages[0].Content)
		return &llm.CompletionResponse{Content: "review 1: 40"}, nil
	})
	ctx := stategraph.NewContext(context.Background(), stategraph.WithLLM(client))

	final, err := g.Invoke(ctx, stategraph.State{KeyMallID: "mall-1", KeyShopID: "shop-1"})
	require.NoError(t, err)

	// Quality came from the cache; the other two hit the model.
	assert.Len(t, modelCalls, 2)
	for _, prompt := range modelCalls {
		assert.NotContains(t, prompt, "quality perspective")
	}

	selected, err := stategraph.DecodeField[[]SelectedCandidate](final, KeySelected)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	// (99 + 40 + 40) / 3
	assert.InDelta(t, 179.0/3, selected[0].Score, 0.01)

	// The freshly computed perspectives are now cached for the next run.
	cached, err := cache.Get(context.Background(), cache.Key("m1", PerspectiveHelpfulness, reviews))
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{ids[0]: 40}, cached)
}

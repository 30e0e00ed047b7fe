package review

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/reviewflow/reviewflow/pkg/llm"
	"github.com/reviewflow/reviewflow/pkg/preference"
	"github.com/reviewflow/reviewflow/pkg/stategraph"
)

// Node names of the selection workflow.
const (
	NodeLoadReviews       = "load_reviews"
	NodeFilterByRules     = "filter_by_rules"
	NodeCheckReviewsExist = "check_reviews_exist"
	NodePickCandidates    = "pick_candidates"
	NodeScoreQuality      = "score_quality"
	NodeScoreAuthenticity = "score_authenticity"
	NodeScoreHelpfulness  = "score_helpfulness"
	NodeFuseCandidates    = "fuse_candidates"
	NodeSaveResults       = "save_results"
	NodeFinalize          = "finalize"
)

// Routing labels for the availability check.
const (
	LabelAvailable = "available"
	LabelEmpty     = "empty"
)

// State keys read and written by the workflow.
const (
	KeyMallID          = "mall_id"
	KeyShopID          = "shop_id"
	KeyLimit           = "limit"
	KeyReviews         = "reviews"
	KeyFilteredReviews = "filtered_reviews"
	KeyExists          = "exists"
	KeyCandidates      = "candidates"
	KeySelected        = "selected_candidates"
	KeySavedCount      = "saved_count"
	KeyStatus          = "status"
)

// scoreKey returns the state key one perspective node writes its score
// map under. Disjoint keys keep the fan-out members merge-safe.
func scoreKey(perspective string) string {
	return "scores_" + perspective
}

// Defaults for Workflow knobs left zero.
const (
	DefaultLoadLimit  = 100
	DefaultTopN       = 10
	DefaultMinTextLen = 20
)

// Workflow wires the selection graph's dependencies. Store is required;
// Cache and Moderator are optional and their absence just disables the
// corresponding behavior.
type Workflow struct {
	Store     *Store
	Cache     *ScoreCache
	Moderator llm.Moderator

	// Model passed to scoring completions. Empty uses the client default.
	Model string
	// TopN bounds how many candidates fusion selects.
	TopN int
	// MinTextLen is the minimum review length in runes that survives
	// rule filtering.
	MinTextLen int
}

// NewGraph builds the best-review selection workflow.
func (w *Workflow) NewGraph() (*stategraph.Graph, error) {
	if w.Store == nil {
		return nil, fmt.Errorf("review workflow requires a store")
	}
	return stategraph.Build(
		stategraph.Entry(NodeLoadReviews, w.loadReviews, stategraph.To(NodeFilterByRules)),
		stategraph.Of(NodeFilterByRules, w.filterByRules, stategraph.To(NodeCheckReviewsExist)),
		stategraph.Of(NodeCheckReviewsExist, checkReviewsExist, stategraph.When(routeOnAvailability, map[string]string{
			LabelAvailable: NodePickCandidates,
			LabelEmpty:     NodeFinalize,
		})),
		stategraph.Of(NodePickCandidates, pickCandidates,
			stategraph.To(NodeScoreQuality, NodeScoreAuthenticity, NodeScoreHelpfulness)),
		stategraph.Of(NodeScoreQuality, w.scorePerspective(PerspectiveQuality), stategraph.To(NodeFuseCandidates)),
		stategraph.Of(NodeScoreAuthenticity, w.scorePerspective(PerspectiveAuthenticity), stategraph.To(NodeFuseCandidates)),
		stategraph.Of(NodeScoreHelpfulness, w.scorePerspective(PerspectiveHelpfulness), stategraph.To(NodeFuseCandidates)),
		stategraph.Of(NodeFuseCandidates, w.fuseCandidates, stategraph.To(NodeSaveResults)),
		stategraph.Of(NodeSaveResults, w.saveResults, stategraph.To(NodeFinalize)),
		stategraph.Terminal(NodeFinalize, finalize),
	)
}

// loadReviews pulls the newest reviews for the shop named in the state.
func (w *Workflow) loadReviews(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	mallID := s.String(KeyMallID, "")
	shopID := s.String(KeyShopID, "")
	if mallID == "" || shopID == "" {
		return nil, fmt.Errorf("mall_id and shop_id are required")
	}
	limit := s.Int(KeyLimit, DefaultLoadLimit)

	reviews, err := w.Store.RecentReviews(ctx, mallID, shopID, limit)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	ctx.Logger().Info("loaded reviews", "count", len(reviews))
	return stategraph.Delta{KeyReviews: reviews}, nil
}

// filterByRules drops reviews that fail the length rule, then runs the
// survivors through content moderation when a moderator is configured.
// A moderation failure degrades to the rule-filtered set instead of
// failing the workflow.
func (w *Workflow) filterByRules(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	reviews, err := stategraph.DecodeField[[]Review](s, KeyReviews)
	if err != nil {
		return nil, err
	}

	minLen := w.MinTextLen
	if minLen <= 0 {
		minLen = DefaultMinTextLen
	}

	ruleFiltered := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if utf8.RuneCountInString(cleanText(r.Text)) > minLen {
			ruleFiltered = append(ruleFiltered, r)
		}
	}
	ctx.Logger().Info("rule filtering done", "in", len(reviews), "out", len(ruleFiltered))

	if w.Moderator == nil {
		return stategraph.Delta{KeyFilteredReviews: ruleFiltered}, nil
	}

	safe := make([]Review, 0, len(ruleFiltered))
	for _, r := range ruleFiltered {
		verdict, err := w.Moderator.Moderate(ctx, r.Text)
		if err != nil {
			ctx.Logger().Warn("moderation failed, keeping rule-filtered set", "error", err)
			return stategraph.Delta{KeyFilteredReviews: ruleFiltered}, nil
		}
		if !verdict.Flagged {
			safe = append(safe, r)
		}
	}
	ctx.Logger().Info("moderation filtering done", "in", len(ruleFiltered), "out", len(safe))
	return stategraph.Delta{KeyFilteredReviews: safe}, nil
}

// checkReviewsExist records whether any reviews survived filtering.
func checkReviewsExist(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	return stategraph.Delta{KeyExists: s.Len(KeyFilteredReviews) > 0}, nil
}

// routeOnAvailability branches on the availability flag.
func routeOnAvailability(ctx stategraph.Context, s stategraph.State) string {
	if s.Bool(KeyExists, false) {
		return LabelAvailable
	}
	return LabelEmpty
}

// pickCandidates stages the filtered reviews for scoring.
func pickCandidates(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	count := s.Len(KeyFilteredReviews)
	ctx.Logger().Info("scoring candidates", "count", count)
	return nil, nil
}

// scorePerspective builds the step for one perspective. Scores come from
// the cache when available; otherwise the model scores the batch and the
// result is cached best-effort.
func (w *Workflow) scorePerspective(perspective string) stategraph.StepFunc {
	return func(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
		reviews, err := stategraph.DecodeField[[]Review](s, KeyFilteredReviews)
		if err != nil {
			return nil, err
		}
		if len(reviews) == 0 {
			return stategraph.Delta{scoreKey(perspective): map[int64]int{}}, nil
		}

		client := ctx.LLM()
		if client == nil {
			return nil, fmt.Errorf("perspective scoring requires an LLM client")
		}
		criteria := w.criteriaFor(s, perspective)

		var cacheKey string
		if w.Cache != nil {
			cacheKey = w.Cache.Key(w.Model, perspective, reviews)
			if cached, err := w.Cache.Get(ctx, cacheKey); err != nil {
				ctx.Logger().Warn("score cache read failed", "error", err)
			} else if cached != nil {
				ctx.Logger().Info("score cache hit", "perspective", perspective)
				return stategraph.Delta{scoreKey(perspective): cached}, nil
			}
		}

		scores := batchScore(ctx, client, w.Model, perspective, criteria, reviews)

		if w.Cache != nil {
			if err := w.Cache.Set(ctx, cacheKey, scores); err != nil {
				ctx.Logger().Warn("score cache write failed", "error", err)
			}
		}
		return stategraph.Delta{scoreKey(perspective): scores}, nil
	}
}

// criteriaFor resolves the criteria for a perspective: an entry from the
// preference workflow's output when one matches the perspective name,
// the built-in set otherwise.
func (w *Workflow) criteriaFor(s stategraph.State, perspective string) []string {
	byType, err := stategraph.DecodeField[[]preference.CriteriaByType](s, preference.KeyCriteriaByType)
	if err == nil {
		for _, entry := range byType {
			if entry.Type == perspective && len(entry.Criteria) > 0 {
				return entry.Criteria
			}
		}
	}
	return builtinCriteria[perspective]
}

// fuseCandidates averages each review's perspective scores, sorts the
// candidates best-first, and keeps the top N.
func (w *Workflow) fuseCandidates(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	reviews, err := stategraph.DecodeField[[]Review](s, KeyFilteredReviews)
	if err != nil {
		return nil, err
	}

	perspectives := []string{PerspectiveQuality, PerspectiveAuthenticity, PerspectiveHelpfulness}
	scoresByPerspective := make(map[string]map[int64]int, len(perspectives))
	for _, p := range perspectives {
		scores, err := stategraph.DecodeField[map[int64]int](s, scoreKey(p))
		if err != nil {
			return nil, err
		}
		scoresByPerspective[p] = scores
	}

	candidates := make([]Candidate, 0, len(reviews))
	selected := make([]SelectedCandidate, 0, len(reviews))
	for _, r := range reviews {
		var perScores []PerspectiveScore
		total := 0
		for _, p := range perspectives {
			if score, ok := scoresByPerspective[p][r.ID]; ok {
				perScores = append(perScores, PerspectiveScore{Perspective: p, Score: score})
				total += score
			}
		}
		if len(perScores) == 0 {
			ctx.Logger().Warn("candidate has no scores", "review_id", r.ID)
			continue
		}
		candidates = append(candidates, Candidate{ReviewID: r.ID, Scores: perScores})
		selected = append(selected, SelectedCandidate{
			ID:     r.ID,
			Text:   r.Text,
			Rating: r.Rating,
			Score:  float64(total) / float64(len(perScores)),
		})
	}

	// Equal averages break by id so reruns select identically.
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Score != selected[j].Score {
			return selected[i].Score > selected[j].Score
		}
		return selected[i].ID < selected[j].ID
	})

	topN := w.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(selected) > topN {
		selected = selected[:topN]
	}

	ctx.Logger().Info("fused candidates", "selected", len(selected), "total", len(candidates))
	return stategraph.Delta{KeyCandidates: candidates, KeySelected: selected}, nil
}

// saveResults persists the selection. An empty selection skips the write.
func (w *Workflow) saveResults(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	selected, err := stategraph.DecodeField[[]SelectedCandidate](s, KeySelected)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		ctx.Logger().Info("no candidates selected, skipping save")
		return stategraph.Delta{KeySavedCount: 0}, nil
	}

	mallID := s.String(KeyMallID, "")
	shopID := s.String(KeyShopID, "")
	saved, err := w.Store.SaveRecommended(ctx, mallID, shopID, selected, nil)
	if err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	ctx.Logger().Info("saved recommended reviews", "count", saved)
	return stategraph.Delta{KeySavedCount: saved}, nil
}

func finalize(ctx stategraph.Context, s stategraph.State) (stategraph.Delta, error) {
	if !s.Bool(KeyExists, false) {
		return stategraph.Delta{KeyStatus: "no reviews available for selection"}, nil
	}
	return stategraph.Delta{KeyStatus: "best review selection complete"}, nil
}

package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/reviewflow/reviewflow/pkg/llm"
	"github.com/reviewflow/reviewflow/pkg/review"
	"github.com/reviewflow/reviewflow/pkg/stategraph"
)

var (
	selectMall  string
	selectShop  string
	selectLimit int
	selectTopN  int
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select the best reviews for a shop",
	Long: `Loads the shop's reviews, filters them by rules and moderation,
scores the rest from the quality, authenticity, and helpfulness
perspectives, and persists the top candidates.`,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectMall, "mall", "", "mall identifier (required)")
	selectCmd.Flags().StringVar(&selectShop, "shop", "", "shop identifier (required)")
	selectCmd.Flags().IntVar(&selectLimit, "limit", review.DefaultLoadLimit, "how many recent reviews to load")
	selectCmd.Flags().IntVar(&selectTopN, "top", 0, "how many candidates to select")
	selectCmd.MarkFlagRequired("mall")
	selectCmd.MarkFlagRequired("shop")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	store, err := review.OpenStore(cfg.Section("database").String("path", "reviews.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	workflow := &review.Workflow{
		Store:      store,
		Model:      cfg.Section("llm").String("model", ""),
		TopN:       selectTopN,
		MinTextLen: cfg.Section("workflow").Int("min_text_len", 0),
	}

	redisCfg := cfg.Section("redis")
	if addr := redisCfg.String("addr", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: redisCfg.String("password", ""),
			DB:       redisCfg.Int("db", 0),
		})
		defer rdb.Close()
		workflow.Cache = review.NewScoreCache(rdb, redisCfg.Duration("ttl", 0))
	}

	if cfg.Section("workflow").Bool("moderation", false) {
		apiKey := cfg.Section("llm").String("api_key", "")
		workflow.Moderator = llm.NewModeration(apiKey,
			llm.WithModerationLimit(
				cfg.Section("workflow").Int("moderation_calls_per_minute", 60),
				time.Minute))
	}

	graph, err := workflow.NewGraph()
	if err != nil {
		return err
	}

	var trace stategraph.Trace
	opts, snapStore, err := invokeOptions(cfg, &trace, logger)
	if err != nil {
		return err
	}
	if snapStore != nil {
		defer snapStore.Close()
	}

	ctx := stategraph.NewContext(context.Background(),
		stategraph.WithLogger(logger),
		stategraph.WithLLM(client))

	final, err := graph.Invoke(ctx, stategraph.State{
		review.KeyMallID: selectMall,
		review.KeyShopID: selectShop,
		review.KeyLimit:  selectLimit,
	}, opts...)
	if err != nil {
		return err
	}

	logger.Info("workflow finished", "nodes", trace.Nodes())
	return printState(final, review.KeySelected, review.KeySavedCount, review.KeyStatus)
}

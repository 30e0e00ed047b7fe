package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reviewflow/reviewflow/pkg/stategraph"
	"github.com/reviewflow/reviewflow/pkg/titlesummary"
)

var (
	titlesInput        string
	titlesStyle        string
	titlesSummaryStyle string
	titlesCustom       string
	titlesSummaryIDs   []int64
)

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Generate titles and summaries for selected reviews",
	Long: `Reads selected reviews from a JSON file (an array of objects with
id, text, and rating), generates a title per review, and summaries for
the reviews named by --summarize.`,
	RunE: runTitles,
}

func init() {
	titlesCmd.Flags().StringVar(&titlesInput, "input", "", "JSON file with the selected reviews (required)")
	titlesCmd.Flags().StringVar(&titlesStyle, "style", titlesummary.DefaultTitleStyle, "title style")
	titlesCmd.Flags().StringVar(&titlesSummaryStyle, "summary-style", titlesummary.DefaultSummaryStyle, "summary style")
	titlesCmd.Flags().StringVar(&titlesCustom, "requirements", "", "extra title requirements")
	titlesCmd.Flags().Int64SliceVar(&titlesSummaryIDs, "summarize", nil, "review ids that also need a summary")
	titlesCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(titlesCmd)
}

func runTitles(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	selected, err := readReviews(titlesInput)
	if err != nil {
		return err
	}
	var summaryRequired []titlesummary.ReviewInput
	for _, r := range selected {
		for _, id := range titlesSummaryIDs {
			if r.ID == id {
				summaryRequired = append(summaryRequired, r)
				break
			}
		}
	}

	workflow := &titlesummary.Workflow{Model: cfg.Section("llm").String("model", "")}
	graph, err := workflow.NewGraph()
	if err != nil {
		return err
	}

	opts, store, err := invokeOptions(cfg, nil, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	ctx := stategraph.NewContext(context.Background(),
		stategraph.WithLogger(logger),
		stategraph.WithLLM(client))

	final, err := graph.Invoke(ctx, stategraph.State{
		titlesummary.KeySelectedReviews:         selected,
		titlesummary.KeySummaryRequiredReviews:  summaryRequired,
		titlesummary.KeyTitleStyle:              titlesStyle,
		titlesummary.KeySummaryStyle:            titlesSummaryStyle,
		titlesummary.KeyTitleCustomRequirements: titlesCustom,
	}, opts...)
	if err != nil {
		return err
	}

	return printState(final, titlesummary.KeyFinalResults)
}

func readReviews(path string) ([]titlesummary.ReviewInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reviews file: %w", err)
	}
	var reviews []titlesummary.ReviewInput
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("parse reviews file: %w", err)
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("reviews file %s is empty", path)
	}
	return reviews, nil
}

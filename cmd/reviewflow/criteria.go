package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/reviewflow/reviewflow/pkg/preference"
	"github.com/reviewflow/reviewflow/pkg/stategraph"
)

var (
	criteriaTypes      []string
	criteriaAdditional []string
)

var criteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "Generate selection criteria for review types",
	Long: `Asks the model for the concrete criteria to weigh when picking the
best reviews of each given type, and prints them as JSON.`,
	RunE: runCriteria,
}

func init() {
	criteriaCmd.Flags().StringSliceVar(&criteriaTypes, "types", nil, "review types to generate criteria for (required)")
	criteriaCmd.Flags().StringSliceVar(&criteriaAdditional, "additional", nil, "extra criteria to append to every type")
	criteriaCmd.MarkFlagRequired("types")
	rootCmd.AddCommand(criteriaCmd)
}

func runCriteria(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	graph, err := preference.NewGraph()
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
		preference.KeySelectedTypes:      criteriaTypes,
		preference.KeyAdditionalCriteria: criteriaAdditional,
	}, opts...)
	if err != nil {
		return err
	}

	return printState(final, preference.KeyCriteriaByType)
}

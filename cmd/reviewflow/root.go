package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/reviewflow/reviewflow/pkg/llm"
	"github.com/reviewflow/reviewflow/pkg/stategraph"
	"github.com/reviewflow/reviewflow/pkg/stategraph/checkpoint"
	"github.com/reviewflow/reviewflow/pkg/stategraph/config"
)

var (
	cfgFile      string
	logLevel     string
	snapshotPath string
	runID        string
	stepLimit    int
)

var rootCmd = &cobra.Command{
	Use:   "reviewflow",
	Short: "Best-review selection workflows",
	Long: `reviewflow runs the graph-based review workflows: generating
selection criteria per review type, selecting the best customer reviews
for a shop, and generating display titles and summaries for them.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&snapshotPath, "snapshot-db", "", "SQLite file for run snapshots (enables resume)")
	pf.StringVar(&runID, "run-id", "", "run identifier for snapshots and resume")
	pf.IntVar(&stepLimit, "step-limit", 0, "override the execution step limit")
}

// loadConfig reads the config file named by --config, or returns an
// empty config when none was given.
func loadConfig() (config.Config, error) {
	if cfgFile == "" {
		return config.New(nil), nil
	}
	return config.FromFile(cfgFile)
}

// setupLogger builds the process logger from --log-level.
func setupLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// newLLMClient builds the completion client from the llm config section
// and the OPENAI_API_KEY environment variable.
func newLLMClient(cfg config.Config) (llm.Client, error) {
	section := cfg.Section("llm")
	apiKey := section.String("api_key", os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("no LLM API key: set llm.api_key in the config or OPENAI_API_KEY")
	}

	var opts []llm.OpenAIOption
	if baseURL := section.String("base_url", ""); baseURL != "" {
		opts = append(opts, llm.WithBaseURL(baseURL))
	}
	if model := section.String("model", ""); model != "" {
		opts = append(opts, llm.WithModel(model))
	}
	if section.Has("temperature") {
		opts = append(opts, llm.WithTemperature(section.Float("temperature", 0)))
	}
	return llm.NewOpenAI(apiKey, opts...), nil
}

// invokeOptions assembles the engine options shared by all subcommands.
// The returned store, when non-nil, must be closed after the run.
func invokeOptions(cfg config.Config, trace *stategraph.Trace, logger *slog.Logger) ([]stategraph.Option, checkpoint.Store, error) {
	opts := []stategraph.Option{stategraph.WithInvokeLogger(logger)}
	if trace != nil {
		opts = append(opts, stategraph.WithTrace(trace))
	}

	limit := stepLimit
	if limit == 0 {
		limit = cfg.Section("workflow").Int("step_limit", 0)
	}
	if limit > 0 {
		opts = append(opts, stategraph.WithStepLimit(limit))
	}

	if snapshotPath == "" {
		return opts, nil, nil
	}
	store, err := checkpoint.NewSQLiteStore(snapshotPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}
	opts = append(opts, stategraph.WithSnapshots(store, runID))
	return opts, store, nil
}

// printState writes the named state fields as indented JSON on stdout.
// With no names, the whole state is printed.
func printState(s stategraph.State, keys ...string) error {
	out := any(s)
	if len(keys) > 0 {
		selected := make(map[string]any, len(keys))
		for _, key := range keys {
			if v, ok := s[key]; ok {
				selected[key] = v
			}
		}
		out = selected
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

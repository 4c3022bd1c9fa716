package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dormguide/internal/config"
	"dormguide/internal/domain"
	"dormguide/internal/formatter"
	"dormguide/internal/index"
	"dormguide/internal/llm"
	"dormguide/internal/log"
	"dormguide/internal/service"
	"dormguide/internal/session"
	"dormguide/internal/summarizer"
)

var (
	cfgPath string
	appCfg  *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "dormguide",
	Short: "Answer dorm questions from local reference documents",
	Long: `DormGuide indexes a directory of dormitory reviews and answers
questions about them with a language model, citing the documents it used.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/dormguide/config.yaml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.InitWithWriter(&cfg.Log, cmd.ErrOrStderr())
	appCfg = cfg
	return nil
}

type app struct {
	cfg     *config.AppConfig
	manager *index.Manager
	guide   *service.DormGuide
	logger  *slog.Logger
}

// newApp wires the index, the generator and the service from config.
// With requireModel unset a missing API key only disables answering.
func newApp(cfg *config.AppConfig, requireModel bool) (*app, error) {
	logger := log.NewModuleLogger("cli", "app")
	builder := index.NewBuilder(index.BuilderConfig{
		DocsDir:     cfg.Corpus.DocsDir,
		IndexPath:   cfg.Corpus.IndexPath,
		Extensions:  cfg.Corpus.Extensions,
		MaxFeatures: cfg.Index.MaxFeatures,
	}, summarizer.NewFrequencySummarizer())
	manager := index.NewManager(builder)

	var gen domain.Generator
	client, err := llm.NewClient(llm.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey(),
		Model:             cfg.LLM.Model,
		Timeout:           time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		MaxRetries:        cfg.LLM.MaxRetries,
		MaxTokens:         cfg.LLM.MaxTokens,
		Temperature:       cfg.LLM.Temperature,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	})
	switch {
	case err == nil:
		gen = client
	case requireModel:
		return nil, fmt.Errorf("language model init failed (set %s): %w", cfg.LLM.APIKeyEnv, err)
	default:
		logger.Warn("Language model disabled, answers will apologize", "api_key_env", cfg.LLM.APIKeyEnv, "error", err)
	}

	guide := service.NewDormGuide(service.Dependencies{
		Index:     manager,
		Generator: gen,
		Sessions:  session.NewStore(session.WithHistoryLimit(cfg.Session.HistoryLimit)),
		Formatter: formatter.New(formatter.WithExtensions(cfg.Corpus.Extensions...)),
		Prompts:   llm.NewPromptBuilder(llm.WithContextBudget(cfg.LLM.PromptTokenBudget)),
		TopK:      cfg.Retrieval.TopK,
	})
	return &app{cfg: cfg, manager: manager, guide: guide, logger: logger}, nil
}

func currentConfig() (*config.AppConfig, error) {
	if appCfg == nil {
		return nil, errors.New("config not loaded")
	}
	return appCfg, nil
}

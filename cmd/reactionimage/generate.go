package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"labassistant/internal/imagegen"
	"labassistant/internal/infra"
	"labassistant/internal/providers/chat"
	"labassistant/internal/providers/modelscope"
)

var errMissingAPIKey = errors.New("an api key is required: pass --api-key or set MODELSCOPE_API_KEY")

type generateOptions struct {
	apiKey       string
	maxPolls     int
	pollInterval time.Duration
	verbose      bool
}

func newGenerateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <reaction>",
		Short: "Run the prompt and image refinement loop and print the final image URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			opts, err := resolveOptions(v, cfg)
			if err != nil {
				return err
			}
			logger := infra.NewConsoleLogger(cmd.ErrOrStderr(), opts.verbose)
			orchestrator, err := buildOrchestrator(cfg, opts, &logger)
			if err != nil {
				return err
			}

			phrase := strings.Join(args, " ")
			st := orchestrator.Run(cmd.Context(), phrase, opts.apiKey, func(ev imagegen.Event) {
				logger.Info().
					Str("stage", ev.Stage).
					Int("prompt_attempts", ev.PromptAttempts).
					Int("image_attempts", ev.ImageAttempts).
					Str("judgement", ev.Judgement).
					Str("job_status", ev.JobStatus).
					Msg("stage complete")
			})
			_, err = fmt.Fprintln(cmd.OutOrStdout(), st.ImageURL)
			return err
		},
	}

	cmd.Flags().String("api-key", "", "ModelScope API key (defaults to MODELSCOPE_API_KEY)")
	cmd.Flags().Int("max-polls", 0, "maximum status polls per image job (defaults to MODELSCOPE_MAX_POLLS)")
	cmd.Flags().Duration("poll-interval", 0, "wait between status polls (defaults to MODELSCOPE_POLL_INTERVAL)")
	cmd.Flags().BoolP("verbose", "v", false, "log every pipeline stage")
	_ = v.BindPFlag(apiKeyKey, cmd.Flags().Lookup("api-key"))
	_ = v.BindPFlag(maxPollsKey, cmd.Flags().Lookup("max-polls"))
	_ = v.BindPFlag(pollIntervalKey, cmd.Flags().Lookup("poll-interval"))
	_ = v.BindPFlag(verboseKey, cmd.Flags().Lookup("verbose"))
	return cmd
}

// resolveOptions layers flags and REACTIONIMAGE_* variables over the service config.
func resolveOptions(v *viper.Viper, cfg *infra.Config) (generateOptions, error) {
	opts := generateOptions{
		apiKey:       strings.TrimSpace(v.GetString(apiKeyKey)),
		maxPolls:     v.GetInt(maxPollsKey),
		pollInterval: v.GetDuration(pollIntervalKey),
		verbose:      v.GetBool(verboseKey),
	}
	if opts.apiKey == "" {
		return opts, errMissingAPIKey
	}
	if opts.maxPolls <= 0 {
		opts.maxPolls = cfg.ModelScopeMaxPolls
	}
	if opts.pollInterval <= 0 {
		opts.pollInterval = cfg.ModelScopePollInterval
	}
	return opts, nil
}

func buildOrchestrator(cfg *infra.Config, opts generateOptions, logger *infra.Logger) (*imagegen.Orchestrator, error) {
	images, err := modelscope.NewClient(modelscope.Options{
		BaseURL:      cfg.ModelScopeBaseURL,
		Model:        cfg.ModelScopeImageModel,
		MaxPolls:     opts.maxPolls,
		PollInterval: opts.pollInterval,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return imagegen.NewOrchestrator(imagegen.Options{
		Text: chat.NewClient(chat.Options{
			BaseURL:     cfg.ChatBaseURL,
			Model:       cfg.ChatModel,
			Temperature: &cfg.ChatTemperature,
			Timeout:     cfg.ChatTimeout,
			Logger:      logger,
		}),
		Images: images,
		Limits: imagegen.Limits{
			MaxPromptAttempts: cfg.MaxPromptAttempts,
			MaxImageAttempts:  cfg.MaxImageAttempts,
		},
		Logger: logger,
	})
}

package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"labassistant/internal/domain"
	"labassistant/internal/infra"
	"labassistant/internal/providers/chat"
	"labassistant/internal/providers/modelscope"
)

// TextCompleter is the chat capability the pipeline needs.
type TextCompleter interface {
	Complete(ctx context.Context, credential string, req chat.Request) (string, error)
}

// ImageJobs is the asynchronous image capability the pipeline needs.
type ImageJobs interface {
	Submit(ctx context.Context, credential, prompt string) (string, error)
	AwaitCompletion(ctx context.Context, credential, jobID string) (modelscope.Job, error)
}

// Options wires an Orchestrator.
type Options struct {
	Text   TextCompleter
	Images ImageJobs
	Limits Limits
	Logger *infra.Logger
}

// Orchestrator runs the prompt/image refinement loop. It holds no per-run
// state, so one instance can serve concurrent runs.
type Orchestrator struct {
	text   TextCompleter
	images ImageJobs
	limits Limits
	logger *infra.Logger
}

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Text == nil {
		return nil, errors.New("imagegen: text completer is required")
	}
	if opts.Images == nil {
		return nil, errors.New("imagegen: image jobs client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Orchestrator{
		text:   opts.Text,
		images: opts.Images,
		limits: opts.Limits.normalized(),
		logger: logger,
	}, nil
}

// Limits returns the effective attempt caps.
func (o *Orchestrator) Limits() Limits {
	return o.limits
}

// Generate turns a short reaction description into an image URL. It never
// fails: upstream errors, cancellation and panics all yield ErrorImageURL.
func (o *Orchestrator) Generate(ctx context.Context, userInput, credential string) string {
	return o.Run(ctx, userInput, credential, nil).ImageURL
}

// Run is Generate with the final state exposed and an optional observer that
// is called after each completed stage.
func (o *Orchestrator) Run(ctx context.Context, userInput, credential string, observe Observer) (st *PipelineState) {
	st = NewPipelineState(strings.TrimSpace(userInput))
	logger := o.logger.With().Str("run_id", st.RunID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("imagegen: run panicked")
			st.ImageURL = ErrorImageURL
		}
	}()

	if st.UserInput == "" {
		logger.Warn().Err(domain.ErrInvalidInput).Msg("imagegen: empty reaction description")
		st.ImageURL = ErrorImageURL
		return st
	}

	logger.Info().Str("input", st.UserInput).Msg("imagegen: run started")
	stage := StageGeneratePrompt
	for stage != StageDone {
		if err := o.step(ctx, stage, st, credential, &logger); err != nil {
			logger.Error().Err(err).Str("stage", stage.String()).Msg("imagegen: stage failed")
			st.ImageURL = ErrorImageURL
			return st
		}
		if observe != nil {
			observe(newEvent(stage, st))
		}
		stage = Next(stage, st, o.limits)
	}

	if st.ImageURL == "" {
		st.ImageURL = ErrorImageURL
	}
	logger.Info().
		Int("prompt_attempts", st.PromptAttempts).
		Int("image_attempts", st.ImageAttempts).
		Str("image_url", st.ImageURL).
		Msg("imagegen: run finished")
	return st
}

func (o *Orchestrator) step(ctx context.Context, stage Stage, st *PipelineState, credential string, logger *infra.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch stage {
	case StageGeneratePrompt:
		return o.generatePrompt(ctx, st, credential)
	case StageEvaluatePrompt:
		return o.evaluatePrompt(ctx, st, credential, logger)
	case StageGenerateImage:
		return o.generateImage(ctx, st, credential, logger)
	case StageEvaluateImage:
		return o.evaluateImage(ctx, st, credential, logger)
	}
	return fmt.Errorf("imagegen: unknown stage %d", stage)
}

func (o *Orchestrator) generatePrompt(ctx context.Context, st *PipelineState, credential string) error {
	reply, err := o.text.Complete(ctx, credential, chat.Request{
		System:   generatorInstruction,
		Messages: st.Conversation,
	})
	if err != nil {
		return fmt.Errorf("generate prompt: %w", err)
	}
	st.PromptAttempts++
	st.CurrentPrompt = reply
	st.PromptJudgement = JudgementNone
	st.PromptCritique = ""
	st.Conversation = append(st.Conversation, chat.AssistantText(reply))
	return nil
}

// evaluatePrompt shows the evaluator the prompt alone, without the history
// that produced it.
func (o *Orchestrator) evaluatePrompt(ctx context.Context, st *PipelineState, credential string, logger *infra.Logger) error {
	reply, err := o.text.Complete(ctx, credential, chat.Request{
		System:   promptEvaluatorInstruction,
		Messages: []chat.Message{chat.UserText(st.CurrentPrompt)},
	})
	if err != nil {
		return fmt.Errorf("evaluate prompt: %w", err)
	}
	verdict := ParseVerdict(reply)
	if verdict.Kind == VerdictApproved {
		st.PromptJudgement = JudgementOK
		logger.Debug().Int("attempt", st.PromptAttempts).Msg("imagegen: prompt approved")
		return nil
	}
	st.PromptJudgement = JudgementNeedsRevision
	st.PromptCritique = strings.TrimSpace(reply)
	st.Conversation = append(st.Conversation, chat.UserText(reviewerFeedback(st.PromptCritique)))
	logger.Debug().Int("attempt", st.PromptAttempts).Str("critique", st.PromptCritique).Msg("imagegen: prompt needs revision")
	return nil
}

func (o *Orchestrator) generateImage(ctx context.Context, st *PipelineState, credential string, logger *infra.Logger) error {
	jobID, err := o.images.Submit(ctx, credential, st.CurrentPrompt)
	if err != nil {
		return fmt.Errorf("submit image job: %w", err)
	}
	job, err := o.images.AwaitCompletion(ctx, credential, jobID)
	if err != nil {
		return fmt.Errorf("await image job %s: %w", jobID, err)
	}
	st.ImageAttempts++
	st.LastJob = job
	st.ImageJudgement = JudgementNone

	switch job.Status {
	case modelscope.JobSucceeded:
		st.ImageURL = job.ResultURL
	case modelscope.JobFailed:
		st.ImageURL = FailedImageURL
	case modelscope.JobTimeout:
		st.ImageURL = TimeoutImageURL
	default:
		return fmt.Errorf("image job %s ended in status %q: %w", jobID, job.Status, domain.ErrUpstream)
	}
	event := logger.Info()
	if err := job.Err(); err != nil {
		event = logger.Warn().Err(err)
	}
	event.Str("job_id", jobID).
		Int("attempt", st.ImageAttempts).
		Int("polls", job.Polls).
		Str("status", string(job.Status)).
		Msg("imagegen: image job finished")
	return nil
}

// evaluateImage applies the evaluator's refined prompt when it gives one. A
// reply that neither approves nor refines keeps the current prompt.
func (o *Orchestrator) evaluateImage(ctx context.Context, st *PipelineState, credential string, logger *infra.Logger) error {
	reply, err := o.text.Complete(ctx, credential, chat.Request{
		System:   imageEvaluatorInstruction,
		Messages: []chat.Message{chat.UserText(imageReviewMessage(st.CurrentPrompt, st.ImageURL))},
	})
	if err != nil {
		return fmt.Errorf("evaluate image: %w", err)
	}
	verdict := ParseVerdict(reply)
	switch verdict.Kind {
	case VerdictApproved:
		st.ImageJudgement = JudgementOK
		logger.Debug().Int("attempt", st.ImageAttempts).Msg("imagegen: image approved")
	case VerdictRefinedPrompt:
		st.ImageJudgement = JudgementNeedsRevision
		st.CurrentPrompt = verdict.Prompt
		logger.Debug().Int("attempt", st.ImageAttempts).Str("prompt", verdict.Prompt).Msg("imagegen: prompt refined from image review")
	default:
		st.ImageJudgement = JudgementNeedsRevision
		logger.Warn().
			Err(domain.ErrAmbiguousEvaluation).
			Int("attempt", st.ImageAttempts).
			Str("reply", verdict.Critique).
			Msg("imagegen: image review neither approved nor refined, keeping prompt")
	}
	return nil
}

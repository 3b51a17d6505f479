package imagegen

import (
	"github.com/google/uuid"

	"labassistant/internal/providers/chat"
	"labassistant/internal/providers/modelscope"
)

// Placeholder images returned in place of a generated image.
const (
	FailedImageURL  = "https://via.placeholder.com/512x512?text=Image+Generation+Failed"
	TimeoutImageURL = "https://via.placeholder.com/512x512?text=Generation+Timeout"
	ErrorImageURL   = "https://via.placeholder.com/512x512?text=Generation+Error"
)

// Stage is one step of the pipeline.
type Stage int

const (
	StageGeneratePrompt Stage = iota
	StageEvaluatePrompt
	StageGenerateImage
	StageEvaluateImage
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageGeneratePrompt:
		return "generate_prompt"
	case StageEvaluatePrompt:
		return "evaluate_prompt"
	case StageGenerateImage:
		return "generate_image"
	case StageEvaluateImage:
		return "evaluate_image"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// Judgement is the outcome of the latest evaluation of a prompt or image.
type Judgement string

const (
	JudgementNone          Judgement = ""
	JudgementOK            Judgement = "ok"
	JudgementNeedsRevision Judgement = "needs_revision"
)

// Limits caps how many prompts and images a single run may produce.
type Limits struct {
	MaxPromptAttempts int
	MaxImageAttempts  int
}

// DefaultLimits allows three prompts and three images per run.
func DefaultLimits() Limits {
	return Limits{MaxPromptAttempts: 3, MaxImageAttempts: 3}
}

func (l Limits) normalized() Limits {
	def := DefaultLimits()
	if l.MaxPromptAttempts < 1 {
		l.MaxPromptAttempts = def.MaxPromptAttempts
	}
	if l.MaxImageAttempts < 1 {
		l.MaxImageAttempts = def.MaxImageAttempts
	}
	return l
}

// PipelineState is owned by a single run and never shared between runs.
type PipelineState struct {
	RunID           string
	UserInput       string
	CurrentPrompt   string
	PromptJudgement Judgement
	PromptCritique  string
	PromptAttempts  int
	ImageJudgement  Judgement
	ImageAttempts   int
	ImageURL        string
	LastJob         modelscope.Job
	// Conversation is what the prompt generator sees: the user's phrase,
	// its own earlier prompts and the critique of each.
	Conversation []chat.Message
}

// NewPipelineState seeds a run with the user's phrase.
func NewPipelineState(userInput string) *PipelineState {
	return &PipelineState{
		RunID:        uuid.NewString(),
		UserInput:    userInput,
		Conversation: []chat.Message{chat.UserText(userInput)},
	}
}

// Event reports a completed stage to an Observer.
type Event struct {
	RunID          string `json:"run_id"`
	Stage          string `json:"stage"`
	PromptAttempts int    `json:"prompt_attempts"`
	ImageAttempts  int    `json:"image_attempts"`
	Prompt         string `json:"prompt,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	Judgement      string `json:"judgement,omitempty"`
	JobStatus      string `json:"job_status,omitempty"`
}

// Observer is called synchronously after every completed stage.
type Observer func(Event)

func newEvent(stage Stage, st *PipelineState) Event {
	ev := Event{
		RunID:          st.RunID,
		Stage:          stage.String(),
		PromptAttempts: st.PromptAttempts,
		ImageAttempts:  st.ImageAttempts,
		Prompt:         st.CurrentPrompt,
		ImageURL:       st.ImageURL,
	}
	switch stage {
	case StageEvaluatePrompt:
		ev.Judgement = string(st.PromptJudgement)
	case StageEvaluateImage:
		ev.Judgement = string(st.ImageJudgement)
	case StageGenerateImage:
		ev.JobStatus = string(st.LastJob.Status)
	}
	return ev
}

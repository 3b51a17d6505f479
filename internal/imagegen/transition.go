package imagegen

import "labassistant/internal/providers/modelscope"

// Next picks the stage that follows a completed one. It only reads state.
//
// A rejected prompt is regenerated until the prompt cap is reached, after
// which the latest prompt is used anyway. A job that failed or timed out ends
// the run with its placeholder; there is nothing to evaluate. A rejected image
// is regenerated until the image cap is reached.
func Next(completed Stage, st *PipelineState, limits Limits) Stage {
	limits = limits.normalized()
	switch completed {
	case StageGeneratePrompt:
		return StageEvaluatePrompt
	case StageEvaluatePrompt:
		if st.PromptJudgement == JudgementOK || st.PromptAttempts >= limits.MaxPromptAttempts {
			return StageGenerateImage
		}
		return StageGeneratePrompt
	case StageGenerateImage:
		if st.LastJob.Status != modelscope.JobSucceeded {
			return StageDone
		}
		return StageEvaluateImage
	case StageEvaluateImage:
		if st.ImageJudgement == JudgementOK || st.ImageAttempts >= limits.MaxImageAttempts {
			return StageDone
		}
		return StageGenerateImage
	}
	return StageDone
}

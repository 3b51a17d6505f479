package domain

import "errors"

var (
	ErrUpstream            = errors.New("upstream failure")
	ErrPollTimeout         = errors.New("image job poll budget exhausted")
	ErrJobFailed           = errors.New("image job failed")
	ErrAmbiguousEvaluation = errors.New("ambiguous evaluation")
	ErrMissingCredential   = errors.New("missing credential")
	ErrInvalidInput        = errors.New("invalid input")
)

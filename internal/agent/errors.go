package agent

import "errors"

// Error taxonomy shared by the builder, runtime, and registry. Callers test
// with errors.Is; producers wrap these with context using %w.
var (
	// ErrGenerationUnavailable means the LLM capability failed or timed out.
	// Recoverable by retrying; no state is changed.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrVisualUnavailable means the visual capability produced no image.
	// Never fatal: the agent degrades to having no visual.
	ErrVisualUnavailable = errors.New("visual unavailable")

	// ErrPersistenceFailed means an attempt could not be durably recorded.
	// The runtime does not advance past Evaluating until a retry succeeds.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrMalformedCell means the inspector could not parse the cell source.
	// The inspector degrades to raw-line facts rather than returning it.
	ErrMalformedCell = errors.New("malformed cell")

	// ErrInvalidTransition is returned when an operation is not allowed in
	// the session's current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrUnknownQuestion is returned when an attempt references a question
	// outside the agent's quiz bank.
	ErrUnknownQuestion = errors.New("unknown question")
)

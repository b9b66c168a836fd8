package toolloop

import "fmt"

// OutcomeKind categorizes why a tool loop stopped.
// Every kind except OutcomeLLMError is a normal termination.
type OutcomeKind int

const (
	// OutcomeFinalAnswer indicates the model answered without requesting tools.
	OutcomeFinalAnswer OutcomeKind = iota

	// OutcomeNoMessage indicates the model returned an empty response.
	OutcomeNoMessage

	// OutcomeStuck indicates dispatching the requested tools added nothing to the conversation.
	OutcomeStuck

	// OutcomeMaxIterations indicates the iteration budget ran out while the model kept calling tools.
	OutcomeMaxIterations

	// OutcomeLLMError indicates the model call failed. Err holds the cause.
	OutcomeLLMError
)

// String returns human-readable name for OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFinalAnswer:
		return "final_answer"
	case OutcomeNoMessage:
		return "no_message"
	case OutcomeStuck:
		return "stuck"
	case OutcomeMaxIterations:
		return "max_iterations"
	case OutcomeLLMError:
		return "llm_error"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", k)
	}
}

// Outcome describes how a Run ended.
//
//nolint:govet // Field order optimized for readability over memory alignment
type Outcome struct {
	Kind OutcomeKind

	// Iterations is the number of loop iterations entered, counting the last one.
	Iterations int

	// Consultations is the number of model calls made by Run.
	Consultations int

	// Err is set only for OutcomeLLMError.
	Err error
}

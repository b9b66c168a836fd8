package toolloop

import "errors"

var (
	// ErrNoMessage indicates the model returned neither text nor tool calls.
	ErrNoMessage = errors.New("model returned no message")

	// ErrNoDispatcher is returned when Run is called without a dispatcher.
	ErrNoDispatcher = errors.New("dispatcher is required")
)

package graph

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// DefaultErrorHandler logs node faults with charmbracelet/log instead of
// writing directly to stdout.
type DefaultErrorHandler struct {
	Logger *log.Logger
}

// NewDefaultErrorHandler builds a handler against the given logger, or a
// fresh default logger if nil.
func NewDefaultErrorHandler(logger *log.Logger) *DefaultErrorHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultErrorHandler{Logger: logger}
}

func (h *DefaultErrorHandler) HandleError(err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.Error("node fault, outputs silenced for this block", "err", err)
}

// LoggingErrorHandler wraps another handler and additionally invokes a
// caller-supplied logging function — useful for tests that want to count
// faults without replacing the whole handler.
type LoggingErrorHandler struct {
	Underlying ErrorHandler
	Log        func(error)
}

func (h *LoggingErrorHandler) HandleError(err error) {
	if h.Log != nil {
		h.Log(err)
	}
	if h.Underlying != nil {
		h.Underlying.HandleError(err)
	}
}

// PanicErrorHandler re-panics on any error; useful in tests that want a
// node fault to fail loudly instead of being silenced.
type PanicErrorHandler struct{}

func (PanicErrorHandler) HandleError(err error) {
	panic(fmt.Sprintf("graph: node fault: %v", err))
}

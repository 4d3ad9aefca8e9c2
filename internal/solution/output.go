// Package solution holds what every vision solution shares: the output
// handler that turns packets into results and dispatches them, and the image
// solution base that drives a graph runtime.
package solution

import (
	"fmt"
	"sync/atomic"

	"github.com/andresmejia3/trackpoint/internal/monitoring"
	"github.com/andresmejia3/trackpoint/internal/packet"
)

// ResultListener receives one result per processed frame.
type ResultListener[T any] func(result T)

// ErrorListener receives decode and runtime errors.
type ErrorListener func(message string, err error)

// ErrorReporter is handed to converters so a bad field can be reported
// without aborting the frame.
type ErrorReporter interface {
	ReportError(message string, err error)
}

// Converter maps the packets of one frame to a result. A non-nil error means
// no result exists for the frame; field-level problems go to the reporter.
type Converter[T any] func(packets []packet.Packet, report ErrorReporter) (T, error)

// DecodeError is reported when a stream's payload cannot be parsed. The field
// falls back to an empty collection.
type DecodeError struct {
	Stream string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Stream, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// OutputHandler converts packets and forwards results and errors to at most
// one listener each. Registering a listener replaces the previous one.
// Listener slots are swapped atomically, so registration may happen on any
// goroutine while the runtime delivers.
type OutputHandler[T any] struct {
	convert Converter[T]
	onError string

	result atomic.Pointer[ResultListener[T]]
	errs   atomic.Pointer[ErrorListener]
}

// NewOutputHandler returns a handler using convert. failMessage describes a
// frame that produced no result.
func NewOutputHandler[T any](convert Converter[T], failMessage string) *OutputHandler[T] {
	return &OutputHandler[T]{convert: convert, onError: failMessage}
}

// SetResultListener installs l, or clears the slot when l is nil.
func (h *OutputHandler[T]) SetResultListener(l ResultListener[T]) {
	if l == nil {
		h.result.Store(nil)
		return
	}
	h.result.Store(&l)
}

// SetErrorListener installs l, or clears the slot when l is nil.
func (h *OutputHandler[T]) SetErrorListener(l ErrorListener) {
	if l == nil {
		h.errs.Store(nil)
		return
	}
	h.errs.Store(&l)
}

// HandlePackets implements graph.OutputHandler.
func (h *OutputHandler[T]) HandlePackets(packets []packet.Packet) {
	res, err := h.convert(packets, h)
	if err != nil {
		h.ReportError(h.onError, err)
		return
	}
	if l := h.result.Load(); l != nil {
		(*l)(res)
	}
}

// HandleError implements graph.OutputHandler.
func (h *OutputHandler[T]) HandleError(err error) {
	h.ReportError(h.onError, err)
}

// ReportError forwards to the error listener. Without one the error is logged
// so it is never lost.
func (h *OutputHandler[T]) ReportError(message string, err error) {
	if l := h.errs.Load(); l != nil {
		(*l)(message, err)
		return
	}
	monitoring.Logf("[solution] %s: %v", message, err)
}

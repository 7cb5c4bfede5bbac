// Package errors adds slog-friendly annotations and source locations to errors.
//
// It re-exports the standard library helpers so that callers only need to import one errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// annotatedError carries the wrapping message, structured annotations and the location where it was created.
type annotatedError struct {
	msg         string
	err         error
	annotations []slog.Attr
	source      string
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// sentinel is a comparable error without a stack location so that it can be declared at package level.
type sentinel struct {
	msg string
}

func (s *sentinel) Error() string {
	return s.msg
}

// NewSentinel creates a sentinel error meant to be compared with [Is].
func NewSentinel(msg string) error {
	return &sentinel{msg: msg}
}

// Wrap annotates err with msg, optional slog attributes and the caller's source location.
//
// Wrap returns nil-safe errors: wrapping nil still produces an error carrying msg.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		err:         err,
		annotations: attrs,
		source:      callerSource(2), //nolint:mnd // skip callerSource and Wrap.
	}
}

// DecoratePanic converts a recovered panic value into an annotated error pointing to the panic site.
// It returns nil when excp is nil.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	var cause error
	if err, ok := excp.(error); ok {
		cause = err
	} else {
		cause = NewSentinel(fmt.Sprint(excp))
	}
	return &annotatedError{
		msg:         "panic",
		err:         cause,
		annotations: nil,
		source:      panicSource(),
	}
}

// SlogError returns an "error" attribute group containing the message, the annotations of every wrapped
// annotated error, and the innermost recorded source location.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var (
		annotations []any
		source      string
	)
	for _, ae := range collectAnnotated(err) {
		for _, a := range ae.annotations {
			annotations = append(annotations, a)
		}
		if ae.source != "" {
			source = ae.source
		}
	}
	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// collectAnnotated walks the error tree depth first, including joined errors.
func collectAnnotated(err error) []*annotatedError {
	var result []*annotatedError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ae, ok := e.(*annotatedError); ok { //nolint:errorlint // walking the tree manually.
			result = append(result, ae)
		}
		switch u := e.(type) { //nolint:errorlint // walking the tree manually.
		case interface{ Unwrap() []error }:
			for _, child := range u.Unwrap() {
				walk(child)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return result
}

func callerSource(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// panicSource finds the frame that called panic by skipping past runtime.gopanic.
func panicSource() string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var (
		afterPanic bool
		fallback   string
	)
	for {
		frame, more := frames.Next()
		if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if fallback == "" && !strings.HasPrefix(frame.Function, "runtime.") &&
			!strings.HasSuffix(frame.Function, "errors.panicSource") &&
			!strings.HasSuffix(frame.Function, "errors.DecoratePanic") {
			fallback = fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			return fallback
		}
	}
}

// Is reports whether any error in err's tree matches target. See [stderrors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [stderrors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [stderrors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [stderrors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// New returns an error that formats as the given text. Prefer [NewSentinel] or [Wrap] for new code.
func New(text string) error {
	return stderrors.New(text)
}

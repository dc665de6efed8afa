// Package errors provides categorized errors with optional telemetry reporting.
//
// Errors are created through a builder so call sites attach the component,
// a category and context in one expression:
//
//	return errors.New(err).
//		Component("loader").
//		Category(errors.CategoryNotFound).
//		Context("session_id", id).
//		Build()
//
// The package also passes through Is, As, Unwrap and Join so callers only
// import one errors package.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for status mapping and telemetry
type ErrorCategory string

// CategorizedError is implemented by errors that know their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryNetwork       ErrorCategory = "network"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryState         ErrorCategory = "state"
	CategoryRender        ErrorCategory = "render"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryGeneric       ErrorCategory = "generic"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with component, category and context
type EnhancedError struct {
	Err       error
	component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
	reported  atomic.Bool
	mu        sync.Mutex
}

func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches another EnhancedError by category, otherwise defers to the
// wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the component, detecting it from the call stack on
// first use when none was given.
func (ee *EnhancedError) GetComponent() string {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.component == "" {
		ee.component = detectComponent()
	}
	return ee.component
}

// GetCategory returns the category as a string
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetContext returns a copy of the context map
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

// GetMessage returns the wrapped error's message
func (ee *EnhancedError) GetMessage() string {
	if ee.Err == nil {
		return ""
	}
	return ee.Err.Error()
}

// MarkReported records that telemetry has seen this error.
func (ee *EnhancedError) MarkReported() { ee.reported.Store(true) }

// IsReported reports whether telemetry has seen this error.
func (ee *EnhancedError) IsReported() bool { return ee.reported.Load() }

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts an enhanced error wrapping err
func New(err error) *ErrorBuilder {
	if err == nil {
		err = stderrors.New("unknown error")
	}
	return &ErrorBuilder{err: err}
}

// Newf starts an enhanced error from a format string
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds a context value
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Timing records the operation name and how long it ran
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	return eb.Context("operation", operation).Context("duration_ms", duration.Milliseconds())
}

// Build creates the EnhancedError and reports it when telemetry is active.
func (eb *ErrorBuilder) Build() *EnhancedError {
	category := eb.category
	if category == "" {
		category = detectCategory(eb.err)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}

	if hasActiveReporting.Load() {
		if ee.component == "" {
			ee.component = detectComponent()
		}
		reportToTelemetry(ee)
	} else if ee.component == "" {
		ee.component = ComponentUnknown
	}

	return ee
}

var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent maps a package path fragment to a component name
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("internal/csvtable", "csvtable")
	RegisterComponent("internal/feed", "feed")
	RegisterComponent("internal/session", "session")
	RegisterComponent("internal/loader", "loader")
	RegisterComponent("internal/navigation", "navigation")
	RegisterComponent("internal/datasource", "datasource")
	RegisterComponent("internal/httpclient", "httpclient")
	RegisterComponent("internal/dashboard", "dashboard")
	RegisterComponent("internal/httpcontroller", "http-controller")
	RegisterComponent("internal/conf", "configuration")
	RegisterComponent("internal/telemetry", "telemetry")
	RegisterComponent("/cmd/", "cli")
}

const selfPackage = "internal/errors."

func detectComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, selfPackage) {
			if component := lookupComponent(frame.Function); component != "" {
				return component
			}
		}
		if !more {
			break
		}
	}
	return ComponentUnknown
}

func lookupComponent(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	best := ""
	bestLen := 0
	for pattern, component := range componentRegistry {
		if len(pattern) > bestLen && strings.Contains(funcName, pattern) {
			best, bestLen = component, len(pattern)
		}
	}
	return best
}

// detectCategory guesses a category when the caller did not set one.
func detectCategory(err error) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}
	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return CategoryTimeout
	case strings.Contains(msg, "context canceled"):
		return CategoryCancellation
	case strings.Contains(msg, "no such file") || strings.Contains(msg, "file does not exist"):
		return CategoryNotFound
	case strings.Contains(msg, "connection") || strings.Contains(msg, "dial"):
		return CategoryNetwork
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "validation"):
		return CategoryValidation
	}
	return CategoryGeneric
}

// NewStd creates a plain error
func NewStd(text string) error {
	return stderrors.New(text)
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Unwrap(err error) error { return stderrors.Unwrap(err) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsCategory reports whether err wraps an EnhancedError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound reports whether err is a CategoryNotFound error, e.g. an
// unknown session id.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

// CategoryOf returns the category of the first EnhancedError in err's tree,
// or CategoryGeneric.
func CategoryOf(err error) ErrorCategory {
	var enhancedErr *EnhancedError
	if As(err, &enhancedErr) {
		return enhancedErr.Category
	}
	return CategoryGeneric
}

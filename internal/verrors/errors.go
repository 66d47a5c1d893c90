// Package verrors provides categorized, component-tagged errors used across
// the orchestrator: detector faults, pool exhaustion, scheduler failures,
// merge/coverage problems, and the HTTP/job-store boundary.
package verrors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory groups errors for logging, metrics, and fallback decisions.
type ErrorCategory string

// CategorizedError lets a caller-defined error specify its own category.
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryPrep          ErrorCategory = "prep"
	CategoryDetector      ErrorCategory = "detector"
	CategoryGPUPool       ErrorCategory = "gpu-pool"
	CategoryFallback      ErrorCategory = "fallback"
	CategoryScheduler     ErrorCategory = "scheduler"
	CategoryMerge         ErrorCategory = "merge"
	CategoryCoverage      ErrorCategory = "coverage"
	CategoryJobStore      ErrorCategory = "job-store"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryVLClient      ErrorCategory = "vl-client"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryValidation    ErrorCategory = "validation"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryCancellation  ErrorCategory = "cancellation"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryGeneric       ErrorCategory = "generic"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown marks a component that could not be auto-detected.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with component, category, priority and
// free-form context, captured at construction time.
type EnhancedError struct {
	Err       error
	component string
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time
	mu        sync.RWMutex
	detected  bool
}

func (ee *EnhancedError) Error() string { return ee.Err.Error() }

func (ee *EnhancedError) Unwrap() error { return ee.Err }

func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, detecting it lazily from the
// call stack if it was not set explicitly.
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		component := ee.component
		ee.mu.RUnlock()
		return component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}
	return ee.component
}

func (ee *EnhancedError) GetCategory() string { return string(ee.Category) }

func (ee *EnhancedError) GetPriority() string { return ee.Priority }

func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

func (ee *EnhancedError) GetTimestamp() time.Time { return ee.Timestamp }

func (ee *EnhancedError) GetError() error { return ee.Err }

func (ee *EnhancedError) GetMessage() string {
	if ee.Err != nil {
		return ee.Err.Error()
	}
	return ""
}

// ErrorBuilder is a fluent constructor for EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New starts building an enhanced error from an existing error.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts building an enhanced error from a formatted message.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component overrides auto-detection of the originating component.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for grouping and fallback routing.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets an explicit priority, falling back to medium on an
// unrecognized value.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		if priority != "" {
			eb.priority = PriorityMedium
		}
	}
	return eb
}

// Context attaches a single key/value pair to the error.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// JobContext attaches the video/job identifier that produced the error.
func (eb *ErrorBuilder) JobContext(videoID string, shotIndex int) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	if videoID != "" {
		eb.context["video_id"] = videoID
	}
	if shotIndex >= 0 {
		eb.context["shot_index"] = shotIndex
	}
	return eb
}

// NetworkContext adds network-specific context (URLs are anonymized).
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	if url != "" {
		if eb.context == nil {
			eb.context = make(map[string]any)
		}
		eb.context["url_category"] = categorizeURL(url)
	}
	if timeout > 0 {
		if eb.context == nil {
			eb.context = make(map[string]any)
		}
		eb.context["timeout_seconds"] = timeout.Seconds()
	}
	return eb
}

// Timing adds operation/duration context, useful for deadline-exceeded
// errors surfaced by the scheduler.
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context["operation"] = operation
	eb.context["duration_ms"] = duration.Milliseconds()
	return eb
}

// Build finalizes the error, auto-detecting component/category where unset.
func (eb *ErrorBuilder) Build() *EnhancedError {
	if eb.component == "" {
		eb.component = detectComponent()
	}
	if eb.category == "" {
		eb.category = detectCategory(eb.err, eb.component)
	}
	return &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  true,
	}
}

var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent registers a package-path substring to component name
// mapping, consulted by detectComponent during a call-stack walk.
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("prep", "prep")
	RegisterComponent("detector", "detector")
	RegisterComponent("detectoradapters", "detectoradapters")
	RegisterComponent("gpupool", "gpupool")
	RegisterComponent("fallback", "fallback")
	RegisterComponent("scheduler", "scheduler")
	RegisterComponent("merge", "merge")
	RegisterComponent("coverage", "coverage")
	RegisterComponent("provenance", "provenance")
	RegisterComponent("jobstore", "jobstore")
	RegisterComponent("vlclient", "vlclient")
	RegisterComponent("metrics", "metrics")
	RegisterComponent("conf", "configuration")
	RegisterComponent("internal/api", "api")
	RegisterComponent("vab", "vab")
}

func quickComponentLookup(depth int) string {
	pc, _, _, ok := runtime.Caller(depth)
	if !ok {
		return ""
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	funcName := fn.Name()
	if strings.Contains(funcName, "github.com/vabforge/vab-orchestrator/internal/verrors") {
		return ""
	}
	return lookupComponent(funcName)
}

func detectComponent() string {
	for _, depth := range []int{4, 5, 6, 7} {
		if component := quickComponentLookup(depth); component != "" && component != ComponentUnknown {
			return component
		}
	}
	return detectComponentFull()
}

func detectComponentFull() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	if n == len(pcs) {
		pcs = make([]uintptr, 32)
		n = runtime.Callers(2, pcs)
	}
	for i := range n {
		fn := runtime.FuncForPC(pcs[i])
		if fn == nil {
			continue
		}
		funcName := fn.Name()
		if strings.Contains(funcName, "github.com/vabforge/vab-orchestrator/internal/verrors") {
			continue
		}
		if component := lookupComponent(funcName); component != ComponentUnknown {
			return component
		}
	}
	return ComponentUnknown
}

func lookupComponent(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}

	parts := strings.Split(funcName, "/")
	if len(parts) > 0 {
		lastPart := parts[len(parts)-1]
		if dotIndex := strings.Index(lastPart, "."); dotIndex > 0 {
			return lastPart[:dotIndex]
		}
	}
	return ComponentUnknown
}

// detectCategory falls back to message/component heuristics when a
// category was not set explicitly by the caller.
func detectCategory(err error, component string) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}

	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	errorMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errorMsg, "deadline") || strings.Contains(errorMsg, "timeout"):
		return CategoryTimeout
	case strings.Contains(errorMsg, "canceled") || strings.Contains(errorMsg, "cancelled"):
		return CategoryCancellation
	case strings.Contains(errorMsg, "not found"):
		return CategoryNotFound
	case strings.Contains(errorMsg, "invalid") || strings.Contains(errorMsg, "mismatch"):
		return CategoryValidation
	}

	switch component {
	case "prep":
		return CategoryPrep
	case "detector", "detectoradapters":
		return CategoryDetector
	case "gpupool":
		return CategoryGPUPool
	case "fallback":
		return CategoryFallback
	case "scheduler":
		return CategoryScheduler
	case "merge":
		return CategoryMerge
	case "coverage":
		return CategoryCoverage
	case "jobstore":
		return CategoryJobStore
	case "api":
		return CategoryHTTP
	case "vlclient":
		return CategoryVLClient
	case "configuration":
		return CategoryConfiguration
	}

	return CategoryGeneric
}

func categorizeURL(url string) string {
	url = strings.ToLower(url)
	switch {
	case strings.HasPrefix(url, "http://"):
		return "http-endpoint"
	case strings.HasPrefix(url, "https://"):
		return "https-endpoint"
	default:
		return "other-protocol"
	}
}

// Wrap wraps an existing error for further annotation.
func Wrap(err error) *ErrorBuilder { return New(err) }

// ValidationError builds a CategoryValidation error from a message.
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).Category(CategoryValidation).Build()
}

// NewStd creates a plain standard-library error (passthrough).
func NewStd(text string) error { return stderrors.New(text) }

// Is passes through to the standard library.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As passes through to the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap passes through to the standard library.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join passes through to the standard library.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsCategory reports whether err is an EnhancedError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound reports whether err is a CategoryNotFound EnhancedError.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}

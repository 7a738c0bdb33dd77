package sideeffect

import (
	"context"
	"fmt"
	"sync"

	"github.com/jthornton/solar-workflow/internal/domain/entity"
	"github.com/jthornton/solar-workflow/internal/domain/payload"
	"github.com/jthornton/solar-workflow/internal/domain/workflow"
)

// Diagnostic records the attempt of one side-effect substep. Err is nil when
// the substep succeeded. Diagnostics never propagate as errors to the caller
// of CompleteStep; the workflow's own state is the source of truth.
type Diagnostic struct {
	Substep string
	Err     error
}

// Failed reports whether the substep ended in error.
func (d Diagnostic) Failed() bool {
	return d.Err != nil
}

// Invocation carries the completed step and its context into handlers.
type Invocation struct {
	Progress *entity.WorkflowProgress
	Step     *entity.WorkflowStep
	Data     payload.Payload
	User     *entity.User
}

// Handler performs the side effects for one step kind and reports a
// diagnostic per attempted substep.
type Handler func(ctx context.Context, inv *Invocation) []Diagnostic

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name    string
	Kind    workflow.StepKind
	Handler Handler
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Dispatcher routes step completions to the handlers registered for the
// step's kind. Handlers run synchronously, in registration order, with panic
// recovery; their failures are collected, never raised.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[workflow.StepKind][]HandlerInfo
	logger   Logger
}

// Option configures the dispatcher
type Option func(*Dispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates an empty side-effect dispatcher
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[workflow.StepKind][]HandlerInfo),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Register adds a named handler for a step kind
func (d *Dispatcher) Register(kind workflow.StepKind, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[kind] = append(d.handlers[kind], HandlerInfo{
		Name:    name,
		Kind:    kind,
		Handler: handler,
	})

	if d.logger != nil {
		d.logger.Info("Side-effect handler registered",
			"step_kind", kind.String(),
			"handler_name", name,
		)
	}
}

// ListHandlers returns registered handlers for a step kind
func (d *Dispatcher) ListHandlers(kind workflow.StepKind) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handlers := d.handlers[kind]
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{Name: h.Name, Kind: h.Kind}
	}

	return result
}

// StepCompleted runs every handler registered for the completed step's kind
// and returns the collected diagnostics. It never returns an error and never
// lets a handler panic escape.
func (d *Dispatcher) StepCompleted(ctx context.Context, inv *Invocation) []Diagnostic {
	kind := workflow.StepKind(inv.Step.StepKind)

	d.mu.RLock()
	handlers := d.handlers[kind]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var diags []Diagnostic
	for _, info := range handlers {
		diags = append(diags, d.safeExecute(ctx, inv, info)...)
	}

	if d.logger != nil {
		for _, diag := range diags {
			if diag.Failed() {
				d.logger.Warn("Side-effect substep failed",
					"opportunity_id", inv.Progress.OpportunityID,
					"step_kind", kind.String(),
					"substep", diag.Substep,
					"error", diag.Err,
				)
			}
		}
	}

	return diags
}

// safeExecute runs a handler with panic recovery
func (d *Dispatcher) safeExecute(ctx context.Context, inv *Invocation, info HandlerInfo) (diags []Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			diags = append(diags, Diagnostic{
				Substep: info.Name,
				Err:     fmt.Errorf("handler panic: %v", r),
			})
			if d.logger != nil {
				d.logger.Error("Side-effect handler panic recovered",
					"opportunity_id", inv.Progress.OpportunityID,
					"handler_name", info.Name,
					"panic", r,
				)
			}
		}
	}()

	return info.Handler(ctx, inv)
}

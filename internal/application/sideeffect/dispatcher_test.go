package sideeffect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthornton/solar-workflow/internal/domain/entity"
	"github.com/jthornton/solar-workflow/internal/domain/workflow"
)

type testLogger struct{}

func (l *testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Error(msg string, keysAndValues ...interface{}) {}

func invocationFor(kind workflow.StepKind) *Invocation {
	return &Invocation{
		Progress: &entity.WorkflowProgress{ID: 1, OpportunityID: "opp-100"},
		Step:     &entity.WorkflowStep{ProgressID: 1, StepNumber: 6, StepKind: kind.String()},
	}
}

func TestDispatcher_StepCompleted(t *testing.T) {
	t.Run("no handlers for the step kind yields no diagnostics", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&testLogger{}))

		diags := d.StepCompleted(context.Background(), invocationFor(workflow.KindInitialContact))
		assert.Nil(t, diags)
	})

	t.Run("handlers run in registration order", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&testLogger{}))

		var order []string
		d.Register(workflow.KindDealClosure, "first", func(ctx context.Context, inv *Invocation) []Diagnostic {
			order = append(order, "first")
			return []Diagnostic{{Substep: "first"}}
		})
		d.Register(workflow.KindDealClosure, "second", func(ctx context.Context, inv *Invocation) []Diagnostic {
			order = append(order, "second")
			return []Diagnostic{{Substep: "second"}}
		})

		diags := d.StepCompleted(context.Background(), invocationFor(workflow.KindDealClosure))

		assert.Equal(t, []string{"first", "second"}, order)
		require.Len(t, diags, 2)
		assert.False(t, diags[0].Failed())
	})

	t.Run("a panicking handler becomes a failed diagnostic", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&testLogger{}))

		d.Register(workflow.KindDealClosure, "panicker", func(ctx context.Context, inv *Invocation) []Diagnostic {
			panic("nil map write")
		})
		d.Register(workflow.KindDealClosure, "survivor", func(ctx context.Context, inv *Invocation) []Diagnostic {
			return []Diagnostic{{Substep: "survivor"}}
		})

		diags := d.StepCompleted(context.Background(), invocationFor(workflow.KindDealClosure))

		require.Len(t, diags, 2)
		assert.True(t, diags[0].Failed())
		assert.Contains(t, diags[0].Err.Error(), "panic")
		assert.Equal(t, "survivor", diags[1].Substep)
		assert.False(t, diags[1].Failed())
	})

	t.Run("handler errors are collected, not raised", func(t *testing.T) {
		d := NewDispatcher()

		d.Register(workflow.KindProposalGeneration, "archiver", func(ctx context.Context, inv *Invocation) []Diagnostic {
			return []Diagnostic{{Substep: "archive", Err: errors.New("disk full")}}
		})

		diags := d.StepCompleted(context.Background(), invocationFor(workflow.KindProposalGeneration))

		require.Len(t, diags, 1)
		assert.True(t, diags[0].Failed())
	})
}

func TestDispatcher_ListHandlers(t *testing.T) {
	d := NewDispatcher()
	d.Register(workflow.KindDealClosure, "fanout", func(ctx context.Context, inv *Invocation) []Diagnostic {
		return nil
	})

	infos := d.ListHandlers(workflow.KindDealClosure)
	require.Len(t, infos, 1)
	assert.Equal(t, "fanout", infos[0].Name)
	assert.Equal(t, workflow.KindDealClosure, infos[0].Kind)

	assert.Empty(t, d.ListHandlers(workflow.KindSiteSurvey))
}

package sideeffect

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
	"github.com/jthornton/solar-workflow/internal/domain/payload"
	"github.com/jthornton/solar-workflow/internal/domain/workflow"
)

// Mock collaborators

type mockOutcomeRecorder struct {
	mu       sync.Mutex
	recorded []*entity.OpportunityOutcome
	err      error
}

func (m *mockOutcomeRecorder) RecordOutcome(ctx context.Context, outcome *entity.OpportunityOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, outcome)
	return m.err
}

type mockCRM struct {
	mu               sync.Mutex
	fetchFunc        func(ctx context.Context, opportunityID string) (*port.OpportunityRecord, error)
	transitionErr    error
	transitionCalls  []string
	transitionStages []string
}

func (m *mockCRM) FetchOpportunity(ctx context.Context, opportunityID string) (*port.OpportunityRecord, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, opportunityID)
	}
	return nil, nil
}

func (m *mockCRM) TransitionStage(ctx context.Context, opportunityID string, targetStage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCalls = append(m.transitionCalls, opportunityID)
	m.transitionStages = append(m.transitionStages, targetStage)
	return m.transitionErr
}

type mockESign struct {
	artifacts []port.SubmissionArtifact
	err       error
}

func (m *mockESign) FetchCompletedSubmissions(ctx context.Context, opportunityID string) ([]port.SubmissionArtifact, error) {
	return m.artifacts, m.err
}

type mockArchiver struct {
	mu       sync.Mutex
	requests []port.ArchiveRequest
	err      error
}

func (m *mockArchiver) CopyDocuments(ctx context.Context, req port.ArchiveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.err
}

func (m *mockArchiver) byBucket(bucket string) *port.ArchiveRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.requests {
		if m.requests[i].OutcomeBucket == bucket {
			return &m.requests[i]
		}
	}
	return nil
}

type mockSurveys struct {
	survey *entity.SurveyRecord
	err    error
}

func (m *mockSurveys) GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.SurveyRecord, error) {
	return m.survey, m.err
}

type mockCalculators struct {
	record *entity.CalculatorRecord
	err    error
}

func (m *mockCalculators) GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.CalculatorRecord, error) {
	return m.record, m.err
}

type mockCleaner struct {
	mu      sync.Mutex
	calls   []string
	removed int
	err     error
}

func (m *mockCleaner) CleanupGenerated(ctx context.Context, opportunityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, opportunityID)
	return m.removed, m.err
}

type effectsFixture struct {
	outcomes    *mockOutcomeRecorder
	crm         *mockCRM
	esign       *mockESign
	archiver    *mockArchiver
	surveys     *mockSurveys
	calculators *mockCalculators
	cleaner     *mockCleaner
}

func newEffectsFixture() *effectsFixture {
	return &effectsFixture{
		outcomes:    &mockOutcomeRecorder{},
		crm:         &mockCRM{},
		esign:       &mockESign{},
		archiver:    &mockArchiver{},
		surveys:     &mockSurveys{},
		calculators: &mockCalculators{},
		cleaner:     &mockCleaner{},
	}
}

func (f *effectsFixture) effects() *Effects {
	return NewEffects(
		f.outcomes,
		f.crm,
		f.esign,
		f.archiver,
		f.surveys,
		f.calculators,
		f.cleaner,
		"Contract Signed",
		&testLogger{},
	)
}

func closureInvocation(data payload.Payload) *Invocation {
	return &Invocation{
		Progress: &entity.WorkflowProgress{ID: 1, OpportunityID: "opp-abc123"},
		Step:     &entity.WorkflowStep{ProgressID: 1, StepNumber: 12, StepKind: workflow.KindDealClosure.String()},
		Data:     data,
		User:     &entity.User{ID: 7},
	}
}

func proposalInvocation(data payload.Payload) *Invocation {
	return &Invocation{
		Progress: &entity.WorkflowProgress{ID: 1, OpportunityID: "opp-abc123"},
		Step:     &entity.WorkflowStep{ProgressID: 1, StepNumber: 6, StepKind: workflow.KindProposalGeneration.String()},
		Data:     data,
	}
}

func failedSubsteps(diags []Diagnostic) []string {
	var failed []string
	for _, d := range diags {
		if d.Failed() {
			failed = append(failed, d.Substep)
		}
	}
	return failed
}

func TestEffects_ProposalGenerated(t *testing.T) {
	t.Run("no proposal files means nothing to archive", func(t *testing.T) {
		f := newEffectsFixture()

		diags := f.effects().ProposalGenerated(context.Background(), proposalInvocation(payload.Payload{}))

		assert.Nil(t, diags)
		assert.Empty(t, f.archiver.requests)
	})

	t.Run("archives proposal files with survey images into quotations", func(t *testing.T) {
		f := newEffectsFixture()
		f.surveys.survey = &entity.SurveyRecord{
			OpportunityID: "opp-abc123",
			CustomerName:  "John Smith",
			Postcode:      "SW1A 1AA",
			ImagePaths:    `["/surveys/roof-1.jpg","/surveys/roof-2.jpg"]`,
		}

		data := payload.Payload{
			KeyProposalFiles: []interface{}{"/generated/proposal.pdf"},
		}
		diags := f.effects().ProposalGenerated(context.Background(), proposalInvocation(data))

		require.Len(t, diags, 1)
		assert.False(t, diags[0].Failed())

		req := f.archiver.byBucket(BucketQuotations)
		require.NotNil(t, req)
		assert.Equal(t, "John Smith", req.CustomerName)
		assert.Equal(t, "SW1A 1AA", req.Postcode)
		assert.Equal(t, []string{"/generated/proposal.pdf", "/surveys/roof-1.jpg", "/surveys/roof-2.jpg"}, req.FileRefs)
	})

	t.Run("archive failure is reported as a diagnostic", func(t *testing.T) {
		f := newEffectsFixture()
		f.archiver.err = errors.New("drive unreachable")

		data := payload.Payload{KeyProposalFiles: []interface{}{"/generated/proposal.pdf"}}
		diags := f.effects().ProposalGenerated(context.Background(), proposalInvocation(data))

		require.Len(t, diags, 1)
		assert.Equal(t, SubstepArchiveProposal, diags[0].Substep)
		assert.True(t, diags[0].Failed())
	})
}

func TestEffects_DealClosed_Won(t *testing.T) {
	t.Run("records the outcome, moves the CRM stage, archives and cleans up", func(t *testing.T) {
		f := newEffectsFixture()
		f.esign.artifacts = []port.SubmissionArtifact{
			{SubmissionID: "sub-1", DocumentURL: "https://esign.example/doc-1.pdf"},
		}

		data := payload.Payload{
			KeyOutcome:            "won",
			KeyValue:              12500.0,
			KeyProposalFiles:      []interface{}{"/generated/proposal.pdf"},
			KeyContractFiles:      []interface{}{"/generated/contract.pdf"},
			KeyContractSubmission: "sub-1",
		}
		diags := f.effects().DealClosed(context.Background(), closureInvocation(data))

		assert.Empty(t, failedSubsteps(diags))

		require.Len(t, f.outcomes.recorded, 1)
		outcome := f.outcomes.recorded[0]
		assert.Equal(t, entity.OutcomeWon, outcome.Outcome)
		assert.Equal(t, 12500.0, outcome.Value)
		assert.Equal(t, int64(7), outcome.UserID)

		require.Len(t, f.crm.transitionStages, 1)
		assert.Equal(t, "Contract Signed", f.crm.transitionStages[0])

		req := f.archiver.byBucket(BucketWon)
		require.NotNil(t, req)
		assert.Contains(t, req.FileRefs, "/generated/proposal.pdf")
		assert.Contains(t, req.FileRefs, "/generated/contract.pdf")
		assert.Contains(t, req.FileRefs, "https://esign.example/doc-1.pdf")
		assert.Contains(t, req.Notes, "contract_submission:sub-1")
		assert.Contains(t, req.Notes, "submission:sub-1")

		assert.Equal(t, []string{"opp-abc123"}, f.cleaner.calls)
	})

	t.Run("a failed CRM transition does not stop archival or cleanup", func(t *testing.T) {
		f := newEffectsFixture()
		f.crm.transitionErr = errors.New("crm 502")

		data := payload.Payload{
			KeyOutcome:       "WON",
			KeyProposalFiles: []interface{}{"/generated/proposal.pdf"},
		}
		diags := f.effects().DealClosed(context.Background(), closureInvocation(data))

		assert.Equal(t, []string{SubstepCRMStage}, failedSubsteps(diags))
		assert.NotNil(t, f.archiver.byBucket(BucketWon))
		assert.Len(t, f.cleaner.calls, 1)
	})

	t.Run("a failed e-sign fetch still archives the local documents", func(t *testing.T) {
		f := newEffectsFixture()
		f.esign.err = errors.New("esign timeout")

		data := payload.Payload{
			KeyOutcome:       "WON",
			KeyProposalFiles: []interface{}{"/generated/proposal.pdf"},
		}
		diags := f.effects().DealClosed(context.Background(), closureInvocation(data))

		assert.Equal(t, []string{SubstepFetchSubmissions}, failedSubsteps(diags))
		req := f.archiver.byBucket(BucketWon)
		require.NotNil(t, req)
		assert.Equal(t, []string{"/generated/proposal.pdf"}, req.FileRefs)
	})
}

func TestEffects_DealClosed_Lost(t *testing.T) {
	t.Run("archives the lost bundle and cleans up without touching the CRM", func(t *testing.T) {
		f := newEffectsFixture()
		f.calculators.record = &entity.CalculatorRecord{
			OpportunityID: "opp-abc123",
			CustomerName:  "Priya Patel",
			Postcode:      "M1 2AB",
			ExportPath:    "/generated/calc.xlsx",
		}

		data := payload.Payload{
			KeyOutcome:       "lost",
			KeyProposalFiles: []interface{}{"/generated/proposal.pdf"},
		}
		diags := f.effects().DealClosed(context.Background(), closureInvocation(data))

		assert.Empty(t, failedSubsteps(diags))
		assert.Empty(t, f.crm.transitionCalls, "lost deals never move the CRM stage")

		req := f.archiver.byBucket(BucketLostQuotations)
		require.NotNil(t, req)
		assert.Equal(t, "Priya Patel", req.CustomerName)
		assert.Contains(t, req.FileRefs, "/generated/proposal.pdf")
		assert.Contains(t, req.FileRefs, "/generated/calc.xlsx")

		assert.Len(t, f.cleaner.calls, 1)
	})
}

func TestEffects_DealClosed_Abandoned(t *testing.T) {
	f := newEffectsFixture()

	data := payload.Payload{KeyOutcome: "ABANDONED"}
	diags := f.effects().DealClosed(context.Background(), closureInvocation(data))

	assert.Empty(t, failedSubsteps(diags))
	require.Len(t, f.outcomes.recorded, 1)
	assert.Equal(t, entity.OutcomeAbandoned, f.outcomes.recorded[0].Outcome)

	assert.Empty(t, f.archiver.requests, "abandoned deals keep no archive bundle")
	assert.Empty(t, f.cleaner.calls)
	assert.Empty(t, f.crm.transitionCalls)
}

func TestEffects_DealClosed_EdgeCases(t *testing.T) {
	t.Run("missing outcome is a no-op", func(t *testing.T) {
		f := newEffectsFixture()

		diags := f.effects().DealClosed(context.Background(), closureInvocation(payload.Payload{}))

		assert.Nil(t, diags)
		assert.Empty(t, f.outcomes.recorded)
	})

	t.Run("unknown outcome yields a single failed diagnostic", func(t *testing.T) {
		f := newEffectsFixture()

		data := payload.Payload{KeyOutcome: "MAYBE"}
		diags := f.effects().DealClosed(context.Background(), closureInvocation(data))

		require.Len(t, diags, 1)
		assert.Equal(t, SubstepRecordOutcome, diags[0].Substep)
		assert.True(t, diags[0].Failed())
		assert.Empty(t, f.outcomes.recorded)
	})
}

func TestEffects_ResolveCustomer(t *testing.T) {
	t.Run("survey name wins over calculator and CRM", func(t *testing.T) {
		f := newEffectsFixture()
		f.surveys.survey = &entity.SurveyRecord{CustomerName: "Survey Name", Postcode: "S1 1AA"}
		f.calculators.record = &entity.CalculatorRecord{CustomerName: "Calc Name", Postcode: "C1 1AA"}

		name, postcode := f.effects().resolveCustomer(context.Background(), "opp-abc123")
		assert.Equal(t, "Survey Name", name)
		assert.Equal(t, "S1 1AA", postcode)
	})

	t.Run("calculator fills gaps left by a nameless survey", func(t *testing.T) {
		f := newEffectsFixture()
		f.surveys.survey = &entity.SurveyRecord{Postcode: "S1 1AA"}
		f.calculators.record = &entity.CalculatorRecord{CustomerName: "Calc Name"}

		name, postcode := f.effects().resolveCustomer(context.Background(), "opp-abc123")
		assert.Equal(t, "Calc Name", name)
		assert.Equal(t, "S1 1AA", postcode, "earlier postcode is kept")
	})

	t.Run("CRM record is the third source", func(t *testing.T) {
		f := newEffectsFixture()
		f.crm.fetchFunc = func(ctx context.Context, opportunityID string) (*port.OpportunityRecord, error) {
			return &port.OpportunityRecord{FullName: "CRM Name", Postcode: "CR0 1AA"}, nil
		}

		name, postcode := f.effects().resolveCustomer(context.Background(), "opp-abc123")
		assert.Equal(t, "CRM Name", name)
		assert.Equal(t, "CR0 1AA", postcode)
	})

	t.Run("everything failing synthesizes a placeholder from the id", func(t *testing.T) {
		f := newEffectsFixture()
		f.surveys.err = errors.New("db locked")
		f.calculators.err = errors.New("db locked")
		f.crm.fetchFunc = func(ctx context.Context, opportunityID string) (*port.OpportunityRecord, error) {
			return nil, errors.New("offline")
		}

		name, postcode := f.effects().resolveCustomer(context.Background(), "opp-abc123")
		assert.Equal(t, "Customer abc123", name)
		assert.Empty(t, postcode)
	})
}

func TestBuildDispatcher(t *testing.T) {
	f := newEffectsFixture()
	d := BuildDispatcher(f.effects(), &testLogger{})

	assert.Len(t, d.ListHandlers(workflow.KindProposalGeneration), 1)
	assert.Len(t, d.ListHandlers(workflow.KindDealClosure), 1)
	assert.Empty(t, d.ListHandlers(workflow.KindSiteSurvey))
}

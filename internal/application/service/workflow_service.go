package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/application/sideeffect"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
	"github.com/jthornton/solar-workflow/internal/domain/payload"
	"github.com/jthornton/solar-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrNotFound is returned when a progress, step or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input before any state mutation
	ErrValidation = errors.New("validation failed")

	// ErrUnresolvedIdentity is returned when the caller's external ID cannot
	// be resolved and no system user is configured
	ErrUnresolvedIdentity = errors.New("unresolved identity")
)

// SideEffectDispatcher is the slice of the side-effect dispatcher the engine
// needs; failures never propagate out of it.
type SideEffectDispatcher interface {
	StepCompleted(ctx context.Context, inv *sideeffect.Invocation) []sideeffect.Diagnostic
}

// WorkflowService is the transition engine for opportunity workflows.
type WorkflowService interface {
	// Start creates a fresh workflow for the opportunity, deleting any
	// existing one. Starting is a destructive reset, not a resume.
	Start(ctx context.Context, userRef, opportunityID string) (*entity.WorkflowProgress, error)

	// GetProgress returns the workflow with its steps.
	GetProgress(ctx context.Context, userRef, opportunityID string) (*entity.WorkflowProgress, error)

	// UpdateStep edits a step out of band. It never moves the current-step
	// pointer and replaces the step data wholesale.
	UpdateStep(ctx context.Context, userRef, opportunityID string, stepNumber int, status string, data payload.Payload) (*entity.WorkflowProgress, error)

	// CompleteStep marks a step completed, runs the side-effect dispatcher
	// and advances the pointer. Side-effect failures never fail the call.
	CompleteStep(ctx context.Context, userRef, opportunityID string, stepNumber int, data payload.Payload) (*entity.WorkflowProgress, error)

	// UpdateProgressStatus pauses, resumes or cancels a workflow.
	UpdateProgressStatus(ctx context.Context, userRef, opportunityID, status string) (*entity.WorkflowProgress, error)

	// Reset deletes the workflow and starts a fresh one.
	Reset(ctx context.Context, userRef, opportunityID string) (*entity.WorkflowProgress, error)

	// ClearAll deletes every workflow owned by the resolved user.
	ClearAll(ctx context.Context, userRef string) error

	// ListStepTemplates returns the static workflow definition.
	ListStepTemplates() []workflow.StepTemplate

	// ListUserWorkflows returns the workflows owned by the resolved user,
	// without step hydration.
	ListUserWorkflows(ctx context.Context, userRef string) ([]*entity.WorkflowProgress, error)
}

type workflowServiceImpl struct {
	progressRepo port.ProgressRepository
	stepRepo     port.StepRepository
	users        port.UserDirectory
	surveys      port.SurveyRepository
	txManager    port.TransactionManager
	dispatcher   SideEffectDispatcher
	systemUserID int64
	logger       Logger
}

// ServiceOption configures the workflow service
type ServiceOption func(*workflowServiceImpl)

// WithSystemUser sets the internal user the engine falls back to when a
// caller's external ID cannot be resolved. Without it, unresolved callers
// get ErrUnresolvedIdentity.
func WithSystemUser(id int64) ServiceOption {
	return func(s *workflowServiceImpl) {
		s.systemUserID = id
	}
}

// NewWorkflowService creates the transition engine.
func NewWorkflowService(
	progressRepo port.ProgressRepository,
	stepRepo port.StepRepository,
	users port.UserDirectory,
	surveys port.SurveyRepository,
	txManager port.TransactionManager,
	dispatcher SideEffectDispatcher,
	logger Logger,
	opts ...ServiceOption,
) WorkflowService {
	s := &workflowServiceImpl{
		progressRepo: progressRepo,
		stepRepo:     stepRepo,
		users:        users,
		surveys:      surveys,
		txManager:    txManager,
		dispatcher:   dispatcher,
		logger:       logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start creates a fresh workflow for the opportunity.
func (s *workflowServiceImpl) Start(ctx context.Context, userRef, opportunityID string) (*entity.WorkflowProgress, error) {
	if opportunityID == "" {
		return nil, fmt.Errorf("%w: opportunity id is required", ErrValidation)
	}

	user, err := s.resolveUser(ctx, userRef)
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.progressRepo.GetByOpportunityID(txCtx, opportunityID)
		if err != nil {
			return fmt.Errorf("lookup existing progress: %w", err)
		}
		if existing != nil {
			if err := s.deleteProgress(txCtx, existing); err != nil {
				return err
			}
		}
		return s.createFresh(txCtx, user, opportunityID)
	})

	if err != nil {
		// Two concurrent starts can both pass the existence check; the loser
		// hits the unique constraint and adopts the winner's record.
		if errors.Is(err, port.ErrDuplicate) {
			s.logger.Info("Concurrent start detected, returning existing workflow",
				"opportunity_id", opportunityID)
			winner, fetchErr := s.progressRepo.GetWithSteps(ctx, opportunityID)
			if fetchErr == nil && winner != nil {
				return winner, nil
			}
		}
		s.logger.Error("Failed to start workflow", "error", err, "opportunity_id", opportunityID)
		return nil, err
	}

	s.logger.Info("Workflow started", "opportunity_id", opportunityID, "user_id", user.ID)
	return s.progressRepo.GetWithSteps(ctx, opportunityID)
}

// GetProgress returns the workflow with its steps.
func (s *workflowServiceImpl) GetProgress(ctx context.Context, userRef, opportunityID string) (*entity.WorkflowProgress, error) {
	if _, err := s.resolveUser(ctx, userRef); err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.GetWithSteps(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: workflow for opportunity %s", ErrNotFound, opportunityID)
	}
	return progress, nil
}

// UpdateStep edits a step out of band.
func (s *workflowServiceImpl) UpdateStep(ctx context.Context, userRef, opportunityID string, stepNumber int, status string, data payload.Payload) (*entity.WorkflowProgress, error) {
	if !entity.ValidStepStatus(status) {
		return nil, fmt.Errorf("%w: unknown step status %q", ErrValidation, status)
	}

	if _, err := s.resolveUser(ctx, userRef); err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.GetByOpportunityID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: workflow for opportunity %s", ErrNotFound, opportunityID)
	}

	step, err := s.stepRepo.GetByProgressAndNumber(ctx, progress.ID, stepNumber)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, fmt.Errorf("%w: step %d for opportunity %s", ErrNotFound, stepNumber, opportunityID)
	}

	raw, err := data.JSON()
	if err != nil {
		return nil, fmt.Errorf("%w: step data not serializable: %v", ErrValidation, err)
	}

	now := time.Now()
	step.Status = status
	step.Data = raw
	if status == entity.StepStatusInProgress && step.StartedAt == nil {
		step.StartedAt = &now
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.stepRepo.Update(txCtx, step); err != nil {
			return fmt.Errorf("update step: %w", err)
		}
		return s.progressRepo.TouchActivity(txCtx, progress.ID, now)
	})
	if err != nil {
		s.logger.Error("Failed to update step", "error", err,
			"opportunity_id", opportunityID, "step_number", stepNumber)
		return nil, err
	}

	return s.progressRepo.GetWithSteps(ctx, opportunityID)
}

// CompleteStep marks a step completed, dispatches side effects and advances
// the pointer.
func (s *workflowServiceImpl) CompleteStep(ctx context.Context, userRef, opportunityID string, stepNumber int, data payload.Payload) (*entity.WorkflowProgress, error) {
	if stepNumber < 1 || stepNumber > workflow.TotalSteps() {
		return nil, fmt.Errorf("%w: step number %d outside defined range 1..%d",
			ErrValidation, stepNumber, workflow.TotalSteps())
	}

	// Outcome values are validated before any state mutation.
	if workflow.IsTerminalStep(stepNumber) && data.Has(sideeffect.KeyOutcome) {
		if _, err := workflow.NormalizeOutcome(data.GetString(sideeffect.KeyOutcome)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	user, err := s.resolveUser(ctx, userRef)
	if err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.GetByOpportunityID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: workflow for opportunity %s", ErrNotFound, opportunityID)
	}

	raw, err := data.JSON()
	if err != nil {
		return nil, fmt.Errorf("%w: step data not serializable: %v", ErrValidation, err)
	}

	now := time.Now()

	step, err := s.stepRepo.GetByProgressAndNumber(ctx, progress.ID, stepNumber)
	if err != nil {
		return nil, err
	}
	if step == nil {
		// Workflow predates this step in the definition; create the row on
		// the fly and catch the step count up.
		step = s.lazyStep(progress.ID, stepNumber)
		if err := s.stepRepo.Create(ctx, step); err != nil {
			return nil, fmt.Errorf("create missing step: %w", err)
		}
		if progress.TotalSteps < workflow.TotalSteps() {
			progress.TotalSteps = workflow.TotalSteps()
		}
		s.logger.Info("Created missing step for legacy workflow",
			"opportunity_id", opportunityID, "step_number", stepNumber)
	}

	s.checkSurveyStatus(ctx, opportunityID, step)

	step.Status = entity.StepStatusCompleted
	step.Data = raw
	step.CompletedAt = &now
	if step.StartedAt == nil {
		step.StartedAt = &now
	}

	if err := s.stepRepo.Update(ctx, step); err != nil {
		s.logger.Error("Failed to complete step", "error", err,
			"opportunity_id", opportunityID, "step_number", stepNumber)
		return nil, err
	}

	// Side effects run after the step is recorded and before the pointer
	// advances. Their failures are diagnostics, never errors.
	diags := s.dispatcher.StepCompleted(ctx, &sideeffect.Invocation{
		Progress: progress,
		Step:     step,
		Data:     data,
		User:     user,
	})
	for _, diag := range diags {
		if diag.Failed() {
			s.logger.Warn("Side effect failed after step completion",
				"opportunity_id", opportunityID,
				"step_number", stepNumber,
				"substep", diag.Substep,
				"error", diag.Err,
			)
		}
	}

	next := stepNumber + 1
	if next > progress.TotalSteps {
		progress.CurrentStep = progress.TotalSteps
		progress.Status = entity.ProgressStatusCompleted
		progress.CompletedAt = &now
	} else {
		progress.CurrentStep = next
	}
	progress.LastActivityAt = now

	if err := s.progressRepo.Update(ctx, progress); err != nil {
		s.logger.Error("Failed to advance workflow", "error", err, "opportunity_id", opportunityID)
		return nil, err
	}

	s.logger.Info("Step completed",
		"opportunity_id", opportunityID,
		"step_number", stepNumber,
		"current_step", progress.CurrentStep,
		"status", progress.Status,
	)

	return s.progressRepo.GetWithSteps(ctx, opportunityID)
}

// UpdateProgressStatus pauses, resumes or cancels a workflow.
func (s *workflowServiceImpl) UpdateProgressStatus(ctx context.Context, userRef, opportunityID, status string) (*entity.WorkflowProgress, error) {
	if !entity.ValidProgressStatus(status) {
		return nil, fmt.Errorf("%w: unknown progress status %q", ErrValidation, status)
	}

	if _, err := s.resolveUser(ctx, userRef); err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.GetByOpportunityID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("%w: workflow for opportunity %s", ErrNotFound, opportunityID)
	}

	if err := workflow.ValidateTransition(progress.Status, status); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := time.Now()
	progress.Status = status
	progress.LastActivityAt = now
	if status == entity.ProgressStatusCompleted {
		progress.CompletedAt = &now
	}

	if err := s.progressRepo.Update(ctx, progress); err != nil {
		s.logger.Error("Failed to update workflow status", "error", err,
			"opportunity_id", opportunityID, "status", status)
		return nil, err
	}

	s.logger.Info("Workflow status updated", "opportunity_id", opportunityID, "status", status)
	return s.progressRepo.GetWithSteps(ctx, opportunityID)
}

// Reset deletes the workflow and starts a fresh one.
func (s *workflowServiceImpl) Reset(ctx context.Context, userRef, opportunityID string) (*entity.WorkflowProgress, error) {
	if _, err := s.resolveUser(ctx, userRef); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.progressRepo.GetByOpportunityID(txCtx, opportunityID)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
		return s.deleteProgress(txCtx, existing)
	})
	if err != nil {
		s.logger.Error("Failed to reset workflow", "error", err, "opportunity_id", opportunityID)
		return nil, err
	}

	return s.Start(ctx, userRef, opportunityID)
}

// ClearAll deletes every workflow owned by the resolved user.
func (s *workflowServiceImpl) ClearAll(ctx context.Context, userRef string) error {
	user, err := s.resolveUser(ctx, userRef)
	if err != nil {
		return err
	}

	workflows, err := s.progressRepo.ListByUserID(ctx, user.ID)
	if err != nil {
		return err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, p := range workflows {
			if err := s.deleteProgress(txCtx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to clear workflows", "error", err, "user_id", user.ID)
		return err
	}

	s.logger.Info("Cleared workflows", "user_id", user.ID, "count", len(workflows))
	return nil
}

// ListStepTemplates returns the static workflow definition.
func (s *workflowServiceImpl) ListStepTemplates() []workflow.StepTemplate {
	return workflow.Templates()
}

// ListUserWorkflows returns the workflows owned by the resolved user.
func (s *workflowServiceImpl) ListUserWorkflows(ctx context.Context, userRef string) ([]*entity.WorkflowProgress, error) {
	user, err := s.resolveUser(ctx, userRef)
	if err != nil {
		return nil, err
	}
	return s.progressRepo.ListByUserID(ctx, user.ID)
}

// resolveUser maps the caller's external ID to an internal user. When the
// directory has no match, the configured system user is used so workflows
// stay creatable during identity-propagation gaps; with no system user
// configured the caller gets ErrUnresolvedIdentity.
func (s *workflowServiceImpl) resolveUser(ctx context.Context, userRef string) (*entity.User, error) {
	if userRef != "" {
		user, err := s.users.ResolveByExternalID(ctx, userRef)
		if err != nil {
			s.logger.Warn("User directory lookup failed", "error", err, "user_ref", userRef)
		} else if user != nil {
			return user, nil
		}
	}

	if s.systemUserID > 0 {
		user, err := s.users.GetByID(ctx, s.systemUserID)
		if err == nil && user != nil {
			s.logger.Info("Falling back to system user", "user_ref", userRef, "system_user_id", user.ID)
			return user, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnresolvedIdentity, userRef)
}

// createFresh inserts a new progress with one step per template. Step 1
// starts IN_PROGRESS, the rest PENDING.
func (s *workflowServiceImpl) createFresh(ctx context.Context, user *entity.User, opportunityID string) error {
	now := time.Now()
	progress := &entity.WorkflowProgress{
		OpportunityID:  opportunityID,
		UserID:         user.ID,
		CurrentStep:    1,
		TotalSteps:     workflow.TotalSteps(),
		Status:         entity.ProgressStatusInProgress,
		StartedAt:      now,
		LastActivityAt: now,
	}

	if err := s.progressRepo.Create(ctx, progress); err != nil {
		return err
	}

	templates := workflow.Templates()
	steps := make([]*entity.WorkflowStep, 0, len(templates))
	for _, tpl := range templates {
		step := &entity.WorkflowStep{
			ProgressID: progress.ID,
			StepNumber: tpl.StepNumber,
			StepKind:   tpl.Kind.String(),
			Status:     entity.StepStatusPending,
		}
		if tpl.StepNumber == 1 {
			step.Status = entity.StepStatusInProgress
			started := now
			step.StartedAt = &started
		}
		steps = append(steps, step)
	}

	if err := s.stepRepo.CreateBatch(ctx, steps); err != nil {
		return fmt.Errorf("create steps: %w", err)
	}
	return nil
}

// deleteProgress removes a workflow, steps first.
func (s *workflowServiceImpl) deleteProgress(ctx context.Context, progress *entity.WorkflowProgress) error {
	if err := s.stepRepo.DeleteByProgressID(ctx, progress.ID); err != nil {
		return fmt.Errorf("delete steps: %w", err)
	}
	if err := s.progressRepo.Delete(ctx, progress.ID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// lazyStep builds a step row for a number the workflow was started without.
func (s *workflowServiceImpl) lazyStep(progressID int64, stepNumber int) *entity.WorkflowStep {
	kind := "CUSTOM"
	if tpl, ok := workflow.TemplateByNumber(stepNumber); ok {
		kind = tpl.Kind.String()
	}
	return &entity.WorkflowStep{
		ProgressID: progressID,
		StepNumber: stepNumber,
		StepKind:   kind,
		Status:     entity.StepStatusPending,
	}
}

// checkSurveyStatus warns when the site-survey step completes without a
// submitted survey sub-record. Best effort only; never blocks completion.
func (s *workflowServiceImpl) checkSurveyStatus(ctx context.Context, opportunityID string, step *entity.WorkflowStep) {
	if workflow.StepKind(step.StepKind) != workflow.KindSiteSurvey {
		return
	}

	survey, err := s.surveys.GetByOpportunityID(ctx, opportunityID)
	if err != nil {
		s.logger.Warn("Survey lookup failed during step completion",
			"opportunity_id", opportunityID, "error", err)
		return
	}
	if survey == nil || !survey.IsSubmitted() {
		status := "missing"
		if survey != nil {
			status = survey.Status
		}
		s.logger.Warn("Site-survey step completed without a submitted survey",
			"opportunity_id", opportunityID, "survey_status", status)
	}
}

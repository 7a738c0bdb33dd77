package port

import (
	"context"
	"errors"
	"time"

	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

// ErrDuplicate is returned by Create operations when a uniqueness constraint
// is violated (for example two concurrent starts for the same opportunity).
var ErrDuplicate = errors.New("duplicate record")

// ProgressRepository defines persistence operations for WorkflowProgress
type ProgressRepository interface {
	Create(ctx context.Context, progress *entity.WorkflowProgress) error
	GetByID(ctx context.Context, id int64) (*entity.WorkflowProgress, error)

	// GetByOpportunityID returns the progress without steps, or nil when absent.
	GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.WorkflowProgress, error)

	// GetWithSteps returns the progress with its steps ordered by step number,
	// or nil when absent.
	GetWithSteps(ctx context.Context, opportunityID string) (*entity.WorkflowProgress, error)

	Update(ctx context.Context, progress *entity.WorkflowProgress) error
	TouchActivity(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ListByUserID(ctx context.Context, userID int64) ([]*entity.WorkflowProgress, error)
	ListAllWithSteps(ctx context.Context) ([]*entity.WorkflowProgress, error)
}

// StepRepository defines persistence operations for WorkflowStep
type StepRepository interface {
	Create(ctx context.Context, step *entity.WorkflowStep) error
	CreateBatch(ctx context.Context, steps []*entity.WorkflowStep) error
	GetByProgressAndNumber(ctx context.Context, progressID int64, stepNumber int) (*entity.WorkflowStep, error)
	GetByProgressID(ctx context.Context, progressID int64) ([]*entity.WorkflowStep, error)
	Update(ctx context.Context, step *entity.WorkflowStep) error
	DeleteByProgressID(ctx context.Context, progressID int64) error
}

// UserDirectory resolves caller identities to internal user records
type UserDirectory interface {
	// ResolveByExternalID returns nil when no user carries the external ID.
	ResolveByExternalID(ctx context.Context, externalID string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// SurveyRepository reads the on-site survey sub-record for an opportunity
type SurveyRepository interface {
	GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.SurveyRecord, error)
}

// CalculatorRepository reads the energy-calculation sub-record for an opportunity
type CalculatorRepository interface {
	GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.CalculatorRecord, error)
}

// OutcomeRecorder persists the terminal won/lost/abandoned classification
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, outcome *entity.OpportunityOutcome) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

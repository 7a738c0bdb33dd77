package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
)

type mockCalculatorRepo struct {
	getFunc func(ctx context.Context, opportunityID string) (*entity.CalculatorRecord, error)
}

func (m *mockCalculatorRepo) GetByOpportunityID(ctx context.Context, opportunityID string) (*entity.CalculatorRecord, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, opportunityID)
	}
	return nil, nil
}

type mockCRMClient struct {
	fetchFunc  func(ctx context.Context, opportunityID string) (*port.OpportunityRecord, error)
	fetchCalls int
}

func (m *mockCRMClient) FetchOpportunity(ctx context.Context, opportunityID string) (*port.OpportunityRecord, error) {
	m.fetchCalls++
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, opportunityID)
	}
	return nil, nil
}

func (m *mockCRMClient) TransitionStage(ctx context.Context, opportunityID string, targetStage string) error {
	return nil
}

type adminFixture struct {
	progressRepo *mockProgressRepo
	users        *mockUserDirectory
	surveys      *mockSurveyRepo
	calculators  *mockCalculatorRepo
	crm          *mockCRMClient
}

func newAdminFixture() *adminFixture {
	return &adminFixture{
		progressRepo: &mockProgressRepo{},
		users:        &mockUserDirectory{},
		surveys:      &mockSurveyRepo{getFunc: func(ctx context.Context, id string) (*entity.SurveyRecord, error) { return nil, nil }},
		calculators:  &mockCalculatorRepo{},
		crm:          &mockCRMClient{},
	}
}

func (f *adminFixture) service() AdminService {
	return NewAdminService(
		f.progressRepo,
		f.users,
		f.surveys,
		f.calculators,
		f.crm,
		&mockLogger{},
	)
}

func (f *adminFixture) listing(rows ...*entity.WorkflowProgress) {
	f.progressRepo.listAllWithStepsFunc = func(ctx context.Context) ([]*entity.WorkflowProgress, error) {
		return rows, nil
	}
}

func TestAdminService_Waterfall(t *testing.T) {
	t.Run("survey name wins over later sources", func(t *testing.T) {
		f := newAdminFixture()
		f.listing(inProgressWorkflow("opp-abc123", 3))
		f.surveys.getFunc = func(ctx context.Context, id string) (*entity.SurveyRecord, error) {
			return &entity.SurveyRecord{CustomerName: "Survey Name", Address: "1 High St", Postcode: "S1 1AA"}, nil
		}
		f.calculators.getFunc = func(ctx context.Context, id string) (*entity.CalculatorRecord, error) {
			return &entity.CalculatorRecord{CustomerName: "Calc Name", Postcode: "C1 1AA"}, nil
		}

		rows, err := f.service().ListAllWorkflowsForAdmin(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)

		assert.Equal(t, "Survey Name", rows[0].CustomerName)
		assert.Equal(t, "1 High St", rows[0].CustomerAddress)
		assert.Equal(t, "S1 1AA", rows[0].CustomerPostcode)
		assert.Zero(t, f.crm.fetchCalls, "CRM is not consulted when a local source has a name")
	})

	t.Run("later sources fill gaps without overriding the first name", func(t *testing.T) {
		f := newAdminFixture()
		f.listing(inProgressWorkflow("opp-abc123", 3))
		f.surveys.getFunc = func(ctx context.Context, id string) (*entity.SurveyRecord, error) {
			return &entity.SurveyRecord{CustomerName: "Survey Name"}, nil
		}
		f.calculators.getFunc = func(ctx context.Context, id string) (*entity.CalculatorRecord, error) {
			return &entity.CalculatorRecord{CustomerName: "Calc Name", Postcode: "C1 1AA"}, nil
		}

		rows, err := f.service().ListAllWorkflowsForAdmin(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Survey Name", rows[0].CustomerName)
		assert.Equal(t, "C1 1AA", rows[0].CustomerPostcode)
	})

	t.Run("step payloads are scanned when no sub-record has customer data", func(t *testing.T) {
		f := newAdminFixture()
		progress := inProgressWorkflow("opp-abc123", 3)
		progress.Steps = []*entity.WorkflowStep{
			{StepNumber: 1, Data: `{"notes":"spoke to customer"}`},
			{StepNumber: 2, Data: `{"customer_name":"Payload Name","customer_postcode":"P1 1AA"}`},
		}
		f.listing(progress)

		rows, err := f.service().ListAllWorkflowsForAdmin(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Payload Name", rows[0].CustomerName)
		assert.Equal(t, "P1 1AA", rows[0].CustomerPostcode)
	})

	t.Run("CRM is the last resolver before the placeholder", func(t *testing.T) {
		f := newAdminFixture()
		f.listing(inProgressWorkflow("opp-abc123", 3))
		f.crm.fetchFunc = func(ctx context.Context, id string) (*port.OpportunityRecord, error) {
			return &port.OpportunityRecord{FirstName: "Ada", LastName: "Okafor", Postcode: "CR0 1AA"}, nil
		}

		rows, err := f.service().ListAllWorkflowsForAdmin(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "Ada Okafor", rows[0].CustomerName)
		assert.Equal(t, "CR0 1AA", rows[0].CustomerPostcode)
	})

	t.Run("every source failing degrades to a placeholder, not an error", func(t *testing.T) {
		f := newAdminFixture()
		f.listing(inProgressWorkflow("opp-abc123", 3))
		f.surveys.getFunc = func(ctx context.Context, id string) (*entity.SurveyRecord, error) {
			return nil, errors.New("db locked")
		}
		f.calculators.getFunc = func(ctx context.Context, id string) (*entity.CalculatorRecord, error) {
			return nil, errors.New("db locked")
		}
		f.crm.fetchFunc = func(ctx context.Context, id string) (*port.OpportunityRecord, error) {
			return nil, errors.New("offline")
		}

		rows, err := f.service().ListAllWorkflowsForAdmin(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Customer abc123", rows[0].CustomerName)
	})

	t.Run("owner name comes from the user directory", func(t *testing.T) {
		f := newAdminFixture()
		f.listing(inProgressWorkflow("opp-abc123", 3))
		f.users.getByIDFunc = func(ctx context.Context, id int64) (*entity.User, error) {
			return &entity.User{ID: id, Name: "Jess Thornton"}, nil
		}

		rows, err := f.service().ListAllWorkflowsForAdmin(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Jess Thornton", rows[0].OwnerName)
	})
}

func TestCRMCustomerName(t *testing.T) {
	tests := []struct {
		name string
		opp  port.OpportunityRecord
		want string
	}{
		{name: "first and last name", opp: port.OpportunityRecord{FirstName: "Ada", LastName: "Okafor"}, want: "Ada Okafor"},
		{name: "first name only", opp: port.OpportunityRecord{FirstName: "Ada"}, want: "Ada"},
		{name: "full name", opp: port.OpportunityRecord{FullName: "Ada Okafor"}, want: "Ada Okafor"},
		{name: "title", opp: port.OpportunityRecord{Title: "Okafor residence - 4kW"}, want: "Okafor residence - 4kW"},
		{name: "email local part", opp: port.OpportunityRecord{Email: "ada.okafor@example.com"}, want: "ada okafor"},
		{name: "company", opp: port.OpportunityRecord{CompanyName: "Okafor Ltd"}, want: "Okafor Ltd"},
		{name: "phone as last resort", opp: port.OpportunityRecord{Phone: "07700 900123"}, want: "07700 900123"},
		{name: "nothing usable", opp: port.OpportunityRecord{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, crmCustomerName(&tt.opp))
		})
	}
}

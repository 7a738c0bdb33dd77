package service

import (
	"context"
	"strings"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
	"github.com/jthornton/solar-workflow/internal/domain/payload"
)

// EnrichedProgress is a workflow listing row decorated with customer display
// data for the admin view. It is read-only and non-authoritative.
type EnrichedProgress struct {
	*entity.WorkflowProgress

	CustomerName     string `json:"customer_name"`
	CustomerAddress  string `json:"customer_address,omitempty"`
	CustomerPostcode string `json:"customer_postcode,omitempty"`
	OwnerName        string `json:"owner_name,omitempty"`
}

// AdminService provides the cross-source admin aggregation view.
type AdminService interface {
	// ListAllWorkflowsForAdmin loads every workflow with steps and resolves
	// customer display data. Enrichment failures degrade individual rows to
	// a placeholder name; they never fail the listing.
	ListAllWorkflowsForAdmin(ctx context.Context) ([]*EnrichedProgress, error)
}

// customerInfo is the partial display data one resolver source can yield.
type customerInfo struct {
	Name     string
	Address  string
	Postcode string
}

// customerResolver extracts customer display data from one source. A nil
// result means the source has nothing for this workflow.
type customerResolver func(ctx context.Context, progress *entity.WorkflowProgress) *customerInfo

type adminServiceImpl struct {
	progressRepo port.ProgressRepository
	users        port.UserDirectory
	surveys      port.SurveyRepository
	calculators  port.CalculatorRepository
	crm          port.CRMClient
	resolvers    []customerResolver
	logger       Logger
}

// NewAdminService creates the admin aggregation view.
func NewAdminService(
	progressRepo port.ProgressRepository,
	users port.UserDirectory,
	surveys port.SurveyRepository,
	calculators port.CalculatorRepository,
	crm port.CRMClient,
	logger Logger,
) AdminService {
	s := &adminServiceImpl{
		progressRepo: progressRepo,
		users:        users,
		surveys:      surveys,
		calculators:  calculators,
		crm:          crm,
		logger:       logger,
	}

	// Ordered waterfall: survey, then calculator, then the workflow's own
	// payload. First non-empty name wins but later sources still fill in
	// address and postcode gaps. The CRM is consulted only when none of
	// these yields a name.
	s.resolvers = []customerResolver{
		s.resolveFromSurvey,
		s.resolveFromCalculator,
		s.resolveFromPayload,
	}

	return s
}

// ListAllWorkflowsForAdmin loads every workflow and resolves display data.
func (s *adminServiceImpl) ListAllWorkflowsForAdmin(ctx context.Context) ([]*EnrichedProgress, error) {
	workflows, err := s.progressRepo.ListAllWithSteps(ctx)
	if err != nil {
		return nil, err
	}

	enriched := make([]*EnrichedProgress, 0, len(workflows))
	for _, progress := range workflows {
		enriched = append(enriched, s.enrich(ctx, progress))
	}
	return enriched, nil
}

// enrich runs the resolver chain for one workflow.
func (s *adminServiceImpl) enrich(ctx context.Context, progress *entity.WorkflowProgress) *EnrichedProgress {
	row := &EnrichedProgress{WorkflowProgress: progress}

	var merged customerInfo
	for _, resolve := range s.resolvers {
		info := resolve(ctx, progress)
		if info == nil {
			continue
		}
		if merged.Name == "" {
			merged.Name = info.Name
		}
		if merged.Address == "" {
			merged.Address = info.Address
		}
		if merged.Postcode == "" {
			merged.Postcode = info.Postcode
		}
	}

	if merged.Name == "" {
		if info := s.resolveFromCRM(ctx, progress); info != nil {
			merged.Name = info.Name
			if merged.Address == "" {
				merged.Address = info.Address
			}
			if merged.Postcode == "" {
				merged.Postcode = info.Postcode
			}
		}
	}

	if merged.Name == "" {
		merged.Name = "Customer " + lastSix(progress.OpportunityID)
	}

	row.CustomerName = merged.Name
	row.CustomerAddress = merged.Address
	row.CustomerPostcode = merged.Postcode

	if user, err := s.users.GetByID(ctx, progress.UserID); err == nil && user != nil {
		row.OwnerName = user.Name
	}

	return row
}

func (s *adminServiceImpl) resolveFromSurvey(ctx context.Context, progress *entity.WorkflowProgress) *customerInfo {
	survey, err := s.surveys.GetByOpportunityID(ctx, progress.OpportunityID)
	if err != nil {
		s.logger.Warn("Survey lookup failed for admin view",
			"opportunity_id", progress.OpportunityID, "error", err)
		return nil
	}
	if survey == nil {
		return nil
	}
	return &customerInfo{
		Name:     survey.CustomerName,
		Address:  survey.Address,
		Postcode: survey.Postcode,
	}
}

func (s *adminServiceImpl) resolveFromCalculator(ctx context.Context, progress *entity.WorkflowProgress) *customerInfo {
	calc, err := s.calculators.GetByOpportunityID(ctx, progress.OpportunityID)
	if err != nil {
		s.logger.Warn("Calculator lookup failed for admin view",
			"opportunity_id", progress.OpportunityID, "error", err)
		return nil
	}
	if calc == nil {
		return nil
	}
	return &customerInfo{
		Name:     calc.CustomerName,
		Postcode: calc.Postcode,
	}
}

// resolveFromPayload scans the progress-level data bag and then each step
// payload for customer fields callers may have written along the way.
func (s *adminServiceImpl) resolveFromPayload(_ context.Context, progress *entity.WorkflowProgress) *customerInfo {
	var merged customerInfo

	scan := func(raw string) {
		p, err := payload.FromJSON(raw)
		if err != nil {
			return
		}
		if merged.Name == "" {
			merged.Name = p.GetString("customer_name")
		}
		if merged.Address == "" {
			merged.Address = p.GetString("customer_address")
		}
		if merged.Postcode == "" {
			merged.Postcode = p.GetString("customer_postcode")
		}
	}

	scan(progress.StepData)
	for _, step := range progress.Steps {
		scan(step.Data)
	}

	if merged == (customerInfo{}) {
		return nil
	}
	return &merged
}

// resolveFromCRM fetches the opportunity once and extracts a name through its
// own waterfall.
func (s *adminServiceImpl) resolveFromCRM(ctx context.Context, progress *entity.WorkflowProgress) *customerInfo {
	opp, err := s.crm.FetchOpportunity(ctx, progress.OpportunityID)
	if err != nil {
		s.logger.Warn("CRM lookup failed for admin view",
			"opportunity_id", progress.OpportunityID, "error", err)
		return nil
	}
	if opp == nil {
		return nil
	}
	return &customerInfo{
		Name:     crmCustomerName(opp),
		Address:  opp.Address,
		Postcode: opp.Postcode,
	}
}

// crmCustomerName extracts a display name from an opportunity record:
// first+last, combined name, opportunity title, email local part, company
// name, then phone number. Empty when nothing usable exists.
func crmCustomerName(opp *port.OpportunityRecord) string {
	first := strings.TrimSpace(opp.FirstName)
	last := strings.TrimSpace(opp.LastName)
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}

	if name := strings.TrimSpace(opp.FullName); name != "" {
		return name
	}
	if title := strings.TrimSpace(opp.Title); title != "" {
		return title
	}

	if email := strings.TrimSpace(opp.Email); email != "" {
		if at := strings.Index(email, "@"); at > 0 {
			local := email[:at]
			local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
			if local = strings.TrimSpace(local); local != "" {
				return local
			}
		}
	}

	if company := strings.TrimSpace(opp.CompanyName); company != "" {
		return company
	}
	if phone := strings.TrimSpace(opp.Phone); phone != "" {
		return phone
	}

	return ""
}

// lastSix returns the last six characters of an identifier.
func lastSix(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

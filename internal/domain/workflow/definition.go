package workflow

// StepKind identifies the business purpose of a workflow step.
type StepKind string

const (
	KindInitialContact       StepKind = "INITIAL_CONTACT"
	KindSiteSurvey           StepKind = "SITE_SURVEY"
	KindSurveyReview         StepKind = "SURVEY_REVIEW"
	KindSystemDesign         StepKind = "SYSTEM_DESIGN"
	KindEnergyCalculation    StepKind = "ENERGY_CALCULATION"
	KindProposalGeneration   StepKind = "PROPOSAL_GENERATION"
	KindProposalPresentation StepKind = "PROPOSAL_PRESENTATION"
	KindContractPreparation  StepKind = "CONTRACT_PREPARATION"
	KindContractSigning      StepKind = "CONTRACT_SIGNING"
	KindDepositInvoice       StepKind = "DEPOSIT_INVOICE"
	KindInstallationBooking  StepKind = "INSTALLATION_BOOKING"
	KindDealClosure          StepKind = "DEAL_CLOSURE"
)

// String returns the string representation of the step kind.
func (k StepKind) String() string {
	return string(k)
}

// StepTemplate is the static definition of one stage in the sales process.
type StepTemplate struct {
	StepNumber       int      `json:"step_number"`
	Kind             StepKind `json:"kind"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Required         bool     `json:"required"`
	EstimatedMinutes int      `json:"estimated_minutes"`
}

// definition is the ordered catalog of step templates. Step numbers are
// contiguous starting at 1; the last entry is the terminal step and the only
// one whose completion payload may carry an outcome.
var definition = []StepTemplate{
	{StepNumber: 1, Kind: KindInitialContact, Title: "Initial Contact", Description: "Qualify the lead and capture contact details", Required: true, EstimatedMinutes: 30},
	{StepNumber: 2, Kind: KindSiteSurvey, Title: "Site Survey", Description: "On-site roof and electrical survey", Required: true, EstimatedMinutes: 120},
	{StepNumber: 3, Kind: KindSurveyReview, Title: "Survey Review", Description: "Review survey findings and shading analysis", Required: true, EstimatedMinutes: 45},
	{StepNumber: 4, Kind: KindSystemDesign, Title: "System Design", Description: "Design panel layout, inverter and battery selection", Required: true, EstimatedMinutes: 90},
	{StepNumber: 5, Kind: KindEnergyCalculation, Title: "Energy Calculation", Description: "Generation and payback calculation", Required: true, EstimatedMinutes: 30},
	{StepNumber: 6, Kind: KindProposalGeneration, Title: "Proposal Generation", Description: "Generate the customer proposal documents", Required: true, EstimatedMinutes: 45},
	{StepNumber: 7, Kind: KindProposalPresentation, Title: "Proposal Presentation", Description: "Present the proposal to the customer", Required: true, EstimatedMinutes: 60},
	{StepNumber: 8, Kind: KindContractPreparation, Title: "Contract Preparation", Description: "Prepare contract and booking confirmation", Required: true, EstimatedMinutes: 30},
	{StepNumber: 9, Kind: KindContractSigning, Title: "Contract Signing", Description: "Customer signs the contract", Required: true, EstimatedMinutes: 30},
	{StepNumber: 10, Kind: KindDepositInvoice, Title: "Deposit Invoice", Description: "Raise and send the deposit invoice", Required: true, EstimatedMinutes: 15},
	{StepNumber: 11, Kind: KindInstallationBooking, Title: "Installation Booking", Description: "Book the installation date", Required: true, EstimatedMinutes: 20},
	{StepNumber: 12, Kind: KindDealClosure, Title: "Deal Closure", Description: "Record the final outcome for the opportunity", Required: true, EstimatedMinutes: 15},
}

// Templates returns a copy of the step template catalog in order.
func Templates() []StepTemplate {
	out := make([]StepTemplate, len(definition))
	copy(out, definition)
	return out
}

// TotalSteps returns the number of steps in the current definition.
func TotalSteps() int {
	return len(definition)
}

// TemplateByNumber returns the template for a step number, or false when the
// number is outside the current definition.
func TemplateByNumber(number int) (StepTemplate, bool) {
	if number < 1 || number > len(definition) {
		return StepTemplate{}, false
	}
	return definition[number-1], true
}

// TerminalStep returns the last step template in the definition.
func TerminalStep() StepTemplate {
	return definition[len(definition)-1]
}

// IsTerminalStep reports whether the step number is the last in the definition.
func IsTerminalStep(number int) bool {
	return number == len(definition)
}

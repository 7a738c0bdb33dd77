package port

import "context"

// OpportunityRecord represents an opportunity fetched from the CRM
type OpportunityRecord struct {
	ID            string
	Title         string
	Stage         string
	FirstName     string
	LastName      string
	FullName      string
	CompanyName   string
	Email         string
	Phone         string
	Address       string
	Postcode      string
	MonetaryValue float64
}

// CRMClient defines the operations consumed from the CRM system
type CRMClient interface {
	// FetchOpportunity returns nil when the CRM has no record for the ID.
	FetchOpportunity(ctx context.Context, opportunityID string) (*OpportunityRecord, error)

	// TransitionStage moves the opportunity's pipeline stage.
	TransitionStage(ctx context.Context, opportunityID string, targetStage string) error
}

// SubmissionArtifact is a completed e-signature submission for an opportunity
type SubmissionArtifact struct {
	SubmissionID string
	TemplateName string
	DocumentURL  string
	SignedAt     int64
}

// ESignClient fetches completed signed-submission artifacts
type ESignClient interface {
	FetchCompletedSubmissions(ctx context.Context, opportunityID string) ([]SubmissionArtifact, error)
}

// ArchiveRequest names a set of files to copy into a per-customer,
// per-outcome folder in the document archive.
type ArchiveRequest struct {
	OpportunityID string
	CustomerName  string
	Postcode      string

	// OutcomeBucket is the archive top-level bucket, e.g. "quotations",
	// "won", "lost/quotations".
	OutcomeBucket string

	// FileRefs are source paths or URLs of the documents to copy.
	FileRefs []string

	// Notes are sidecar identifiers written alongside the files, e.g.
	// e-signature submission IDs.
	Notes []string
}

// DocumentArchiver copies named document sets into the archive. Copying the
// same file twice must be safe.
type DocumentArchiver interface {
	CopyDocuments(ctx context.Context, req ArchiveRequest) error
}

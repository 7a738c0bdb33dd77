package sideeffect

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jthornton/solar-workflow/internal/application/port"
	"github.com/jthornton/solar-workflow/internal/domain/entity"
	"github.com/jthornton/solar-workflow/internal/domain/workflow"
)

// Payload keys read by the side-effect handlers.
const (
	KeyOutcome             = "outcome"
	KeyValue               = "value"
	KeyNotes               = "notes"
	KeyProposalFiles       = "proposal_files"
	KeyContractFiles       = "contract_files"
	KeyContractSubmission  = "contract_submission_id"
	KeyBookingConfirmation = "booking_confirmation_id"
)

// Archive buckets.
const (
	BucketQuotations     = "quotations"
	BucketWon            = "won"
	BucketLostQuotations = "lost/quotations"
)

// Substep names surfaced in diagnostics.
const (
	SubstepRecordOutcome    = "record_outcome"
	SubstepCRMStage         = "crm_stage_transition"
	SubstepArchiveProposal  = "archive_proposal_documents"
	SubstepArchiveWon       = "archive_won_bundle"
	SubstepArchiveLost      = "archive_lost_bundle"
	SubstepFetchSubmissions = "fetch_esign_submissions"
	SubstepCleanup          = "cleanup_working_files"
)

// Effects implements the business side effects triggered by step completions.
// Every collaborator call is best-effort; failures become diagnostics.
type Effects struct {
	outcomes    port.OutcomeRecorder
	crm         port.CRMClient
	esign       port.ESignClient
	archiver    port.DocumentArchiver
	surveys     port.SurveyRepository
	calculators port.CalculatorRepository
	cleaner     port.WorkingFileCleaner
	signedStage string
	logger      Logger
}

// NewEffects creates the side-effect implementations. signedStage is the CRM
// pipeline stage an opportunity moves to when won.
func NewEffects(
	outcomes port.OutcomeRecorder,
	crm port.CRMClient,
	esign port.ESignClient,
	archiver port.DocumentArchiver,
	surveys port.SurveyRepository,
	calculators port.CalculatorRepository,
	cleaner port.WorkingFileCleaner,
	signedStage string,
	logger Logger,
) *Effects {
	return &Effects{
		outcomes:    outcomes,
		crm:         crm,
		esign:       esign,
		archiver:    archiver,
		surveys:     surveys,
		calculators: calculators,
		cleaner:     cleaner,
		signedStage: signedStage,
		logger:      logger,
	}
}

// BuildDispatcher wires the effects into a dispatcher keyed by step kind.
func BuildDispatcher(effects *Effects, logger Logger) *Dispatcher {
	d := NewDispatcher(WithLogger(logger))
	d.Register(workflow.KindProposalGeneration, "archive-proposal", effects.ProposalGenerated)
	d.Register(workflow.KindDealClosure, "deal-closure-fanout", effects.DealClosed)
	return d
}

// ProposalGenerated copies generated proposal documents into the customer's
// quotations folder, bundled with any survey images for the opportunity.
func (e *Effects) ProposalGenerated(ctx context.Context, inv *Invocation) []Diagnostic {
	refs := inv.Data.GetStringSlice(KeyProposalFiles)
	if len(refs) == 0 {
		return nil
	}

	name, postcode := e.resolveCustomer(ctx, inv.Progress.OpportunityID)
	refs = append(refs, e.surveyImages(ctx, inv.Progress.OpportunityID)...)

	err := e.archiver.CopyDocuments(ctx, port.ArchiveRequest{
		OpportunityID: inv.Progress.OpportunityID,
		CustomerName:  name,
		Postcode:      postcode,
		OutcomeBucket: BucketQuotations,
		FileRefs:      refs,
	})

	return []Diagnostic{{Substep: SubstepArchiveProposal, Err: err}}
}

// DealClosed records the terminal outcome and fans out to the CRM, the
// document archive and the working-file cleanup. The outcome record comes
// first; the CRM stage change and the archive copy depend only on it and run
// concurrently; cleanup runs last.
func (e *Effects) DealClosed(ctx context.Context, inv *Invocation) []Diagnostic {
	raw := inv.Data.GetString(KeyOutcome)
	if raw == "" {
		return nil
	}

	outcome, err := workflow.NormalizeOutcome(raw)
	if err != nil {
		return []Diagnostic{{Substep: SubstepRecordOutcome, Err: err}}
	}

	notes := inv.Data.GetString(KeyNotes)
	if notes == "" {
		notes = fmt.Sprintf("Outcome recorded at step %d (%s)", inv.Step.StepNumber, inv.Step.StepKind)
	}

	var userID int64
	if inv.User != nil {
		userID = inv.User.ID
	}

	diags := []Diagnostic{{
		Substep: SubstepRecordOutcome,
		Err: e.outcomes.RecordOutcome(ctx, &entity.OpportunityOutcome{
			OpportunityID: inv.Progress.OpportunityID,
			UserID:        userID,
			Outcome:       outcome,
			Value:         inv.Data.GetFloat(KeyValue),
			Notes:         notes,
		}),
	}}

	switch outcome {
	case entity.OutcomeWon:
		diags = append(diags, e.wonFanout(ctx, inv)...)
		diags = append(diags, e.cleanup(ctx, inv.Progress.OpportunityID))
	case entity.OutcomeLost:
		diags = append(diags, e.archiveLostBundle(ctx, inv))
		diags = append(diags, e.cleanup(ctx, inv.Progress.OpportunityID))
	}

	return diags
}

// wonFanout runs the CRM stage transition and the won-bundle archival
// concurrently; neither depends on the other.
func (e *Effects) wonFanout(ctx context.Context, inv *Invocation) []Diagnostic {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		diags []Diagnostic
	)

	add := func(ds ...Diagnostic) {
		mu.Lock()
		diags = append(diags, ds...)
		mu.Unlock()
	}

	wg.Add(2)

	go func() {
		defer wg.Done()
		add(Diagnostic{
			Substep: SubstepCRMStage,
			Err:     e.crm.TransitionStage(ctx, inv.Progress.OpportunityID, e.signedStage),
		})
	}()

	go func() {
		defer wg.Done()
		add(e.archiveWonBundle(ctx, inv)...)
	}()

	wg.Wait()
	return diags
}

// archiveWonBundle copies the full won-opportunity document set: proposal and
// unsigned contract files, completed e-signature submissions, plus the
// contract and booking-confirmation submission identifiers as sidecar notes.
func (e *Effects) archiveWonBundle(ctx context.Context, inv *Invocation) []Diagnostic {
	refs := inv.Data.GetStringSlice(KeyProposalFiles)
	refs = append(refs, inv.Data.GetStringSlice(KeyContractFiles)...)

	var notes []string
	if id := inv.Data.GetString(KeyContractSubmission); id != "" {
		notes = append(notes, "contract_submission:"+id)
	}
	if id := inv.Data.GetString(KeyBookingConfirmation); id != "" {
		notes = append(notes, "booking_confirmation:"+id)
	}

	var diags []Diagnostic

	submissions, err := e.esign.FetchCompletedSubmissions(ctx, inv.Progress.OpportunityID)
	diags = append(diags, Diagnostic{Substep: SubstepFetchSubmissions, Err: err})
	for _, sub := range submissions {
		if sub.DocumentURL != "" {
			refs = append(refs, sub.DocumentURL)
		}
		notes = append(notes, "submission:"+sub.SubmissionID)
	}

	name, postcode := e.resolveCustomer(ctx, inv.Progress.OpportunityID)
	diags = append(diags, Diagnostic{
		Substep: SubstepArchiveWon,
		Err: e.archiver.CopyDocuments(ctx, port.ArchiveRequest{
			OpportunityID: inv.Progress.OpportunityID,
			CustomerName:  name,
			Postcode:      postcode,
			OutcomeBucket: BucketWon,
			FileRefs:      refs,
			Notes:         notes,
		}),
	})

	return diags
}

// archiveLostBundle copies whatever documents exist for a lost opportunity
// (proposal, calculator export, survey export) into the lost quotations
// bucket keyed by customer name and postcode.
func (e *Effects) archiveLostBundle(ctx context.Context, inv *Invocation) Diagnostic {
	refs := inv.Data.GetStringSlice(KeyProposalFiles)

	if calc, err := e.calculators.GetByOpportunityID(ctx, inv.Progress.OpportunityID); err == nil && calc != nil && calc.ExportPath != "" {
		refs = append(refs, calc.ExportPath)
	}
	if survey, err := e.surveys.GetByOpportunityID(ctx, inv.Progress.OpportunityID); err == nil && survey != nil && survey.ExportPath != "" {
		refs = append(refs, survey.ExportPath)
	}

	name, postcode := e.resolveCustomer(ctx, inv.Progress.OpportunityID)

	return Diagnostic{
		Substep: SubstepArchiveLost,
		Err: e.archiver.CopyDocuments(ctx, port.ArchiveRequest{
			OpportunityID: inv.Progress.OpportunityID,
			CustomerName:  name,
			Postcode:      postcode,
			OutcomeBucket: BucketLostQuotations,
			FileRefs:      refs,
		}),
	}
}

func (e *Effects) cleanup(ctx context.Context, opportunityID string) Diagnostic {
	removed, err := e.cleaner.CleanupGenerated(ctx, opportunityID)
	if err == nil && e.logger != nil && removed > 0 {
		e.logger.Info("Removed transient generated files",
			"opportunity_id", opportunityID,
			"removed", removed,
		)
	}
	return Diagnostic{Substep: SubstepCleanup, Err: err}
}

// resolveCustomer finds a display name and postcode for archive folder
// naming: survey first, then calculator, then the CRM, then a synthesized
// placeholder. Lookup errors just move on to the next source.
func (e *Effects) resolveCustomer(ctx context.Context, opportunityID string) (name, postcode string) {
	if survey, err := e.surveys.GetByOpportunityID(ctx, opportunityID); err == nil && survey != nil {
		if survey.CustomerName != "" {
			return survey.CustomerName, survey.Postcode
		}
		postcode = survey.Postcode
	}

	if calc, err := e.calculators.GetByOpportunityID(ctx, opportunityID); err == nil && calc != nil {
		if calc.CustomerName != "" {
			if postcode == "" {
				postcode = calc.Postcode
			}
			return calc.CustomerName, postcode
		}
		if postcode == "" {
			postcode = calc.Postcode
		}
	}

	if opp, err := e.crm.FetchOpportunity(ctx, opportunityID); err == nil && opp != nil {
		if opp.FullName != "" {
			if postcode == "" {
				postcode = opp.Postcode
			}
			return opp.FullName, postcode
		}
		if postcode == "" {
			postcode = opp.Postcode
		}
	}

	return "Customer " + lastSix(opportunityID), postcode
}

// surveyImages returns the survey image paths recorded for an opportunity.
func (e *Effects) surveyImages(ctx context.Context, opportunityID string) []string {
	survey, err := e.surveys.GetByOpportunityID(ctx, opportunityID)
	if err != nil || survey == nil || survey.ImagePaths == "" {
		return nil
	}

	var paths []string
	if err := json.Unmarshal([]byte(survey.ImagePaths), &paths); err != nil {
		if e.logger != nil {
			e.logger.Warn("Unreadable survey image list",
				"opportunity_id", opportunityID,
				"error", err,
			)
		}
		return nil
	}
	return paths
}

// lastSix returns the last six characters of an identifier.
func lastSix(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

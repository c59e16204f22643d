package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"agencycrm/internal/models"
)

// Stage names the business rules key off. The catalog stores the same
// labels; drift between the two silently disables a rule, so intake seeds
// must use these constants.
const (
	StageQuotingInProgress = "Quoting in Progress"
	StageQuoteEmailed      = "Quote Has Been Emailed"
	StageCompleted         = "Completed"
	StageDidNotBind        = "Did Not Bind"
	StageCompletedSame     = "Completed (Same)"
	StageCompletedSwitch   = "Completed (Switch)"
	StageCancelled         = "Cancelled"
)

const xDateLeadDays = 60

// LeadStore is what the engine needs from the lead record store.
type LeadStore interface {
	GetByID(id string) (*models.Lead, error)
	ApplyTransition(leadID, stageID string, metadata models.Metadata, resetReminder bool) error
}

// StageCatalog resolves stage and pipeline reference data.
type StageCatalog interface {
	GetStage(id string) (*models.PipelineStage, error)
	GetPipeline(id string) (*models.Pipeline, error)
}

// CSRDirectory resolves CSR accounts for notifications.
type CSRDirectory interface {
	GetByID(id string) (*models.User, error)
}

// EmailLogStore records sent notifications.
type EmailLogStore interface {
	Insert(entry *models.EmailLog) error
}

type TransitionRequest struct {
	LeadID         string          `json:"leadId"`
	TargetStageID  string          `json:"targetStageId"`
	MetadataUpdate models.Metadata `json:"metadataUpdate"`
}

// TransitionService validates and executes pipeline stage moves. All
// validation runs before the single commit; a rejection leaves the lead
// untouched.
type TransitionService struct {
	Leads  LeadStore
	Stages StageCatalog

	// post-commit notification collaborators, all optional
	Email EmailService
	Users CSRDirectory
	Logs  EmailLogStore

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewTransitionService(leads LeadStore, stages StageCatalog) *TransitionService {
	return &TransitionService{Leads: leads, Stages: stages, Now: time.Now}
}

// Execute moves a lead into the target stage. On success the lead's stage
// pointer and merged metadata are persisted atomically; any validation
// failure returns before the write with the lead unmodified.
func (s *TransitionService) Execute(req TransitionRequest) error {
	lead, err := s.Leads.GetByID(req.LeadID)
	if err != nil {
		return fmt.Errorf("fetch lead: %w", err)
	}
	if lead == nil {
		return ErrLeadNotFound
	}

	stage, err := s.Stages.GetStage(req.TargetStageID)
	if err != nil {
		return fmt.Errorf("fetch stage: %w", err)
	}
	if stage == nil {
		return ErrStageNotFound
	}
	if stage.PipelineID != lead.PipelineID {
		return newValidationError("Selected stage does not belong to this lead's pipeline")
	}

	pipeline, err := s.Stages.GetPipeline(stage.PipelineID)
	if err != nil {
		return fmt.Errorf("fetch pipeline: %w", err)
	}
	if pipeline == nil {
		return fmt.Errorf("pipeline %s missing from catalog", stage.PipelineID)
	}

	merged := lead.StageMetadata.Merge(req.MetadataUpdate)
	stageName := strings.TrimSpace(stage.StageName)

	if missing := MissingFields(stage.MandatoryFields, merged); len(missing) > 0 {
		return &ValidationError{
			Message:       "Missing required checklist fields",
			MissingFields: missing,
		}
	}

	if err := s.checkTargetCompletionDate(req.MetadataUpdate); err != nil {
		return err
	}

	if err := checkStageRules(stageName, pipeline, merged); err != nil {
		return err
	}

	if err := applyXDate(stageName, pipeline, lead, merged); err != nil {
		return err
	}

	// Only the literal commercial "Completed" stage re-arms the renewal
	// reminder sweep. "Completed (Same)" / "Completed (Switch)" do not.
	resetReminder := stageName == StageCompleted

	if err := s.Leads.ApplyTransition(lead.ID, stage.ID, merged, resetReminder); err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"lead_id": lead.ID,
		"stage":   stageName,
	}).Info("pipeline stage updated")

	// Notification failures never roll back a committed transition.
	s.notifyStageChange(lead, stageName)

	return nil
}

// checkTargetCompletionDate rejects backdated commitments. Only the
// incoming update is checked; a completion date already on file was
// validated when it was first supplied.
func (s *TransitionService) checkTargetCompletionDate(update models.Metadata) error {
	if !update.Has("target_completion_date") {
		return nil
	}
	raw, ok := update["target_completion_date"].(string)
	if !ok {
		return newValidationError("Target completion date must be a date")
	}
	selected, err := models.ParseDate(raw)
	if err != nil {
		return newValidationError("Target completion date must be a valid date (YYYY-MM-DD)")
	}
	today := models.DateOf(s.now())
	if selected.Before(today) {
		return newValidationError("Backdated target completion date is not allowed")
	}
	return nil
}

// checkStageRules holds the per-stage semantic gates, independent of the
// generic checklist.
func checkStageRules(stageName string, pipeline *models.Pipeline, merged models.Metadata) error {
	switch stageName {
	case StageQuoteEmailed:
		// The flag may come from prior stage metadata or the incoming
		// update; merged covers both.
		if !merged.Bool("email_sent") {
			return newValidationError("Initial email must be sent before moving to this stage")
		}
	case StageQuotingInProgress:
		// Commercial new business only; commercial renewal pipelines never
		// collect this flag and would be permanently blocked by the gate.
		if pipeline.IsCommercial() && !pipeline.IsRenewal {
			if !merged.Bool("required_documents_received") {
				return newValidationError("You must receive all required documents before proceeding")
			}
		}
	}
	return nil
}

// applyXDate writes the derived x_date into merged metadata when a
// commercial lead enters a terminal stage. An x_date already present is
// left alone, which keeps replaying the same transition a no-op.
func applyXDate(stageName string, pipeline *models.Pipeline, lead *models.Lead, merged models.Metadata) error {
	if !pipeline.IsCommercial() {
		return nil
	}

	if pipeline.IsRenewal {
		switch stageName {
		case StageCompletedSame, StageCompletedSwitch, StageCancelled:
		default:
			return nil
		}
		if merged.Has("x_date") {
			return nil
		}
		// Renewals must have a renewal date on file; contrast with the
		// new-business path below, which tolerates a missing source date.
		if lead.RenewalDate == nil || lead.RenewalDate.IsZero() {
			return newValidationError("Renewal Date is missing. Cannot calculate X-Date.")
		}
		merged["x_date"] = lead.RenewalDate.AddDays(-xDateLeadDays).String()
		return nil
	}

	switch stageName {
	case StageCompleted, StageDidNotBind:
	default:
		return nil
	}
	if merged.Has("x_date") {
		return nil
	}

	effective, ok := effectiveDate(lead, merged)
	if !ok {
		// No effective date from the record or the update: x_date is
		// simply omitted.
		return nil
	}
	renewal := effective.AddYears(1)
	merged["x_date"] = renewal.AddDays(-xDateLeadDays).String()
	return nil
}

// effectiveDate prefers the lead record's effective_date and falls back to
// one supplied in the same update.
func effectiveDate(lead *models.Lead, merged models.Metadata) (models.Date, bool) {
	if lead.EffectiveDate != nil && !lead.EffectiveDate.IsZero() {
		return *lead.EffectiveDate, true
	}
	return merged.Date("effective_date")
}

func (s *TransitionService) notifyStageChange(lead *models.Lead, stageName string) {
	if s.Email == nil || s.Users == nil || lead.AssignedCSR == "" {
		return
	}
	csr, err := s.Users.GetByID(lead.AssignedCSR)
	if err != nil || csr == nil || csr.Email == "" {
		logrus.WithField("lead_id", lead.ID).Warn("stage notification skipped: CSR not resolvable")
		return
	}

	subject := fmt.Sprintf("Pipeline update: %s is now in %q", lead.ClientName, stageName)
	body := fmt.Sprintf(`
		<p>The lead <strong>%s</strong> moved to stage <strong>%s</strong>.</p>
		<p>Open the dashboard to review the updated checklist.</p>
	`, lead.ClientName, stageName)

	status := "sent"
	if err := s.Email.Send([]string{csr.Email}, subject, body); err != nil {
		status = "failed"
		logrus.WithError(err).WithField("lead_id", lead.ID).
			Warn("stage notification email failed")
	}
	if s.Logs != nil {
		if err := s.Logs.Insert(&models.EmailLog{
			LeadID:  lead.ID,
			ToEmail: csr.Email,
			Subject: subject,
			Status:  status,
		}); err != nil {
			logrus.WithError(err).WithField("lead_id", lead.ID).
				Warn("failed to record email log")
		}
	}
}

func (s *TransitionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

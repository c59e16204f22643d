package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencycrm/internal/models"
)

// --- in-memory fakes ---

type fakeLeadStore struct {
	leads   map[string]*models.Lead
	applied int
	failOn  error
}

func (f *fakeLeadStore) GetByID(id string) (*models.Lead, error) {
	return f.leads[id], nil
}

func (f *fakeLeadStore) ApplyTransition(leadID, stageID string, metadata models.Metadata, resetReminder bool) error {
	if f.failOn != nil {
		return f.failOn
	}
	lead, ok := f.leads[leadID]
	if !ok {
		return errors.New("no such lead")
	}
	lead.CurrentStageID = stageID
	lead.StageMetadata = metadata
	if resetReminder {
		lead.ReminderSent = false
	}
	f.applied++
	return nil
}

type fakeCatalog struct {
	stages    map[string]*models.PipelineStage
	pipelines map[string]*models.Pipeline
}

func (f *fakeCatalog) GetStage(id string) (*models.PipelineStage, error) {
	return f.stages[id], nil
}

func (f *fakeCatalog) GetPipeline(id string) (*models.Pipeline, error) {
	return f.pipelines[id], nil
}

type fakeDirectory struct {
	users map[string]*models.User
}

func (f *fakeDirectory) GetByID(id string) (*models.User, error) {
	return f.users[id], nil
}

type fakeEmailer struct {
	sent []string
	err  error
}

func (f *fakeEmailer) Send(to []string, subject, htmlBody string) error {
	f.sent = append(f.sent, subject)
	return f.err
}

type fakeEmailLogs struct {
	entries []*models.EmailLog
}

func (f *fakeEmailLogs) Insert(entry *models.EmailLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

// --- fixtures ---

const (
	pipeCommercialNew     = "pipe-com-new"
	pipeCommercialRenewal = "pipe-com-ren"
	pipePersonal          = "pipe-personal"
)

func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
}

func newCatalog() *fakeCatalog {
	return &fakeCatalog{
		stages:    map[string]*models.PipelineStage{},
		pipelines: map[string]*models.Pipeline{
			pipeCommercialNew: {
				ID:       pipeCommercialNew,
				Name:     "Commercial Lines",
				Category: models.CategoryCommercial,
			},
			pipeCommercialRenewal: {
				ID:        pipeCommercialRenewal,
				Name:      "Commercial Renewals",
				Category:  models.CategoryCommercial,
				IsRenewal: true,
			},
			pipePersonal: {
				ID:       pipePersonal,
				Name:     "Personal Lines",
				Category: models.CategoryPersonal,
			},
		},
	}
}

func (f *fakeCatalog) addStage(id, pipelineID, name string, rawSpec string) *models.PipelineStage {
	stage := &models.PipelineStage{ID: id, PipelineID: pipelineID, StageName: name}
	if rawSpec != "" {
		if err := stage.MandatoryFields.UnmarshalJSON([]byte(rawSpec)); err != nil {
			panic(err)
		}
	}
	f.stages[id] = stage
	return stage
}

func newService(leads *fakeLeadStore, catalog *fakeCatalog) *TransitionService {
	svc := NewTransitionService(leads, catalog)
	svc.Now = fixedNow
	return svc
}

func commercialLead(id string) *models.Lead {
	return &models.Lead{
		ID:                id,
		ClientName:        "Acme Logistics",
		Email:             "ops@acme.example",
		InsuranceCategory: models.CategoryCommercial,
		PolicyFlow:        models.FlowNew,
		PipelineID:        pipeCommercialNew,
		CurrentStageID:    "stage-initial",
		StageMetadata:     models.Metadata{},
	}
}

// --- checklist and atomicity ---

func TestTransitionRejectedWhenChecklistIncomplete(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-bind", pipeCommercialNew, "Binding",
		`{"policy_number":{"required":true},"bound_premium":{"required":true}}`)

	lead := commercialLead("lead-1")
	lead.StageMetadata = models.Metadata{"carrier_name": "Hartford"}
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{
		LeadID:         "lead-1",
		TargetStageID:  "stage-bind",
		MetadataUpdate: models.Metadata{"policy_number": "CPP-100"},
	})

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"bound_premium"}, ve.MissingFields)

	// rejected transition leaves the lead untouched
	assert.Zero(t, leads.applied)
	assert.Equal(t, "stage-initial", lead.CurrentStageID)
	assert.Equal(t, models.Metadata{"carrier_name": "Hartford"}, lead.StageMetadata)
}

func TestChecklistSatisfiedAcrossStoredAndIncomingMetadata(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-bind", pipeCommercialNew, "Binding",
		`["policy_number","bound_premium"]`)

	lead := commercialLead("lead-1")
	lead.StageMetadata = models.Metadata{"policy_number": "CPP-100"}
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{
		LeadID:         "lead-1",
		TargetStageID:  "stage-bind",
		MetadataUpdate: models.Metadata{"bound_premium": 12500.0},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, leads.applied)
	assert.Equal(t, "stage-bind", lead.CurrentStageID)
	// merged metadata keeps prior keys
	assert.Equal(t, "CPP-100", lead.StageMetadata.String("policy_number"))
	assert.Equal(t, 12500.0, lead.StageMetadata["bound_premium"])
}

func TestStoreFailureSurfacesAsWrappedError(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-open", pipeCommercialNew, "Open", "")

	boom := errors.New("connection reset")
	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}, failOn: boom}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-open"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	_, isValidation := AsValidationError(err)
	assert.False(t, isValidation)
}

// --- reference lookups ---

func TestUnknownLeadAndStage(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-open", pipeCommercialNew, "Open", "")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": commercialLead("lead-1")}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{LeadID: "ghost", TargetStageID: "stage-open"})
	assert.ErrorIs(t, err, ErrLeadNotFound)

	err = svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "ghost"})
	assert.ErrorIs(t, err, ErrStageNotFound)
}

func TestStageFromAnotherPipelineRejected(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-personal", pipePersonal, "Open", "")
	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-personal"})
	_, ok := AsValidationError(err)
	assert.True(t, ok)
	assert.Zero(t, leads.applied)
}

// --- backdating guard ---

func TestBackdatedTargetCompletionDateRejected(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-open", pipeCommercialNew, "Open", "")
	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	cases := []struct {
		date string
		ok   bool
	}{
		{"2025-03-09", false}, // yesterday
		{"2025-03-10", true},  // today
		{"2025-03-11", true},  // tomorrow
	}
	for _, tc := range cases {
		err := svc.Execute(TransitionRequest{
			LeadID:         "lead-1",
			TargetStageID:  "stage-open",
			MetadataUpdate: models.Metadata{"target_completion_date": tc.date},
		})
		if tc.ok {
			assert.NoError(t, err, tc.date)
		} else {
			_, isValidation := AsValidationError(err)
			assert.True(t, isValidation, tc.date)
		}
	}
}

func TestStoredCompletionDateNotRevalidated(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-open", pipeCommercialNew, "Open", "")

	// A date that was valid when supplied but is in the past now must not
	// block later transitions that do not resubmit it.
	lead := commercialLead("lead-1")
	lead.StageMetadata = models.Metadata{"target_completion_date": "2024-01-05"}
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-open"})
	assert.NoError(t, err)
}

func TestMalformedTargetCompletionDateRejected(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-open", pipeCommercialNew, "Open", "")
	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{
		LeadID:         "lead-1",
		TargetStageID:  "stage-open",
		MetadataUpdate: models.Metadata{"target_completion_date": "next tuesday"},
	})
	_, ok := AsValidationError(err)
	assert.True(t, ok)
}

// --- stage gates ---

func TestQuoteEmailedRequiresEmailSentFlag(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-emailed", pipeCommercialNew, StageQuoteEmailed, "")
	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-emailed"})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Message, "email")

	// the flag may already live in stored metadata from a prior stage
	lead.StageMetadata = models.Metadata{"email_sent": true}
	err = svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-emailed"})
	assert.NoError(t, err)
}

func TestRequiredDocumentsGateCommercialNewOnly(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("quoting-new", pipeCommercialNew, StageQuotingInProgress, "")
	catalog.addStage("quoting-ren", pipeCommercialRenewal, StageQuotingInProgress, "")
	catalog.addStage("quoting-personal", pipePersonal, StageQuotingInProgress, "")

	newLead := commercialLead("lead-new")
	renLead := commercialLead("lead-ren")
	renLead.PipelineID = pipeCommercialRenewal
	renLead.PolicyFlow = models.FlowRenewal
	perLead := commercialLead("lead-per")
	perLead.PipelineID = pipePersonal
	perLead.InsuranceCategory = models.CategoryPersonal

	leads := &fakeLeadStore{leads: map[string]*models.Lead{
		"lead-new": newLead, "lead-ren": renLead, "lead-per": perLead,
	}}
	svc := newService(leads, catalog)

	// commercial new business is blocked without the flag
	err := svc.Execute(TransitionRequest{LeadID: "lead-new", TargetStageID: "quoting-new"})
	_, ok := AsValidationError(err)
	assert.True(t, ok)

	// a non-boolean truthy value does not satisfy the gate
	err = svc.Execute(TransitionRequest{
		LeadID:         "lead-new",
		TargetStageID:  "quoting-new",
		MetadataUpdate: models.Metadata{"required_documents_received": "Yes"},
	})
	_, ok = AsValidationError(err)
	assert.True(t, ok)

	err = svc.Execute(TransitionRequest{
		LeadID:         "lead-new",
		TargetStageID:  "quoting-new",
		MetadataUpdate: models.Metadata{"required_documents_received": true},
	})
	assert.NoError(t, err)

	// renewal and personal pipelines never collect the flag and pass freely
	assert.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-ren", TargetStageID: "quoting-ren"}))
	assert.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-per", TargetStageID: "quoting-personal"}))
}

// --- X-Date derivation ---

func TestXDateNewBusinessFromEffectiveDate(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-done", pipeCommercialNew, StageCompleted, "")

	eff := models.NewDate(2024, time.March, 15)
	lead := commercialLead("lead-1")
	lead.EffectiveDate = &eff
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-done"}))
	assert.Equal(t, "2025-01-14", lead.StageMetadata.String("x_date"))
}

func TestXDateNewBusinessFallsBackToUpdateEffectiveDate(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-dnb", pipeCommercialNew, StageDidNotBind, "")

	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	require.NoError(t, svc.Execute(TransitionRequest{
		LeadID:         "lead-1",
		TargetStageID:  "stage-dnb",
		MetadataUpdate: models.Metadata{"effective_date": "2024-03-15"},
	}))
	assert.Equal(t, "2025-01-14", lead.StageMetadata.String("x_date"))
}

func TestXDateOmittedWhenNoEffectiveDateAnywhere(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-done", pipeCommercialNew, StageCompleted, "")

	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-done"}))
	assert.False(t, lead.StageMetadata.Has("x_date"))
}

func TestXDateRenewalFromRenewalDate(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-same", pipeCommercialRenewal, StageCompletedSame, "")

	ren := models.NewDate(2025, time.June, 1)
	lead := commercialLead("lead-1")
	lead.PipelineID = pipeCommercialRenewal
	lead.PolicyFlow = models.FlowRenewal
	lead.RenewalDate = &ren
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-same"}))
	assert.Equal(t, "2025-04-02", lead.StageMetadata.String("x_date"))
}

func TestXDateRenewalRejectedWithoutRenewalDate(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-cancel", pipeCommercialRenewal, StageCancelled, "")

	lead := commercialLead("lead-1")
	lead.PipelineID = pipeCommercialRenewal
	lead.PolicyFlow = models.FlowRenewal
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	err := svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-cancel"})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "Renewal Date is missing. Cannot calculate X-Date.", ve.Message)
	assert.Zero(t, leads.applied)
}

func TestXDateNotDerivedForPersonalLines(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-done", pipePersonal, StageCompleted, "")

	eff := models.NewDate(2024, time.March, 15)
	lead := commercialLead("lead-1")
	lead.PipelineID = pipePersonal
	lead.InsuranceCategory = models.CategoryPersonal
	lead.EffectiveDate = &eff
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-done"}))
	assert.False(t, lead.StageMetadata.Has("x_date"))
}

func TestExistingXDatePreservedOnReplay(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-done", pipeCommercialNew, StageCompleted, "")

	eff := models.NewDate(2024, time.March, 15)
	lead := commercialLead("lead-1")
	lead.EffectiveDate = &eff
	lead.StageMetadata = models.Metadata{"x_date": "2024-12-01"}
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-done"}))
	assert.Equal(t, "2024-12-01", lead.StageMetadata.String("x_date"))
}

func TestReplayingSameTransitionIsIdempotent(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-done", pipeCommercialNew, StageCompleted, "")

	eff := models.NewDate(2024, time.March, 15)
	lead := commercialLead("lead-1")
	lead.EffectiveDate = &eff
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}
	svc := newService(leads, catalog)

	req := TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-done"}
	require.NoError(t, svc.Execute(req))
	first := lead.StageMetadata.Merge(nil)

	require.NoError(t, svc.Execute(req))
	assert.Equal(t, first, lead.StageMetadata)
	assert.Equal(t, "stage-done", lead.CurrentStageID)
}

// --- reminder flag reset ---

func TestReminderResetOnlyForLiteralCompleted(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-done", pipeCommercialNew, StageCompleted, "")
	catalog.addStage("stage-same", pipeCommercialRenewal, StageCompletedSame, "")
	catalog.addStage("stage-switch", pipeCommercialRenewal, StageCompletedSwitch, "")

	ren := models.NewDate(2025, time.June, 1)
	eff := models.NewDate(2024, time.March, 15)

	done := commercialLead("lead-done")
	done.EffectiveDate = &eff
	done.ReminderSent = true

	same := commercialLead("lead-same")
	same.PipelineID = pipeCommercialRenewal
	same.RenewalDate = &ren
	same.ReminderSent = true

	sw := commercialLead("lead-switch")
	sw.PipelineID = pipeCommercialRenewal
	sw.RenewalDate = &ren
	sw.ReminderSent = true

	leads := &fakeLeadStore{leads: map[string]*models.Lead{
		"lead-done": done, "lead-same": same, "lead-switch": sw,
	}}
	svc := newService(leads, catalog)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-done", TargetStageID: "stage-done"}))
	assert.False(t, done.ReminderSent)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-same", TargetStageID: "stage-same"}))
	assert.True(t, same.ReminderSent)

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-switch", TargetStageID: "stage-switch"}))
	assert.True(t, sw.ReminderSent)
}

// --- post-commit notification ---

func TestNotificationFailureDoesNotUndoTransition(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-open", pipeCommercialNew, "Open", "")

	lead := commercialLead("lead-1")
	lead.AssignedCSR = "csr-1"
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}

	emailer := &fakeEmailer{err: errors.New("smtp down")}
	logs := &fakeEmailLogs{}
	svc := newService(leads, catalog)
	svc.Email = emailer
	svc.Users = &fakeDirectory{users: map[string]*models.User{
		"csr-1": {ID: "csr-1", Name: "Dana", Email: "dana@agency.example"},
	}}
	svc.Logs = logs

	err := svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-open"})
	require.NoError(t, err)
	assert.Equal(t, "stage-open", lead.CurrentStageID)
	assert.Len(t, emailer.sent, 1)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, "failed", logs.entries[0].Status)
	assert.Equal(t, "dana@agency.example", logs.entries[0].ToEmail)
}

func TestNotificationSkippedWithoutAssignedCSR(t *testing.T) {
	catalog := newCatalog()
	catalog.addStage("stage-open", pipeCommercialNew, "Open", "")

	lead := commercialLead("lead-1")
	leads := &fakeLeadStore{leads: map[string]*models.Lead{"lead-1": lead}}

	emailer := &fakeEmailer{}
	svc := newService(leads, catalog)
	svc.Email = emailer
	svc.Users = &fakeDirectory{users: map[string]*models.User{}}

	require.NoError(t, svc.Execute(TransitionRequest{LeadID: "lead-1", TargetStageID: "stage-open"}))
	assert.Empty(t, emailer.sent)
}

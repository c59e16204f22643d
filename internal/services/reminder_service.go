package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"agencycrm/internal/models"
)

// ReminderLeadStore is what the sweep needs from the lead store.
type ReminderLeadStore interface {
	DueForReminder(now time.Time) ([]models.Lead, error)
	MarkReminderSent(leadID string) (bool, error)
}

// SweepResult summarizes one reminder run.
type SweepResult struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
	Errors    int `json:"errors"`
}

// ReminderService finds leads whose follow-up date has passed without a
// reminder and emails the assigned CSR (and the admin mailbox). One bad
// lead never aborts the sweep.
type ReminderService struct {
	Leads ReminderLeadStore
	Users CSRDirectory
	Email EmailService
	Logs  EmailLogStore

	Telegram   *TelegramService
	AdminEmail string
	SiteURL    string

	Now func() time.Time
}

func NewReminderService(leads ReminderLeadStore, users CSRDirectory, email EmailService, logs EmailLogStore) *ReminderService {
	return &ReminderService{Leads: leads, Users: users, Email: email, Logs: logs, Now: time.Now}
}

func (s *ReminderService) Run() (SweepResult, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	leads, err := s.Leads.DueForReminder(now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("fetch due leads: %w", err)
	}
	result := SweepResult{Processed: len(leads)}
	if len(leads) == 0 {
		return result, nil
	}

	logrus.WithField("count", len(leads)).Info("reminder sweep: leads due")

	for i := range leads {
		lead := &leads[i]
		if err := s.remind(lead); err != nil {
			logrus.WithError(err).WithField("lead_id", lead.ID).
				Warn("reminder failed")
			result.Errors++
			continue
		}
		result.Sent++
	}

	s.sendDigest(result)
	return result, nil
}

func (s *ReminderService) remind(lead *models.Lead) error {
	recipients := s.recipients(lead)
	if len(recipients) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	subject := fmt.Sprintf("Action Required: Follow-up Reminder for %s", clientLabel(lead))
	body := fmt.Sprintf(`
		<p>This is an automated reminder.</p>
		<p>The lead <strong>%s</strong> was sent an intake form and requires follow-up.</p>
		<p>Please check the dashboard and contact the client if necessary.</p>
		<p><a href="%s/dashboard/leads/%s">View Lead</a></p>
	`, clientLabel(lead), s.SiteURL, lead.ID)

	if err := s.Email.Send(recipients, subject, body); err != nil {
		return err
	}

	// Guarded update: a concurrent sweep that already claimed this lead
	// makes this a no-op, and we skip the log row.
	changed, err := s.Leads.MarkReminderSent(lead.ID)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if !changed {
		logrus.WithField("lead_id", lead.ID).Info("reminder already claimed by another sweep")
		return nil
	}

	if s.Logs != nil {
		if err := s.Logs.Insert(&models.EmailLog{
			LeadID:  lead.ID,
			ToEmail: strings.Join(recipients, ", "),
			Subject: subject,
			Status:  "sent",
		}); err != nil {
			logrus.WithError(err).WithField("lead_id", lead.ID).
				Warn("failed to record reminder email log")
		}
	}
	return nil
}

// recipients resolves the assigned CSR plus the admin mailbox, deduped.
func (s *ReminderService) recipients(lead *models.Lead) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(addr string) {
		if addr == "" {
			return
		}
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	if lead.AssignedCSR != "" && s.Users != nil {
		csr, err := s.Users.GetByID(lead.AssignedCSR)
		if err != nil || csr == nil {
			logrus.WithField("lead_id", lead.ID).Warn("could not resolve assigned CSR")
		} else {
			add(csr.Email)
		}
	}
	add(s.AdminEmail)
	return out
}

func (s *ReminderService) sendDigest(result SweepResult) {
	if s.Telegram == nil || result.Processed == 0 {
		return
	}
	text := fmt.Sprintf("Reminder sweep: %d due, %d sent, %d errors",
		result.Processed, result.Sent, result.Errors)
	if err := s.Telegram.SendDigest(text); err != nil {
		logrus.WithError(err).Warn("telegram digest failed")
	}
}

func clientLabel(lead *models.Lead) string {
	if lead.ClientName != "" {
		return lead.ClientName
	}
	return "Lead"
}

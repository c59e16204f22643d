package models

import "time"

// Insurance categories and policy flows. A "renewal" is the same Lead
// entity moving through a renewal pipeline.
const (
	CategoryPersonal   = "Personal Lines"
	CategoryCommercial = "Commercial Lines"

	FlowNew     = "new"
	FlowRenewal = "renewal"
)

type Lead struct {
	ID                string  `json:"id"`
	ClientName        string  `json:"client_name"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone,omitempty"`
	PolicyType        string  `json:"policy_type,omitempty"`
	Carrier           string  `json:"carrier,omitempty"`
	PolicyNumber      string  `json:"policy_number,omitempty"`
	TotalPremium      float64 `json:"total_premium,omitempty"`
	InsuranceCategory string  `json:"insurance_category"`
	PolicyFlow        string  `json:"policy_flow"`

	PipelineID     string `json:"pipeline_id"`
	CurrentStageID string `json:"current_stage_id"`

	EffectiveDate *Date `json:"effective_date,omitempty"`
	RenewalDate   *Date `json:"renewal_date,omitempty"`
	FollowUpDate  *Date `json:"follow_up_date,omitempty"`

	StageMetadata Metadata `json:"stage_metadata"`
	ReminderSent  bool     `json:"reminder_sent"`

	AssignedCSR string    `json:"assigned_csr,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

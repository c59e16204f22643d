package models

import "time"

// EmailLog records every notification the system sends for a lead.
type EmailLog struct {
	ID        int64     `json:"id"`
	LeadID    string    `json:"lead_id"`
	ToEmail   string    `json:"to_email"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

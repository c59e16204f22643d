package repositories

import (
	"database/sql"
	"log"
	"time"

	"agencycrm/internal/models"
)

type EmailLogRepository struct {
	db *sql.DB
}

func NewEmailLogRepository(db *sql.DB) *EmailLogRepository {
	if db == nil {
		log.Fatalf("received nil database connection")
	}
	return &EmailLogRepository{db: db}
}

func (r *EmailLogRepository) Insert(entry *models.EmailLog) error {
	const query = `
		INSERT INTO email_logs (lead_id, to_email, subject, status, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(query, entry.LeadID, entry.ToEmail, entry.Subject,
		entry.Status, entry.CreatedAt)
	return err
}

func (r *EmailLogRepository) ListByLead(leadID string, limit int) ([]models.EmailLog, error) {
	const query = `
		SELECT id, lead_id, to_email, subject, status, created_at
		FROM email_logs
		WHERE lead_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(query, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EmailLog
	for rows.Next() {
		var e models.EmailLog
		if err := rows.Scan(&e.ID, &e.LeadID, &e.ToEmail, &e.Subject, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

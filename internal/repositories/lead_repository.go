package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"agencycrm/internal/models"
)

const leadColumns = `
	id, client_name, email, phone, policy_type, carrier, policy_number,
	total_premium, insurance_category, policy_flow, pipeline_id,
	current_stage_id, effective_date, renewal_date, follow_up_date,
	stage_metadata, reminder_sent, assigned_csr, created_at
`

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	if db == nil {
		log.Fatalf("received nil database connection")
	}
	return &LeadRepository{db: db}
}

func scanLead(row interface{ Scan(...any) error }) (*models.Lead, error) {
	lead := &models.Lead{}
	var premium sql.NullFloat64
	var phone, policyType, carrier, policyNumber, assignedCSR sql.NullString
	err := row.Scan(
		&lead.ID, &lead.ClientName, &lead.Email, &phone, &policyType,
		&carrier, &policyNumber, &premium, &lead.InsuranceCategory,
		&lead.PolicyFlow, &lead.PipelineID, &lead.CurrentStageID,
		&lead.EffectiveDate, &lead.RenewalDate, &lead.FollowUpDate,
		&lead.StageMetadata, &lead.ReminderSent, &assignedCSR, &lead.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.Phone = phone.String
	lead.PolicyType = policyType.String
	lead.Carrier = carrier.String
	lead.PolicyNumber = policyNumber.String
	lead.TotalPremium = premium.Float64
	lead.AssignedCSR = assignedCSR.String
	if lead.StageMetadata == nil {
		lead.StageMetadata = models.Metadata{}
	}
	return lead, nil
}

func (r *LeadRepository) Create(lead *models.Lead) error {
	const query = `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err := r.db.Exec(query,
		lead.ID, lead.ClientName, lead.Email, nullStr(lead.Phone),
		nullStr(lead.PolicyType), nullStr(lead.Carrier), nullStr(lead.PolicyNumber),
		lead.TotalPremium, lead.InsuranceCategory, lead.PolicyFlow,
		lead.PipelineID, lead.CurrentStageID, lead.EffectiveDate,
		lead.RenewalDate, lead.FollowUpDate, lead.StageMetadata,
		lead.ReminderSent, nullStr(lead.AssignedCSR), lead.CreatedAt,
	)
	return err
}

func (r *LeadRepository) GetByID(id string) (*models.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE id=$1`
	lead, err := scanLead(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return lead, err
}

// Update writes the directly editable fields. Pipeline placement and
// stage_metadata change only through ApplyTransition.
func (r *LeadRepository) Update(lead *models.Lead) error {
	const query = `
		UPDATE leads
		SET client_name=$1, email=$2, phone=$3, policy_type=$4, carrier=$5,
		    policy_number=$6, total_premium=$7, effective_date=$8,
		    renewal_date=$9, follow_up_date=$10, assigned_csr=$11
		WHERE id=$12
	`
	_, err := r.db.Exec(query,
		lead.ClientName, lead.Email, nullStr(lead.Phone), nullStr(lead.PolicyType),
		nullStr(lead.Carrier), nullStr(lead.PolicyNumber), lead.TotalPremium,
		lead.EffectiveDate, lead.RenewalDate, lead.FollowUpDate,
		nullStr(lead.AssignedCSR), lead.ID,
	)
	return err
}

// ApplyTransition commits a validated stage move in one statement so the
// stage pointer, the merged metadata and the reminder flag can never be
// observed half-written.
func (r *LeadRepository) ApplyTransition(leadID, stageID string, metadata models.Metadata, resetReminder bool) error {
	var res sql.Result
	var err error
	if resetReminder {
		const query = `
			UPDATE leads
			SET current_stage_id=$1, stage_metadata=$2, reminder_sent=false
			WHERE id=$3
		`
		res, err = r.db.Exec(query, stageID, metadata, leadID)
	} else {
		const query = `
			UPDATE leads
			SET current_stage_id=$1, stage_metadata=$2
			WHERE id=$3
		`
		res, err = r.db.Exec(query, stageID, metadata, leadID)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("lead %s disappeared during transition", leadID)
	}
	return nil
}

func (r *LeadRepository) FilterLeads(category, flow, assignedCSR, month string, limit, offset int) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []interface{}{}
	i := 1

	if category != "" {
		query += fmt.Sprintf(" AND insurance_category = $%d", i)
		args = append(args, category)
		i++
	}
	if flow != "" {
		query += fmt.Sprintf(" AND policy_flow = $%d", i)
		args = append(args, flow)
		i++
	}
	if assignedCSR != "" {
		query += fmt.Sprintf(" AND assigned_csr = $%d", i)
		args = append(args, assignedCSR)
		i++
	}
	if month != "" {
		query += fmt.Sprintf(" AND to_char(created_at, 'YYYY-MM') = $%d", i)
		args = append(args, month)
		i++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lead)
	}
	return out, rows.Err()
}

// DueForReminder mirrors the reminder sweep query: follow-up date has
// passed, nothing sent yet, and the intake email actually went out.
func (r *LeadRepository) DueForReminder(now time.Time) ([]models.Lead, error) {
	const query = `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE follow_up_date <= $1
		  AND reminder_sent = false
		  AND stage_metadata @> '{"email_sent": true}'
	`
	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lead)
	}
	return out, rows.Err()
}

// MarkReminderSent flips the flag only if it is still false, so two
// overlapping sweeps cannot both claim the same lead.
func (r *LeadRepository) MarkReminderSent(leadID string) (bool, error) {
	const query = `UPDATE leads SET reminder_sent=true WHERE id=$1 AND reminder_sent=false`
	res, err := r.db.Exec(query, leadID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *LeadRepository) CountLeads() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&count)
	return count, err
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package repositories

import (
	"database/sql"
	"errors"
	"log"

	"agencycrm/internal/models"
)

// StageRepository reads the pipeline/stage catalog. The catalog is
// reference data; there is no write path here.
type StageRepository struct {
	db *sql.DB
}

func NewStageRepository(db *sql.DB) *StageRepository {
	if db == nil {
		log.Fatalf("received nil database connection")
	}
	return &StageRepository{db: db}
}

func (r *StageRepository) GetStage(id string) (*models.PipelineStage, error) {
	const query = `
		SELECT id, pipeline_id, stage_name, stage_order, mandatory_fields
		FROM pipeline_stages
		WHERE id=$1
	`
	stage := &models.PipelineStage{}
	err := r.db.QueryRow(query, id).Scan(
		&stage.ID, &stage.PipelineID, &stage.StageName,
		&stage.StageOrder, &stage.MandatoryFields,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stage, nil
}

func (r *StageRepository) GetPipeline(id string) (*models.Pipeline, error) {
	const query = `SELECT id, name, category, is_renewal FROM pipelines WHERE id=$1`
	p := &models.Pipeline{}
	err := r.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.Category, &p.IsRenewal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *StageRepository) ListPipelines() ([]models.Pipeline, error) {
	const query = `SELECT id, name, category, is_renewal FROM pipelines ORDER BY name`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pipeline
	for rows.Next() {
		var p models.Pipeline
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.IsRenewal); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StageRepository) ListByPipeline(pipelineID string) ([]models.PipelineStage, error) {
	const query = `
		SELECT id, pipeline_id, stage_name, stage_order, mandatory_fields
		FROM pipeline_stages
		WHERE pipeline_id=$1
		ORDER BY stage_order
	`
	rows, err := r.db.Query(query, pipelineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PipelineStage
	for rows.Next() {
		var s models.PipelineStage
		if err := rows.Scan(&s.ID, &s.PipelineID, &s.StageName, &s.StageOrder, &s.MandatoryFields); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FirstStage returns the intake stage (lowest stage_order) of a pipeline.
func (r *StageRepository) FirstStage(pipelineID string) (*models.PipelineStage, error) {
	const query = `
		SELECT id, pipeline_id, stage_name, stage_order, mandatory_fields
		FROM pipeline_stages
		WHERE pipeline_id=$1
		ORDER BY stage_order
		LIMIT 1
	`
	stage := &models.PipelineStage{}
	err := r.db.QueryRow(query, pipelineID).Scan(
		&stage.ID, &stage.PipelineID, &stage.StageName,
		&stage.StageOrder, &stage.MandatoryFields,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return stage, nil
}

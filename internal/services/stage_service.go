package services

import (
	"agencycrm/internal/models"
	"agencycrm/internal/repositories"
)

// StageService serves the catalog to stage pickers.
type StageService struct {
	Repo *repositories.StageRepository
}

func NewStageService(repo *repositories.StageRepository) *StageService {
	return &StageService{Repo: repo}
}

func (s *StageService) ListPipelines() ([]models.Pipeline, error) {
	return s.Repo.ListPipelines()
}

func (s *StageService) GetPipeline(id string) (*models.Pipeline, error) {
	return s.Repo.GetPipeline(id)
}

func (s *StageService) ListStages(pipelineID string) ([]models.PipelineStage, error) {
	return s.Repo.ListByPipeline(pipelineID)
}

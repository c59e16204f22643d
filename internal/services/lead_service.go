package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agencycrm/internal/models"
	"agencycrm/internal/repositories"
)

type LeadService struct {
	Repo   *repositories.LeadRepository
	Stages *repositories.StageRepository
	Logs   *repositories.EmailLogRepository
}

func NewLeadService(leadRepo *repositories.LeadRepository, stageRepo *repositories.StageRepository) *LeadService {
	return &LeadService{Repo: leadRepo, Stages: stageRepo}
}

// Create performs lead intake: assign an id, default the flow, and place
// the lead on the first stage of its pipeline.
func (s *LeadService) Create(lead *models.Lead) error {
	if lead.ClientName == "" {
		return errors.New("client name is required")
	}
	if lead.PipelineID == "" {
		return errors.New("pipeline is required")
	}
	pipeline, err := s.Stages.GetPipeline(lead.PipelineID)
	if err != nil {
		return err
	}
	if pipeline == nil {
		return fmt.Errorf("unknown pipeline %s", lead.PipelineID)
	}

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.PolicyFlow == "" {
		if pipeline.IsRenewal {
			lead.PolicyFlow = models.FlowRenewal
		} else {
			lead.PolicyFlow = models.FlowNew
		}
	}
	if lead.InsuranceCategory == "" {
		if pipeline.IsCommercial() {
			lead.InsuranceCategory = models.CategoryCommercial
		} else {
			lead.InsuranceCategory = models.CategoryPersonal
		}
	}
	if lead.CurrentStageID == "" {
		first, err := s.Stages.FirstStage(lead.PipelineID)
		if err != nil {
			return err
		}
		if first == nil {
			return fmt.Errorf("pipeline %s has no stages", lead.PipelineID)
		}
		lead.CurrentStageID = first.ID
	}
	if lead.StageMetadata == nil {
		lead.StageMetadata = models.Metadata{}
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now()
	}
	return s.Repo.Create(lead)
}

func (s *LeadService) GetByID(id string) (*models.Lead, error) {
	return s.Repo.GetByID(id)
}

// Update edits directly editable fields. Stage placement and metadata are
// off limits here; those go through the transition engine.
func (s *LeadService) Update(lead *models.Lead) error {
	return s.Repo.Update(lead)
}

func (s *LeadService) Filter(category, flow, assignedCSR, month string, limit, offset int) ([]models.Lead, error) {
	return s.Repo.FilterLeads(category, flow, assignedCSR, month, limit, offset)
}

// EmailHistory lists the notifications sent for a lead, newest first.
func (s *LeadService) EmailHistory(leadID string, limit int) ([]models.EmailLog, error) {
	if s.Logs == nil {
		return nil, nil
	}
	return s.Logs.ListByLead(leadID, limit)
}

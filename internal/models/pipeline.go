package models

import "strings"

// Pipeline groups the ordered stage catalog for one line of business.
type Pipeline struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	IsRenewal bool   `json:"is_renewal"`
}

// IsCommercial matches catalog rows whose name or category mentions
// Commercial, the same loose match the dashboards use.
func (p *Pipeline) IsCommercial() bool {
	return strings.Contains(p.Category, "Commercial") || strings.Contains(p.Name, "Commercial")
}

// PipelineStage is an effectively immutable catalog entry.
type PipelineStage struct {
	ID              string    `json:"id"`
	PipelineID      string    `json:"pipeline_id"`
	StageName       string    `json:"stage_name"`
	StageOrder      int       `json:"stage_order"`
	MandatoryFields FieldSpec `json:"mandatory_fields"`
}

package model

import "time"

const ProjectTableName = "projects"
const ProjectFundingSourceTable = "project_funding_sources"
const ProjectPublicationTable = "project_publications"

// Project 项目申请
type Project struct {
	BaseModelWithSoftDelete
	Code        string `gorm:"size:32;not null;uniqueIndex" json:"code"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	Department  string `gorm:"size:255" json:"department"`

	SupervisorName       string     `gorm:"size:255" json:"supervisor_name"`
	SupervisorPosition   string     `gorm:"size:255" json:"supervisor_position"`
	SupervisorEmail      string     `gorm:"size:254" json:"supervisor_email"`
	ApprovedBySupervisor bool       `gorm:"not null;default:false" json:"approved_by_supervisor"`
	SupervisorApprovedAt *time.Time `json:"supervisor_approved_at,omitempty"`

	Status        int8  `gorm:"not null;default:0;index" json:"status"`
	TechLeadID    int64 `gorm:"not null;index" json:"tech_lead_id"`
	InstitutionID int64 `gorm:"not null;index" json:"institution_id"`
	Decision

	TechLead       *User                     `gorm:"foreignKey:TechLeadID" json:"tech_lead,omitempty"`
	Institution    *Institution              `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	FundingSources []FundingSource           `gorm:"many2many:project_funding_sources" json:"funding_sources,omitempty"`
	Publications   []Publication             `gorm:"many2many:project_publications" json:"publications,omitempty"`
	Allocations    []SystemAllocationRequest `gorm:"foreignKey:ProjectID" json:"allocations,omitempty"`
}

func (Project) TableName() string {
	return ProjectTableName
}

// GetStatus 状态机接口
func (p *Project) GetStatus() int8 { return p.Status }

// SetStatus 状态机接口
func (p *Project) SetStatus(s int8) { p.Status = s }

// GetID 状态机接口
func (p *Project) GetID() int64 { return p.ID }

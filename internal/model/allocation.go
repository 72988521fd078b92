package model

import "gorm.io/datatypes"

const AllocationTableName = "system_allocation_requests"

// SystemAllocationRequest 计算资源申请
type SystemAllocationRequest struct {
	BaseModel
	ProjectID   int64          `gorm:"not null;index" json:"project_id"`
	RequestedBy int64          `gorm:"not null;index" json:"requested_by"`
	StartDate   datatypes.Date `gorm:"not null" json:"start_date"`
	EndDate     datatypes.Date `gorm:"not null" json:"end_date"`

	AllocationCPUTime        uint `gorm:"column:allocation_cputime;not null;default:0" json:"allocation_cputime"`
	AllocationMemory         uint `gorm:"not null;default:0" json:"allocation_memory"`
	AllocationStorageHome    uint `gorm:"not null;default:0" json:"allocation_storage_home"`
	AllocationStorageScratch uint `gorm:"not null;default:0" json:"allocation_storage_scratch"`

	RequirementsSoftware   string `gorm:"type:text" json:"requirements_software"`
	RequirementsTraining   string `gorm:"type:text" json:"requirements_training"`
	RequirementsOnboarding string `gorm:"type:text" json:"requirements_onboarding"`

	DocumentPath   *string `gorm:"size:512" json:"document_path,omitempty"`
	DocumentDigest *string `gorm:"size:64" json:"document_digest,omitempty"`

	Status int8 `gorm:"not null;default:0;index" json:"status"`
	Decision

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (SystemAllocationRequest) TableName() string {
	return AllocationTableName
}

func (a *SystemAllocationRequest) GetStatus() int8  { return a.Status }
func (a *SystemAllocationRequest) SetStatus(s int8) { a.Status = s }
func (a *SystemAllocationRequest) GetID() int64     { return a.ID }

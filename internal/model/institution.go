package model

const InstitutionTableName = "institutions"

// Institution 机构及其审批策略
type Institution struct {
	BaseModel
	Name             string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	BaseDomain       string  `gorm:"size:255;not null;uniqueIndex" json:"base_domain"`
	IdentityProvider *string `gorm:"size:255" json:"identity_provider,omitempty"`
	LogoPath         *string `gorm:"size:255" json:"logo_path,omitempty"`

	// 两个策略相互独立
	NeedsFundingApproval       bool `gorm:"not null;default:false" json:"needs_funding_approval"`
	SeparateAllocationRequests bool `gorm:"not null;default:false" json:"separate_allocation_requests"`
}

func (Institution) TableName() string {
	return InstitutionTableName
}

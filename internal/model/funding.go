package model

import "time"

const FundingBodyTableName = "funding_bodies"
const FundingSourceTableName = "funding_sources"
const PublicationTableName = "publications"

// FundingBody 资助机构
type FundingBody struct {
	BaseModel
	Name        string `gorm:"size:128;not null;uniqueIndex" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (FundingBody) TableName() string {
	return FundingBodyTableName
}

// FundingSource 资助来源, 机构要求审批时需由PI或管理员确认
type FundingSource struct {
	BaseModel
	Title         string     `gorm:"size:128;not null" json:"title"`
	Identifier    string     `gorm:"size:128;not null;uniqueIndex" json:"identifier"`
	PIEmail       string     `gorm:"column:pi_email;size:254;not null" json:"pi_email"`
	Amount        uint       `gorm:"not null;default:0" json:"amount"`
	FundingBodyID int64      `gorm:"not null;index" json:"funding_body_id"`
	InstitutionID *int64     `gorm:"index" json:"institution_id,omitempty"`
	CreatedByID   int64      `gorm:"not null;index" json:"created_by_id"`
	Approved      bool       `gorm:"not null;default:false" json:"approved"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`

	FundingBody *FundingBody `gorm:"foreignKey:FundingBodyID" json:"funding_body,omitempty"`
}

func (FundingSource) TableName() string {
	return FundingSourceTableName
}

// Publication 研究成果
type Publication struct {
	BaseModel
	Title       string `gorm:"size:256;not null" json:"title"`
	URL         string `gorm:"column:url;size:512;not null" json:"url"`
	CreatedByID int64  `gorm:"not null;index" json:"created_by_id"`
}

func (Publication) TableName() string {
	return PublicationTableName
}

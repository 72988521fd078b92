package model

// All 参与自动迁移的模型
func All() []interface{} {
	return []interface{}{
		&Institution{},
		&User{},
		&Profile{},
		&RoleGrant{},
		&FundingBody{},
		&FundingSource{},
		&Publication{},
		&Project{},
		&SystemAllocationRequest{},
		&ProjectUserMembership{},
		&UsedApprovalToken{},
		&StatusHistory{},
	}
}

package constants

// 认证类型
const (
	AuthTypeLDAP       = "ldap"
	AuthTypeLocal      = "local"
	AuthTypeShibboleth = "shibboleth"
)

// 状态
const (
	StatusEnabled  int8 = 1
	StatusDisabled int8 = 0
)

// 角色
const (
	RoleSystemAdmin        = "system_admin"
	RoleProjectOwner       = "project_owner"
	RoleAllocationReviewer = "allocation_reviewer"
	RoleFundingApprover    = "funding_approver"
)

// 成员角色
const (
	MemberRoleOwner  = "owner"
	MemberRoleMember = "member"
)

// 审批令牌用途
const (
	TokenPurposeSupervisorApproval = "supervisor_approval"
	TokenPurposeFundingApproval    = "funding_approval"
)

// JWT 相关
const (
	JWTContextKey  = "jwt_user"
	JWTTypeAccess  = "access"
	JWTTypeRefresh = "refresh"
	JWTTypeApprove = "approval"
)

// 上下文中的当前用户
const (
	CurrentUserKey = "current_user"
)

// HTTP Header
const (
	HeaderAuthorization = "Authorization"
	HeaderBearerPrefix  = "Bearer "
	HeaderRemoteUser    = "REMOTE_USER"
)

// DateLayout 申请日期格式
const DateLayout = "2006-01-02"

package constants

import "fmt"

// ProjectStatus 项目状态
const (
	ProjectStatusAwaitingApproval int8 = 0 // 待审批
	ProjectStatusApproved         int8 = 1 // 已通过
	ProjectStatusDeclined         int8 = 2 // 已拒绝
)

// AllocationStatus 资源申请状态, 一旦决定即终态
const (
	AllocationStatusPending  int8 = 0
	AllocationStatusApproved int8 = 1
	AllocationStatusRejected int8 = 2
)

// MembershipStatus 成员关系状态
const (
	MembershipStatusAwaitingAuthorisation int8 = 0
	MembershipStatusAuthorised            int8 = 1
	MembershipStatusDeclined              int8 = 2
	MembershipStatusRevoked               int8 = 3
)

// int8 → string
var projectStatusName = map[int8]string{
	ProjectStatusAwaitingApproval: "Awaiting Approval",
	ProjectStatusApproved:         "Approved",
	ProjectStatusDeclined:         "Declined",
}

var allocationStatusName = map[int8]string{
	AllocationStatusPending:  "Awaiting Approval",
	AllocationStatusApproved: "Approved",
	AllocationStatusRejected: "Rejected",
}

var membershipStatusName = map[int8]string{
	MembershipStatusAwaitingAuthorisation: "Awaiting Authorisation",
	MembershipStatusAuthorised:            "Authorised",
	MembershipStatusDeclined:              "Declined",
	MembershipStatusRevoked:               "Revoked",
}

// ProjectStatusToString int8 → string
func ProjectStatusToString(status int8) string {
	return statusName(projectStatusName, status)
}

// AllocationStatusToString int8 → string
func AllocationStatusToString(status int8) string {
	return statusName(allocationStatusName, status)
}

// MembershipStatusToString int8 → string
func MembershipStatusToString(status int8) string {
	return statusName(membershipStatusName, status)
}

func statusName(names map[int8]string, status int8) string {
	if name, ok := names[status]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", status)
}

// 状态流转事件
const (
	EventProjectApprove    = "approve"
	EventProjectDecline    = "decline"
	EventAllocationApprove = "approve"
	EventAllocationReject  = "reject"
	EventMemberAuthorise   = "authorise"
	EventMemberDecline     = "decline"
	EventMemberRevoke      = "revoke"
	EventMemberRequest     = "request"
	EventSupervisorApprove = "supervisor_approve"
	EventFundingApprove    = "funding_approve"
	EventRoleRevoked       = "role_revoked"
	EventProjectDeleted    = "deleted"
)

// 审计资源类型
const (
	ResourceProject       = "project"
	ResourceAllocation    = "allocation"
	ResourceMembership    = "membership"
	ResourceFundingSource = "funding_source"
	ResourceUser          = "user"
)

package notification

import (
	"fmt"
	"strings"
	"time"
)

// SupervisorApprovalMessage 导师审批邮件
func SupervisorApprovalMessage(supervisorEmail, supervisorName, projectCode, projectTitle, applicant, link string) *NotificationMessage {
	return &NotificationMessage{
		Type:       NotifySupervisorApproval,
		Title:      fmt.Sprintf("Project %s requires your approval", projectCode),
		Recipients: []string{supervisorEmail},
		Timestamp:  time.Now(),
		Content: fmt.Sprintf("Dear %s,\n\n%s has submitted the project \"%s\" (%s) and named you as supervisor.\n\n"+
			"To approve the project, follow the link below:\n%s\n",
			supervisorName, applicant, projectTitle, projectCode, link),
		Extra: map[string]interface{}{"project_code": projectCode},
	}
}

// FundingApprovalMessage PI 确认资助来源
func FundingApprovalMessage(piEmail, identifier, title, link string) *NotificationMessage {
	return &NotificationMessage{
		Type:       NotifyFundingApproval,
		Title:      fmt.Sprintf("Funding source %s requires your approval", identifier),
		Recipients: []string{piEmail},
		Timestamp:  time.Now(),
		Content: fmt.Sprintf("The funding source \"%s\" (%s) was registered with you as principal investigator.\n\n"+
			"To confirm it, follow the link below:\n%s\n", title, identifier, link),
		Extra: map[string]interface{}{"identifier": identifier},
	}
}

// AllocationCreatedMessage 新资源申请, 发给审批人
func AllocationCreatedMessage(reviewers []string, allocationID int64, projectCode, projectTitle string) *NotificationMessage {
	return &NotificationMessage{
		Type:       NotifyAllocationCreated,
		Title:      fmt.Sprintf("New allocation request for %s", projectCode),
		Recipients: reviewers,
		Timestamp:  time.Now(),
		Content: fmt.Sprintf("A new system allocation request (#%d) was submitted for project \"%s\" (%s).",
			allocationID, projectTitle, projectCode),
		Extra: map[string]interface{}{"allocation_id": allocationID, "project_code": projectCode},
	}
}

// AllocationDecidedMessage 资源申请结果
func AllocationDecidedMessage(to string, allocationID int64, projectCode, status, reason string) *NotificationMessage {
	content := fmt.Sprintf("Your allocation request #%d for project %s is now: %s.", allocationID, projectCode, status)
	if reason != "" {
		content += "\n\nReason: " + reason
	}
	return &NotificationMessage{
		Type:       NotifyAllocationDecided,
		Title:      fmt.Sprintf("Allocation request for %s: %s", projectCode, status),
		Recipients: []string{to},
		Timestamp:  time.Now(),
		Content:    content,
		Extra:      map[string]interface{}{"allocation_id": allocationID},
	}
}

// ProjectDecidedMessage 项目申请结果
func ProjectDecidedMessage(to, projectCode, status, reason string) *NotificationMessage {
	content := fmt.Sprintf("Your project %s is now: %s.", projectCode, status)
	if reason != "" {
		content += "\n\nReason: " + reason
	}
	return &NotificationMessage{
		Type:       NotifyProjectDecided,
		Title:      fmt.Sprintf("Project %s: %s", projectCode, status),
		Recipients: []string{to},
		Timestamp:  time.Now(),
		Content:    content,
	}
}

// MembershipRequestMessage 成员申请(发给负责人)或邀请(发给被邀请人)
func MembershipRequestMessage(to, projectCode, who string, invitation bool) *NotificationMessage {
	title := fmt.Sprintf("%s requested to join %s", who, projectCode)
	content := fmt.Sprintf("%s has requested membership of project %s. The request is awaiting your authorisation.", who, projectCode)
	if invitation {
		title = fmt.Sprintf("You have been invited to join %s", projectCode)
		content = fmt.Sprintf("%s has invited you to join project %s. The invitation is awaiting your authorisation.", who, projectCode)
	}
	return &NotificationMessage{
		Type:       NotifyMembershipRequest,
		Title:      title,
		Recipients: []string{to},
		Timestamp:  time.Now(),
		Content:    content,
	}
}

// MembershipDecidedMessage 成员申请处理结果
func MembershipDecidedMessage(to, projectCode, status string) *NotificationMessage {
	return &NotificationMessage{
		Type:       NotifyMembershipDecided,
		Title:      fmt.Sprintf("Membership of %s: %s", projectCode, status),
		Recipients: []string{to},
		Timestamp:  time.Now(),
		Content:    fmt.Sprintf("Your membership of project %s is now: %s.", projectCode, status),
	}
}

// PendingDigestMessage 待审批汇总
func PendingDigestMessage(reviewers []string, lines []string) *NotificationMessage {
	return &NotificationMessage{
		Type:       NotifyPendingDigest,
		Title:      fmt.Sprintf("%d allocation requests awaiting approval", len(lines)),
		Recipients: reviewers,
		Timestamp:  time.Now(),
		Content:    "The following allocation requests are awaiting approval:\n\n" + strings.Join(lines, "\n"),
	}
}

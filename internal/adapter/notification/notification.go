package notification

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"hpc-portal/internal/pkg/config"
)

type NotificationType string

const (
	NotifySupervisorApproval NotificationType = "supervisor_approval" // 导师审批链接
	NotifyFundingApproval    NotificationType = "funding_approval"    // PI 审批链接
	NotifyAllocationCreated  NotificationType = "allocation_created"  // 新资源申请
	NotifyAllocationDecided  NotificationType = "allocation_decided"  // 资源申请已决定
	NotifyProjectDecided     NotificationType = "project_decided"     // 项目已决定
	NotifyMembershipRequest  NotificationType = "membership_request"  // 成员申请/邀请
	NotifyMembershipDecided  NotificationType = "membership_decided"  // 成员申请已处理
	NotifyPendingDigest      NotificationType = "pending_digest"      // 待审批汇总
)

// NotificationMessage 渠道无关的通知内容, Extra 只用于日志
type NotificationMessage struct {
	Type       NotificationType       `json:"type"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Recipients []string               `json:"recipients"`
	Timestamp  time.Time              `json:"timestamp"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// Notifier 投递渠道, 实现需可并发调用
type Notifier interface {
	Send(ctx context.Context, msg *NotificationMessage) error
}

// MultiNotifier 依次投递到所有渠道, 单个渠道失败不影响其他渠道
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers, logger: logger}
}

func (m *MultiNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			m.logger.Error("通知渠道投递失败", zap.String("type", string(msg.Type)), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier 未启用邮件时的默认渠道, 只写日志
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg *NotificationMessage) error {
	fields := []zap.Field{
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title),
		zap.Strings("recipients", msg.Recipients),
	}
	for k, v := range msg.Extra {
		fields = append(fields, zap.Any(k, v))
	}
	n.logger.Info("通知(未发送)", append(fields, zap.String("content", msg.Content))...)
	return nil
}

// NewFromConfig 邮件或日志为主渠道, 配置了群机器人时同时推送审批类消息
func NewFromConfig(cfg config.NotificationConfig, logger *zap.Logger) Notifier {
	primary := Notifier(NewLogNotifier(logger))
	if cfg.Enabled && cfg.Provider == "mail" {
		primary = NewMailNotifier(cfg.Mail, logger)
	}
	if cfg.LarkWebhook == "" {
		return primary
	}
	return NewMultiNotifier(logger, primary, NewLarkNotifier(cfg.LarkWebhook, logger))
}

package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"hpc-portal/internal/pkg/config"
)

// MailNotifier SMTP邮件通知器
type MailNotifier struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewMailNotifier 创建邮件通知器
func NewMailNotifier(cfg config.MailConfig, logger *zap.Logger) *MailNotifier {
	return &MailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

// Send 发送邮件, 无收件人时跳过
func (n *MailNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if len(msg.Recipients) == 0 {
		n.logger.Debug("无收件人,跳过邮件", zap.String("type", string(msg.Type)))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := n.buildMessage(msg)
	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	n.logger.Info("邮件发送成功",
		zap.String("type", string(msg.Type)),
		zap.Strings("to", msg.Recipients))
	return nil
}

func (n *MailNotifier) buildMessage(msg *NotificationMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.Recipients...)
	m.SetHeader("Subject", msg.Title)
	m.SetDateHeader("Date", msg.Timestamp)
	m.SetBody("text/plain", msg.Content)
	return m
}

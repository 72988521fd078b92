package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LarkNotifier 推送到审批人群聊机器人, 只关心待评审的消息
type LarkNotifier struct {
	webhookURL string
	logger     *zap.Logger
	client     *http.Client
}

type larkText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type larkElement struct {
	Tag  string   `json:"tag"`
	Text larkText `json:"text"`
}

type larkCard struct {
	MsgType string `json:"msg_type"`
	Card    struct {
		Header struct {
			Title    larkText `json:"title"`
			Template string   `json:"template"`
		} `json:"header"`
		Elements []larkElement `json:"elements"`
	} `json:"card"`
}

// larkReply 机器人接口即使失败也可能返回 200, 以 code 为准
type larkReply struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func NewLarkNotifier(webhookURL string, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		webhookURL: webhookURL,
		logger:     logger,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *LarkNotifier) accepts(t NotificationType) bool {
	return t == NotifyAllocationCreated || t == NotifyPendingDigest
}

// Send 非评审类消息直接忽略
func (n *LarkNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if n.webhookURL == "" || !n.accepts(msg.Type) {
		return nil
	}

	body, err := json.Marshal(n.card(msg))
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("机器人接口返回状态码 %d", resp.StatusCode)
	}
	var reply larkReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err == nil && reply.Code != 0 {
		return fmt.Errorf("机器人接口返回错误 %d: %s", reply.Code, reply.Msg)
	}

	n.logger.Info("机器人通知已推送", zap.String("type", string(msg.Type)), zap.String("title", msg.Title))
	return nil
}

func (n *LarkNotifier) card(msg *NotificationMessage) *larkCard {
	c := &larkCard{MsgType: "interactive"}
	c.Card.Header.Title = larkText{Tag: "plain_text", Content: msg.Title}
	c.Card.Header.Template = "blue"
	if msg.Type == NotifyPendingDigest {
		c.Card.Header.Template = "orange"
	}
	c.Card.Elements = []larkElement{{Tag: "div", Text: larkText{Tag: "lark_md", Content: msg.Content}}}
	return c
}

package dto

// StatusHistoryResponse 状态变更记录
type StatusHistoryResponse struct {
	ID           int64                  `json:"id"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   int64                  `json:"resource_id"`
	Event        string                 `json:"event"`
	FromStatus   int8                   `json:"from_status"`
	ToStatus     int8                   `json:"to_status"`
	Operator     string                 `json:"operator"`
	Reason       string                 `json:"reason,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
	CreatedAt    string                 `json:"created_at"`
}

package errors

import (
	stdErrors "errors"
	"fmt"
)

// 错误码
const (
	CodeSuccess         = 200
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeInternalError   = 500
	CodeDatabaseError   = 501
	CodeAuthError       = 502
	CodeValidationError = 503
)

// AppError 应用错误
type AppError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"` // 字段级校验错误
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同码同消息视为同一错误, 便于 errors.Is 匹配预定义错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation 字段级校验错误
func Validation(fields map[string]string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: "请求参数错误",
		Fields:  fields,
	}
}

// As 取出错误链中的 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// 预定义错误
var (
	ErrBadRequest      = New(CodeBadRequest, "请求参数错误")
	ErrUnauthorized    = New(CodeUnauthorized, "未授权")
	ErrForbidden       = New(CodeForbidden, "禁止访问")
	ErrNotFound        = New(CodeNotFound, "资源不存在")
	ErrConflict        = New(CodeConflict, "资源冲突")
	ErrInternalError   = New(CodeInternalError, "内部服务器错误")
	ErrDatabaseError   = New(CodeDatabaseError, "数据库错误")
	ErrAuthError       = New(CodeAuthError, "认证失败")
	ErrValidationError = New(CodeValidationError, "数据验证失败")

	// 具体业务错误
	ErrInvalidParams        = New(CodeBadRequest, "请求参数错误")
	ErrInvalidCredentials   = New(CodeAuthError, "用户名或密码错误")
	ErrLDAPConnectionFailed = New(CodeAuthError, "LDAP连接失败")
	ErrUserNotFound         = New(CodeNotFound, "用户不存在")
	ErrUserDisabled         = New(CodeForbidden, "用户已禁用")
	ErrUnknownUser          = New(CodeUnauthorized, "未注册的用户")
	ErrInvalidToken         = New(CodeUnauthorized, "无效的Token")
	ErrTokenExpired         = New(CodeUnauthorized, "Token已过期")
	ErrTokenUsed            = New(CodeConflict, "Token已被使用")
	ErrRecordNotFound       = New(CodeNotFound, "记录不存在")
	ErrRecordExists         = New(CodeConflict, "记录已存在")
	ErrStateConflict        = New(CodeConflict, "状态冲突")

	// 门户业务错误, 消息直接展示给用户
	ErrInvalidProjectCode = New(CodeNotFound, "Invalid Project Code")
	ErrExternalUser       = New(CodeForbidden, "External users cannot create projects")
	ErrNotProjectOwner    = New(CodeForbidden, "Only project owners can perform this action")
	ErrBundledNotAllowed  = New(CodeBadRequest, "Allocation requests must be submitted separately for this institution")
	ErrAllocationBlocked  = New(CodeConflict, "Allocation cannot be approved until the supervisor and funding approvals are complete")
	ErrProjectDeclined    = New(CodeConflict, "This project has been declined")
)

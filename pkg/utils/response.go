package utils

import (
	"github.com/gin-gonic/gin"

	"hpc-portal/pkg/errors"
)

// Response 统一响应结构, HTTP 状态码恒为 200, 业务结果看 code
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Detail  string      `json:"detail,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 列表响应
type PageResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Size    int         `json:"size"`
}

func reply(c *gin.Context, body interface{}) {
	c.JSON(200, body)
}

func Success(c *gin.Context, data interface{}) {
	reply(c, Response{Code: errors.CodeSuccess, Message: "success", Data: data})
}

// PageSuccess data 为 nil 时返回空数组
func PageSuccess(c *gin.Context, data interface{}, total int64, page, size int) {
	if data == nil {
		data = []struct{}{}
	}
	reply(c, PageResponse{
		Code:    errors.CodeSuccess,
		Message: "success",
		Data:    data,
		Total:   total,
		Page:    page,
		Size:    size,
	})
}

// Error 业务错误原样返回, 其他错误按 500 处理并把原因放进 detail
func Error(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		ErrorWithDetail(c, errors.CodeInternalError, errors.ErrInternalError.Message, err.Error())
		return
	}
	resp := Response{Code: appErr.Code, Message: appErr.Message}
	if len(appErr.Fields) > 0 {
		resp.Data = gin.H{"fields": appErr.Fields}
	}
	if appErr.Err != nil && appErr.Code >= errors.CodeInternalError {
		resp.Detail = appErr.Err.Error()
	}
	reply(c, resp)
}

func ErrorWithDetail(c *gin.Context, code int, message, detail string) {
	reply(c, Response{Code: code, Message: message, Detail: detail})
}

// BindError 请求绑定失败, 校验错误按字段返回
func BindError(c *gin.Context, err error) {
	if fields := ValidationFields(err); len(fields) > 0 {
		Error(c, errors.Validation(fields))
		return
	}
	ErrorWithDetail(c, errors.CodeBadRequest, errors.ErrBadRequest.Message, FormatValidationError(err))
}

package workflow

import (
	"gorm.io/gorm"
)

// Stateful 可参与状态流转的模型
type Stateful interface {
	GetID() int64
	GetStatus() int8
	SetStatus(status int8)
}

// TransitionHandler 状态转换的附加处理
type TransitionHandler[T Stateful] interface {
	// Handle 检查合法性, 处理强依赖操作, 与状态更新同一事务
	Handle(tx *gorm.DB, obj T, from, to int8, options *TransitionOptions[T]) error

	// After 事务提交后执行, 失败不影响状态
	After(obj T, from, to int8, options *TransitionOptions[T])
}

// HandlerFuncs 用函数组装 TransitionHandler
type HandlerFuncs[T Stateful] struct {
	HandleFunc func(tx *gorm.DB, obj T, from, to int8, options *TransitionOptions[T]) error
	AfterFunc  func(obj T, from, to int8, options *TransitionOptions[T])
}

func (h HandlerFuncs[T]) Handle(tx *gorm.DB, obj T, from, to int8, options *TransitionOptions[T]) error {
	if h.HandleFunc == nil {
		return nil
	}
	return h.HandleFunc(tx, obj, from, to, options)
}

func (h HandlerFuncs[T]) After(obj T, from, to int8, options *TransitionOptions[T]) {
	if h.AfterFunc != nil {
		h.AfterFunc(obj, from, to, options)
	}
}

// StateTransition 一条合法的状态转换
type StateTransition[T Stateful] struct {
	From    int8
	To      int8
	Event   string
	Handler TransitionHandler[T]
}

type TransitionOption[T Stateful] func(*TransitionOptions[T])

type TransitionOptions[T Stateful] struct {
	Operator   string
	Reason     string
	Detail     map[string]interface{}
	SideEffect func(obj T)
	// SideEffect 改动的列, 更新时只写 status 与这些列
	Columns    []string
}

func WithModelEffects[T Stateful](sideEffect func(obj T), columns ...string) TransitionOption[T] {
	return func(o *TransitionOptions[T]) {
		o.SideEffect = sideEffect
		o.Columns = append(o.Columns, columns...)
	}
}

func WithOperator[T Stateful](operator string) TransitionOption[T] {
	return func(o *TransitionOptions[T]) { o.Operator = operator }
}

func WithReason[T Stateful](reason string) TransitionOption[T] {
	return func(o *TransitionOptions[T]) { o.Reason = reason }
}

func WithDetail[T Stateful](key string, value interface{}) TransitionOption[T] {
	return func(o *TransitionOptions[T]) {
		if o.Detail == nil {
			o.Detail = make(map[string]interface{})
		}
		o.Detail[key] = value
	}
}

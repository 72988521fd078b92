package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hpc-portal/internal/model"
	pkgErrors "hpc-portal/pkg/errors"
)

// StateMachine 按转换表驱动单一实体的状态流转
type StateMachine[T Stateful] struct {
	db       *gorm.DB
	logger   *zap.Logger
	resource string
	newFn    func() T
	nameFn   func(int8) string

	// from → to → transition
	transitions map[int8]map[int8]StateTransition[T]
}

// NewStateMachine 创建状态机, newFn 返回用于加载记录的空模型
func NewStateMachine[T Stateful](db *gorm.DB, logger *zap.Logger, resource string, newFn func() T, nameFn func(int8) string, trans []StateTransition[T]) *StateMachine[T] {
	sm := &StateMachine[T]{
		db:          db,
		logger:      logger,
		resource:    resource,
		newFn:       newFn,
		nameFn:      nameFn,
		transitions: make(map[int8]map[int8]StateTransition[T]),
	}
	for _, t := range trans {
		if sm.transitions[t.From] == nil {
			sm.transitions[t.From] = make(map[int8]StateTransition[T])
		}
		sm.transitions[t.From][t.To] = t
	}
	return sm
}

// CanTransition 检查转换表
func (sm *StateMachine[T]) CanTransition(from, to int8) bool {
	_, ok := sm.transitions[from][to]
	return ok
}

// ChangeStatus 在一个事务内完成: 重新加载, 校验转换, 业务处理, 乐观锁更新, 写审计
func (sm *StateMachine[T]) ChangeStatus(ctx context.Context, id int64, to int8, opts ...TransitionOption[T]) (T, error) {
	log := sm.logger.Sugar().With(zap.String("resource", sm.resource), zap.Int64("id", id))

	option := &TransitionOptions[T]{}
	for _, opt := range opts {
		opt(option)
	}

	obj := sm.newFn()
	var from int8
	var afterHandler func()

	err := sm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 重新加载最新状态, 非 sqlite 加行锁
		query := tx
		if tx.Dialector.Name() != "sqlite" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(obj, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgErrors.ErrRecordNotFound
			}
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "加载记录失败", err)
		}
		from = obj.GetStatus()

		// 2. 检查是否允许
		t, ok := sm.transitions[from][to]
		if !ok {
			return pkgErrors.Wrap(pkgErrors.CodeConflict, pkgErrors.ErrStateConflict.Message,
				fmt.Errorf("当前状态 %s 不允许转换到 %s", sm.nameFn(from), sm.nameFn(to)))
		}

		// 3. 执行业务字段更新
		if option.SideEffect != nil {
			option.SideEffect(obj)
		}

		if t.Handler != nil {
			// 4. 处理强依赖操作, 失败自动回滚
			if err := t.Handler.Handle(tx, obj, from, to, option); err != nil {
				return err
			}

			// 后处理函数
			handler := t.Handler
			afterHandler = func() {
				handler.After(obj, from, to, option)
			}
		}

		// 5. 乐观锁更新, 只写状态列和声明过的业务列
		obj.SetStatus(to)
		columns := append([]string{"status", "updated_at"}, option.Columns...)
		result := tx.Model(obj).
			Select(columns).
			Where("status = ?", from).
			Updates(obj)
		if result.Error != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新状态失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return pkgErrors.ErrStateConflict
		}

		// 6. 审计
		history := &model.StatusHistory{
			ResourceType: sm.resource,
			ResourceID:   id,
			Event:        t.Event,
			FromStatus:   from,
			ToStatus:     to,
			Operator:     option.Operator,
			Reason:       option.Reason,
		}
		if len(option.Detail) > 0 {
			history.Detail = datatypes.JSONMap(option.Detail)
		}
		if err := tx.Create(history).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "记录状态变更失败", err)
		}

		log.Infof("状态变更成功: %s -> %s", sm.nameFn(from), sm.nameFn(to))
		return nil
	})

	if err != nil {
		log.Warnf("状态变更失败 -> %s: %v", sm.nameFn(to), err)
		var zero T
		return zero, err
	}

	// 事务成功后执行 after()
	if afterHandler != nil {
		afterHandler()
	}
	return obj, nil
}

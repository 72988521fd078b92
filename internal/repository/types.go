package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgErrors "hpc-portal/pkg/errors"
)

type QueryOption func(*gorm.DB) *gorm.DB

func WithPreload(association string, conds ...interface{}) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(association, conds...)
	}
}

// WithLock 行锁, sqlite 下被忽略
func WithLock() QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		if db.Dialector.Name() == "sqlite" {
			return db
		}
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
}

func applyOptions(db *gorm.DB, opts []QueryOption) *gorm.DB {
	for _, opt := range opts {
		db = opt(db)
	}
	return db
}

// wrapFind 查询错误转换, 未找到统一为 ErrRecordNotFound
func wrapFind(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgErrors.ErrRecordNotFound
	}
	return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, message, err)
}

// wrapWrite 写入错误转换, 唯一键冲突统一为 ErrRecordExists
func wrapWrite(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgErrors.Wrap(pkgErrors.CodeConflict, pkgErrors.ErrRecordExists.Message, err)
	}
	return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, message, err)
}

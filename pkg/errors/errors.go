package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// VersionConflictError 带表名与版本号的乐观锁冲突
type VersionConflictError struct {
	Table   string
	ID      string
	Version int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s %s 版本 %d 已被修改", e.Table, e.ID, e.Version)
}

// Is 使 errors.Is(err, ErrOptimisticLock) 成立
func (e *VersionConflictError) Is(target error) bool {
	return target == ErrOptimisticLock
}

// VersionConflict 构造乐观锁冲突错误；version 为更新前持有的版本
func VersionConflict(table, id string, version int) error {
	return &VersionConflictError{Table: table, ID: id, Version: version}
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                   json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"             json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:varchar(64)" json:"deleted_by,omitempty"`
}

// Operator 审计字段取值：系统任务（启动导入、命令行）没有操作人时返回 nil
func Operator(callerID string) *string {
	if callerID == "" {
		return nil
	}
	return &callerID
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

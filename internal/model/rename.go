package model

import "time"

// RenameIntent 记录一次进行中的存档重命名（先复制后删除的两阶段操作）。
// 复制前落库、删除旧对象后清除；进程崩溃后残留的记录由启动时的
// 恢复流程扫描并收敛（见 VaultService.RecoverPendingRenames）。
type RenameIntent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	OldName   string    `gorm:"type:varchar(255);not null" json:"oldName"`
	NewName   string    `gorm:"type:varchar(255);not null" json:"newName"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (RenameIntent) TableName() string {
	return "rename_intents"
}

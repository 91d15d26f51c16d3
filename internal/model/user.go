// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// User 定义了 users 表的 ORM 模型。
// AvatarPath 指向对象存储中的固定头像路径，为空表示未设置头像。
type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email       string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	DisplayName string    `gorm:"type:varchar(50)" json:"displayName"`
	AvatarPath  string    `gorm:"type:varchar(255)" json:"-"`
	Role        string    `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

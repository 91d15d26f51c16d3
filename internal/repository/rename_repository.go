package repository

import (
	"save-vault-go/internal/model"

	"gorm.io/gorm"
)

// RenameIntentRepository 接口定义了重命名意向记录的持久化操作。
type RenameIntentRepository interface {
	Create(intent *model.RenameIntent) error
	Delete(intentID uint) error
	ListAll() ([]model.RenameIntent, error)
}

// renameIntentRepository 是 RenameIntentRepository 接口的 GORM 实现。
type renameIntentRepository struct {
	db *gorm.DB
}

// NewRenameIntentRepository 创建一个新的 RenameIntentRepository 实例。
func NewRenameIntentRepository(db *gorm.DB) RenameIntentRepository {
	return &renameIntentRepository{db: db}
}

// Create 写入一条重命名意向记录。
func (r *renameIntentRepository) Create(intent *model.RenameIntent) error {
	return r.db.Create(intent).Error
}

// Delete 清除一条重命名意向记录。
func (r *renameIntentRepository) Delete(intentID uint) error {
	return r.db.Delete(&model.RenameIntent{}, intentID).Error
}

// ListAll 返回全部残留的重命名意向记录（启动恢复时调用）。
func (r *renameIntentRepository) ListAll() ([]model.RenameIntent, error) {
	var intents []model.RenameIntent
	if err := r.db.Find(&intents).Error; err != nil {
		return nil, err
	}
	return intents, nil
}

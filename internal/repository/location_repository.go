package repository

import (
	"encoding/json"
	"errors"

	"save-vault-go/internal/model"

	"gorm.io/gorm"
)

// LocationRepository 接口定义了存档路径列表的持久化操作。
// 每个 (userID, fileName) 至多一条记录；列表为空时记录整体删除，
// 因此"记录不存在"是一个正常状态而不是错误。
type LocationRepository interface {
	GetLocations(userID uint, fileName string) ([]string, error)
	SaveLocations(userID uint, fileName string, locations []string) error
	DeleteLocations(userID uint, fileName string) error
	DeleteAllForUser(userID uint) error
}

// locationRepository 是 LocationRepository 接口的 GORM 实现。
type locationRepository struct {
	db *gorm.DB
}

// NewLocationRepository 创建一个新的 LocationRepository 实例。
func NewLocationRepository(db *gorm.DB) LocationRepository {
	return &locationRepository{db: db}
}

// GetLocations 读取某个存档文件持久化的路径列表。
// 记录不存在时返回 (nil, nil)，由 service 层补默认值。
func (r *locationRepository) GetLocations(userID uint, fileName string) ([]string, error) {
	var record model.SaveLocation
	err := r.db.Where("user_id = ? AND file_name = ?", userID, fileName).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var locations []string
	if err := json.Unmarshal([]byte(record.Locations), &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// SaveLocations 以整体覆盖的方式持久化路径列表（last write wins）。
func (r *locationRepository) SaveLocations(userID uint, fileName string, locations []string) error {
	payload, err := json.Marshal(locations)
	if err != nil {
		return err
	}

	var record model.SaveLocation
	err = r.db.Where("user_id = ? AND file_name = ?", userID, fileName).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = model.SaveLocation{
			UserID:    userID,
			FileName:  fileName,
			Locations: string(payload),
		}
		return r.db.Create(&record).Error
	}
	if err != nil {
		return err
	}

	record.Locations = string(payload)
	return r.db.Save(&record).Error
}

// DeleteLocations 删除某个存档文件的路径记录。记录不存在时为空操作。
func (r *locationRepository) DeleteLocations(userID uint, fileName string) error {
	return r.db.Where("user_id = ? AND file_name = ?", userID, fileName).Delete(&model.SaveLocation{}).Error
}

// DeleteAllForUser 删除某用户的全部路径记录（注销账号时调用）。
func (r *locationRepository) DeleteAllForUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&model.SaveLocation{}).Error
}

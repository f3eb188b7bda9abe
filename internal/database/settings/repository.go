// Package settings provides database operations for runtime settings.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	setting, err := repo.GetSetting(entities.SettingKeyLDAPServer)
package settings

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/phonedir/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a setting value, keeping its metadata.
func (r *Repository) SetSetting(key, value string) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			Key:      key,
			Value:    value,
			Type:     entities.SettingTypeString,
			Category: entities.SettingCategoryInternal,
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return r.db.Save(&setting).Error
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}

// ListByCategory returns the settings of one category ordered by key.
func (r *Repository) ListByCategory(category entities.SettingCategory) ([]entities.Setting, error) {
	var settings []entities.Setting
	err := r.db.Where("category = ?", category).Order("key").Find(&settings).Error
	return settings, err
}

// ListAll returns every non-internal setting.
func (r *Repository) ListAll() ([]entities.Setting, error) {
	var settings []entities.Setting
	err := r.db.Where("category != ?", entities.SettingCategoryInternal).
		Order("category, key").
		Find(&settings).Error
	return settings, err
}

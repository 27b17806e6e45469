package models

import (
	"ifcserver/db"
)

// Model is an uploaded IFC file. Rows are never updated, only created and deleted.
type Model struct {
	ID               uint64 `gorm:"primaryKey" json:"id"`
	Name             string `gorm:"type:varchar(300);not null" json:"name"`
	Filename         string `gorm:"type:varchar(300);not null" json:"filename"` // Name inside the storage
	OriginalFilename string `gorm:"type:varchar(300);not null" json:"originalFilename"`
	Size             int64  `gorm:"not null" json:"size"`
	MimeType         string `gorm:"type:varchar(100);not null" json:"mimeType"`
	CreatedAt        int64  `gorm:"index" json:"createdAt"`
}

// ListModels returns all models, newest first
func ListModels() (result []Model, err error) {
	err = db.Instance.Order("created_at DESC, id DESC").Find(&result).Error
	return
}

// GetModel returns gorm.ErrRecordNotFound for unknown IDs
func GetModel(id uint64) (model Model, err error) {
	err = db.Instance.First(&model, id).Error
	return
}

func ModelExists(id uint64) bool {
	var count int64
	if err := db.Instance.Model(&Model{}).Where("id = ?", id).Count(&count).Error; err != nil {
		// Unknown is treated as existing so nothing gets deleted by mistake
		return true
	}
	return count > 0
}

func (m *Model) Create() error {
	return db.Instance.Create(m).Error
}

func (m *Model) Delete() error {
	return db.Instance.Delete(m).Error
}

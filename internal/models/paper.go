package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PaperTypeLiterature = "literature"
	PaperTypePublished  = "published"
)

// Paper 只保留统计分类所需的字段，论文的增删改不在本服务中
type Paper struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Title      string         `json:"title" gorm:"size:500;not null"`
	PaperType  string         `json:"paper_type" gorm:"size:20;default:literature;index"`
	CategoryID *uint          `json:"category_id" gorm:"index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/snow-cube/paper-manager/internal/category"
)

// Category 是论文分类，全局公共
type Category struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	ParentID    *uint          `json:"parent_id" gorm:"index"`
	SortOrder   int            `json:"sort_order" gorm:"default:0"`
	Description *string        `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// 计算字段
	PaperCount *int `json:"paper_count,omitempty" gorm:"-"`
}

// Record converts c into the flat record shape shared with the client cache.
func (c *Category) Record() (category.Record, error) {
	extra := map[string]any{
		"description": c.Description,
		"sort_order":  c.SortOrder,
	}
	if c.PaperCount != nil {
		extra["paper_count"] = *c.PaperCount
	}
	return category.NewRecord(c.ID, c.Name, c.ParentID, extra)
}

type CategoryCreateRequest struct {
	Name        string  `json:"name" validate:"required,max=100,categoryname"`
	ParentID    *uint   `json:"parent_id"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	SortOrder   int     `json:"sort_order"`
}

type CategoryQuery struct {
	IncludeStats bool   `form:"include_stats"`
	PaperType    string `form:"paper_type" validate:"omitempty,oneof=literature published"`
}

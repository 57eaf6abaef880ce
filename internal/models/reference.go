package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/snow-cube/paper-manager/internal/category"
)

// ReferenceCategory 是团队私有的参考文献分类
type ReferenceCategory struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	TeamID      uint           `json:"team_id" gorm:"not null;index"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	ParentID    *uint          `json:"parent_id" gorm:"index"`
	Description *string        `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// 计算字段
	ReferenceCount *int `json:"reference_count,omitempty" gorm:"-"`
}

func (c *ReferenceCategory) Record() (category.Record, error) {
	extra := map[string]any{
		"team_id":     c.TeamID,
		"description": c.Description,
	}
	if c.ReferenceCount != nil {
		extra["reference_count"] = *c.ReferenceCount
	}
	return category.NewRecord(c.ID, c.Name, c.ParentID, extra)
}

// ReferencePaper 只保留统计分类所需的字段
type ReferencePaper struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	TeamID     uint           `json:"team_id" gorm:"not null;index"`
	CategoryID *uint          `json:"category_id" gorm:"index"`
	Title      string         `json:"title" gorm:"size:500;not null"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

type ReferenceCategoryCreateRequest struct {
	TeamID      uint    `json:"team_id" validate:"required"`
	Name        string  `json:"name" validate:"required,max=100,categoryname"`
	ParentID    *uint   `json:"parent_id"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type ReferenceCategoryUpdateRequest struct {
	Name        string  `json:"name" validate:"required,max=100,categoryname"`
	ParentID    *uint   `json:"parent_id"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type ReferenceCategoryQuery struct {
	TeamID       uint `form:"team_id" validate:"required"`
	IncludeStats bool `form:"include_stats"`
}

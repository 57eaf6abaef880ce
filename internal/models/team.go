package models

import (
	"time"

	"gorm.io/gorm"
)

type TeamRole string

const (
	TeamRoleOwner  TeamRole = "owner"
	TeamRoleAdmin  TeamRole = "admin"
	TeamRoleMember TeamRole = "member"
)

// CanManage reports whether the role may edit team reference categories.
func (r TeamRole) CanManage() bool {
	return r == TeamRoleOwner || r == TeamRoleAdmin
}

type Team struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"size:100;not null"`
	Description *string        `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// 计算字段
	Role TeamRole `json:"role,omitempty" gorm:"-"`
}

type TeamUser struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TeamID    uint      `json:"team_id" gorm:"not null;uniqueIndex:idx_team_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_team_user"`
	Role      TeamRole  `json:"role" gorm:"size:20;not null;default:member"`
	CreatedAt time.Time `json:"created_at"`
}

type TeamCreateRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

type TeamMemberRequest struct {
	UserID uint     `json:"user_id" validate:"required"`
	Role   TeamRole `json:"role" validate:"omitempty,teamrole"`
}
